// Package contracts defines the core entity shapes shared by every
// component of the orchestration core: ConversationState, Checkpoint,
// ArtifactBundle, GeneratorResponseContract, ValidationReport,
// AttemptRecord, AttestedInstall, ModuleManifest, ExecutionPolicy, and
// RoutingDecision, per the data model spec.
package contracts

import "time"

// MessageRole identifies who produced a ConversationMessage.
type MessageRole string

const (
	RoleUser  MessageRole = "user"
	RoleAgent MessageRole = "agent"
	RoleTool  MessageRole = "tool"
	RoleA2A   MessageRole = "a2a"
)

// ConversationMessage is one entry in a ConversationState's message log.
type ConversationMessage struct {
	Role        MessageRole    `json:"role"`
	Content     string         `json:"content"`
	Attachments []string       `json:"attachments,omitempty"`
	HopIndex    int            `json:"hop_index"`
	ToolCallID  string         `json:"tool_call_id,omitempty"`
	A2A         *A2AMessage    `json:"a2a,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// A2AMessage is an agent-to-agent message persisted inside a
// ConversationState so delivery survives crash recovery.
type A2AMessage struct {
	SenderRole    string `json:"sender_role"`
	RecipientRole string `json:"recipient_role"`
	Payload       string `json:"payload"`
	HopIndex      int    `json:"hop_index"`
	CorrelationID string `json:"correlation_id"`
}

// PendingToolCall is a tool invocation the agent has requested but that
// has not yet produced a result.
type PendingToolCall struct {
	ID        string         `json:"id"`
	Tool      string         `json:"tool"`
	Arguments map[string]any `json:"arguments"`
	HopIndex  int            `json:"hop_index"`
}

// ConversationState is the per-workflow-run entity owned by the
// Workflow Orchestrator (C6). Every mutation is appended; there is no
// in-place edit. remaining_hops strictly decreases and is never
// negative; when zero the state is terminal.
type ConversationState struct {
	ConversationID        string                 `json:"conversation_id"`
	OrgID                 string                 `json:"org_id"`
	CorrelationID         string                 `json:"correlation_id"`
	Messages              []ConversationMessage  `json:"messages"`
	RemainingHops         int                    `json:"remaining_hops"`
	MaxCycles             int                    `json:"max_cycles"`
	PendingToolCalls      []PendingToolCall      `json:"pending_tool_calls,omitempty"`
	LastCompletedNode     string                 `json:"last_completed_node"`
	RouterRecommendation  *RoutingDecision       `json:"router_recommendation,omitempty"`
	CycleCount            int                    `json:"cycle_count"`
	CreatedAt             time.Time              `json:"created_at"`
	UpdatedAt             time.Time              `json:"updated_at"`
}

// Terminal reports whether the conversation has reached a terminal
// state: no hops remain, or the last completed node is "end".
func (c *ConversationState) Terminal() bool {
	return c.RemainingHops <= 0 || c.LastCompletedNode == "end"
}

// WithTransition returns a new ConversationState reflecting a node
// transition: remaining_hops strictly decreases (floored at zero) and
// the message/tool-call logs are appended to, never mutated in place.
func (c *ConversationState) WithTransition(node string, appended []ConversationMessage, pending []PendingToolCall, now time.Time) *ConversationState {
	next := *c
	next.Messages = append(append([]ConversationMessage{}, c.Messages...), appended...)
	next.PendingToolCalls = pending
	next.LastCompletedNode = node
	if next.RemainingHops > 0 {
		next.RemainingHops--
	}
	next.UpdatedAt = now
	return &next
}
