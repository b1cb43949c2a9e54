package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/forgeflow/evocore/pkg/contracts"
)

// NodeHandler executes one node's work and returns what it appended to
// the conversation log and any new pending tool calls.
type NodeHandler func(ctx context.Context, state *contracts.ConversationState) (appended []contracts.ConversationMessage, pending []contracts.PendingToolCall, err error)

// Engine drives a ConversationState through the bounded state graph,
// checkpointing after every transition so a crash can resume at the
// next node instead of replaying the whole conversation.
type Engine struct {
	graph    *Graph
	store    CheckpointStore
	locks    *ConversationLocks
	handlers map[string]NodeHandler
}

// NewEngine wires a compiled Graph, a checkpoint store, and the
// per-node handler functions.
func NewEngine(graph *Graph, store CheckpointStore, handlers map[string]NodeHandler) *Engine {
	return &Engine{graph: graph, store: store, locks: NewConversationLocks(), handlers: handlers}
}

// Start begins a brand-new conversation at NodeIntent.
func (e *Engine) Start(ctx context.Context, initial *contracts.ConversationState) (*contracts.ConversationState, error) {
	unlock := e.locks.Lock(initial.ConversationID)
	defer unlock()

	now := time.Now().UTC()
	initial.LastCompletedNode = NodeIntent
	initial.CreatedAt = now
	initial.UpdatedAt = now

	if err := e.store.Append(ctx, &contracts.Checkpoint{
		ConversationID: initial.ConversationID,
		Sequence:       0,
		Node:           NodeIntent,
		State:          initial,
		WrittenAt:      now,
	}); err != nil {
		return nil, fmt.Errorf("orchestrator: initial checkpoint: %w", err)
	}

	return e.run(ctx, initial, 1)
}

// Resume loads the latest checkpoint for conversationID and continues
// execution at the node the graph selects next — crash recovery is
// "load the last durable state, ask the graph where to go", never a
// replay of prior node work.
func (e *Engine) Resume(ctx context.Context, conversationID string) (*contracts.ConversationState, error) {
	unlock := e.locks.Lock(conversationID)
	defer unlock()

	cp, err := e.store.Latest(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: loading checkpoint: %w", err)
	}
	if cp == nil {
		return nil, fmt.Errorf("orchestrator: no checkpoint found for conversation %q", conversationID)
	}
	return e.run(ctx, cp.State, cp.Sequence+1)
}

// run executes node transitions until the conversation reaches a
// terminal state.
func (e *Engine) run(ctx context.Context, state *contracts.ConversationState, nextSequence uint64) (*contracts.ConversationState, error) {
	sequence := nextSequence

	for !state.Terminal() {
		if err := ctx.Err(); err != nil {
			return state, fmt.Errorf("orchestrator: conversation %q canceled: %w", state.ConversationID, err)
		}

		next, err := e.graph.Next(state.LastCompletedNode, stateToMap(state))
		if err != nil {
			return state, err
		}
		if next == NodeEnd {
			state = state.WithTransition(NodeEnd, nil, nil, time.Now().UTC())
			if err := e.checkpoint(ctx, state, sequence); err != nil {
				return state, err
			}
			break
		}

		if isLoopClosing(state.LastCompletedNode, next) {
			state.CycleCount++
		}

		handler, ok := e.handlers[next]
		if !ok {
			return state, fmt.Errorf("orchestrator: no handler registered for node %q", next)
		}

		appended, pending, err := handler(ctx, state)
		if err != nil {
			return state, fmt.Errorf("orchestrator: node %q failed: %w", next, err)
		}

		state = state.WithTransition(next, appended, pending, time.Now().UTC())
		if err := e.checkpoint(ctx, state, sequence); err != nil {
			return state, err
		}
		sequence++
	}

	return state, nil
}

func (e *Engine) checkpoint(ctx context.Context, state *contracts.ConversationState, sequence uint64) error {
	return e.store.Append(ctx, &contracts.Checkpoint{
		ConversationID: state.ConversationID,
		Sequence:       sequence,
		Node:           state.LastCompletedNode,
		State:          state,
		WrittenAt:      state.UpdatedAt,
	})
}

// isLoopClosing reports whether a transition closes one lap of the
// llm<->tool loop, i.e. tool handing control back to llm.
func isLoopClosing(from, to string) bool {
	return from == NodeTool && to == NodeLLM
}

// stateToMap projects the fields the graph's CEL guards reference.
// Only a subset of ConversationState is exposed — guards should never
// need the full message log.
func stateToMap(s *contracts.ConversationState) map[string]any {
	return map[string]any{
		"pending_tool_calls": toAnySlice(len(s.PendingToolCalls)),
		"cycle_count":        int64(s.CycleCount),
		"max_cycles":         int64(s.MaxCycles),
		"remaining_hops":     int64(s.RemainingHops),
	}
}

// toAnySlice fabricates a slice of the given length so CEL's size()
// builtin can be used uniformly whether the guard checks a real list
// or, as here, just a count.
func toAnySlice(n int) []any {
	return make([]any, n)
}
