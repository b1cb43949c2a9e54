package orchestrator

import (
	"time"

	"github.com/forgeflow/evocore/pkg/contracts"
)

// NewA2AMessage composes a persisted agent-to-agent message for a node
// handler to return as part of its appended set — persisting it inside
// the checkpointed ConversationState means delivery survives crash
// recovery without a separate message queue.
func NewA2AMessage(sender, recipient, payload, correlationID string, hopIndex int) contracts.ConversationMessage {
	return contracts.ConversationMessage{
		Role:     contracts.RoleA2A,
		Content:  payload,
		HopIndex: hopIndex,
		A2A: &contracts.A2AMessage{
			SenderRole:    sender,
			RecipientRole: recipient,
			Payload:       payload,
			HopIndex:      hopIndex,
			CorrelationID: correlationID,
		},
		Metadata: map[string]any{"delivered_at": time.Now().UTC().Format(time.RFC3339Nano)},
	}
}
