package contracts

import "time"

// Checkpoint is a durable snapshot of ConversationState after a node
// transition completes. The journal is append-only, keyed by
// (conversation_id, sequence); the latest sequence is the resume
// point. Writes must be durable before the node is reported complete.
type Checkpoint struct {
	ConversationID string              `json:"conversation_id"`
	Sequence       uint64              `json:"sequence"`
	Node           string              `json:"node"`
	State          *ConversationState  `json:"state"`
	WrittenAt      time.Time           `json:"written_at"`
}
