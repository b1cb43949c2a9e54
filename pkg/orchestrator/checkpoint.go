package orchestrator

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/forgeflow/evocore/pkg/contracts"

	_ "modernc.org/sqlite"
)

// CheckpointStore persists the append-only, (conversation_id, sequence)
// keyed checkpoint journal.
type CheckpointStore interface {
	Append(ctx context.Context, cp *contracts.Checkpoint) error
	Latest(ctx context.Context, conversationID string) (*contracts.Checkpoint, error)
}

// SQLiteCheckpointStore is the durable, single-node implementation —
// the pure-Go sqlite driver keeps the orchestrator dependency-free of
// cgo, matching the single-process deployment assumption.
type SQLiteCheckpointStore struct {
	db *sql.DB
}

// NewSQLiteCheckpointStore opens (and migrates) a checkpoint journal at
// dsn, e.g. "file:checkpoints.db?_pragma=journal_mode(WAL)".
func NewSQLiteCheckpointStore(dsn string) (*SQLiteCheckpointStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: opening checkpoint store: %w", err)
	}
	const schema = `
CREATE TABLE IF NOT EXISTS checkpoints (
	conversation_id TEXT NOT NULL,
	sequence        INTEGER NOT NULL,
	node            TEXT NOT NULL,
	state           BLOB NOT NULL,
	written_at      TEXT NOT NULL,
	PRIMARY KEY (conversation_id, sequence)
);`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("orchestrator: migrating checkpoint store: %w", err)
	}
	return &SQLiteCheckpointStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteCheckpointStore) Close() error { return s.db.Close() }

// Append writes one checkpoint row. Writes must succeed before the
// caller reports the owning node transition complete.
func (s *SQLiteCheckpointStore) Append(ctx context.Context, cp *contracts.Checkpoint) error {
	stateBytes, err := json.Marshal(cp.State)
	if err != nil {
		return fmt.Errorf("orchestrator: marshaling checkpoint state: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO checkpoints (conversation_id, sequence, node, state, written_at) VALUES (?, ?, ?, ?, ?)`,
		cp.ConversationID, cp.Sequence, cp.Node, stateBytes, cp.WrittenAt.Format(timeLayout))
	if err != nil {
		return fmt.Errorf("orchestrator: appending checkpoint: %w", err)
	}
	return nil
}

// Latest returns the highest-sequence checkpoint for a conversation, or
// nil if none exists — a fresh conversation starting at node "intent".
func (s *SQLiteCheckpointStore) Latest(ctx context.Context, conversationID string) (*contracts.Checkpoint, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT sequence, node, state, written_at FROM checkpoints
		 WHERE conversation_id = ? ORDER BY sequence DESC LIMIT 1`, conversationID)

	var (
		sequence   uint64
		node       string
		stateBytes []byte
		writtenAt  string
	)
	if err := row.Scan(&sequence, &node, &stateBytes, &writtenAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("orchestrator: loading latest checkpoint: %w", err)
	}

	var state contracts.ConversationState
	if err := json.Unmarshal(stateBytes, &state); err != nil {
		return nil, fmt.Errorf("orchestrator: unmarshaling checkpoint state: %w", err)
	}
	ts, err := parseTimeLayout(writtenAt)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: parsing checkpoint timestamp: %w", err)
	}

	return &contracts.Checkpoint{
		ConversationID: conversationID,
		Sequence:       sequence,
		Node:           node,
		State:          &state,
		WrittenAt:      ts,
	}, nil
}

// InMemoryCheckpointStore is a test double and single-process fallback.
type InMemoryCheckpointStore struct {
	mu    sync.Mutex
	byKey map[string][]*contracts.Checkpoint
}

// NewInMemoryCheckpointStore builds an empty store.
func NewInMemoryCheckpointStore() *InMemoryCheckpointStore {
	return &InMemoryCheckpointStore{byKey: make(map[string][]*contracts.Checkpoint)}
}

func (s *InMemoryCheckpointStore) Append(ctx context.Context, cp *contracts.Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byKey[cp.ConversationID] = append(s.byKey[cp.ConversationID], cp)
	return nil
}

func (s *InMemoryCheckpointStore) Latest(ctx context.Context, conversationID string) (*contracts.Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.byKey[conversationID]
	if len(list) == 0 {
		return nil, nil
	}
	return list[len(list)-1], nil
}
