package orchestrator

import (
	"hash/fnv"
	"sync"
)

// shardCount bounds the number of mutexes held at once; conversations
// hashing to the same shard serialize against each other, which is an
// acceptable tradeoff against holding one lock per conversation_id
// forever.
const shardCount = 64

// ConversationLocks serializes node execution per conversation_id so
// two goroutines never race to checkpoint the same conversation.
type ConversationLocks struct {
	shards [shardCount]sync.Mutex
}

// NewConversationLocks builds a ready-to-use shard set.
func NewConversationLocks() *ConversationLocks {
	return &ConversationLocks{}
}

// Lock acquires the shard for conversationID and returns the unlock func.
func (l *ConversationLocks) Lock(conversationID string) func() {
	shard := &l.shards[shardIndex(conversationID)]
	shard.Lock()
	return shard.Unlock
}

func shardIndex(conversationID string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(conversationID))
	return h.Sum32() % shardCount
}
