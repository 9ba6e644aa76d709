// Package memory provides the bounded per-conversation message history.
package memory

import (
	"sync"

	"github.com/chimein/chime/pkg/models"
)

// DefaultMaxMessages limits messages retained per conversation to prevent
// unbounded context growth.
const DefaultMaxMessages = 50

// Memory is the ordered, bounded message history for one conversation key.
// Appending beyond the bound evicts the oldest entry first.
//
// Memory is safe for concurrent use. Each conversation key owns exactly one
// Memory; keys never share an instance.
type Memory struct {
	mu      sync.RWMutex
	max     int
	entries []models.ChatMessage
}

// New creates a Memory bounded to max messages. A non-positive max falls back
// to DefaultMaxMessages.
func New(max int) *Memory {
	if max <= 0 {
		max = DefaultMaxMessages
	}
	return &Memory{max: max}
}

// Append pushes a message to the end of the history. If the bound is
// exceeded, exactly one entry is removed from the front.
func (m *Memory) Append(msg models.ChatMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = append(m.entries, msg)
	if len(m.entries) > m.max {
		m.entries = m.entries[1:]
	}
}

// Snapshot returns a copy of the current history in insertion order.
func (m *Memory) Snapshot() []models.ChatMessage {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.ChatMessage, len(m.entries))
	copy(out, m.entries)
	return out
}

// Len returns the number of retained messages.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
