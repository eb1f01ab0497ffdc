package chatclient

import (
	"sync"

	"github.com/bytetube/bytetube-chat/internal/models"
)

// MessageLog is the append-only, arrival-ordered message history of one room view.
// Only the owning connection appends; readers may take snapshots from any goroutine.
type MessageLog struct {
	mu       sync.RWMutex
	messages []models.ChatMessage
}

// NewMessageLog returns an empty log.
func NewMessageLog() *MessageLog {
	return &MessageLog{}
}

func (l *MessageLog) append(m models.ChatMessage) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, m)
	return len(l.messages)
}

// Last returns the newest entry, if any.
func (l *MessageLog) Last() (models.ChatMessage, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.messages) == 0 {
		return models.ChatMessage{}, false
	}
	return l.messages[len(l.messages)-1], true
}

// Len returns the number of entries.
func (l *MessageLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.messages)
}

// Snapshot returns a copy of the log in arrival order.
func (l *MessageLog) Snapshot() []models.ChatMessage {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]models.ChatMessage, len(l.messages))
	copy(out, l.messages)
	return out
}
