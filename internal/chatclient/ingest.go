package chatclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bytetube/bytetube-chat/internal/models"
)

// DuplicateWindow is how long an identical message from the same user is
// suppressed when it immediately follows the previous entry.
const DuplicateWindow = 3000 * time.Millisecond

// ErrMalformedPayload is returned for inbound frames that are not a chat message object.
var ErrMalformedPayload = errors.New("malformed chat payload")

// Pipeline turns raw inbound frames into log entries.
type Pipeline struct {
	log    *MessageLog
	now    func() time.Time
	window time.Duration
}

// NewPipeline creates a pipeline appending into log. A nil now uses time.Now.
func NewPipeline(log *MessageLog, now func() time.Time) *Pipeline {
	if now == nil {
		now = time.Now
	}
	return &Pipeline{log: log, now: now, window: DuplicateWindow}
}

// Decode parses one inbound frame.
func Decode(raw []byte) (models.ChatMessage, error) {
	var m *models.ChatMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return models.ChatMessage{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if m == nil {
		return models.ChatMessage{}, fmt.Errorf("%w: null frame", ErrMalformedPayload)
	}
	return *m, nil
}

// Ingest decodes raw and appends it unless it repeats the last entry.
// It reports whether the message was appended. A decode error leaves the log untouched.
func (p *Pipeline) Ingest(raw []byte) (models.ChatMessage, bool, error) {
	m, err := Decode(raw)
	if err != nil {
		return models.ChatMessage{}, false, err
	}
	if p.isDuplicate(m) {
		return m, false, nil
	}
	p.log.append(m)
	return m, true, nil
}

// isDuplicate compares only against the newest entry, using receipt time
// rather than the sender's timestamp on m.
func (p *Pipeline) isDuplicate(m models.ChatMessage) bool {
	last, ok := p.log.Last()
	if !ok || last.User != m.User || last.Text != m.Text {
		return false
	}
	sent, err := last.Time()
	if err != nil {
		return false
	}
	return p.now().Sub(sent) < p.window
}
