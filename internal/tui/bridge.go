package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/bytetube/bytetube-chat/internal/chatclient"
	"github.com/bytetube/bytetube-chat/internal/models"
)

// StateMsg reports a connection state transition.
type StateMsg struct {
	State chatclient.State
}

// MessageMsg carries a message that was appended to the room log.
type MessageMsg struct {
	Message models.ChatMessage
}

const bridgeBuffer = 64

// Bridge turns connection callbacks into tea messages. The connection's
// handlers block until the program picks the event up or the bridge stops.
type Bridge struct {
	events   chan tea.Msg
	stop     chan struct{}
	stopOnce sync.Once
}

func NewBridge() *Bridge {
	return &Bridge{
		events: make(chan tea.Msg, bridgeBuffer),
		stop:   make(chan struct{}),
	}
}

// Options registers the bridge as the connection's state and message handler.
func (b *Bridge) Options() []chatclient.Option {
	return []chatclient.Option{
		chatclient.OnState(func(s chatclient.State) { b.post(StateMsg{State: s}) }),
		chatclient.OnMessage(func(m models.ChatMessage) { b.post(MessageMsg{Message: m}) }),
	}
}

func (b *Bridge) post(msg tea.Msg) {
	select {
	case b.events <- msg:
	case <-b.stop:
	}
}

// Listen waits for the next connection event.
func (b *Bridge) Listen() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-b.events:
			return msg
		case <-b.stop:
			return nil
		}
	}
}

// Stop releases any handler blocked on the bridge.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() { close(b.stop) })
}
