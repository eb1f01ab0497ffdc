package tui

import (
	"fmt"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/bytetube/bytetube-chat/internal/chatclient"
	"github.com/bytetube/bytetube-chat/internal/models"
)

type fakeSender struct {
	sent   []models.ChatMessage
	closes int
}

func (f *fakeSender) Send(m models.ChatMessage) { f.sent = append(f.sent, m) }
func (f *fakeSender) Close()                    { f.closes++ }

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestModel(user string) (Model, *fakeSender) {
	s := &fakeSender{}
	m := New("r1", s, NewBridge(), user)
	m.now = func() time.Time { return fixedNow }
	return m, s
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	require.True(t, ok)
	return nm, cmd
}

func chat(i int) models.ChatMessage {
	return models.NewChatMessage(fmt.Sprintf("u%d", i), fmt.Sprintf("message %d", i), fixedNow.Add(time.Duration(i)*time.Minute))
}

func TestModel_SendGating(t *testing.T) {
	tests := []struct {
		name string
		user string
		text string
		sent bool
	}{
		{name: "both present", user: "Al", text: "hi", sent: true},
		{name: "blank name", user: "  ", text: "hi"},
		{name: "empty name", user: "", text: "hi"},
		{name: "blank text", user: "Al", text: "   "},
		{name: "tab only text", user: "Al", text: "\t"},
		{name: "empty text", user: "Al", text: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, s := newTestModel(tt.user)
			m.text.SetValue(tt.text)

			m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

			if !tt.sent {
				require.Empty(t, s.sent)
				return
			}
			require.Equal(t, []models.ChatMessage{models.NewChatMessage(tt.user, tt.text, fixedNow)}, s.sent)
			require.Empty(t, m.text.Value())
			require.Equal(t, tt.user, m.user.Value())
		})
	}
}

func TestModel_SendsUntrimmedValues(t *testing.T) {
	m, s := newTestModel(" Al ")
	m.text.SetValue(" hi ")

	update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	require.Len(t, s.sent, 1)
	require.Equal(t, " Al ", s.sent[0].User)
	require.Equal(t, " hi ", s.sent[0].Text)
	require.Equal(t, "2024-05-01T12:00:00.000Z", s.sent[0].Timestamp)
}

func TestModel_QuitClosesOnce(t *testing.T) {
	m, s := newTestModel("Al")

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	_, isQuit := cmd().(tea.QuitMsg)
	require.True(t, isQuit)
	require.Equal(t, 1, s.closes)

	_, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	require.Equal(t, 1, s.closes)
}

func TestModel_StatusBadgeFollowsState(t *testing.T) {
	m, _ := newTestModel("Al")
	require.Contains(t, m.View(), "Connecting...")

	m, cmd := update(t, m, StateMsg{State: chatclient.StateOpen})
	require.NotNil(t, cmd)
	require.Contains(t, m.View(), "Connected")

	m, _ = update(t, m, StateMsg{State: chatclient.StateClosed})
	require.Contains(t, m.View(), "Disconnected")
}

func TestModel_RendersMessages(t *testing.T) {
	m, _ := newTestModel("Al")
	require.Contains(t, m.View(), "No messages yet.")

	m, _ = update(t, m, MessageMsg{Message: chat(1)})
	m, _ = update(t, m, MessageMsg{Message: chat(2)})

	view := m.View()
	require.Contains(t, view, "2 messages")
	require.Contains(t, view, "Chat started at")
	require.Contains(t, view, "message 1")
	require.Contains(t, view, "message 2")
}

func TestModel_AutoscrollPausesWhenScrolledBack(t *testing.T) {
	m, _ := newTestModel("Al")
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 60, Height: headerLines + footerLines + 3})

	for i := 0; i < 10; i++ {
		m, _ = update(t, m, MessageMsg{Message: chat(i)})
	}
	require.True(t, m.viewport.AtBottom())

	// Reader scrolled back: new messages must not move the view.
	m.viewport.GotoTop()
	m, _ = update(t, m, MessageMsg{Message: chat(10)})
	require.False(t, m.viewport.AtBottom())
	require.Zero(t, m.viewport.YOffset)

	m.viewport.GotoBottom()
	m, _ = update(t, m, MessageMsg{Message: chat(11)})
	require.True(t, m.viewport.AtBottom())
}

func TestModel_AutoscrollNearBottom(t *testing.T) {
	tests := []struct {
		name   string
		above  int
		follow bool
	}{
		{name: "at bottom", above: 0, follow: true},
		{name: "one line above bottom", above: 1, follow: true},
		{name: "just inside threshold", above: nearBottomLines - 1, follow: true},
		{name: "at threshold", above: nearBottomLines, follow: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := newTestModel("Al")
			m, _ = update(t, m, tea.WindowSizeMsg{Width: 60, Height: headerLines + footerLines + 3})
			for i := 0; i < 20; i++ {
				m, _ = update(t, m, MessageMsg{Message: chat(i)})
			}
			m.viewport.LineUp(tt.above)
			offset := m.viewport.YOffset

			m, _ = update(t, m, MessageMsg{Message: chat(20)})
			if tt.follow {
				require.True(t, m.viewport.AtBottom())
			} else {
				require.Equal(t, offset, m.viewport.YOffset)
			}
		})
	}
}

func TestModel_TabSwitchesFocus(t *testing.T) {
	m, _ := newTestModel("")
	require.Equal(t, focusUser, m.focus)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	require.Equal(t, focusText, m.focus)
	require.True(t, m.text.Focused())
	require.False(t, m.user.Focused())
}

func TestBridge_DeliversInOrderAndStops(t *testing.T) {
	b := NewBridge()
	opts := b.Options()
	require.Len(t, opts, 2)

	b.post(StateMsg{State: chatclient.StateOpen})
	b.post(MessageMsg{Message: chat(1)})
	require.Equal(t, StateMsg{State: chatclient.StateOpen}, b.Listen()())
	require.Equal(t, MessageMsg{Message: chat(1)}, b.Listen()())

	b.Stop()
	b.Stop()
	require.Nil(t, b.Listen()())

	for i := 0; i < bridgeBuffer+1; i++ {
		b.post(MessageMsg{Message: chat(i)}) // must not block once stopped
	}
}
