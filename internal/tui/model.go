// Package tui is the terminal view of one chat room. It owns the room's
// connection for as long as the view is open and closes it on quit.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/bytetube/bytetube-chat/internal/chatclient"
	"github.com/bytetube/bytetube-chat/internal/models"
)

// Sender is the part of a room connection the view drives.
type Sender interface {
	Send(m models.ChatMessage)
	Close()
}

const (
	focusUser = iota
	focusText
)

// headerLines and footerLines frame the message viewport.
const (
	headerLines = 2
	footerLines = 4
)

// nearBottomLines is how close to the newest line the reader must be for new
// messages to keep following.
const nearBottomLines = 3

type Model struct {
	roomID string
	conn   Sender
	bridge *Bridge
	now    func() time.Time

	state    chatclient.State
	messages []models.ChatMessage

	viewport viewport.Model
	user     textinput.Model
	text     textinput.Model
	focus    int

	closed bool
}

// New builds the view for roomID. user pre-fills the display name.
func New(roomID string, conn Sender, bridge *Bridge, user string) Model {
	ui := textinput.New()
	ui.Placeholder = "Your name"
	ui.Prompt = "name> "
	ui.CharLimit = 32
	ui.SetValue(user)

	ti := textinput.New()
	ti.Placeholder = "Type a message..."
	ti.Prompt = "> "
	ti.CharLimit = 500

	m := Model{
		roomID:   roomID,
		conn:     conn,
		bridge:   bridge,
		now:      time.Now,
		state:    chatclient.StateConnecting,
		viewport: viewport.New(80, 20),
		user:     ui,
		text:     ti,
	}
	if strings.TrimSpace(user) == "" {
		m.focusOn(focusUser)
	} else {
		m.focusOn(focusText)
	}
	m.viewport.SetContent(m.renderMessages())
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.bridge.Listen())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case StateMsg:
		m.state = msg.State
		return m, m.bridge.Listen()

	case MessageMsg:
		m.appendMessage(msg.Message)
		return m, m.bridge.Listen()

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "ctrl+c":
			m.quit()
			return m, tea.Quit
		case "tab", "shift+tab":
			if m.focus == focusUser {
				m.focusOn(focusText)
			} else {
				m.focusOn(focusUser)
			}
			return m, nil
		case "enter":
			m.submit()
			return m, nil
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}

	var cmd tea.Cmd
	if m.focus == focusUser {
		m.user, cmd = m.user.Update(msg)
	} else {
		m.text, cmd = m.text.Update(msg)
	}
	return m, cmd
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("#"+m.roomID) + " " + renderBadge(m.state))
	b.WriteString("\n")
	b.WriteString(countStyle.Render(fmt.Sprintf("%d messages", len(m.messages))))
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.user.View())
	b.WriteString("\n")
	b.WriteString(m.text.View())
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render("enter send • tab switch field • pgup/pgdown scroll • esc quit"))
	return b.String()
}

// submit sends the composed message when both name and text are non-blank.
// The name is kept for the next message.
func (m *Model) submit() {
	user, text := m.user.Value(), m.text.Value()
	if strings.TrimSpace(user) == "" || strings.TrimSpace(text) == "" {
		return
	}
	m.conn.Send(models.NewChatMessage(user, text, m.now()))
	m.text.Reset()
}

func (m *Model) quit() {
	if m.closed {
		return
	}
	m.closed = true
	m.conn.Close()
}

// appendMessage follows the newest message only when the reader was at or
// near the bottom, so scrolling back through history is not interrupted.
func (m *Model) appendMessage(msg models.ChatMessage) {
	follow := m.nearBottom()
	m.messages = append(m.messages, msg)
	m.viewport.SetContent(m.renderMessages())
	if follow {
		m.viewport.GotoBottom()
	}
}

func (m Model) nearBottom() bool {
	maxOffset := max(m.viewport.TotalLineCount()-m.viewport.Height, 0)
	return maxOffset-m.viewport.YOffset < nearBottomLines
}

func (m *Model) resize(width, height int) {
	m.viewport.Width = width
	m.viewport.Height = max(height-headerLines-footerLines, 1)
	m.user.Width = max(width-len(m.user.Prompt)-1, 1)
	m.text.Width = max(width-len(m.text.Prompt)-1, 1)
	m.viewport.SetContent(m.renderMessages())
}

func (m *Model) focusOn(field int) {
	m.focus = field
	if field == focusUser {
		m.text.Blur()
		m.user.Focus()
	} else {
		m.user.Blur()
		m.text.Focus()
	}
}

func (m Model) renderMessages() string {
	if len(m.messages) == 0 {
		return mutedStyle.Render("No messages yet.")
	}
	lines := make([]string, 0, len(m.messages)+1)
	lines = append(lines, mutedStyle.Render("Chat started at "+clock(m.messages[0])))
	for _, msg := range m.messages {
		lines = append(lines, timeStyle.Render(clock(msg))+" "+userStyle.Render(msg.User+":")+" "+msg.Text)
	}
	return strings.Join(lines, "\n")
}

// clock renders the message time in local time, or the raw stamp when it
// does not parse.
func clock(msg models.ChatMessage) string {
	t, err := msg.Time()
	if err != nil {
		return msg.Timestamp
	}
	return t.Local().Format("15:04:05")
}
