package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/r9s-ai/gptdesk/pkg/apitypes"
)

// ChatFunc sends the whole conversation and returns the assistant reply.
type ChatFunc func(ctx context.Context, messages []apitypes.ChatMessage) (string, error)

type chatKeyMap struct {
	Send  key.Binding
	Clear key.Binding
	Quit  key.Binding
}

func (k chatKeyMap) ShortHelp() []key.Binding { return []key.Binding{k.Send, k.Clear, k.Quit} }

func (k chatKeyMap) FullHelp() [][]key.Binding { return [][]key.Binding{k.ShortHelp()} }

var chatKeys = chatKeyMap{
	Send:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
	Clear: key.NewBinding(key.WithKeys("ctrl+l"), key.WithHelp("ctrl+l", "new conversation")),
	Quit:  key.NewBinding(key.WithKeys("esc", "ctrl+c"), key.WithHelp("esc", "quit")),
}

var (
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
)

type chatModel struct {
	send    ChatFunc
	model   string
	timeout time.Duration

	history []apitypes.ChatMessage
	waiting bool
	err     error

	input   textarea.Model
	vp      viewport.Model
	spinner spinner.Model
	help    help.Model
	keys    chatKeyMap

	width  int
	height int
}

type chatReplyMsg struct {
	text string
	err  error
}

func newChatModel(send ChatFunc, model string, timeout time.Duration) chatModel {
	ta := textarea.New()
	ta.Placeholder = "Ask something..."
	ta.ShowLineNumbers = false
	ta.SetHeight(3)
	ta.KeyMap.InsertNewline.SetEnabled(false)
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return chatModel{
		send:    send,
		model:   model,
		timeout: timeout,
		input:   ta,
		vp:      viewport.New(0, 0),
		spinner: sp,
		help:    help.New(),
		keys:    chatKeys,
	}
}

func (m chatModel) Init() tea.Cmd {
	return textarea.Blink
}

func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil

	case chatReplyMsg:
		m.waiting = false
		if msg.err != nil {
			// Drop the unanswered question so the next send starts clean.
			m.err = msg.err
			if n := len(m.history); n > 0 && m.history[n-1].Role == "user" {
				m.input.SetValue(m.history[n-1].Text())
				m.history = m.history[:n-1]
			}
		} else {
			m.err = nil
			m.history = append(m.history, apitypes.ChatMessage{Role: "assistant", Content: msg.text})
		}
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if !m.waiting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Clear) && !m.waiting:
			m.history = nil
			m.err = nil
			m.refresh()
			return m, nil
		case key.Matches(msg, m.keys.Send):
			text := strings.TrimSpace(m.input.Value())
			if text == "" || m.waiting {
				return m, nil
			}
			m.input.Reset()
			m.history = append(m.history, apitypes.ChatMessage{Role: "user", Content: text})
			m.waiting = true
			m.err = nil
			m.refresh()
			return m, tea.Batch(m.spinner.Tick, m.sendCmd())
		}
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.vp, cmd = m.vp.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m chatModel) sendCmd() tea.Cmd {
	history := append([]apitypes.ChatMessage(nil), m.history...)
	send, timeout := m.send, m.timeout
	return func() tea.Msg {
		ctx := context.Background()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		text, err := send(ctx, history)
		return chatReplyMsg{text: text, err: err}
	}
}

func (m chatModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("gptdesk chat  model=" + m.model))
	b.WriteString("\n")
	b.WriteString(m.vp.View())
	b.WriteString("\n")
	switch {
	case m.waiting:
		b.WriteString(m.spinner.View() + " waiting for reply")
	case m.err != nil:
		b.WriteString(errorStyle.Render("error: " + m.err.Error()))
	}
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

// transcript renders the conversation for the viewport.
func (m chatModel) transcript() string {
	var b strings.Builder
	for i, msg := range m.history {
		if i > 0 {
			b.WriteString("\n")
		}
		label := userStyle.Render("you")
		if msg.Role == "assistant" {
			label = assistantStyle.Render("assistant")
		}
		fmt.Fprintf(&b, "%s\n%s\n", label, msg.Text())
	}
	return b.String()
}

func (m *chatModel) refresh() {
	content := m.transcript()
	if m.width > 0 {
		content = lipgloss.NewStyle().Width(m.width).Render(content)
	}
	m.vp.SetContent(content)
	m.vp.GotoBottom()
}

func (m *chatModel) resize() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	m.input.SetWidth(m.width)
	// title(1) + status(1) + input(3) + help(1) + separators
	m.vp.Width = m.width
	m.vp.Height = max(m.height-8, 3)
	m.refresh()
}
