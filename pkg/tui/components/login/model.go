package login

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/v2/textinput"
	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/lipgloss/v2"

	"tableflip.dev/pinmap/pkg/auth"
	"tableflip.dev/pinmap/pkg/tui/events"
)

var focusColor = lipgloss.Color("212")

type focusField int

const (
	fieldEmail focusField = iota
	fieldPassword
)

// Model renders the sign-in form shown before the map.
type Model struct {
	id       events.ComponentID
	identity auth.Identity

	email    textinput.Model
	password textinput.Model

	focus   focusField
	pending bool
	errMsg  string

	width  int
	height int
}

// NewModel constructs the sign-in form.
func NewModel(identity auth.Identity) *Model {
	email := textinput.New()
	email.Placeholder = "you@example.com"
	email.Prompt = ""

	password := textinput.New()
	password.Placeholder = "password"
	password.Prompt = ""
	password.EchoMode = textinput.EchoPassword

	return &Model{
		id:       events.ComponentID("login"),
		identity: identity,
		email:    email,
		password: password,
	}
}

// ID reports the component identifier used in emitted events.
func (m *Model) ID() events.ComponentID { return m.id }

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd { return m.email.Focus() }

// SetSize configures the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	inner := width - 16
	if inner < 20 {
		inner = 20
	}
	if inner > 48 {
		inner = 48
	}
	m.email.SetWidth(inner)
	m.password.SetWidth(inner)
}

// Reset clears the form for the next sign-in.
func (m *Model) Reset() tea.Cmd {
	m.email.SetValue("")
	m.password.SetValue("")
	m.focus = fieldEmail
	m.pending = false
	m.errMsg = ""
	m.password.Blur()
	return m.email.Focus()
}

// Update processes Bubble Tea messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case events.AuthChangedMsg:
		m.pending = false
		if msg.User == nil && m.errMsg == "" {
			// Session ended elsewhere; nothing to show.
			return m, nil
		}
	case signInFailedMsg:
		m.pending = false
		m.errMsg = msg.text
		m.password.SetValue("")
	case tea.KeyPressMsg:
		if cmd := m.handleKey(msg); cmd != nil {
			return m, cmd
		}
	}
	return m, nil
}

type signInFailedMsg struct {
	text string
}

func (m *Model) handleKey(msg tea.KeyPressMsg) tea.Cmd {
	if m.pending {
		return nil
	}
	switch msg.String() {
	case "tab", "shift+tab", "down", "up":
		if m.focus == fieldEmail {
			m.focus = fieldPassword
			m.email.Blur()
			return m.password.Focus()
		}
		m.focus = fieldEmail
		m.password.Blur()
		return m.email.Focus()
	case "enter":
		return m.submit()
	default:
		var cmd tea.Cmd
		if m.focus == fieldEmail {
			m.email, cmd = m.email.Update(msg)
		} else {
			m.password, cmd = m.password.Update(msg)
		}
		return cmd
	}
}

func (m *Model) submit() tea.Cmd {
	email := strings.TrimSpace(m.email.Value())
	password := m.password.Value()
	if email == "" || password == "" {
		m.errMsg = "email and password are required"
		return nil
	}
	m.pending = true
	m.errMsg = ""
	identity := m.identity
	return func() tea.Msg {
		user, err := identity.SignIn(context.Background(), email, password)
		if err != nil {
			var authErr *auth.AuthError
			if errors.As(err, &authErr) {
				return signInFailedMsg{text: authErr.Message}
			}
			return signInFailedMsg{text: err.Error()}
		}
		return events.AuthChangedMsg{User: user}
	}
}

// Pending reports whether a sign-in request is in flight.
func (m *Model) Pending() bool { return m.pending }

// View renders the sign-in form.
func (m *Model) View() string {
	lines := []string{
		lipgloss.NewStyle().Bold(true).Render("Sign in"),
		"",
		m.renderRow("Email:", m.email.View(), m.focus == fieldEmail),
		m.renderRow("Password:", m.password.View(), m.focus == fieldPassword),
		"",
		m.renderStatusLine(),
	}
	body := lipgloss.JoinVertical(lipgloss.Left, lines...)
	frame := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(focusColor).
		Padding(1, 2)
	return frame.Render(body)
}

func (m *Model) renderRow(label, value string, focused bool) string {
	indicator := "  "
	labelStyle := lipgloss.NewStyle()
	if focused {
		style := lipgloss.NewStyle().Foreground(focusColor)
		indicator = style.Render("➤ ")
		labelStyle = labelStyle.Foreground(focusColor)
	}
	return indicator + labelStyle.Render(label) + " " + value
}

func (m *Model) renderStatusLine() string {
	switch {
	case m.pending:
		return "Signing in…"
	case m.errMsg != "":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("204")).Render(m.errMsg)
	default:
		return lipgloss.NewStyle().Faint(true).Render("Enter to sign in • Tab between fields")
	}
}
