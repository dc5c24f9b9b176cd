package archived

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/muesli/reflow/truncate"

	"tableflip.dev/pinmap/pkg/note"
	"tableflip.dev/pinmap/pkg/sidebar"
	"tableflip.dev/pinmap/pkg/tui/events"
)

// Repository is the slice of the note repository the overlay needs.
type Repository interface {
	LoadArchivedOnce(ctx context.Context) ([]*note.Note, error)
	Unarchive(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

const descriptionClip = 90

type state int

const (
	stateLoading state = iota
	stateReady
	stateEmpty
	stateError
)

// Model renders the archived notes overlay. The list is fetched fresh every
// time the overlay opens and after every action.
type Model struct {
	id   events.ComponentID
	repo Repository

	state  state
	notes  []*note.Note
	errMsg string

	cursor        int
	confirmDelete bool

	width  int
	height int
}

// NewModel constructs the overlay bound to the repository.
func NewModel(repo Repository) *Model {
	return &Model{
		id:    events.ComponentID("archived"),
		repo:  repo,
		state: stateLoading,
	}
}

// ID reports the component identifier used in emitted events.
func (m *Model) ID() events.ComponentID { return m.id }

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd { return nil }

// SetSize configures the overlay dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// Open resets the overlay and starts a fresh fetch.
func (m *Model) Open() tea.Cmd {
	m.state = stateLoading
	m.notes = nil
	m.errMsg = ""
	m.cursor = 0
	m.confirmDelete = false
	return m.loadCmd()
}

func (m *Model) loadCmd() tea.Cmd {
	repo := m.repo
	return func() tea.Msg {
		notes, err := repo.LoadArchivedOnce(context.Background())
		return events.ArchivedLoadedMsg{Notes: notes, Err: err}
	}
}

// ConfirmingDelete reports whether the delete confirmation line is showing.
func (m *Model) ConfirmingDelete() bool { return m.confirmDelete }

// Selected reports the highlighted archived note, or nil.
func (m *Model) Selected() *note.Note {
	if m.state != stateReady || m.cursor >= len(m.notes) {
		return nil
	}
	return m.notes[m.cursor]
}

// Update processes Bubble Tea messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case events.ArchivedLoadedMsg:
		m.applyLoad(msg)
	case events.ArchivedActionMsg:
		if msg.Err != nil {
			m.state = stateError
			m.errMsg = msg.Err.Error()
			return m, nil
		}
		// The backing list changed; fetch it again.
		m.state = stateLoading
		return m, m.loadCmd()
	case tea.KeyPressMsg:
		if cmd := m.handleKey(msg); cmd != nil {
			return m, cmd
		}
	}
	return m, nil
}

func (m *Model) applyLoad(msg events.ArchivedLoadedMsg) {
	if msg.Err != nil {
		m.state = stateError
		m.errMsg = msg.Err.Error()
		return
	}
	m.notes = sidebar.SortArchived(msg.Notes)
	m.errMsg = ""
	if len(m.notes) == 0 {
		m.state = stateEmpty
		m.cursor = 0
		return
	}
	m.state = stateReady
	if m.cursor >= len(m.notes) {
		m.cursor = len(m.notes) - 1
	}
}

func (m *Model) handleKey(msg tea.KeyPressMsg) tea.Cmd {
	if m.confirmDelete {
		switch msg.String() {
		case "y", "enter":
			m.confirmDelete = false
			return m.actionCmd(events.ActionDelete)
		case "n", "esc":
			m.confirmDelete = false
		}
		return nil
	}
	if m.state != stateReady {
		if m.state == stateError && msg.String() == "r" {
			m.state = stateLoading
			return m.loadCmd()
		}
		return nil
	}

	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.notes)-1 {
			m.cursor++
		}
	case "u", "enter":
		return m.actionCmd(events.ActionUnarchive)
	case "x":
		m.confirmDelete = true
	}
	return nil
}

func (m *Model) actionCmd(action events.ArchivedAction) tea.Cmd {
	n := m.Selected()
	if n == nil {
		return nil
	}
	repo := m.repo
	id := n.ID
	return func() tea.Msg {
		var err error
		switch action {
		case events.ActionUnarchive:
			err = repo.Unarchive(context.Background(), id)
		case events.ActionDelete:
			err = repo.Delete(context.Background(), id)
		}
		return events.ArchivedActionMsg{Action: action, NoteID: id, Err: err}
	}
}

// View renders the overlay.
func (m *Model) View() string {
	lines := []string{lipgloss.NewStyle().Bold(true).Render("Archived notes"), ""}

	switch m.state {
	case stateLoading:
		lines = append(lines, lipgloss.NewStyle().Faint(true).Render("Loading…"))
	case stateError:
		lines = append(lines,
			lipgloss.NewStyle().Foreground(lipgloss.Color("204")).Render("Could not load archived notes: "+m.errMsg),
			lipgloss.NewStyle().Faint(true).Render("'r' to retry"))
	case stateEmpty:
		lines = append(lines, lipgloss.NewStyle().Faint(true).Render("No archived notes"))
	case stateReady:
		for i, n := range m.notes {
			lines = append(lines, m.renderRow(i, n))
		}
	}

	lines = append(lines, "", m.renderStatusLine())
	body := lipgloss.JoinVertical(lipgloss.Left, lines...)
	frame := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(1, 2)
	return frame.Render(body)
}

func (m *Model) renderRow(i int, n *note.Note) string {
	indicator := "  "
	style := lipgloss.NewStyle()
	if i == m.cursor {
		indicator = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Render("➤ ")
		style = style.Foreground(lipgloss.Color("212"))
	}
	when := ""
	if !n.Created.IsZero() {
		when = n.Created.Format("2006-01-02")
	}
	title := truncate.StringWithTail(n.DisplayTitle(), 40, "…")
	row := indicator + style.Render(fmt.Sprintf("%-42s %s", title, when))
	if n.Description != "" {
		desc := truncate.StringWithTail(n.Description, descriptionClip, "…")
		row += "\n    " + lipgloss.NewStyle().Faint(true).Render(desc)
	}
	return row
}

func (m *Model) renderStatusLine() string {
	if m.confirmDelete {
		return lipgloss.NewStyle().Foreground(lipgloss.Color("213")).Render("Delete permanently? 'y' to confirm, 'n' to cancel.")
	}
	return lipgloss.NewStyle().Faint(true).Render("'u' restore • 'x' delete • Esc close")
}
