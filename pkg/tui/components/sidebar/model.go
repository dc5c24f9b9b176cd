package sidebar

import (
	"fmt"

	"github.com/charmbracelet/bubbles/v2/list"
	"github.com/charmbracelet/bubbles/v2/textinput"
	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/muesli/reflow/truncate"

	"tableflip.dev/pinmap/pkg/note"
	"tableflip.dev/pinmap/pkg/sidebar"
	"tableflip.dev/pinmap/pkg/tui/events"
)

const descriptionClip = 60

var dotStyles = map[note.Color]lipgloss.Style{
	note.Red:    lipgloss.NewStyle().Foreground(lipgloss.Color("#e74c3c")),
	note.Blue:   lipgloss.NewStyle().Foreground(lipgloss.Color("#3498db")),
	note.Green:  lipgloss.NewStyle().Foreground(lipgloss.Color("#2ecc71")),
	note.Yellow: lipgloss.NewStyle().Foreground(lipgloss.Color("#f1c40f")),
	note.Purple: lipgloss.NewStyle().Foreground(lipgloss.Color("#9b59b6")),
	note.Orange: lipgloss.NewStyle().Foreground(lipgloss.Color("#e67e22")),
}

// Model renders the filtered, sorted note list next to the map.
type Model struct {
	id events.ComponentID

	notes []*note.Note
	sort  sidebar.SortMode

	search textinput.Model
	list   list.Model

	searching bool
	collapsed bool
	focused   bool

	width  int
	height int
}

// NewModel constructs an empty sidebar.
func NewModel() *Model {
	search := textinput.New()
	search.Placeholder = "Search notes…"
	search.Prompt = "/ "

	delegate := list.NewDefaultDelegate()
	l := list.New(nil, delegate, 0, 0)
	l.SetShowTitle(false)
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)

	return &Model{
		id:     events.ComponentID("sidebar"),
		search: search,
		list:   l,
		sort:   sidebar.SortCreatedDesc,
	}
}

// ID reports the component identifier used in emitted events.
func (m *Model) ID() events.ComponentID { return m.id }

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd { return nil }

// Focus gives the sidebar keyboard control.
func (m *Model) Focus() { m.focused = true }

// Blur releases keyboard control and leaves search mode.
func (m *Model) Blur() {
	m.focused = false
	m.searching = false
	m.search.Blur()
}

// SetSize updates the sidebar dimensions.
func (m *Model) SetSize(width, height int) {
	if width < 16 {
		width = 16
	}
	if height < 4 {
		height = 4
	}
	m.width = width
	m.height = height
	m.search.SetWidth(width - 4)
	m.list.SetSize(width, height-2)
}

// SetNotes replaces the backing snapshot and re-renders the visible rows.
func (m *Model) SetNotes(notes []*note.Note) {
	m.notes = notes
	m.refresh()
}

// SortMode reports the active sort order.
func (m *Model) SortMode() sidebar.SortMode { return m.sort }

// Query reports the active search text.
func (m *Model) Query() string { return m.search.Value() }

// Searching reports whether the search input owns the keyboard.
func (m *Model) Searching() bool { return m.searching }

// Collapsed reports whether the sidebar is folded away.
func (m *Model) Collapsed() bool { return m.collapsed }

// ToggleCollapsed folds or unfolds the sidebar.
func (m *Model) ToggleCollapsed() { m.collapsed = !m.collapsed }

// VisibleIDs reports the note ids currently rendered, in row order.
func (m *Model) VisibleIDs() []string {
	items := m.list.Items()
	out := make([]string, 0, len(items))
	for _, it := range items {
		if row, ok := it.(noteItem); ok {
			out = append(out, row.note.ID)
		}
	}
	return out
}

// SelectedID reports the highlighted note id, or "".
func (m *Model) SelectedID() string {
	if row, ok := m.list.SelectedItem().(noteItem); ok {
		return row.note.ID
	}
	return ""
}

func (m *Model) refresh() {
	visible := sidebar.Visible(m.notes, m.search.Value(), m.sort)
	items := make([]list.Item, 0, len(visible))
	for _, n := range visible {
		items = append(items, noteItem{note: n})
	}
	m.list.SetItems(items)
}

// Update processes Bubble Tea messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if m.width == 0 && m.height == 0 {
			m.SetSize(msg.Width, msg.Height)
		}
	case events.NotesChangedMsg:
		m.SetNotes(msg.Notes)
	case tea.KeyPressMsg:
		if cmd := m.handleKey(msg); cmd != nil {
			return m, cmd
		}
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyPressMsg) tea.Cmd {
	if !m.focused || m.collapsed {
		return nil
	}

	if m.searching {
		switch msg.String() {
		case "esc":
			m.searching = false
			m.search.Blur()
			m.search.SetValue("")
			m.refresh()
		case "enter":
			m.searching = false
			m.search.Blur()
		default:
			var cmd tea.Cmd
			m.search, cmd = m.search.Update(msg)
			m.refresh()
			return cmd
		}
		return nil
	}

	switch msg.String() {
	case "/":
		m.searching = true
		return m.search.Focus()
	case "s":
		m.sort = m.sort.Next()
		m.refresh()
	case "enter":
		if id := m.SelectedID(); id != "" {
			return events.NoteSelectCmd(m.id, id)
		}
	default:
		before := m.SelectedID()
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		if id := m.SelectedID(); id != "" && id != before {
			return tea.Batch(cmd, events.NoteHighlightCmd(m.id, id))
		}
		return cmd
	}
	return nil
}

// View renders the search row, sort indicator, and note rows.
func (m *Model) View() string {
	if m.collapsed {
		return lipgloss.NewStyle().Faint(true).Render("»")
	}

	header := m.search.View()
	sortLine := lipgloss.NewStyle().Faint(true).Render(fmt.Sprintf("sort: %s", m.sort))

	body := m.list.View()
	if len(m.list.Items()) == 0 {
		body = lipgloss.NewStyle().Faint(true).Padding(1, 2).Render("No notes")
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, sortLine, body)
}

type noteItem struct {
	note *note.Note
}

func (i noteItem) Title() string {
	dot := "●"
	if style, ok := dotStyles[i.note.Color]; ok {
		dot = style.Render(dot)
	}
	return dot + " " + i.note.DisplayTitle()
}

func (i noteItem) Description() string {
	return truncate.StringWithTail(i.note.Description, descriptionClip, "…")
}

func (i noteItem) FilterValue() string { return i.note.Title }
