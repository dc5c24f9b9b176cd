// Package app composes the map, sidebar, and overlay components into the
// full-screen program.
package app

import (
	"context"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/lipgloss/v2"

	"tableflip.dev/pinmap/pkg/auth"
	"tableflip.dev/pinmap/pkg/editor"
	"tableflip.dev/pinmap/pkg/images"
	"tableflip.dev/pinmap/pkg/note"
	"tableflip.dev/pinmap/pkg/repository"
	"tableflip.dev/pinmap/pkg/tui/components/archived"
	"tableflip.dev/pinmap/pkg/tui/components/editorform"
	"tableflip.dev/pinmap/pkg/tui/components/login"
	"tableflip.dev/pinmap/pkg/tui/components/mapview"
	sidebarview "tableflip.dev/pinmap/pkg/tui/components/sidebar"
	"tableflip.dev/pinmap/pkg/tui/events"
	"tableflip.dev/pinmap/pkg/undo"
)

type overlayKind int

const (
	overlayNone overlayKind = iota
	overlayEditor
	overlayArchived
)

type focusPane int

const (
	focusMap focusPane = iota
	focusSidebar
)

// Deps carries the services the program is composed from.
type Deps struct {
	Repository *repository.Repository
	Identity   auth.Identity
	Uploader   images.Uploader
	Previewer  images.Previewer
	Logger     *slog.Logger
}

// Model is the root Bubble Tea model.
type Model struct {
	repo     *repository.Repository
	identity auth.Identity
	undo     *undo.Controller
	ctrl     *editor.Controller
	log      *slog.Logger

	login   *login.Model
	mapView *mapview.Model
	sidebar *sidebarview.Model
	editor  *editorform.Model
	arch    *archived.Model

	user    *auth.User
	overlay overlayKind
	focus   focusPane

	undoMessage string
	undoArmed   bool
	status      string
	statusErr   bool

	width  int
	height int

	send func(tea.Msg)
}

// New wires the components together. Call AttachProgram before running so
// out-of-loop events reach the model.
func New(deps Deps, opts ...editor.Option) *Model {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	m := &Model{
		repo:     deps.Repository,
		identity: deps.Identity,
		log:      logger,
		mapView:  mapview.NewModel(),
		sidebar:  sidebarview.NewModel(),
		arch:     archived.NewModel(deps.Repository),
		login:    login.NewModel(deps.Identity),
	}

	staged := images.NewStaged(deps.Previewer)
	ctrlOpts := append([]editor.Option{
		editor.WithLogger(logger),
		editor.WithProgress(func(p editor.Progress) {
			m.post(events.UploadProgressMsg{Progress: p})
		}),
	}, opts...)
	m.ctrl = editor.New(deps.Repository, deps.Uploader, staged, ctrlOpts...)
	m.editor = editorform.NewModel(m.ctrl)

	m.undo = undo.New(undo.WithNotify(func(message string, armed bool) {
		m.post(events.UndoBarMsg{Message: message, Armed: armed})
	}))

	return m
}

// AttachProgram installs the send hook used by listeners that fire outside
// the update loop, and registers those listeners.
func (m *Model) AttachProgram(p *tea.Program) {
	m.send = p.Send
	m.repo.OnActiveNotes(func(notes []*note.Note) {
		m.post(events.NotesChangedMsg{Notes: notes})
	})
	m.identity.OnAuthStateChanged(func(user *auth.User) {
		m.post(events.AuthChangedMsg{User: user})
	})
}

func (m *Model) post(msg tea.Msg) {
	if m.send != nil {
		m.send(msg)
	}
}

// Run launches the program.
func Run(deps Deps) error {
	m := New(deps)
	p := tea.NewProgram(m, tea.WithAltScreen())
	m.AttachProgram(p)
	_, err := p.Run()
	return err
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.login.Init()
}

// Update routes Bubble Tea messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
	case tea.KeyPressMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if cmd := m.handleKey(msg); cmd != nil {
			cmds = append(cmds, cmd)
		}

	case events.AuthChangedMsg:
		if cmd := m.applyAuth(msg.User); cmd != nil {
			cmds = append(cmds, cmd)
		}

	case events.NotesChangedMsg:
		m.mapView.SetNotes(msg.Notes)
		m.sidebar.SetNotes(msg.Notes)

	case events.NoteHighlightMsg:
		m.mapView.Select(msg.NoteID)

	case events.NoteSelectMsg:
		if cmd := m.openEditorFor(msg.NoteID); cmd != nil {
			cmds = append(cmds, cmd)
		}

	case events.CreateAtMsg:
		m.ctrl.OpenCreate(msg.Lat, msg.Lng)
		m.overlay = overlayEditor
		if cmd := m.editor.Sync(); cmd != nil {
			cmds = append(cmds, cmd)
		}

	case events.SaveResultMsg:
		if msg.Err == nil {
			m.setStatus("note saved", false)
		} else {
			m.setStatus("save failed: "+msg.Err.Error(), true)
		}

	case events.NoteArchivedMsg:
		if msg.Err != nil {
			m.setStatus("archive failed: "+msg.Err.Error(), true)
		} else {
			id := msg.NoteID
			m.undo.Arm("Note archived", func(ctx context.Context) error {
				return m.repo.Unarchive(ctx, id)
			})
			m.setStatus("note archived", false)
		}

	case events.NoteDeletedMsg:
		if msg.Err != nil {
			m.setStatus("delete failed: "+msg.Err.Error(), true)
		} else {
			m.setStatus("note deleted", false)
		}

	case events.ArchivedActionMsg:
		if msg.Err == nil && msg.Action == events.ActionUnarchive {
			id := msg.NoteID
			m.undo.Arm("Note restored", func(ctx context.Context) error {
				return m.repo.Archive(ctx, id)
			})
		}

	case events.UndoBarMsg:
		m.undoMessage = msg.Message
		m.undoArmed = msg.Armed

	case events.StatusMsg:
		m.setStatus(msg.Text, msg.IsErr)
	}

	cmds = append(cmds, m.route(msg)...)

	// The editor form drives the controller directly; when it closes the
	// controller, drop the overlay.
	if m.overlay == overlayEditor && m.ctrl.Mode() == editor.ModeClosed {
		m.overlay = overlayNone
	}

	if len(cmds) == 0 {
		return m, nil
	}
	return m, tea.Batch(cmds...)
}

// route forwards the message to whichever components should see it.
func (m *Model) route(msg tea.Msg) []tea.Cmd {
	var cmds []tea.Cmd
	forward := func(f func(tea.Msg) (tea.Model, tea.Cmd)) {
		if _, cmd := f(msg); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}

	if m.user == nil {
		forward(m.login.Update)
		return cmds
	}

	switch m.overlay {
	case overlayEditor:
		forward(m.editor.Update)
	case overlayArchived:
		forward(m.arch.Update)
	default:
		// Keystrokes go to the focused pane only; snapshots and other
		// broadcast messages reach both.
		if _, isKey := msg.(tea.KeyPressMsg); isKey {
			if m.focus == focusMap {
				forward(m.mapView.Update)
			} else {
				forward(m.sidebar.Update)
			}
			break
		}
		forward(m.mapView.Update)
		forward(m.sidebar.Update)
	}
	return cmds
}

// handleKey owns the global bindings; everything else reaches components via
// route.
func (m *Model) handleKey(msg tea.KeyPressMsg) tea.Cmd {
	if m.user == nil {
		return nil
	}

	switch m.overlay {
	case overlayEditor:
		return nil
	case overlayArchived:
		if msg.String() == "esc" && !m.arch.ConfirmingDelete() {
			m.overlay = overlayNone
		}
		return nil
	}

	if m.sidebar.Searching() {
		return nil
	}

	switch msg.String() {
	case "tab":
		m.toggleFocus()
	case "b":
		m.sidebar.ToggleCollapsed()
		m.layout()
	case "a":
		m.overlay = overlayArchived
		return m.arch.Open()
	case "u":
		if m.undoArmed {
			return m.undoCmd()
		}
	case "ctrl+q":
		return m.signOutCmd()
	}
	return nil
}

func (m *Model) toggleFocus() {
	if m.focus == focusMap {
		m.focus = focusSidebar
		m.mapView.Blur()
		m.sidebar.Focus()
		return
	}
	m.focus = focusMap
	m.sidebar.Blur()
	m.mapView.Focus()
}

func (m *Model) undoCmd() tea.Cmd {
	return func() tea.Msg {
		if err := m.undo.Trigger(context.Background()); err != nil {
			return events.StatusMsg{Text: "undo failed: " + err.Error(), IsErr: true}
		}
		return events.StatusMsg{Text: "undone"}
	}
}

func (m *Model) signOutCmd() tea.Cmd {
	identity := m.identity
	return func() tea.Msg {
		if err := identity.SignOut(context.Background()); err != nil {
			return events.StatusMsg{Text: "sign out failed: " + err.Error(), IsErr: true}
		}
		return nil
	}
}

// applyAuth transitions between the login and map surfaces.
func (m *Model) applyAuth(user *auth.User) tea.Cmd {
	if user != nil {
		m.user = user
		m.repo.SetOwner(user.ID)
		if err := m.repo.Subscribe(context.Background()); err != nil {
			m.setStatus("subscribe failed: "+err.Error(), true)
		}
		m.focus = focusMap
		m.mapView.Focus()
		m.sidebar.Blur()
		m.layout()
		return nil
	}

	// Session ended: tear everything down and show the login form again.
	m.user = nil
	m.repo.Unsubscribe()
	m.ctrl.Close()
	m.undo.Disarm()
	m.overlay = overlayNone
	m.mapView.SetNotes(nil)
	m.sidebar.SetNotes(nil)
	return m.login.Reset()
}

func (m *Model) openEditorFor(id string) tea.Cmd {
	var target *note.Note
	for _, n := range m.repo.Active() {
		if n.ID == id {
			target = n
			break
		}
	}
	if target == nil {
		m.setStatus("note is gone", true)
		return nil
	}
	m.mapView.Select(id)
	m.ctrl.OpenEdit(target)
	m.overlay = overlayEditor
	return m.editor.Sync()
}

func (m *Model) setStatus(text string, isErr bool) {
	m.status = text
	m.statusErr = isErr
}

func (m *Model) layout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	body := m.height - 2
	if body < 3 {
		body = 3
	}
	sidebarWidth := m.width / 3
	if sidebarWidth > 44 {
		sidebarWidth = 44
	}
	if sidebarWidth < 20 {
		sidebarWidth = 20
	}
	if m.sidebar.Collapsed() {
		sidebarWidth = 1
	}
	m.sidebar.SetSize(sidebarWidth, body)
	m.mapView.SetSize(m.width-sidebarWidth-1, body)
	m.editor.SetSize(m.width-8, body)
	m.arch.SetSize(m.width-8, body)
	m.login.SetSize(m.width, m.height)
}

// View renders the composed UI.
func (m *Model) View() string {
	if m.width <= 0 {
		return "initializing…"
	}

	if m.user == nil {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.login.View())
	}

	var body string
	switch m.overlay {
	case overlayEditor:
		body = lipgloss.Place(m.width, m.height-2, lipgloss.Center, lipgloss.Center, m.editor.View())
	case overlayArchived:
		body = lipgloss.Place(m.width, m.height-2, lipgloss.Center, lipgloss.Center, m.arch.View())
	default:
		body = lipgloss.JoinHorizontal(lipgloss.Top, m.sidebar.View(), " ", m.mapView.View())
	}

	return lipgloss.JoinVertical(lipgloss.Left, body, m.renderUndoBar(), m.renderStatusLine())
}

func (m *Model) renderUndoBar() string {
	if !m.undoArmed {
		return ""
	}
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("237")).
		Padding(0, 1).
		Render(m.undoMessage + " · press 'u' to undo")
}

func (m *Model) renderStatusLine() string {
	style := lipgloss.NewStyle().Faint(true)
	if m.statusErr {
		style = lipgloss.NewStyle().Foreground(lipgloss.Color("204"))
	}
	text := m.status
	if text == "" {
		text = m.user.Email
	}
	return style.Render(" " + text)
}
