package editorform

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/v2/textinput"
	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/muesli/reflow/truncate"

	"tableflip.dev/pinmap/pkg/editor"
	"tableflip.dev/pinmap/pkg/note"
	"tableflip.dev/pinmap/pkg/tui/events"
)

var focusColor = lipgloss.Color("212")

type focusField int

const (
	fieldTitle focusField = iota
	fieldDescription
	fieldColor
	fieldAttach
	fieldGallery
)

const thumbsPerPage = 4

// Model renders the note editing overlay backed by an editor controller.
type Model struct {
	id   events.ComponentID
	ctrl *editor.Controller

	title       textinput.Model
	description textinput.Model
	attach      textinput.Model

	focus         focusField
	galleryIndex  int
	confirmDelete bool

	progress *editor.Progress
	errMsg   string

	width  int
	height int
}

// NewModel constructs the overlay bound to the provided controller.
func NewModel(ctrl *editor.Controller) *Model {
	title := textinput.New()
	title.Placeholder = "Title"
	title.Prompt = ""

	description := textinput.New()
	description.Placeholder = "Description"
	description.Prompt = ""

	attach := textinput.New()
	attach.Placeholder = "Path to an image file…"
	attach.Prompt = ""

	return &Model{
		id:          events.ComponentID("editor"),
		ctrl:        ctrl,
		title:       title,
		description: description,
		attach:      attach,
	}
}

// ID reports the component identifier used in emitted events.
func (m *Model) ID() events.ComponentID { return m.id }

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd { return m.title.Focus() }

// SetSize configures the overlay dimensions.
func (m *Model) SetSize(width, height int) {
	if width <= 0 {
		width = 80
	}
	if height <= 0 {
		height = 20
	}
	m.width = width
	m.height = height
	inner := width - 12
	if inner < 20 {
		inner = 20
	}
	m.title.SetWidth(inner)
	m.description.SetWidth(inner)
	m.attach.SetWidth(inner)
}

// Sync reloads the input fields from the controller. The app calls this after
// opening the editor so the form reflects the note being edited.
func (m *Model) Sync() tea.Cmd {
	f := m.ctrl.Form()
	m.title.SetValue(f.Title)
	m.description.SetValue(f.Description)
	m.attach.SetValue("")
	m.focus = fieldTitle
	m.galleryIndex = 0
	m.confirmDelete = false
	m.progress = nil
	m.errMsg = ""
	return m.updateInputFocus()
}

// Update processes Bubble Tea messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if m.width == 0 && m.height == 0 {
			m.SetSize(msg.Width, msg.Height)
		}
	case events.UploadProgressMsg:
		p := msg.Progress
		m.progress = &p
	case events.SaveResultMsg:
		m.progress = nil
		if msg.Err != nil {
			m.errMsg = msg.Err.Error()
		} else {
			m.errMsg = ""
		}
	case tea.KeyPressMsg:
		if cmd := m.handleKey(msg); cmd != nil {
			return m, cmd
		}
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyPressMsg) tea.Cmd {
	if m.ctrl.Mode() == editor.ModeClosed {
		return nil
	}

	if m.confirmDelete {
		switch msg.String() {
		case "y", "enter":
			m.confirmDelete = false
			return m.deleteCmd()
		case "n", "esc":
			m.confirmDelete = false
		}
		return nil
	}

	if m.ctrl.Busy() {
		// A save is in flight; only escape is honored, and it just clears
		// the error line rather than closing mid-save.
		return nil
	}

	switch msg.String() {
	case "tab":
		m.advanceFocus(1)
		return m.updateInputFocus()
	case "shift+tab":
		m.advanceFocus(-1)
		return m.updateInputFocus()
	case "esc":
		m.ctrl.Close()
	case "enter":
		if m.focus == fieldAttach {
			return m.attachCmd()
		}
		return m.saveCmd()
	case "ctrl+s":
		return m.saveCmd()
	case "ctrl+r":
		if m.ctrl.Mode() == editor.ModeEdit {
			return m.archiveCmd()
		}
	case "ctrl+d":
		if m.ctrl.Mode() == editor.ModeEdit {
			m.confirmDelete = true
		}
	case "left", "right":
		switch m.focus {
		case fieldColor:
			m.cycleColor(directionOf(msg.String()))
			return nil
		case fieldGallery:
			m.moveGallery(directionOf(msg.String()))
			return nil
		}
		return m.forwardToInput(msg)
	case "x", "backspace", "delete":
		if m.focus == fieldGallery {
			return m.removeImageCmd()
		}
		return m.forwardToInput(msg)
	default:
		return m.forwardToInput(msg)
	}
	return nil
}

func directionOf(key string) int {
	if key == "left" {
		return -1
	}
	return 1
}

func (m *Model) forwardToInput(msg tea.KeyPressMsg) tea.Cmd {
	var cmd tea.Cmd
	switch m.focus {
	case fieldTitle:
		m.title, cmd = m.title.Update(msg)
		m.ctrl.SetTitle(m.title.Value())
	case fieldDescription:
		m.description, cmd = m.description.Update(msg)
		m.ctrl.SetDescription(m.description.Value())
	case fieldAttach:
		m.attach, cmd = m.attach.Update(msg)
	}
	return cmd
}

func (m *Model) advanceFocus(delta int) {
	fields := []focusField{fieldTitle, fieldDescription, fieldColor, fieldAttach}
	if len(m.ctrl.Thumbnails()) > 0 {
		fields = append(fields, fieldGallery)
	}
	current := 0
	for i, f := range fields {
		if f == m.focus {
			current = i
			break
		}
	}
	current = (current + len(fields) + delta) % len(fields)
	m.focus = fields[current]
}

func (m *Model) updateInputFocus() tea.Cmd {
	m.title.Blur()
	m.description.Blur()
	m.attach.Blur()
	switch m.focus {
	case fieldTitle:
		return m.title.Focus()
	case fieldDescription:
		return m.description.Focus()
	case fieldAttach:
		return m.attach.Focus()
	}
	return nil
}

func (m *Model) cycleColor(delta int) {
	palette := note.Palette()
	current := m.ctrl.Form().Color
	idx := 0
	for i, c := range palette {
		if c == current {
			idx = i
			break
		}
	}
	idx = (idx + len(palette) + delta) % len(palette)
	m.ctrl.SetColor(palette[idx])
}

// moveGallery shifts the thumbnail selection, wrapping at both ends.
func (m *Model) moveGallery(delta int) {
	count := len(m.ctrl.Thumbnails())
	if count == 0 {
		return
	}
	m.galleryIndex = ((m.galleryIndex+delta)%count + count) % count
}

func (m *Model) attachCmd() tea.Cmd {
	path := strings.TrimSpace(m.attach.Value())
	if path == "" {
		return nil
	}
	if err := m.ctrl.AttachFiles(path); err != nil {
		m.errMsg = err.Error()
		return nil
	}
	m.attach.SetValue("")
	m.errMsg = ""
	return nil
}

func (m *Model) saveCmd() tea.Cmd {
	m.ctrl.SetTitle(m.title.Value())
	m.ctrl.SetDescription(m.description.Value())
	m.errMsg = ""
	ctrl := m.ctrl
	return func() tea.Msg {
		return events.SaveResultMsg{Err: ctrl.Save(context.Background())}
	}
}

func (m *Model) archiveCmd() tea.Cmd {
	ctrl := m.ctrl
	id := ctrl.NoteID()
	return func() tea.Msg {
		return events.NoteArchivedMsg{NoteID: id, Err: ctrl.Archive(context.Background())}
	}
}

func (m *Model) deleteCmd() tea.Cmd {
	ctrl := m.ctrl
	id := ctrl.NoteID()
	return func() tea.Msg {
		return events.NoteDeletedMsg{NoteID: id, Err: ctrl.Delete(context.Background())}
	}
}

func (m *Model) removeImageCmd() tea.Cmd {
	thumbs := m.ctrl.Thumbnails()
	if m.galleryIndex >= len(thumbs) {
		return nil
	}
	ref := thumbs[m.galleryIndex]
	if ref.PublicID == "" {
		// Staged previews are only discarded as a group when the editor
		// closes without saving.
		m.errMsg = "staged file: close without saving to discard"
		return nil
	}
	ctrl := m.ctrl
	return func() tea.Msg {
		if err := ctrl.RemoveImage(context.Background(), ref.PublicID); err != nil {
			return events.StatusMsg{Text: err.Error(), IsErr: true}
		}
		return events.StatusMsg{Text: "image removed"}
	}
}

// GalleryIndex reports the highlighted thumbnail position.
func (m *Model) GalleryIndex() int { return m.galleryIndex }

// View renders the editor overlay.
func (m *Model) View() string {
	header := "New note"
	if m.ctrl.Mode() == editor.ModeEdit {
		header = "Edit note"
	}
	lat, lng := m.ctrl.Position()

	lines := []string{
		lipgloss.NewStyle().Bold(true).Render(header),
		lipgloss.NewStyle().Faint(true).Render(fmt.Sprintf("%.4f, %.4f", lat, lng)),
		"",
		m.renderRow("Title:", m.title.View(), m.focus == fieldTitle),
		m.renderRow("Description:", m.description.View(), m.focus == fieldDescription),
		m.renderRow("Color:", m.renderPalette(), m.focus == fieldColor),
		m.renderRow("Attach:", m.attach.View(), m.focus == fieldAttach),
	}
	if strip := m.renderGallery(); strip != "" {
		lines = append(lines, "", strip)
	}
	lines = append(lines, "", m.renderStatusLine())

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
	return indicator + labelStyle.Render(fmt.Sprintf("%-13s", label)) + " " + value
}

func (m *Model) renderPalette() string {
	current := m.ctrl.Form().Color
	parts := make([]string, 0, len(note.Palette()))
	for _, c := range note.Palette() {
		swatch := "○"
		if c == current {
			swatch = "●"
		}
		parts = append(parts, swatchStyle(c).Render(swatch))
	}
	return strings.Join(parts, " ")
}

func swatchStyle(c note.Color) lipgloss.Style {
	hex := map[note.Color]string{
		note.Red:    "#e74c3c",
		note.Blue:   "#3498db",
		note.Green:  "#2ecc71",
		note.Yellow: "#f1c40f",
		note.Purple: "#9b59b6",
		note.Orange: "#e67e22",
	}[c]
	if hex == "" {
		hex = "#e74c3c"
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(hex))
}

// renderGallery shows one page of thumbnails with a page indicator. Paging
// follows the highlighted index.
func (m *Model) renderGallery() string {
	thumbs := m.ctrl.Thumbnails()
	if len(thumbs) == 0 {
		return ""
	}
	if m.galleryIndex >= len(thumbs) {
		m.galleryIndex = len(thumbs) - 1
	}
	page := m.galleryIndex / thumbsPerPage
	pages := (len(thumbs) + thumbsPerPage - 1) / thumbsPerPage
	start := page * thumbsPerPage
	end := start + thumbsPerPage
	if end > len(thumbs) {
		end = len(thumbs)
	}

	parts := make([]string, 0, end-start+1)
	for i := start; i < end; i++ {
		label := thumbLabel(thumbs[i])
		style := lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(0, 1)
		if i == m.galleryIndex && m.focus == fieldGallery {
			style = style.BorderForeground(focusColor)
		}
		parts = append(parts, style.Render(label))
	}
	strip := lipgloss.JoinHorizontal(lipgloss.Top, parts...)
	indicator := lipgloss.NewStyle().Faint(true).Render(fmt.Sprintf(" %d/%d", page+1, pages))
	return lipgloss.JoinHorizontal(lipgloss.Center, strip, indicator)
}

func thumbLabel(ref note.ImageRef) string {
	name := ref.ThumbURL
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	if ref.PublicID == "" {
		name = "+" + name
	}
	return truncate.StringWithTail(name, 14, "…")
}

func (m *Model) renderStatusLine() string {
	switch {
	case m.confirmDelete:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("213")).Render("Delete this note permanently? 'y' to confirm, 'n' to keep it.")
	case m.progress != nil:
		return fmt.Sprintf("Uploading %d/%d…", m.progress.Current, m.progress.Total)
	case m.ctrl.Busy():
		return "Saving…"
	case m.errMsg != "":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("204")).Render(m.errMsg)
	default:
		return lipgloss.NewStyle().Faint(true).Render("Enter to save • Esc to close • Tab between fields")
	}
}
