package events

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea/v2"

	"tableflip.dev/pinmap/pkg/auth"
	"tableflip.dev/pinmap/pkg/editor"
	"tableflip.dev/pinmap/pkg/note"
)

// ComponentID uniquely identifies a component instance emitting events.
type ComponentID string

// NotesChangedMsg carries a fresh snapshot of the signed-in owner's active
// notes. The slice replaces whatever the receiver held before.
type NotesChangedMsg struct {
	Notes []*note.Note
}

// NoteHighlightMsg is emitted when a note is highlighted within the sidebar
// or the map.
type NoteHighlightMsg struct {
	Component ComponentID
	NoteID    string
}

// NoteHighlightCmd wraps NoteHighlightMsg into a tea.Cmd.
func NoteHighlightCmd(component ComponentID, noteID string) tea.Cmd {
	return func() tea.Msg {
		return NoteHighlightMsg{Component: component, NoteID: noteID}
	}
}

// NoteSelectMsg is emitted when the user activates a highlighted note to open
// it for editing.
type NoteSelectMsg struct {
	Component ComponentID
	NoteID    string
}

// Describe renders the selection in a human-friendly format for logs.
func (m NoteSelectMsg) Describe() string {
	return fmt.Sprintf(`component:%q note:%q`, m.Component, m.NoteID)
}

// NoteSelectCmd wraps NoteSelectMsg into a tea.Cmd.
func NoteSelectCmd(component ComponentID, noteID string) tea.Cmd {
	return func() tea.Msg {
		return NoteSelectMsg{Component: component, NoteID: noteID}
	}
}

// CreateAtMsg requests a new note at the given position.
type CreateAtMsg struct {
	Component ComponentID
	Lat       float64
	Lng       float64
}

// CreateAtCmd wraps CreateAtMsg into a tea.Cmd.
func CreateAtCmd(component ComponentID, lat, lng float64) tea.Cmd {
	return func() tea.Msg {
		return CreateAtMsg{Component: component, Lat: lat, Lng: lng}
	}
}

// SaveResultMsg reports the outcome of a save started from the editor form.
type SaveResultMsg struct {
	Err error
}

// UploadProgressMsg mirrors the editor's per-file upload progress.
type UploadProgressMsg struct {
	Progress editor.Progress
}

// NoteArchivedMsg reports an archive issued from the editor. The app layer
// arms the undo slot on success.
type NoteArchivedMsg struct {
	NoteID string
	Err    error
}

// NoteDeletedMsg reports a permanent delete issued from the editor.
type NoteDeletedMsg struct {
	NoteID string
	Err    error
}

// ArchivedLoadedMsg delivers the archived list fetch result.
type ArchivedLoadedMsg struct {
	Notes []*note.Note
	Err   error
}

// ArchivedAction names the operations available from the archived overlay.
type ArchivedAction string

const (
	ActionUnarchive ArchivedAction = "unarchive"
	ActionDelete    ArchivedAction = "delete"
)

// ArchivedActionMsg reports the outcome of an unarchive or permanent delete
// issued from the archived overlay. A nil Err means the list should refresh.
type ArchivedActionMsg struct {
	Action ArchivedAction
	NoteID string
	Err    error
}

// UndoBarMsg shows or hides the single undo affordance.
type UndoBarMsg struct {
	Message string
	Armed   bool
}

// AuthChangedMsg announces a sign-in state transition. User is nil when the
// session ended.
type AuthChangedMsg struct {
	User *auth.User
}

// StatusMsg surfaces a transient line in the footer.
type StatusMsg struct {
	Text  string
	IsErr bool
}

// StatusCmd wraps StatusMsg into a tea.Cmd.
func StatusCmd(text string, isErr bool) tea.Cmd {
	return func() tea.Msg {
		return StatusMsg{Text: text, IsErr: isErr}
	}
}
