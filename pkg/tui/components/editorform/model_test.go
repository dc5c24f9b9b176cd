package editorform

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea/v2"

	"tableflip.dev/pinmap/pkg/editor"
	"tableflip.dev/pinmap/pkg/images"
	"tableflip.dev/pinmap/pkg/note"
	"tableflip.dev/pinmap/pkg/store"
	"tableflip.dev/pinmap/pkg/tui/events"
)

type stubRepo struct {
	created []*note.Note
	deleted []string
}

func (r *stubRepo) Create(_ context.Context, n *note.Note) (string, error) {
	n.ID = "n1"
	r.created = append(r.created, n)
	return n.ID, nil
}
func (r *stubRepo) Update(context.Context, string, store.Patch) error { return nil }
func (r *stubRepo) Archive(context.Context, string) error             { return nil }
func (r *stubRepo) Delete(_ context.Context, id string) error {
	r.deleted = append(r.deleted, id)
	return nil
}
func (r *stubRepo) AddImages(context.Context, string, []note.ImageRef) error { return nil }
func (r *stubRepo) RemoveImage(context.Context, string, string) error        { return nil }

type stubUploader struct{}

func (stubUploader) Upload(_ context.Context, path string) (images.Uploaded, error) {
	return images.Uploaded{FullURL: "u/" + filepath.Base(path), PublicID: "p"}, nil
}

func newTestModel(t *testing.T) (*Model, *editor.Controller, *stubRepo) {
	t.Helper()
	previewer, err := images.NewTempPreviewer()
	if err != nil {
		t.Fatalf("previewer: %v", err)
	}
	t.Cleanup(func() { _ = previewer.Close() })
	repo := &stubRepo{}
	ctrl := editor.New(repo, stubUploader{}, images.NewStaged(previewer))
	m := NewModel(ctrl)
	m.SetSize(80, 24)
	return m, ctrl, repo
}

func press(m *Model, keys ...string) tea.Cmd {
	var last tea.Cmd
	for _, k := range keys {
		var msg tea.KeyPressMsg
		switch k {
		case "enter":
			msg = tea.KeyPressMsg{Code: tea.KeyEnter}
		case "esc":
			msg = tea.KeyPressMsg{Code: tea.KeyEscape}
		case "tab":
			msg = tea.KeyPressMsg{Code: tea.KeyTab}
		case "left":
			msg = tea.KeyPressMsg{Code: tea.KeyLeft}
		case "right":
			msg = tea.KeyPressMsg{Code: tea.KeyRight}
		case "ctrl+d":
			msg = tea.KeyPressMsg{Code: 'd', Mod: tea.ModCtrl}
		default:
			msg = tea.KeyPressMsg{Code: rune(k[0]), Text: k}
		}
		_, last = m.Update(msg)
	}
	return last
}

func TestTypingSyncsControllerForm(t *testing.T) {
	m, ctrl, _ := newTestModel(t)
	ctrl.OpenCreate(1, 2)
	m.Sync()

	press(m, "h", "i")
	if got := ctrl.Form().Title; got != "hi" {
		t.Fatalf("title = %q", got)
	}

	press(m, "tab") // description
	press(m, "o", "k")
	if got := ctrl.Form().Description; got != "ok" {
		t.Fatalf("description = %q", got)
	}
}

func TestColorFieldCyclesPalette(t *testing.T) {
	m, ctrl, _ := newTestModel(t)
	ctrl.OpenCreate(1, 2)
	m.Sync()

	press(m, "tab", "tab") // title -> description -> color
	press(m, "right")
	if got := ctrl.Form().Color; got != note.Palette()[1] {
		t.Fatalf("color = %v", got)
	}
	press(m, "left", "left")
	want := note.Palette()[len(note.Palette())-1]
	if got := ctrl.Form().Color; got != want {
		t.Fatalf("color = %v, want wraparound to %v", got, want)
	}
}

func TestAttachFieldStagesFile(t *testing.T) {
	m, ctrl, _ := newTestModel(t)
	ctrl.OpenCreate(1, 2)
	m.Sync()

	path := filepath.Join(t.TempDir(), "a.jpg")
	if err := os.WriteFile(path, []byte("img"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	press(m, "tab", "tab", "tab") // -> attach
	for _, r := range path {
		press(m, string(r))
	}
	press(m, "enter")

	if ctrl.StagedCount() != 1 {
		t.Fatalf("staged = %d", ctrl.StagedCount())
	}
}

func TestGallerySelectionWrapsAround(t *testing.T) {
	m, ctrl, _ := newTestModel(t)
	ctrl.OpenEdit(&note.Note{ID: "n1", Images: []note.ImageRef{
		{FullURL: "u/a", ThumbURL: "u/a", PublicID: "a"},
		{FullURL: "u/b", ThumbURL: "u/b", PublicID: "b"},
		{FullURL: "u/c", ThumbURL: "u/c", PublicID: "c"},
	}})
	m.Sync()

	press(m, "tab", "tab", "tab", "tab") // -> gallery
	press(m, "left")
	if m.GalleryIndex() != 2 {
		t.Fatalf("index = %d, want wrap to last", m.GalleryIndex())
	}
	press(m, "right")
	if m.GalleryIndex() != 0 {
		t.Fatalf("index = %d, want wrap to first", m.GalleryIndex())
	}
}

func TestDeleteRequiresConfirmation(t *testing.T) {
	m, ctrl, repo := newTestModel(t)
	ctrl.OpenEdit(&note.Note{ID: "n1"})
	m.Sync()

	press(m, "ctrl+d")
	if len(repo.deleted) != 0 {
		t.Fatal("delete must wait for confirmation")
	}

	// Declining keeps the note.
	press(m, "n")
	press(m, "ctrl+d")
	cmd := press(m, "y")
	if cmd == nil {
		t.Fatal("expected delete command")
	}
	msg, ok := cmd().(events.NoteDeletedMsg)
	if !ok {
		t.Fatalf("unexpected msg %T", cmd())
	}
	if msg.Err != nil || msg.NoteID != "n1" {
		t.Fatalf("delete msg = %+v", msg)
	}
	if len(repo.deleted) != 1 || repo.deleted[0] != "n1" {
		t.Fatalf("deleted = %v", repo.deleted)
	}
}

func TestSaveEmitsResultAndCloses(t *testing.T) {
	m, ctrl, repo := newTestModel(t)
	ctrl.OpenCreate(1, 2)
	m.Sync()

	press(m, "g", "o")
	cmd := press(m, "enter")
	if cmd == nil {
		t.Fatal("expected save command")
	}
	msg, ok := cmd().(events.SaveResultMsg)
	if !ok {
		t.Fatalf("unexpected msg %T", cmd())
	}
	if msg.Err != nil {
		t.Fatalf("save: %v", msg.Err)
	}
	if len(repo.created) != 1 || repo.created[0].Title != "go" {
		t.Fatalf("created = %+v", repo.created)
	}
	if ctrl.Mode() != editor.ModeClosed {
		t.Fatal("editor must close after a successful save")
	}
}

func TestEscapeClosesEditor(t *testing.T) {
	m, ctrl, _ := newTestModel(t)
	ctrl.OpenCreate(1, 2)
	m.Sync()
	press(m, "esc")
	if ctrl.Mode() != editor.ModeClosed {
		t.Fatal("esc must close the editor")
	}
}
