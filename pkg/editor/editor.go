// Package editor is the popup controller: a two-mode create/edit form
// workflow that stages local images and runs the ordered save sequence
// (persist note, upload staged files one at a time, attach refs). It is
// UI-agnostic; the TUI drives it and renders its state.
package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"tableflip.dev/pinmap/pkg/images"
	"tableflip.dev/pinmap/pkg/note"
	"tableflip.dev/pinmap/pkg/store"
)

// ErrBusy rejects re-entrant saves while one is in flight.
var ErrBusy = errors.New("editor: save already in progress")

// Mode is the editor state.
type Mode int

const (
	ModeClosed Mode = iota
	ModeCreate
	ModeEdit
)

// Repository is the slice of the note repository the editor needs.
type Repository interface {
	Create(ctx context.Context, n *note.Note) (string, error)
	Update(ctx context.Context, id string, p store.Patch) error
	Archive(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	AddImages(ctx context.Context, id string, refs []note.ImageRef) error
	RemoveImage(ctx context.Context, id, publicID string) error
}

// Form holds the editable fields.
type Form struct {
	Title       string
	Description string
	Color       note.Color
}

// Progress reports sequential upload progress as current/total.
type Progress struct {
	Current int
	Total   int
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger for save workflow steps.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.log = logger
		}
	}
}

// WithProgress installs the busy-indicator progress callback.
func WithProgress(fn func(Progress)) Option {
	return func(c *Controller) {
		c.onProgress = fn
	}
}

// Controller owns the editor state machine. All staged previews it holds are
// released on every transition back to closed, whichever path takes it
// there.
type Controller struct {
	repo       Repository
	uploader   images.Uploader
	staged     *images.Staged
	log        *slog.Logger
	onProgress func(Progress)

	mu      sync.Mutex
	mode    Mode
	lat     float64
	lng     float64
	noteID  string
	current *note.Note // edit-mode snapshot, patched optimistically
	form    Form
	busy    bool
}

func New(repo Repository, uploader images.Uploader, staged *images.Staged, opts ...Option) *Controller {
	c := &Controller{
		repo:     repo,
		uploader: uploader,
		staged:   staged,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OpenCreate opens the editor over a captured map position with a blank
// form. Any previous session's staged previews are released first.
func (c *Controller) OpenCreate(lat, lng float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.staged.Reset()
	c.mode = ModeCreate
	c.lat, c.lng = lat, lng
	c.noteID = ""
	c.current = nil
	c.form = Form{Color: note.DefaultColor}
}

// OpenEdit opens the editor over an existing note, pre-populating the form
// and seeding the thumbnail view with the persisted images. No files are
// staged.
func (c *Controller) OpenEdit(n *note.Note) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.staged.Reset()
	c.mode = ModeEdit
	c.lat, c.lng = n.Lat, n.Lng
	c.noteID = n.ID
	c.current = n.Clone()
	c.form = Form{Title: n.Title, Description: n.Description, Color: n.Color}
	if c.form.Color == "" {
		c.form.Color = note.DefaultColor
	}
}

// Close releases all staged previews and returns to closed. An in-flight
// save keeps running; only its completion UI is suppressed.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *Controller) closeLocked() {
	c.staged.Reset()
	c.mode = ModeClosed
	c.noteID = ""
	c.current = nil
	c.form = Form{}
}

// AttachFiles accumulates files into the staged selection. Selection is
// additive; reselecting the same file stages it again.
func (c *Controller) AttachFiles(paths ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode == ModeClosed {
		return fmt.Errorf("editor: no open session to attach to")
	}
	return c.staged.Add(paths...)
}

func (c *Controller) SetTitle(v string)       { c.mu.Lock(); c.form.Title = v; c.mu.Unlock() }
func (c *Controller) SetDescription(v string) { c.mu.Lock(); c.form.Description = v; c.mu.Unlock() }
func (c *Controller) SetColor(v note.Color)   { c.mu.Lock(); c.form.Color = v; c.mu.Unlock() }

func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

func (c *Controller) Form() Form {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.form
}

func (c *Controller) NoteID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.noteID
}

func (c *Controller) Position() (lat, lng float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lat, c.lng
}

// StagedCount reports how many files are selected for upload.
func (c *Controller) StagedCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.staged.Len()
}

// Thumbnails is the thumbnail strip: persisted images first, then the
// transient previews for staged files.
func (c *Controller) Thumbnails() []note.ImageRef {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []note.ImageRef
	if c.current != nil {
		out = append(out, c.current.Images...)
	}
	out = append(out, c.staged.Previews()...)
	return out
}

// Save runs the ordered persistence sequence. On success the staged
// selection is cleared and the editor closes. On failure at any step the
// editor stays open with the form intact, busy is cleared, and the error is
// returned for the UI to surface; a retry re-runs the whole sequence.
func (c *Controller) Save(ctx context.Context) error {
	c.mu.Lock()
	// A session without its anchor is a lifecycle bug; treat as no-op like
	// a click on a dead button.
	if c.mode == ModeClosed || (c.mode == ModeEdit && c.noteID == "") {
		c.mu.Unlock()
		return nil
	}
	if c.busy {
		c.mu.Unlock()
		return ErrBusy
	}
	c.busy = true
	mode := c.mode
	form := c.form
	lat, lng := c.lat, c.lng
	noteID := c.noteID
	files := append([]string{}, c.staged.Files()...)
	c.mu.Unlock()

	err := c.persist(ctx, mode, form, lat, lng, noteID, files)

	c.mu.Lock()
	c.busy = false
	if err == nil {
		c.closeLocked()
	}
	c.mu.Unlock()
	return err
}

// persist is steps 3-5: write the note, upload staged files sequentially,
// attach the refs. An upload failure aborts the remaining uploads but the
// note written in step 3 stays - a documented partial-failure state.
func (c *Controller) persist(ctx context.Context, mode Mode, form Form, lat, lng float64, noteID string, files []string) error {
	switch mode {
	case ModeCreate:
		n := note.New("", lat, lng)
		n.Title = form.Title
		n.Description = form.Description
		n.Color = form.Color
		id, err := c.repo.Create(ctx, n)
		if err != nil {
			return err
		}
		noteID = id
		c.log.Debug("note created", "id", id)
	case ModeEdit:
		p := store.Patch{
			Title:       &form.Title,
			Description: &form.Description,
			Color:       &form.Color,
		}
		if err := c.repo.Update(ctx, noteID, p); err != nil {
			return err
		}
		c.log.Debug("note updated", "id", noteID)
	}

	if len(files) == 0 {
		return nil
	}

	uploaded := make([]note.ImageRef, 0, len(files))
	for i, f := range files {
		c.reportProgress(Progress{Current: i + 1, Total: len(files)})
		up, err := c.uploader.Upload(ctx, f)
		if err != nil {
			c.log.Error("upload failed, aborting remaining", "file", f, "done", i, "total", len(files), "err", err)
			return err
		}
		uploaded = append(uploaded, note.ImageRef{
			FullURL:  up.FullURL,
			ThumbURL: up.ThumbURL,
			PublicID: up.PublicID,
		})
	}

	return c.repo.AddImages(ctx, noteID, uploaded)
}

func (c *Controller) reportProgress(p Progress) {
	if c.onProgress != nil {
		c.onProgress(p)
	}
}

// Archive hides the edited note. Only meaningful in edit state; closes the
// editor on success.
func (c *Controller) Archive(ctx context.Context) error {
	c.mu.Lock()
	if c.mode != ModeEdit || c.noteID == "" {
		c.mu.Unlock()
		return nil
	}
	id := c.noteID
	c.mu.Unlock()

	if err := c.repo.Archive(ctx, id); err != nil {
		return err
	}
	c.Close()
	return nil
}

// Delete purges the edited note permanently. Confirmation is the UI's job;
// hosted images are not purged from the image host. Closes on success.
func (c *Controller) Delete(ctx context.Context) error {
	c.mu.Lock()
	if c.mode != ModeEdit || c.noteID == "" {
		c.mu.Unlock()
		return nil
	}
	id := c.noteID
	c.mu.Unlock()

	if err := c.repo.Delete(ctx, id); err != nil {
		return err
	}
	c.Close()
	return nil
}

// RemoveImage removes a persisted image from the edited note, then patches
// the local snapshot so the strip updates before the next authoritative
// refresh arrives. Staged previews are not removable this way; they have no
// public id.
func (c *Controller) RemoveImage(ctx context.Context, publicID string) error {
	c.mu.Lock()
	if c.mode != ModeEdit || c.noteID == "" || publicID == "" {
		c.mu.Unlock()
		return nil
	}
	if c.current == nil || !c.current.HasImage(publicID) {
		c.mu.Unlock()
		return nil
	}
	id := c.noteID
	c.mu.Unlock()

	if err := c.repo.RemoveImage(ctx, id, publicID); err != nil {
		return err
	}

	c.mu.Lock()
	if c.current != nil {
		next := make([]note.ImageRef, 0, len(c.current.Images))
		for _, img := range c.current.Images {
			if img.PublicID != publicID {
				next = append(next, img)
			}
		}
		c.current.Images = next
	}
	c.mu.Unlock()
	return nil
}
