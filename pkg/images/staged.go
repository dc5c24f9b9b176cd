package images

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"tableflip.dev/pinmap/pkg/note"
)

// Previewer allocates revocable local preview resources for selected files.
// Every allocated URL must be revoked exactly once; Staged enforces that on
// all of its exit paths.
type Previewer interface {
	Allocate(path string) (string, error)
	Revoke(url string) error
}

// TempPreviewer materializes previews as copies under a temp directory and
// hands out file:// URLs. Revoke removes the copy.
type TempPreviewer struct {
	dir string
}

func NewTempPreviewer() (*TempPreviewer, error) {
	dir, err := os.MkdirTemp("", "pinmap-previews-")
	if err != nil {
		return nil, fmt.Errorf("images: preview dir: %w", err)
	}
	return &TempPreviewer{dir: dir}, nil
}

func (p *TempPreviewer) Allocate(path string) (string, error) {
	src, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("images: preview %s: %w", filepath.Base(path), err)
	}
	defer src.Close()

	name := fmt.Sprintf("%x%s", [16]byte(uuid.New()), filepath.Ext(path))
	dstPath := filepath.Join(p.dir, name)
	dst, err := os.Create(dstPath)
	if err != nil {
		return "", fmt.Errorf("images: preview %s: %w", filepath.Base(path), err)
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(dstPath)
		return "", fmt.Errorf("images: preview %s: %w", filepath.Base(path), err)
	}
	return "file://" + dstPath, nil
}

func (p *TempPreviewer) Revoke(url string) error {
	const scheme = "file://"
	if len(url) <= len(scheme) || url[:len(scheme)] != scheme {
		return fmt.Errorf("images: not a preview url: %s", url)
	}
	path := url[len(scheme):]
	if filepath.Dir(path) != p.dir {
		return fmt.Errorf("images: preview url outside preview dir: %s", url)
	}
	return os.Remove(path)
}

// Close removes the preview directory and anything left in it.
func (p *TempPreviewer) Close() error {
	return os.RemoveAll(p.dir)
}

// Staged is the purely local, not-yet-persisted image selection for one
// editor session: the chosen files plus ephemeral preview refs. Previews are
// released on Reset regardless of how the editor exits.
type Staged struct {
	previewer Previewer
	files     []string
	previews  []note.ImageRef
}

func NewStaged(p Previewer) *Staged {
	return &Staged{previewer: p}
}

// Add accumulates files into the selection; repeated selection appends, it
// never replaces. All previews are rebuilt so the set stays consistent.
func (s *Staged) Add(paths ...string) error {
	s.files = append(s.files, paths...)
	return s.rebuild()
}

func (s *Staged) rebuild() error {
	s.revokeAll()
	s.previews = make([]note.ImageRef, 0, len(s.files))
	for _, f := range s.files {
		url, err := s.previewer.Allocate(f)
		if err != nil {
			return err
		}
		// Previews use the same resource for full and thumb and carry no
		// public id: that is what marks them as transient.
		s.previews = append(s.previews, note.ImageRef{FullURL: url, ThumbURL: url})
	}
	return nil
}

func (s *Staged) revokeAll() {
	for _, pv := range s.previews {
		if err := s.previewer.Revoke(pv.FullURL); err != nil {
			fmt.Fprintf(os.Stderr, "images: revoke preview: %v\n", err)
		}
	}
	s.previews = nil
}

// Files returns the staged file paths in selection order.
func (s *Staged) Files() []string {
	return s.files
}

// Previews returns the transient preview refs, one per staged file.
func (s *Staged) Previews() []note.ImageRef {
	return s.previews
}

func (s *Staged) Len() int {
	return len(s.files)
}

// Reset releases every preview and clears the selection. Idempotent; called
// on every editor exit path.
func (s *Staged) Reset() {
	s.revokeAll()
	s.files = nil
}
