package editor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"tableflip.dev/pinmap/pkg/images"
	"tableflip.dev/pinmap/pkg/note"
	"tableflip.dev/pinmap/pkg/store"
)

// fakeRepo records calls; failures are scripted per method.
type fakeRepo struct {
	mu         sync.Mutex
	nextID     int
	created    []*note.Note
	updates    map[string]store.Patch
	archived   []string
	deleted    []string
	added      map[string][]note.ImageRef
	removed    map[string][]string
	createErr  error
	updateErr  error
	addImgsErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		updates: map[string]store.Patch{},
		added:   map[string][]note.ImageRef{},
		removed: map[string][]string{},
	}
}

func (f *fakeRepo) Create(_ context.Context, n *note.Note) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return "", f.createErr
	}
	f.nextID++
	n.ID = fmt.Sprintf("id-%d", f.nextID)
	f.created = append(f.created, n.Clone())
	return n.ID, nil
}

func (f *fakeRepo) Update(_ context.Context, id string, p store.Patch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates[id] = p
	return nil
}

func (f *fakeRepo) Archive(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.archived = append(f.archived, id)
	return nil
}

func (f *fakeRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeRepo) AddImages(_ context.Context, id string, refs []note.ImageRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addImgsErr != nil {
		return f.addImgsErr
	}
	f.added[id] = append(f.added[id], refs...)
	return nil
}

func (f *fakeRepo) RemoveImage(_ context.Context, id, publicID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed[id] = append(f.removed[id], publicID)
	return nil
}

// fakeUploader succeeds until failAt (1-based); 0 never fails.
type fakeUploader struct {
	mu     sync.Mutex
	calls  int
	failAt int
	delay  time.Duration
}

func (u *fakeUploader) Upload(_ context.Context, path string) (images.Uploaded, error) {
	u.mu.Lock()
	u.calls++
	n := u.calls
	u.mu.Unlock()
	if u.delay > 0 {
		time.Sleep(u.delay)
	}
	if u.failAt > 0 && n >= u.failAt {
		return images.Uploaded{}, errors.New("upload rejected")
	}
	base := filepath.Base(path)
	full := "https://host/image/upload/v1/" + base
	return images.Uploaded{
		FullURL:  full,
		ThumbURL: images.ThumbURL(full),
		PublicID: "pid-" + base,
	}, nil
}

func (u *fakeUploader) count() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.calls
}

func newController(t *testing.T, repo Repository, up images.Uploader, opts ...Option) (*Controller, *images.Staged) {
	t.Helper()
	previewer, err := images.NewTempPreviewer()
	if err != nil {
		t.Fatalf("previewer: %v", err)
	}
	t.Cleanup(func() { _ = previewer.Close() })
	staged := images.NewStaged(previewer)
	return New(repo, up, staged, opts...), staged
}

func stageFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("img"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	return path
}

func TestSaveCreatePersistsAndCloses(t *testing.T) {
	repo := newFakeRepo()
	c, _ := newController(t, repo, &fakeUploader{})

	c.OpenCreate(45.26, 19.83)
	c.SetTitle("Cafe")
	c.SetDescription("Nice view")
	c.SetColor(note.Blue)

	if err := c.Save(context.Background()); err != nil {
		t.Fatalf("save: %v", err)
	}

	if len(repo.created) != 1 {
		t.Fatalf("expected one created note, got %d", len(repo.created))
	}
	got := repo.created[0]
	if got.Title != "Cafe" || got.Description != "Nice view" || got.Color != note.Blue {
		t.Fatalf("fields: %+v", got)
	}
	if got.Lat != 45.26 || got.Lng != 19.83 {
		t.Fatalf("position: %v,%v", got.Lat, got.Lng)
	}
	if got.Archived || len(got.Images) != 0 {
		t.Fatalf("defaults: archived=%v images=%d", got.Archived, len(got.Images))
	}
	if c.Mode() != ModeClosed {
		t.Fatal("editor must close on success")
	}
	if c.Busy() {
		t.Fatal("busy must clear")
	}
}

func TestSaveEditPatchesFields(t *testing.T) {
	repo := newFakeRepo()
	c, _ := newController(t, repo, &fakeUploader{})

	c.OpenEdit(&note.Note{ID: "n1", Title: "old", Color: note.Red, Lat: 1, Lng: 2})
	c.SetTitle("new")

	if err := c.Save(context.Background()); err != nil {
		t.Fatalf("save: %v", err)
	}
	p, ok := repo.updates["n1"]
	if !ok {
		t.Fatal("expected patch on n1")
	}
	if p.Title == nil || *p.Title != "new" {
		t.Fatalf("title patch: %+v", p)
	}
	if p.Archived != nil || p.Images != nil {
		t.Fatal("edit save must only patch title/description/color")
	}
}

func TestSaveUploadsSequentiallyWithProgress(t *testing.T) {
	repo := newFakeRepo()
	var mu sync.Mutex
	var seen []Progress
	c, _ := newController(t, repo, &fakeUploader{}, WithProgress(func(p Progress) {
		mu.Lock()
		seen = append(seen, p)
		mu.Unlock()
	}))

	c.OpenCreate(1, 2)
	if err := c.AttachFiles(stageFile(t, "a.jpg"), stageFile(t, "b.jpg"), stageFile(t, "c.jpg")); err != nil {
		t.Fatalf("attach: %v", err)
	}

	if err := c.Save(context.Background()); err != nil {
		t.Fatalf("save: %v", err)
	}

	want := []Progress{{1, 3}, {2, 3}, {3, 3}}
	mu.Lock()
	defer mu.Unlock()
	if len(seen) != len(want) {
		t.Fatalf("progress reports: %v", seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("progress[%d] = %v, want %v", i, seen[i], want[i])
		}
	}

	refs := repo.added["id-1"]
	if len(refs) != 3 {
		t.Fatalf("expected 3 attached refs, got %d", len(refs))
	}
	// Attachment preserves selection order.
	for i, name := range []string{"a.jpg", "b.jpg", "c.jpg"} {
		if !strings.HasSuffix(refs[i].FullURL, name) {
			t.Fatalf("refs out of order: %v", refs)
		}
		if refs[i].PublicID == "" {
			t.Fatal("persisted refs must carry a public id")
		}
	}
}

func TestSavePartialUploadFailure(t *testing.T) {
	repo := newFakeRepo()
	up := &fakeUploader{failAt: 2}
	c, staged := newController(t, repo, up)

	c.OpenCreate(1, 2)
	c.SetTitle("partial")
	if err := c.AttachFiles(stageFile(t, "a.jpg"), stageFile(t, "b.jpg"), stageFile(t, "c.jpg")); err != nil {
		t.Fatalf("attach: %v", err)
	}

	err := c.Save(context.Background())
	if err == nil {
		t.Fatal("expected save to fail")
	}

	// The note persisted in step 3 stays; nothing was attached since the
	// attach step never ran; the third upload was never attempted.
	if len(repo.created) != 1 {
		t.Fatalf("note should remain persisted, created=%d", len(repo.created))
	}
	if len(repo.added) != 0 {
		t.Fatalf("no refs may be attached after an aborted upload run: %v", repo.added)
	}
	if up.count() != 2 {
		t.Fatalf("remaining uploads must be aborted, attempted %d", up.count())
	}

	// Editor stays open for retry with everything intact.
	if c.Mode() != ModeCreate {
		t.Fatal("editor must stay open on failure")
	}
	if c.Busy() {
		t.Fatal("busy must clear on failure")
	}
	if f := c.Form(); f.Title != "partial" {
		t.Fatalf("form must stay intact, got %+v", f)
	}
	if staged.Len() != 3 {
		t.Fatalf("staged selection must survive a failed save, got %d", staged.Len())
	}
}

func TestSaveRejectsReentry(t *testing.T) {
	repo := newFakeRepo()
	up := &fakeUploader{delay: 100 * time.Millisecond}
	c, _ := newController(t, repo, up)

	c.OpenCreate(1, 2)
	if err := c.AttachFiles(stageFile(t, "a.jpg")); err != nil {
		t.Fatalf("attach: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- c.Save(context.Background()) }()

	deadline := time.Now().Add(2 * time.Second)
	for !c.Busy() {
		if time.Now().After(deadline) {
			t.Fatal("save never became busy")
		}
		time.Sleep(time.Millisecond)
	}

	if err := c.Save(context.Background()); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("first save: %v", err)
	}
}

func TestSaveClosedIsNoOp(t *testing.T) {
	repo := newFakeRepo()
	c, _ := newController(t, repo, &fakeUploader{})
	if err := c.Save(context.Background()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if len(repo.created) != 0 || len(repo.updates) != 0 {
		t.Fatal("closed save must not touch the repository")
	}
}

func TestArchiveAndDeleteOnlyWhileEditing(t *testing.T) {
	repo := newFakeRepo()
	c, _ := newController(t, repo, &fakeUploader{})
	ctx := context.Background()

	c.OpenCreate(1, 2)
	if err := c.Archive(ctx); err != nil {
		t.Fatalf("archive: %v", err)
	}
	if err := c.Delete(ctx); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(repo.archived) != 0 || len(repo.deleted) != 0 {
		t.Fatal("create mode must not allow archive/delete")
	}

	c.OpenEdit(&note.Note{ID: "n1"})
	if err := c.Archive(ctx); err != nil {
		t.Fatalf("archive: %v", err)
	}
	if len(repo.archived) != 1 || repo.archived[0] != "n1" {
		t.Fatalf("archived: %v", repo.archived)
	}
	if c.Mode() != ModeClosed {
		t.Fatal("archive must close the editor")
	}

	c.OpenEdit(&note.Note{ID: "n2"})
	if err := c.Delete(ctx); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(repo.deleted) != 1 || repo.deleted[0] != "n2" {
		t.Fatalf("deleted: %v", repo.deleted)
	}
	if c.Mode() != ModeClosed {
		t.Fatal("delete must close the editor")
	}
}

func TestRemoveImagePatchesSnapshotOptimistically(t *testing.T) {
	repo := newFakeRepo()
	c, _ := newController(t, repo, &fakeUploader{})
	ctx := context.Background()

	c.OpenEdit(&note.Note{
		ID: "n1",
		Images: []note.ImageRef{
			{FullURL: "u/a", PublicID: "a"},
			{FullURL: "u/b", PublicID: "b"},
		},
	})

	if err := c.RemoveImage(ctx, "a"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if got := repo.removed["n1"]; len(got) != 1 || got[0] != "a" {
		t.Fatalf("repository call: %v", got)
	}

	thumbs := c.Thumbnails()
	if len(thumbs) != 1 || thumbs[0].PublicID != "b" {
		t.Fatalf("snapshot not patched: %+v", thumbs)
	}

	// Unknown and empty public ids are no-ops.
	if err := c.RemoveImage(ctx, "nope"); err != nil {
		t.Fatalf("remove unknown: %v", err)
	}
	if err := c.RemoveImage(ctx, ""); err != nil {
		t.Fatalf("remove empty: %v", err)
	}
	if got := repo.removed["n1"]; len(got) != 1 {
		t.Fatalf("extra repository calls: %v", got)
	}
}

func TestReopenLeavesNoStagedFiles(t *testing.T) {
	repo := newFakeRepo()
	c, staged := newController(t, repo, &fakeUploader{})

	c.OpenCreate(1, 2)
	if err := c.AttachFiles(stageFile(t, "a.jpg"), stageFile(t, "b.jpg")); err != nil {
		t.Fatalf("attach: %v", err)
	}
	previews := staged.Previews()
	if len(previews) != 2 {
		t.Fatalf("expected 2 previews, got %d", len(previews))
	}

	c.Close()
	if staged.Len() != 0 {
		t.Fatal("close must clear the staged selection")
	}
	for _, pv := range previews {
		path := strings.TrimPrefix(pv.FullURL, "file://")
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Fatalf("preview %s not revoked", pv.FullURL)
		}
	}

	c.OpenCreate(3, 4)
	if staged.Len() != 0 {
		t.Fatal("next open must start with zero staged files")
	}
	if len(c.Thumbnails()) != 0 {
		t.Fatal("create mode must start with an empty thumbnail strip")
	}
}

func TestThumbnailsShowPersistedThenStaged(t *testing.T) {
	repo := newFakeRepo()
	c, _ := newController(t, repo, &fakeUploader{})

	c.OpenEdit(&note.Note{ID: "n1", Images: []note.ImageRef{{FullURL: "u/a", PublicID: "a"}}})
	if err := c.AttachFiles(stageFile(t, "new.jpg")); err != nil {
		t.Fatalf("attach: %v", err)
	}

	thumbs := c.Thumbnails()
	if len(thumbs) != 2 {
		t.Fatalf("expected 2 thumbnails, got %d", len(thumbs))
	}
	if thumbs[0].PublicID != "a" {
		t.Fatal("persisted images come first")
	}
	if thumbs[1].PublicID != "" {
		t.Fatal("staged previews carry no public id")
	}
}
