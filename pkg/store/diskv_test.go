package store

import (
	"context"
	"errors"
	"testing"

	"tableflip.dev/pinmap/pkg/note"
)

type testConfig struct {
	path string
}

func (t testConfig) BasePath() string {
	return t.path
}

func load(t *testing.T) Store {
	t.Helper()
	s, err := Load(testConfig{path: t.TempDir()})
	if err != nil {
		t.Fatalf("load persistence: %v", err)
	}
	return s
}

func TestCreateRoundTrip(t *testing.T) {
	s := load(t)
	ctx := context.Background()

	n := note.New("alice", 45.26, 19.83)
	n.Title = "Cafe"
	n.Description = "Nice view"
	n.Color = note.Blue

	id, err := s.Create(ctx, n)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if id == "" {
		t.Fatal("expected assigned id")
	}

	got, err := s.Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "Cafe" || got.Description != "Nice view" || got.Color != note.Blue {
		t.Fatalf("fields did not round-trip: %+v", got)
	}
	if got.Lat != 45.26 || got.Lng != 19.83 {
		t.Fatalf("position did not round-trip: %v,%v", got.Lat, got.Lng)
	}
	if got.Archived {
		t.Fatal("new note must not be archived")
	}
	if len(got.Images) != 0 {
		t.Fatalf("new note must have an empty image sequence, got %d", len(got.Images))
	}
	if got.Created.IsZero() || got.Updated.IsZero() {
		t.Fatal("create must stamp both timestamps")
	}
}

func TestListFiltersByOwnerAndArchived(t *testing.T) {
	s := load(t)
	ctx := context.Background()

	mine := note.New("alice", 1, 1)
	mine.Title = "mine"
	if _, err := s.Create(ctx, mine); err != nil {
		t.Fatalf("create: %v", err)
	}

	theirs := note.New("bob", 2, 2)
	theirs.Title = "theirs"
	if _, err := s.Create(ctx, theirs); err != nil {
		t.Fatalf("create: %v", err)
	}

	gone := note.New("alice", 3, 3)
	gone.Title = "archived"
	gone.Archived = true
	id, err := s.Create(ctx, gone)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	archived := true
	if err := s.Apply(ctx, id, Patch{Archived: &archived}); err != nil {
		t.Fatalf("apply: %v", err)
	}

	active, err := s.List(ctx, Filter{OwnerID: "alice", Archived: false})
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 1 || active[0].Title != "mine" {
		t.Fatalf("expected only alice's active note, got %+v", active)
	}

	arch, err := s.List(ctx, Filter{OwnerID: "alice", Archived: true})
	if err != nil {
		t.Fatalf("list archived: %v", err)
	}
	if len(arch) != 1 || arch[0].Title != "archived" {
		t.Fatalf("expected only alice's archived note, got %+v", arch)
	}
}

func TestAppendImagesIsAdditive(t *testing.T) {
	s := load(t)
	ctx := context.Background()

	n := note.New("alice", 1, 1)
	n.Images = []note.ImageRef{{FullURL: "u/a", PublicID: "a"}}
	id, err := s.Create(ctx, n)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := s.AppendImages(ctx, id, []note.ImageRef{{FullURL: "u/b", PublicID: "b"}}); err != nil {
		t.Fatalf("append: %v", err)
	}
	// Appending an already-present public id must not duplicate it.
	if err := s.AppendImages(ctx, id, []note.ImageRef{{FullURL: "u/a", PublicID: "a"}}); err != nil {
		t.Fatalf("append dup: %v", err)
	}

	got, err := s.Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Images) != 2 || got.Images[0].PublicID != "a" || got.Images[1].PublicID != "b" {
		t.Fatalf("expected [a b], got %+v", got.Images)
	}
}

func TestApplyReplacesImageSequence(t *testing.T) {
	s := load(t)
	ctx := context.Background()

	n := note.New("alice", 1, 1)
	n.Images = []note.ImageRef{
		{FullURL: "u/a", PublicID: "a"},
		{FullURL: "u/b", PublicID: "b"},
	}
	id, err := s.Create(ctx, n)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	next := []note.ImageRef{{FullURL: "u/b", PublicID: "b"}}
	if err := s.Apply(ctx, id, Patch{Images: &next}); err != nil {
		t.Fatalf("apply: %v", err)
	}

	got, err := s.Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Images) != 1 || got.Images[0].PublicID != "b" {
		t.Fatalf("expected [b], got %+v", got.Images)
	}
}

func TestDeleteRemovesNote(t *testing.T) {
	s := load(t)
	ctx := context.Background()

	id, err := s.Create(ctx, note.New("alice", 1, 1))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.Delete(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
