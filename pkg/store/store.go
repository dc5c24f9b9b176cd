package store

import (
	"context"
	"errors"

	"tableflip.dev/pinmap/pkg/note"
)

// ErrNotFound is returned when no note exists for the requested id.
var ErrNotFound = errors.New("store: note not found")

// Filter scopes queries and subscriptions. OwnerID is mandatory; no query
// ever crosses owner boundaries.
type Filter struct {
	OwnerID  string
	Archived bool
}

// Patch describes a partial update. Nil fields are left untouched. Images
// replaces the whole sequence and exists so read-modify-write removal can be
// expressed; AppendImages is the only additive path.
type Patch struct {
	Title       *string
	Description *string
	Color       *note.Color
	Archived    *bool
	Images      *[]note.ImageRef
}

// Snapshot is one full-state delivery from a live subscription. Err is set
// when the subscription itself failed; such a snapshot is terminal.
type Snapshot struct {
	Notes []*note.Note
	Err   error
}

// Store is the remote-document-store capability the client depends on:
// owner-scoped queries, patch updates, an append-union for images, and a
// live subscription that delivers full snapshots (never diffs). Any backend
// that can poll-and-requery satisfies it.
type Store interface {
	// Create persists a new note, assigns its id, and stamps both
	// Created and Updated.
	Create(ctx context.Context, n *note.Note) (string, error)

	// Get returns the note with the given id, or ErrNotFound.
	Get(ctx context.Context, id string) (*note.Note, error)

	// List returns all notes matching the filter, ordered by creation time.
	List(ctx context.Context, f Filter) ([]*note.Note, error)

	// Apply patches the note with the given id and stamps Updated.
	Apply(ctx context.Context, id string, p Patch) error

	// AppendImages merges refs onto the note's image sequence, preserving
	// order and never dropping existing entries. Duplicate public ids are
	// kept once, first occurrence wins.
	AppendImages(ctx context.Context, id string, refs []note.ImageRef) error

	// Delete removes the note permanently.
	Delete(ctx context.Context, id string) error

	// Subscribe streams full snapshots of the notes matching the filter,
	// starting with the current state, until ctx is cancelled. The channel
	// is closed when the subscription ends.
	Subscribe(ctx context.Context, f Filter) (<-chan Snapshot, error)
}
