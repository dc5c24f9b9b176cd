// Package repository owns the authoritative note cache for one signed-in
// owner: it runs the single live subscription against the store, partitions
// active from archived notes, and funnels every mutation through the store.
package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"tableflip.dev/pinmap/pkg/note"
	"tableflip.dev/pinmap/pkg/store"
)

// ErrNoOwner is returned by operations invoked before an owner id is set.
// Hitting it indicates a lifecycle bug in the caller, not a user error.
var ErrNoOwner = errors.New("repository: no owner id set")

// Listener receives the full active-notes list after every cache replace.
// The list is shared and must be treated as immutable.
type Listener func([]*note.Note)

// Option configures a Repository.
type Option func(*Repository)

// WithLogger sets the logger for subscription lifecycle events.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Repository) {
		if logger != nil {
			r.log = logger
		}
	}
}

// WithSubscriptionErrorHandler installs the handler invoked when the live
// subscription fails. Such failures are terminal for the subscription and
// are always reported, never swallowed.
func WithSubscriptionErrorHandler(fn func(error)) Option {
	return func(r *Repository) {
		r.onError = fn
	}
}

// Repository keeps the active-notes cache in sync with the store. The cache
// is replaced wholesale from each subscription snapshot; nothing else ever
// mutates it.
type Repository struct {
	store   store.Store
	log     *slog.Logger
	onError func(error)

	mu        sync.Mutex
	ownerID   string
	active    []*note.Note
	listeners []Listener
	sub       *subscription
}

type subscription struct {
	ownerID string
	cancel  context.CancelFunc
}

func New(s store.Store, opts ...Option) *Repository {
	r := &Repository{
		store:  s,
		log:    slog.Default(),
		active: []*note.Note{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetOwner fixes the owner id scoping all subsequent operations. It does not
// touch an existing subscription; callers switching owners must Subscribe
// again (which replaces the old feed).
func (r *Repository) SetOwner(ownerID string) {
	r.mu.Lock()
	r.ownerID = ownerID
	r.mu.Unlock()
}

func (r *Repository) owner() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ownerID == "" {
		return "", ErrNoOwner
	}
	return r.ownerID, nil
}

// Subscribe establishes the single live query for the current owner's
// non-archived notes, replacing any previously active subscription. Each
// delivered snapshot replaces the whole cache and notifies listeners.
func (r *Repository) Subscribe(ctx context.Context) error {
	ownerID, err := r.owner()
	if err != nil {
		return err
	}

	subCtx, cancel := context.WithCancel(ctx)
	next := &subscription{ownerID: ownerID, cancel: cancel}

	snapshots, err := r.store.Subscribe(subCtx, store.Filter{OwnerID: ownerID, Archived: false})
	if err != nil {
		cancel()
		return fmt.Errorf("repository: subscribe: %w", err)
	}

	r.mu.Lock()
	prev := r.sub
	r.sub = next
	r.mu.Unlock()
	if prev != nil {
		prev.cancel()
	}

	r.log.Debug("subscription established", "owner", ownerID)

	go func() {
		for snap := range snapshots {
			if snap.Err != nil {
				r.log.Error("active notes subscription failed", "owner", ownerID, "err", snap.Err)
				if r.onError != nil {
					r.onError(snap.Err)
				}
				return
			}
			r.apply(next, snap.Notes)
		}
	}()

	return nil
}

// Unsubscribe terminates the live feed. Safe to call repeatedly; once it
// returns, no further snapshots mutate the cache.
func (r *Repository) Unsubscribe() {
	r.mu.Lock()
	sub := r.sub
	r.sub = nil
	r.mu.Unlock()
	if sub != nil {
		sub.cancel()
		r.log.Debug("subscription stopped", "owner", sub.ownerID)
	}
}

// apply installs a snapshot if it belongs to the current subscription.
// Stale deliveries from a replaced or cancelled feed are dropped.
func (r *Repository) apply(from *subscription, notes []*note.Note) {
	if notes == nil {
		notes = []*note.Note{}
	}
	r.mu.Lock()
	if r.sub != from {
		r.mu.Unlock()
		return
	}
	r.active = notes
	listeners := make([]Listener, len(r.listeners))
	copy(listeners, r.listeners)
	r.mu.Unlock()

	for _, l := range listeners {
		l(notes)
	}
}

// OnActiveNotes registers a listener and immediately invokes it with the
// current cache.
func (r *Repository) OnActiveNotes(l Listener) {
	r.mu.Lock()
	r.listeners = append(r.listeners, l)
	current := r.active
	r.mu.Unlock()
	l(current)
}

// Active returns the current cache. Shared; treat as immutable.
func (r *Repository) Active() []*note.Note {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// LoadArchivedOnce fetches the owner's archived notes. One-shot: there is no
// live feed for archived notes, re-invoke to refresh.
func (r *Repository) LoadArchivedOnce(ctx context.Context) ([]*note.Note, error) {
	ownerID, err := r.owner()
	if err != nil {
		return nil, err
	}
	notes, err := r.store.List(ctx, store.Filter{OwnerID: ownerID, Archived: true})
	if err != nil {
		return nil, fmt.Errorf("repository: load archived: %w", err)
	}
	return notes, nil
}

// Create persists a new note at the given position with the owner stamped.
func (r *Repository) Create(ctx context.Context, n *note.Note) (string, error) {
	ownerID, err := r.owner()
	if err != nil {
		return "", err
	}
	n.OwnerID = ownerID
	if n.Color == "" {
		n.Color = note.DefaultColor
	}
	if n.Images == nil {
		n.Images = []note.ImageRef{}
	}
	id, err := r.store.Create(ctx, n)
	if err != nil {
		return "", fmt.Errorf("repository: create: %w", err)
	}
	return id, nil
}

// Update patches fields on an existing note.
func (r *Repository) Update(ctx context.Context, id string, p store.Patch) error {
	if _, err := r.owner(); err != nil {
		return err
	}
	if err := r.store.Apply(ctx, id, p); err != nil {
		return fmt.Errorf("repository: update: %w", err)
	}
	return nil
}

// Archive hides the note from the map and sidebar.
func (r *Repository) Archive(ctx context.Context, id string) error {
	archived := true
	return r.Update(ctx, id, store.Patch{Archived: &archived})
}

// Unarchive restores an archived note.
func (r *Repository) Unarchive(ctx context.Context, id string) error {
	archived := false
	return r.Update(ctx, id, store.Patch{Archived: &archived})
}

// Delete purges the note permanently. Hosted images are not purged from the
// image host; see pinmap's known limitations.
func (r *Repository) Delete(ctx context.Context, id string) error {
	if _, err := r.owner(); err != nil {
		return err
	}
	if err := r.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("repository: delete: %w", err)
	}
	return nil
}

// AddImages appends uploaded refs to the note's image sequence via the
// store's additive union; existing entries are never overwritten.
func (r *Repository) AddImages(ctx context.Context, id string, refs []note.ImageRef) error {
	if _, err := r.owner(); err != nil {
		return err
	}
	if len(refs) == 0 {
		return nil
	}
	if err := r.store.AppendImages(ctx, id, refs); err != nil {
		return fmt.Errorf("repository: add images: %w", err)
	}
	return nil
}

// RemoveImage drops the image with the given public id. This is a
// read-modify-write without optimistic concurrency: a concurrent removal
// from elsewhere can be lost. Known race, accepted.
func (r *Repository) RemoveImage(ctx context.Context, id, publicID string) error {
	if _, err := r.owner(); err != nil {
		return err
	}
	n, err := r.store.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("repository: remove image: %w", err)
	}
	next := make([]note.ImageRef, 0, len(n.Images))
	for _, img := range n.Images {
		if img.PublicID != publicID {
			next = append(next, img)
		}
	}
	if err := r.store.Apply(ctx, id, store.Patch{Images: &next}); err != nil {
		return fmt.Errorf("repository: remove image: %w", err)
	}
	return nil
}
