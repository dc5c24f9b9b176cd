package store

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/peterbourgon/diskv/v3"

	"tableflip.dev/pinmap/pkg/note"
)

// Load creates a Store backed by diskv using the provided config. Notes are
// bucketed per owner so queries never have to touch foreign records.
func Load(cfg Config) (Store, error) {
	if cfg == nil {
		var err error
		cfg, err = LoadConfig()
		if err != nil {
			return nil, err
		}
	}

	basePath := cfg.BasePath()
	return &persistence{d: diskv.New(diskv.Options{
		BasePath:          basePath,
		AdvancedTransform: keyToPathTransform,
		InverseTransform:  pathToKeyTransform,
		CacheSizeMax:      1024 * 1024, // 1MB
	}), basePath: basePath}, nil
}

type persistence struct {
	d        *diskv.Diskv
	basePath string
}

func (p *persistence) read(key string) (*note.Note, error) {
	val, err := p.d.Read(key)
	if err != nil {
		return nil, err
	}
	n := note.Note{}
	if err := json.Unmarshal(val, &n); err != nil {
		return nil, err
	}
	if n.Images == nil {
		n.Images = []note.ImageRef{}
	}
	return &n, nil
}

func (p *persistence) write(n *note.Note) error {
	data, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return p.d.Write(toKey(n.OwnerID, n.ID), data)
}

func (p *persistence) Create(_ context.Context, n *note.Note) (string, error) {
	if n.OwnerID == "" {
		return "", fmt.Errorf("store: create requires an owner id")
	}
	if n.ID == "" {
		n.ID = newID()
	}
	now := note.At(time.Now())
	n.Created = now
	n.Updated = now
	if n.Color == "" {
		n.Color = note.DefaultColor
	}
	if n.Images == nil {
		n.Images = []note.ImageRef{}
	}
	if err := p.write(n); err != nil {
		return "", err
	}
	return n.ID, nil
}

func (p *persistence) Get(ctx context.Context, id string) (*note.Note, error) {
	key, err := p.findKey(ctx, id)
	if err != nil {
		return nil, err
	}
	return p.read(key)
}

func (p *persistence) List(ctx context.Context, f Filter) ([]*note.Note, error) {
	ok := toOwner(f.OwnerID)
	all := make([]*note.Note, 0)
	for key := range p.d.Keys(ctx.Done()) {
		if pk := keyToPathTransform(key); pk.Path[0] != ok {
			continue
		}
		n, err := p.read(key)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %s\n", key, err)
			continue
		}
		if n.Archived != f.Archived {
			continue
		}
		all = append(all, n)
	}
	sortNotes(all)
	return all, nil
}

func (p *persistence) Apply(ctx context.Context, id string, patch Patch) error {
	key, err := p.findKey(ctx, id)
	if err != nil {
		return err
	}
	n, err := p.read(key)
	if err != nil {
		return err
	}
	if patch.Title != nil {
		n.Title = *patch.Title
	}
	if patch.Description != nil {
		n.Description = *patch.Description
	}
	if patch.Color != nil {
		n.Color = *patch.Color
	}
	if patch.Archived != nil {
		n.Archived = *patch.Archived
	}
	if patch.Images != nil {
		n.Images = append([]note.ImageRef{}, (*patch.Images)...)
	}
	n.Updated = note.At(time.Now())
	return p.write(n)
}

func (p *persistence) AppendImages(ctx context.Context, id string, refs []note.ImageRef) error {
	if len(refs) == 0 {
		return nil
	}
	key, err := p.findKey(ctx, id)
	if err != nil {
		return err
	}
	n, err := p.read(key)
	if err != nil {
		return err
	}
	// Union semantics: existing entries stay in place, new ones append in
	// the order given, duplicates by public id are ignored.
	for _, ref := range refs {
		if ref.PublicID != "" && n.HasImage(ref.PublicID) {
			continue
		}
		n.Images = append(n.Images, ref)
	}
	n.Updated = note.At(time.Now())
	return p.write(n)
}

func (p *persistence) Delete(ctx context.Context, id string) error {
	key, err := p.findKey(ctx, id)
	if err != nil {
		return err
	}
	return p.d.Erase(key)
}

// findKey locates the storage key for a note id across owner buckets.
func (p *persistence) findKey(ctx context.Context, id string) (string, error) {
	if id == "" {
		return "", ErrNotFound
	}
	for key := range p.d.Keys(ctx.Done()) {
		if pk := keyToPathTransform(key); pk.FileName == id {
			return key, nil
		}
	}
	return "", ErrNotFound
}

func newID() string {
	return fmt.Sprintf("%x", [16]byte(uuid.New()))
}

func sortNotes(notes []*note.Note) {
	sort.SliceStable(notes, func(i, j int) bool {
		left := notes[i]
		right := notes[j]
		lt := left.Created.Time
		rt := right.Created.Time
		switch {
		case lt.IsZero() && rt.IsZero():
			return left.ID < right.ID
		case lt.IsZero():
			return false
		case rt.IsZero():
			return true
		default:
			if lt.Equal(rt) {
				return left.ID < right.ID
			}
			return lt.Before(rt)
		}
	})
}

func keyToPathTransform(s string) *diskv.PathKey {
	parts := strings.Split(s, "-")
	return &diskv.PathKey{
		Path:     parts[:len(parts)-1],
		FileName: parts[len(parts)-1],
	}
}

func pathToKeyTransform(pathKey *diskv.PathKey) string {
	return fmt.Sprintf("%s-%s", strings.Join(pathKey.Path, "-"), pathKey.FileName)
}

// toKey makes `owner-id`; both halves are dash-free so the transform stays
// reversible.
func toKey(ownerID, id string) string {
	return fmt.Sprintf("%s-%s", toOwner(ownerID), id)
}

func toOwner(s string) string {
	return hex.EncodeToString([]byte(s))
}

func fromOwner(s string) string {
	owner, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Sprintf("fromOwner: %s", err)
	}
	return string(owner)
}
