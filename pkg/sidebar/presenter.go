// Package sidebar derives the filtered, sorted, capped list views from the
// active-notes cache. Pure functions; rendering lives in the TUI components.
package sidebar

import (
	"sort"
	"strings"

	"tableflip.dev/pinmap/pkg/note"
)

// MaxVisible caps the rendered active list. Truncation is silent.
const MaxVisible = 30

// SortMode selects the active-list ordering.
type SortMode int

const (
	SortCreatedDesc SortMode = iota
	SortCreatedAsc
	SortTitleAsc
	SortTitleDesc
)

func (m SortMode) String() string {
	switch m {
	case SortCreatedDesc:
		return "newest"
	case SortCreatedAsc:
		return "oldest"
	case SortTitleAsc:
		return "title a-z"
	case SortTitleDesc:
		return "title z-a"
	}
	return "unknown"
}

// Next cycles through the sort modes in display order.
func (m SortMode) Next() SortMode {
	switch m {
	case SortCreatedDesc:
		return SortCreatedAsc
	case SortCreatedAsc:
		return SortTitleAsc
	case SortTitleAsc:
		return SortTitleDesc
	default:
		return SortCreatedDesc
	}
}

// Filter keeps notes whose title or description contains q,
// case-insensitively. An empty query keeps everything.
func Filter(notes []*note.Note, q string) []*note.Note {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return append([]*note.Note{}, notes...)
	}
	out := make([]*note.Note, 0, len(notes))
	for _, n := range notes {
		if strings.Contains(strings.ToLower(n.Title), q) ||
			strings.Contains(strings.ToLower(n.Description), q) {
			out = append(out, n)
		}
	}
	return out
}

// Sort orders notes by the given mode. The sort is stable: ties keep their
// original cache order. The input slice is not modified.
func Sort(notes []*note.Note, mode SortMode) []*note.Note {
	out := append([]*note.Note{}, notes...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch mode {
		case SortCreatedAsc:
			return a.Created.Before(b.Created.Time)
		case SortCreatedDesc:
			return b.Created.Before(a.Created.Time)
		case SortTitleAsc:
			return strings.ToLower(a.Title) < strings.ToLower(b.Title)
		case SortTitleDesc:
			return strings.ToLower(b.Title) < strings.ToLower(a.Title)
		}
		return false
	})
	return out
}

// Visible is the full active-list pipeline: filter, sort, cap.
func Visible(notes []*note.Note, q string, mode SortMode) []*note.Note {
	out := Sort(Filter(notes, q), mode)
	if len(out) > MaxVisible {
		out = out[:MaxVisible]
	}
	return out
}

// SortArchived orders the archived view, which only ever shows newest
// first.
func SortArchived(notes []*note.Note) []*note.Note {
	return Sort(notes, SortCreatedDesc)
}
