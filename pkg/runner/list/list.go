package list

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"tableflip.dev/pinmap/pkg/printers"
	"tableflip.dev/pinmap/pkg/sidebar"
	"tableflip.dev/pinmap/pkg/store"
)

// List prints the owner's notes without opening the UI.
type List struct {
	Store    store.Store
	OwnerID  string
	Archived bool
	ShowID   bool
	AsTable  bool
	AsJSON   bool
}

func (l *List) Do(ctx context.Context) error {
	if l.Store == nil {
		return errors.New("can not list, no store")
	}
	if l.OwnerID == "" {
		return errors.New("can not list, no owner; sign in first or pass --owner")
	}

	notes, err := l.Store.List(ctx, store.Filter{OwnerID: l.OwnerID, Archived: l.Archived})
	if err != nil {
		return err
	}
	notes = sidebar.Sort(notes, sidebar.SortCreatedDesc)

	if l.AsJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(notes)
	}

	pp := printers.PrettyPrint{ShowID: l.ShowID}
	if l.AsTable {
		fmt.Println(pp.Table(notes...))
		return nil
	}

	title := "Notes"
	if l.Archived {
		title = "Archived notes"
	}
	fmt.Println("")
	pp.TitleWithCount(title, len(notes))
	pp.Notes(notes...)
	return nil
}
