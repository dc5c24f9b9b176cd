package printers

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"

	"tableflip.dev/pinmap/pkg/note"
)

// PrettyPrint renders notes for the terminal.
type PrettyPrint struct {
	ShowID bool
}

var spacing = strings.Repeat(" ", len("171dff69f8b99dca  "))

var dotColors = map[note.Color]*color.Color{
	note.Red:    color.New(color.FgRed),
	note.Blue:   color.New(color.FgBlue),
	note.Green:  color.New(color.FgGreen),
	note.Yellow: color.New(color.FgYellow),
	note.Purple: color.New(color.FgMagenta),
	note.Orange: color.New(color.FgHiYellow),
}

func (pp *PrettyPrint) NewLine() {
	fmt.Println("")
}

func (pp *PrettyPrint) Title(title string) {
	t := color.New(color.Bold, color.Underline)

	if pp.ShowID {
		_, _ = t.Print(spacing)
	}
	_, _ = t.Println(title)
}

func (pp *PrettyPrint) TitleWithCount(title string, count int) {
	t := color.New(color.Bold, color.Underline)
	c := color.New(color.Faint)

	if pp.ShowID {
		_, _ = t.Print(spacing)
	}
	_, _ = t.Print(title)
	_, _ = c.Printf(" - %d", count)

	switch count {
	case 1:
		_, _ = c.Println(" note")
	default:
		_, _ = c.Println(" notes")
	}
}

// Notes prints each note as a dot, title, and position line.
func (pp *PrettyPrint) Notes(notes ...*note.Note) {
	if len(notes) == 0 {
		f := color.New(color.Faint, color.Italic)
		if pp.ShowID {
			_, _ = f.Print(spacing)
		}
		_, _ = f.Print(" none\n\n")
		return
	}

	t := color.New()
	y := color.New(color.FgHiYellow, color.Italic, color.Faint)
	faint := color.New(color.Faint)

	for _, n := range notes {
		if pp.ShowID {
			_, _ = y.Print(n.ID)
			if pad := len(spacing) - len(n.ID); pad > 0 {
				_, _ = y.Print(strings.Repeat(" ", pad))
			}
		}
		dot := dotColors[n.Color]
		if dot == nil {
			dot = dotColors[note.DefaultColor]
		}
		_, _ = dot.Print("● ")
		_, _ = t.Print(n.DisplayTitle())
		_, _ = faint.Printf("  %.4f, %.4f", n.Lat, n.Lng)
		if len(n.Images) > 0 {
			_, _ = faint.Printf("  [%d img]", len(n.Images))
		}
		_, _ = t.Println("")
	}
	_, _ = t.Println("")
}

// Table renders the notes as an aligned table.
func (pp *PrettyPrint) Table(notes ...*note.Note) string {
	table := uitable.New()
	table.MaxColWidth = 48
	table.Wrap = true
	if pp.ShowID {
		table.AddRow("ID", "TITLE", "COLOR", "LAT", "LNG", "IMAGES", "CREATED")
	} else {
		table.AddRow("TITLE", "COLOR", "LAT", "LNG", "IMAGES", "CREATED")
	}
	for _, n := range notes {
		created := ""
		if !n.Created.IsZero() {
			created = n.Created.Format("2006-01-02 15:04")
		}
		if pp.ShowID {
			table.AddRow(n.ID, n.DisplayTitle(), string(n.Color), n.Lat, n.Lng, len(n.Images), created)
		} else {
			table.AddRow(n.DisplayTitle(), string(n.Color), n.Lat, n.Lng, len(n.Images), created)
		}
	}
	return table.String()
}
