package mapview

import (
	"fmt"
	"math"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/lucasb-eyer/go-colorful"

	"tableflip.dev/pinmap/pkg/note"
	"tableflip.dev/pinmap/pkg/tui/events"
)

// Default viewport: Novi Sad city center.
const (
	DefaultLat  = 45.2671
	DefaultLng  = 19.8335
	DefaultZoom = 13

	// Selecting a note never zooms the viewport out below this level.
	SelectZoomFloor = 16

	minZoom = 3
	maxZoom = 18
)

var colorHex = map[note.Color]string{
	note.Red:    "#e74c3c",
	note.Blue:   "#3498db",
	note.Green:  "#2ecc71",
	note.Yellow: "#f1c40f",
	note.Purple: "#9b59b6",
	note.Orange: "#e67e22",
}

// Model renders the note markers on a pannable viewport grid.
type Model struct {
	id events.ComponentID

	markers map[string]*note.Note
	order   []string

	cursor    int
	selected  string
	centerLat float64
	centerLng float64
	zoom      int

	width  int
	height int

	focused bool
}

// NewModel constructs an empty map centered on the default viewport.
func NewModel() *Model {
	return &Model{
		id:        events.ComponentID("mapview"),
		markers:   map[string]*note.Note{},
		centerLat: DefaultLat,
		centerLng: DefaultLng,
		zoom:      DefaultZoom,
		cursor:    -1,
		focused:   true,
	}
}

// ID reports the component identifier used in emitted events.
func (m *Model) ID() events.ComponentID { return m.id }

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd { return nil }

// SetSize updates the viewport dimensions.
func (m *Model) SetSize(width, height int) {
	if width < 10 {
		width = 10
	}
	if height < 3 {
		height = 3
	}
	m.width = width
	m.height = height
}

// Focus gives the map keyboard control.
func (m *Model) Focus() { m.focused = true }

// Blur releases keyboard control.
func (m *Model) Blur() { m.focused = false }

// SetNotes tears down the marker set and rebuilds it from the snapshot. Any
// marker whose note is gone disappears; the highlighted marker survives by
// note id when it is still present.
func (m *Model) SetNotes(notes []*note.Note) {
	m.markers = make(map[string]*note.Note, len(notes))
	m.order = m.order[:0]
	for _, n := range notes {
		if n == nil || n.ID == "" {
			continue
		}
		m.markers[n.ID] = n
		m.order = append(m.order, n.ID)
	}
	sort.Strings(m.order)

	m.cursor = -1
	if m.selected != "" {
		for i, id := range m.order {
			if id == m.selected {
				m.cursor = i
				break
			}
		}
	}
	if m.cursor == -1 {
		m.selected = ""
	}
}

// MarkerIDs reports the ids of the rendered markers in cursor order.
func (m *Model) MarkerIDs() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// Selected reports the highlighted marker's note, or nil.
func (m *Model) Selected() *note.Note {
	if m.selected == "" {
		return nil
	}
	return m.markers[m.selected]
}

// Center moves the viewport to the given position, zooming in to at least the
// selection floor but never zooming out.
func (m *Model) Center(lat, lng float64) {
	m.centerLat = lat
	m.centerLng = lng
	if m.zoom < SelectZoomFloor {
		m.zoom = SelectZoomFloor
	}
}

// Position reports the current viewport center.
func (m *Model) Position() (lat, lng float64) {
	return m.centerLat, m.centerLng
}

// Zoom reports the current zoom level.
func (m *Model) Zoom() int { return m.zoom }

// Select highlights the marker for the given note id and recenters on it.
func (m *Model) Select(id string) bool {
	n, ok := m.markers[id]
	if !ok {
		return false
	}
	m.selected = id
	for i, mid := range m.order {
		if mid == id {
			m.cursor = i
			break
		}
	}
	m.Center(n.Lat, n.Lng)
	return true
}

// Update processes Bubble Tea messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if m.width == 0 && m.height == 0 {
			m.SetSize(msg.Width, msg.Height)
		}
	case events.NotesChangedMsg:
		m.SetNotes(msg.Notes)
	case tea.KeyPressMsg:
		if cmd := m.handleKey(msg); cmd != nil {
			return m, cmd
		}
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyPressMsg) tea.Cmd {
	if !m.focused {
		return nil
	}
	switch msg.String() {
	case "left", "h":
		m.pan(0, -1)
	case "right", "l":
		m.pan(0, 1)
	case "up", "k":
		m.pan(1, 0)
	case "down", "j":
		m.pan(-1, 0)
	case "+", "=":
		if m.zoom < maxZoom {
			m.zoom++
		}
	case "-":
		if m.zoom > minZoom {
			m.zoom--
		}
	case "n":
		m.cycle(1)
	case "p":
		m.cycle(-1)
	case "enter":
		if m.selected != "" {
			return events.NoteSelectCmd(m.id, m.selected)
		}
	case "c":
		return events.CreateAtCmd(m.id, m.centerLat, m.centerLng)
	}
	return nil
}

func (m *Model) cycle(delta int) {
	if len(m.order) == 0 {
		return
	}
	m.cursor = ((m.cursor+delta)%len(m.order) + len(m.order)) % len(m.order)
	id := m.order[m.cursor]
	m.selected = id
	if n := m.markers[id]; n != nil {
		m.Center(n.Lat, n.Lng)
	}
}

// pan shifts the center by a fraction of the visible span so movement feels
// uniform across zoom levels.
func (m *Model) pan(dLatCells, dLngCells float64) {
	latSpan, lngSpan := m.span()
	m.centerLat += dLatCells * latSpan / 8
	m.centerLng += dLngCells * lngSpan / 8
	m.centerLat = math.Max(-85, math.Min(85, m.centerLat))
}

// span reports the lat/lng extent of the viewport at the current zoom.
func (m *Model) span() (latSpan, lngSpan float64) {
	w := m.width
	if w <= 0 {
		w = 80
	}
	h := m.height
	if h <= 0 {
		h = 24
	}
	degPerCell := 360 / (math.Exp2(float64(m.zoom)) * 2)
	lngSpan = degPerCell * float64(w)
	// Cells are roughly twice as tall as wide; shrink latitude accordingly.
	latSpan = degPerCell * 2 * float64(h) * math.Cos(m.centerLat*math.Pi/180)
	return latSpan, lngSpan
}

// View renders the marker grid.
func (m *Model) View() string {
	w := m.width
	if w <= 0 {
		w = 80
	}
	h := m.height - 1
	if h <= 0 {
		h = 23
	}

	type cell struct {
		glyph string
	}
	grid := make([][]cell, h)
	for y := range grid {
		grid[y] = make([]cell, w)
		for x := range grid[y] {
			grid[y][x] = cell{glyph: " "}
		}
	}

	latSpan, lngSpan := m.span()
	place := func(lat, lng float64) (x, y int, ok bool) {
		fx := (lng-m.centerLng)/lngSpan + 0.5
		fy := (m.centerLat-lat)/latSpan + 0.5
		x = int(fx * float64(w))
		y = int(fy * float64(h))
		return x, y, x >= 0 && x < w && y >= 0 && y < h
	}

	if x, y, ok := place(m.centerLat, m.centerLng); ok {
		grid[y][x] = cell{glyph: "+"}
	}

	for _, id := range m.order {
		n := m.markers[id]
		x, y, ok := place(n.Lat, n.Lng)
		if !ok {
			continue
		}
		grid[y][x] = cell{glyph: m.markerGlyph(n)}
	}

	var b strings.Builder
	for y, row := range grid {
		if y > 0 {
			b.WriteString("\n")
		}
		for _, c := range row {
			b.WriteString(c.glyph)
		}
	}
	b.WriteString("\n")
	b.WriteString(m.statusLine(w))
	return b.String()
}

func (m *Model) markerGlyph(n *note.Note) string {
	hex, ok := colorHex[n.Color]
	if !ok {
		hex = colorHex[note.DefaultColor]
	}
	if n.ID == m.selected {
		if c, err := colorful.Hex(hex); err == nil {
			white, _ := colorful.Hex("#ffffff")
			hex = c.BlendLuv(white, 0.4).Hex()
		}
		return lipgloss.NewStyle().Foreground(lipgloss.Color(hex)).Bold(true).Render("◉")
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(hex)).Render("●")
}

func (m *Model) statusLine(width int) string {
	sel := ""
	if n := m.Selected(); n != nil {
		sel = "  " + n.DisplayTitle()
	}
	line := fmt.Sprintf(" %.4f, %.4f  z%d%s", m.centerLat, m.centerLng, m.zoom, sel)
	if len(line) > width {
		line = line[:width]
	}
	return lipgloss.NewStyle().Faint(true).Render(line)
}
