package note

// Color is the marker color for a note. Stored as a plain string so the
// backend never needs to know the palette.
type Color string

const (
	Red    Color = "red"
	Blue   Color = "blue"
	Green  Color = "green"
	Yellow Color = "yellow"
	Purple Color = "purple"
	Orange Color = "orange"
)

// DefaultColor is applied when a note is created without an explicit color.
const DefaultColor = Red

// Palette returns the selectable colors in display order.
func Palette() []Color {
	return []Color{Red, Blue, Green, Yellow, Purple, Orange}
}

func (c Color) String() string {
	return string(c)
}

// ImageRef points at a hosted image. PublicID is empty for local previews
// that have not been uploaded yet; removal is always keyed by PublicID.
type ImageRef struct {
	FullURL  string `json:"fullUrl"`
	ThumbURL string `json:"thumbUrl"`
	PublicID string `json:"publicId,omitempty"`
}

// Note is a user-owned, georeferenced annotation. The ID is assigned by the
// store on creation. Lat/Lng never change after creation.
type Note struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"ownerId"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Color       Color      `json:"color"`
	Lat         float64    `json:"lat"`
	Lng         float64    `json:"lng"`
	Archived    bool       `json:"archived"`
	Images      []ImageRef `json:"images"`
	Created     Timestamp  `json:"created,omitempty"`
	Updated     Timestamp  `json:"updated,omitempty"`
}

// New returns a note with defaults applied, ready to be persisted.
func New(ownerID string, lat, lng float64) *Note {
	return &Note{
		OwnerID: ownerID,
		Color:   DefaultColor,
		Lat:     lat,
		Lng:     lng,
		Images:  []ImageRef{},
	}
}

// Clone returns a deep copy so callers can patch a snapshot without
// mutating the cached original.
func (n *Note) Clone() *Note {
	if n == nil {
		return nil
	}
	cp := *n
	cp.Images = make([]ImageRef, len(n.Images))
	copy(cp.Images, n.Images)
	return &cp
}

// DisplayTitle is what lists show for untitled notes.
func (n *Note) DisplayTitle() string {
	if n.Title == "" {
		return "(no title)"
	}
	return n.Title
}

// HasImage reports whether an image with the given public id is attached.
func (n *Note) HasImage(publicID string) bool {
	for _, img := range n.Images {
		if img.PublicID == publicID {
			return true
		}
	}
	return false
}
