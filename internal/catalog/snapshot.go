package catalog

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pawsen/library-org/internal/db"
)

// Snapshot is the JSON body stored in ADD and DELETE log entries. A DELETE
// snapshot is the only source for a later restore.
type Snapshot struct {
	ISBN          string `json:"isbn"`
	Title         string `json:"title"`
	Authors       string `json:"authors"`
	PublishDate   string `json:"publish_date"`
	Subjects      string `json:"subjects"`
	Pages         string `json:"pages"`
	PreviewURL    string `json:"openlibrary_preview_url"`
	Thumbnail     string `json:"thumbnail"`
	LocationID    *uint  `json:"location_id"`
	LocationLabel string `json:"location_label"`
}

func newSnapshot(b *db.Book, loc *db.Location) Snapshot {
	return Snapshot{
		ISBN:          b.ISBN,
		Title:         b.Title,
		Authors:       b.Authors,
		PublishDate:   b.PublishDate,
		Subjects:      b.Subjects,
		Pages:         b.NumberOfPages,
		PreviewURL:    b.OpenLibraryPreviewURL,
		Thumbnail:     b.OpenLibraryMedcoverURL,
		LocationID:    b.LocationID,
		LocationLabel: locationLabel(loc),
	}
}

func (s Snapshot) encode() (string, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func decodeSnapshot(details string) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal([]byte(details), &s); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrSnapshotDecode, err)
	}
	return s, nil
}

func (s Snapshot) book() *db.Book {
	return &db.Book{
		ISBN:                   s.ISBN,
		Title:                  s.Title,
		Authors:                s.Authors,
		PublishDate:            s.PublishDate,
		Subjects:               s.Subjects,
		NumberOfPages:          s.Pages,
		OpenLibraryPreviewURL:  s.PreviewURL,
		OpenLibraryMedcoverURL: s.Thumbnail,
		LocationID:             s.LocationID,
	}
}

// bookTitle is the "authors - title" form stored with every log entry.
func bookTitle(b *db.Book) string {
	return b.Authors + " - " + b.Title
}

func locationLabel(loc *db.Location) string {
	if loc == nil {
		return UnknownLocation
	}
	return loc.LabelName + ", " + loc.FullName
}

func formatID(id *uint) string {
	if id == nil {
		return "None"
	}
	return fmt.Sprintf("%d", *id)
}

var diffFields = []struct {
	key string
	get func(*db.Book) string
}{
	{"isbn", func(b *db.Book) string { return b.ISBN }},
	{"title", func(b *db.Book) string { return b.Title }},
	{"authors", func(b *db.Book) string { return b.Authors }},
	{"publish_date", func(b *db.Book) string { return b.PublishDate }},
	{"subjects", func(b *db.Book) string { return b.Subjects }},
	{"number_of_pages", func(b *db.Book) string { return b.NumberOfPages }},
	{"openlibrary_medcover_url", func(b *db.Book) string { return b.OpenLibraryMedcoverURL }},
	{"openlibrary_preview_url", func(b *db.Book) string { return b.OpenLibraryPreviewURL }},
}

// NoChanges is the EDIT log detail when nothing differs.
const NoChanges = "No changes detected."

// describeChanges renders the EDIT log detail for old -> new.
func describeChanges(old, updated *db.Book, oldLoc, newLoc *db.Location) string {
	var changes []string
	for _, f := range diffFields {
		before, after := f.get(old), f.get(updated)
		if before != after {
			changes = append(changes, fmt.Sprintf("%s: '%s' → '%s'", f.key, before, after))
		}
	}
	if !sameID(old.LocationID, updated.LocationID) {
		changes = append(changes, fmt.Sprintf("Location: '%s' (ID: %s) → '%s' (ID: %s)",
			locationLabel(oldLoc), formatID(old.LocationID),
			locationLabel(newLoc), formatID(updated.LocationID)))
	}
	if len(changes) == 0 {
		return NoChanges
	}
	return strings.Join(changes, "; ")
}

func sameID(a, b *uint) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
