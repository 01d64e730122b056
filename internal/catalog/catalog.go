// Package catalog implements the library's book and location rules: adding,
// editing, deleting and restoring books, with every change written to the
// transaction log.
package catalog

import (
	"github.com/pawsen/library-org/internal/db"
)

// UnknownLocation is shown for books without a resolvable location.
const UnknownLocation = "Unknown"

// BookInput carries the editable fields of a book. Authors and subjects are
// comma separated.
type BookInput struct {
	ISBN              string  `json:"isbn" validate:"omitempty,isbn"`
	Title             string  `json:"title" validate:"required,max=255"`
	Authors           string  `json:"authors" validate:"required,max=255"`
	PublishDate       string  `json:"publish_date" validate:"max=50"`
	Subjects          string  `json:"subjects"`
	NumberOfPages     string  `json:"number_of_pages" validate:"max=20"`
	ThumbnailURL      string  `json:"openlibrary_medcover_url" validate:"omitempty,url,max=255"`
	PreviewURL        string  `json:"openlibrary_preview_url" validate:"omitempty,url,max=255"`
	OLID              string  `json:"olid" validate:"max=20"`
	DeweyDecimalClass *string `json:"dewey_decimal_class,omitempty" validate:"omitempty,max=50"`
	LocationID        *uint   `json:"location_id"`
}

// BookView is a book together with its resolved location.
type BookView struct {
	db.Book
	Location      *db.Location `json:"location,omitempty"`
	LocationLabel string       `json:"location_label"`
}

// Query selects a page of books.
type Query struct {
	Search    string
	SortBy    string
	SortOrder string
	Page      int
	PerPage   int
}

type BookPage struct {
	Items   []BookView `json:"items"`
	Total   int64      `json:"total"`
	Page    int        `json:"page"`
	PerPage int        `json:"per_page"`
}

func (p BookPage) TotalPages() int {
	if p.PerPage <= 0 {
		return 0
	}
	return int((p.Total + int64(p.PerPage) - 1) / int64(p.PerPage))
}

type LocationInput struct {
	LabelName string `json:"label_name" validate:"required,max=20"`
	FullName  string `json:"full_name" validate:"max=100"`
}

// Config tunes list paging.
type Config struct {
	PerPage    int
	MaxPerPage int
}

func (c Config) withDefaults() Config {
	if c.PerPage <= 0 {
		c.PerPage = 50
	}
	if c.MaxPerPage <= 0 {
		c.MaxPerPage = 500
	}
	return c
}
