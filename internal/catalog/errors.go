package catalog

import (
	"errors"
	"fmt"

	"github.com/pawsen/library-org/internal/repo"
)

var (
	ErrInvalidISBN            = errors.New("invalid ISBN")
	ErrMetadataNotFound       = errors.New("no metadata found for ISBN")
	ErrMissingFields          = errors.New("title, authors and location are required")
	ErrInvalidLocation        = errors.New("location label is required (max 20 characters, full name max 100)")
	ErrInvalidQuery           = errors.New("invalid list query")
	ErrNotRestorable          = errors.New("log entry is not a restorable DELETE")
	ErrSnapshotDecode         = errors.New("cannot decode book snapshot")
	ErrBookNotFound           = repo.ErrBookNotFound
	ErrLocationNotFound       = repo.ErrLocationNotFound
	ErrDuplicateLocationLabel = repo.ErrDuplicateLabel
)

// DuplicateISBNError reports that another book already carries the ISBN.
type DuplicateISBNError struct {
	ISBN       string
	ExistingID uint
}

func (e *DuplicateISBNError) Error() string {
	return fmt.Sprintf("a book with ISBN %s already exists (id %d)", e.ISBN, e.ExistingID)
}
