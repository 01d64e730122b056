package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/pawsen/library-org/internal/db"
	"github.com/pawsen/library-org/internal/events"
	"github.com/pawsen/library-org/internal/isbn"
	"github.com/pawsen/library-org/internal/metadata"
	"github.com/pawsen/library-org/internal/metrics"
	"github.com/pawsen/library-org/internal/repo"
)

//go:generate mockgen -source=service.go -destination=mock_fetcher_test.go -package=catalog

// MetadataFetcher resolves an ISBN to bibliographic data. An empty record
// means nothing was found.
type MetadataFetcher interface {
	Fetch(ctx context.Context, isbn string) metadata.Record
}

type Service struct {
	store     *repo.Store
	fetcher   MetadataFetcher
	publisher events.Publisher
	metrics   *metrics.Metrics
	log       *zap.Logger
	cfg       Config
}

func NewService(store *repo.Store, fetcher MetadataFetcher, publisher events.Publisher, m *metrics.Metrics, log *zap.Logger, cfg Config) *Service {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Service{
		store:     store,
		fetcher:   fetcher,
		publisher: publisher,
		metrics:   m,
		log:       log,
		cfg:       cfg.withDefaults(),
	}
}

// Lookup validates raw and fetches its metadata.
func (s *Service) Lookup(ctx context.Context, raw string) (metadata.Record, error) {
	code, err := normalizeISBN(raw)
	if err != nil {
		return metadata.Record{}, err
	}
	rec := s.fetcher.Fetch(ctx, code)
	if rec.IsEmpty() {
		return metadata.Record{}, ErrMetadataNotFound
	}
	return rec, nil
}

// AddBook stores a new book and logs an ADD entry with its snapshot. A book
// whose ISBN is already catalogued is rejected with *DuplicateISBNError and
// nothing is written.
func (s *Service) AddBook(ctx context.Context, in BookInput) (*BookView, error) {
	in = trimInput(in)
	if in.Title == "" || in.Authors == "" || in.LocationID == nil {
		return nil, ErrMissingFields
	}
	if in.ISBN != "" {
		code, err := normalizeISBN(in.ISBN)
		if err != nil {
			return nil, err
		}
		in.ISBN = code
	}

	var (
		book = &db.Book{}
		loc  *db.Location
	)
	err := s.store.InTx(ctx, func(tx *repo.Store) error {
		if err := s.checkDuplicate(ctx, tx, in.ISBN, 0); err != nil {
			return err
		}
		var err error
		if loc, err = tx.Locations.Get(ctx, *in.LocationID); err != nil {
			return err
		}

		applyInput(book, in)
		if err := tx.Books.Create(ctx, book); err != nil {
			return err
		}
		details, err := newSnapshot(book, loc).encode()
		if err != nil {
			return err
		}
		return tx.Logs.Append(ctx, &db.TransactionLog{
			Action:    db.ActionAdd,
			BookID:    &book.ID,
			BookTitle: bookTitle(book),
			Details:   details,
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Book added", zap.Uint("id", book.ID), zap.String("isbn", book.ISBN), zap.String("title", book.Title))
	s.afterMutation(ctx, db.ActionAdd, events.BookAdded, book)
	return newView(book, loc), nil
}

// EditBook overwrites every editable field of book id and logs an EDIT entry
// listing what changed.
func (s *Service) EditBook(ctx context.Context, id uint, in BookInput) (*BookView, error) {
	in = trimInput(in)
	if in.ISBN != "" {
		code, err := normalizeISBN(in.ISBN)
		if err != nil {
			return nil, err
		}
		in.ISBN = code
	}

	var (
		book   *db.Book
		newLoc *db.Location
	)
	err := s.store.InTx(ctx, func(tx *repo.Store) error {
		var err error
		if book, err = tx.Books.Get(ctx, id); err != nil {
			return err
		}
		if err := s.checkDuplicate(ctx, tx, in.ISBN, id); err != nil {
			return err
		}
		oldLoc, err := s.optionalLocation(ctx, tx, book.LocationID)
		if err != nil {
			return err
		}
		if in.LocationID != nil {
			if newLoc, err = tx.Locations.Get(ctx, *in.LocationID); err != nil {
				return err
			}
		}

		old := *book
		applyInput(book, in)
		if err := tx.Books.Save(ctx, book); err != nil {
			return err
		}
		return tx.Logs.Append(ctx, &db.TransactionLog{
			Action:    db.ActionEdit,
			BookID:    &book.ID,
			BookTitle: bookTitle(book),
			Details:   describeChanges(&old, book, oldLoc, newLoc),
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Book edited", zap.Uint("id", book.ID))
	s.afterMutation(ctx, db.ActionEdit, events.BookEdited, book)
	return newView(book, newLoc), nil
}

// RefreshFromISBN merges fetched metadata into book id for review. Only
// fields the provider actually returned replace the stored ones, and nothing
// is persisted.
func (s *Service) RefreshFromISBN(ctx context.Context, id uint, raw string) (*BookView, error) {
	code, err := normalizeISBN(raw)
	if err != nil {
		return nil, err
	}
	view, err := s.GetBook(ctx, id)
	if err != nil {
		return nil, err
	}
	rec := s.fetcher.Fetch(ctx, code)
	if rec.IsEmpty() {
		return nil, ErrMetadataNotFound
	}

	b := &view.Book
	b.ISBN = code
	if rec.Title != "" {
		b.Title = rec.Title
	}
	if len(rec.Authors) > 0 {
		b.Authors = strings.Join(rec.Authors, ", ")
	}
	if rec.PublishedDate != "" {
		b.PublishDate = rec.PublishedDate
	}
	if len(rec.Subjects) > 0 {
		b.Subjects = strings.Join(rec.Subjects, ", ")
	}
	if rec.Thumbnail != "" {
		b.OpenLibraryMedcoverURL = rec.Thumbnail
	}
	if rec.PreviewLink != "" {
		b.OpenLibraryPreviewURL = rec.PreviewLink
	}
	if rec.NumberOfPages > 0 {
		b.NumberOfPages = strconv.Itoa(rec.NumberOfPages)
	}
	return view, nil
}

// DeleteBook logs a DELETE entry with the book's snapshot, then removes it.
func (s *Service) DeleteBook(ctx context.Context, id uint) error {
	var book *db.Book
	err := s.store.InTx(ctx, func(tx *repo.Store) error {
		var err error
		if book, err = tx.Books.Get(ctx, id); err != nil {
			return err
		}
		loc, err := s.optionalLocation(ctx, tx, book.LocationID)
		if err != nil {
			return err
		}
		details, err := newSnapshot(book, loc).encode()
		if err != nil {
			return err
		}
		if err := tx.Logs.Append(ctx, &db.TransactionLog{
			Action:    db.ActionDelete,
			BookID:    &book.ID,
			BookTitle: bookTitle(book),
			Details:   details,
		}); err != nil {
			return err
		}
		return tx.Books.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	s.log.Info("Book deleted", zap.Uint("id", id), zap.String("title", book.Title))
	s.afterMutation(ctx, db.ActionDelete, events.BookDeleted, book)
	return nil
}

// RestoreBook recreates a book from the snapshot of DELETE entry logID and
// logs a RESTORE entry. The new book gets a fresh id.
func (s *Service) RestoreBook(ctx context.Context, logID uint) (*BookView, error) {
	var (
		book *db.Book
		loc  *db.Location
	)
	err := s.store.InTx(ctx, func(tx *repo.Store) error {
		entry, err := tx.Logs.Get(ctx, logID)
		if errors.Is(err, repo.ErrLogNotFound) {
			return ErrNotRestorable
		}
		if err != nil {
			return err
		}
		if entry.Action != db.ActionDelete {
			return ErrNotRestorable
		}

		snap, err := decodeSnapshot(entry.Details)
		if err != nil {
			return err
		}
		book = snap.book()
		if err := tx.Books.Create(ctx, book); err != nil {
			return err
		}
		if loc, err = s.optionalLocation(ctx, tx, book.LocationID); err != nil {
			return err
		}
		return tx.Logs.Append(ctx, &db.TransactionLog{
			Action:    db.ActionRestore,
			BookID:    &book.ID,
			BookTitle: bookTitle(book),
			Details:   fmt.Sprintf("Restored from a DELETE (%s)", entry.Timestamp.Format("2006-01-02 15:04:05")),
		})
	})
	if err != nil {
		if errors.Is(err, ErrSnapshotDecode) {
			s.log.Warn("Restore aborted", zap.Uint("log_id", logID), zap.Error(err))
		}
		return nil, err
	}

	s.log.Info("Book restored", zap.Uint("id", book.ID), zap.Uint("log_id", logID))
	s.afterMutation(ctx, db.ActionRestore, events.BookRestored, book)
	return newView(book, loc), nil
}

// GetBook returns book id with its location. A dangling location reference
// resolves to nil and the label "Unknown".
func (s *Service) GetBook(ctx context.Context, id uint) (*BookView, error) {
	book, err := s.store.Books.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	loc, err := s.optionalLocation(ctx, s.store, book.LocationID)
	if err != nil {
		return nil, err
	}
	return newView(book, loc), nil
}

func (s *Service) ListBooks(ctx context.Context, q Query) (BookPage, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage <= 0 {
		q.PerPage = s.cfg.PerPage
	}
	if q.PerPage > s.cfg.MaxPerPage {
		q.PerPage = s.cfg.MaxPerPage
	}

	books, total, err := s.store.Books.List(ctx, repo.ListParams{
		Search:    q.Search,
		SortBy:    q.SortBy,
		SortOrder: q.SortOrder,
		Page:      q.Page,
		PerPage:   q.PerPage,
	})
	if err != nil {
		if errors.Is(err, repo.ErrInvalidSortColumn) {
			return BookPage{}, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
		}
		return BookPage{}, err
	}

	var ids []uint
	for _, b := range books {
		if b.LocationID != nil {
			ids = append(ids, *b.LocationID)
		}
	}
	locs, err := s.store.Locations.ByIDs(ctx, ids)
	if err != nil {
		return BookPage{}, err
	}

	page := BookPage{Items: make([]BookView, 0, len(books)), Total: total, Page: q.Page, PerPage: q.PerPage}
	for i := range books {
		var loc *db.Location
		if id := books[i].LocationID; id != nil {
			if l, ok := locs[*id]; ok {
				loc = &l
			}
		}
		page.Items = append(page.Items, *newView(&books[i], loc))
	}
	return page, nil
}

// ListLogs returns the transaction log newest first. limit <= 0 returns all.
func (s *Service) ListLogs(ctx context.Context, limit int) ([]db.TransactionLog, error) {
	return s.store.Logs.List(ctx, limit)
}

func (s *Service) CreateLocation(ctx context.Context, in LocationInput) (*db.Location, error) {
	in, err := checkLocation(in)
	if err != nil {
		return nil, err
	}
	loc := &db.Location{LabelName: in.LabelName, FullName: in.FullName}
	if err := s.store.Locations.Create(ctx, loc); err != nil {
		return nil, err
	}
	return loc, nil
}

func (s *Service) ListLocations(ctx context.Context) ([]db.Location, error) {
	return s.store.Locations.List(ctx)
}

func (s *Service) GetLocation(ctx context.Context, id uint) (*db.Location, error) {
	return s.store.Locations.Get(ctx, id)
}

func (s *Service) UpdateLocation(ctx context.Context, id uint, in LocationInput) (*db.Location, error) {
	in, err := checkLocation(in)
	if err != nil {
		return nil, err
	}
	loc := &db.Location{ID: id, LabelName: in.LabelName, FullName: in.FullName}
	if err := s.store.Locations.Update(ctx, loc); err != nil {
		return nil, err
	}
	return loc, nil
}

// DeleteLocation removes the location. Books stored there keep the dangling
// reference and show as "Unknown".
func (s *Service) DeleteLocation(ctx context.Context, id uint) error {
	if err := s.store.Locations.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("Location deleted", zap.Uint("id", id))
	return nil
}

func (s *Service) checkDuplicate(ctx context.Context, tx *repo.Store, code string, selfID uint) error {
	if code == "" {
		return nil
	}
	existing, err := tx.Books.FindByISBN(ctx, code, selfID)
	if errors.Is(err, repo.ErrBookNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return &DuplicateISBNError{ISBN: code, ExistingID: existing.ID}
}

func (s *Service) optionalLocation(ctx context.Context, store *repo.Store, id *uint) (*db.Location, error) {
	if id == nil {
		return nil, nil
	}
	loc, err := store.Locations.Get(ctx, *id)
	if errors.Is(err, repo.ErrLocationNotFound) {
		return nil, nil
	}
	return loc, err
}

func (s *Service) afterMutation(ctx context.Context, action, eventType string, book *db.Book) {
	s.metrics.CatalogMutation(action)

	payload := map[string]interface{}{
		"book_id":    book.ID,
		"isbn":       book.ISBN,
		"book_title": bookTitle(book),
	}
	if err := s.publisher.Publish(ctx, events.NewEvent(ctx, eventType, payload)); err != nil {
		s.log.Warn("Failed to publish catalog event",
			zap.String("event_type", eventType),
			zap.Uint("book_id", book.ID),
			zap.Error(err))
	}
}

func normalizeISBN(raw string) (string, error) {
	code := isbn.Normalize(raw)
	if !isbn.Valid(code) {
		return "", ErrInvalidISBN
	}
	return code, nil
}

func trimInput(in BookInput) BookInput {
	in.ISBN = strings.TrimSpace(in.ISBN)
	in.Title = strings.TrimSpace(in.Title)
	in.Authors = strings.TrimSpace(in.Authors)
	in.PublishDate = strings.TrimSpace(in.PublishDate)
	in.Subjects = strings.TrimSpace(in.Subjects)
	in.NumberOfPages = strings.TrimSpace(in.NumberOfPages)
	in.ThumbnailURL = strings.TrimSpace(in.ThumbnailURL)
	in.PreviewURL = strings.TrimSpace(in.PreviewURL)
	in.OLID = strings.TrimSpace(in.OLID)
	return in
}

func applyInput(b *db.Book, in BookInput) {
	b.ISBN = in.ISBN
	b.Title = in.Title
	b.Authors = in.Authors
	b.PublishDate = in.PublishDate
	b.Subjects = in.Subjects
	b.NumberOfPages = in.NumberOfPages
	b.OpenLibraryMedcoverURL = in.ThumbnailURL
	b.OpenLibraryPreviewURL = in.PreviewURL
	b.OLID = in.OLID
	b.DeweyDecimalClass = in.DeweyDecimalClass
	b.LocationID = in.LocationID
}

func checkLocation(in LocationInput) (LocationInput, error) {
	in.LabelName = strings.TrimSpace(in.LabelName)
	in.FullName = strings.TrimSpace(in.FullName)
	if in.LabelName == "" || len(in.LabelName) > 20 || len(in.FullName) > 100 {
		return in, ErrInvalidLocation
	}
	return in, nil
}

func newView(b *db.Book, loc *db.Location) *BookView {
	return &BookView{Book: *b, Location: loc, LocationLabel: locationLabel(loc)}
}
