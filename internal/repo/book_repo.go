package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pawsen/library-org/internal/db"
)

// sortColumns maps accepted sort keys to columns.
var sortColumns = map[string]string{
	"id":              "id",
	"title":           "title",
	"authors":         "authors",
	"publish_date":    "publish_date",
	"isbn":            "isbn",
	"number_of_pages": "number_of_pages",
}

// SortColumns lists the accepted sort keys.
func SortColumns() []string {
	return []string{"id", "title", "authors", "publish_date", "isbn", "number_of_pages"}
}

// ListParams selects one page of books. Zero values mean: no search, sort by
// title ascending, first page, 50 per page.
type ListParams struct {
	Search    string
	SortBy    string
	SortOrder string
	Page      int
	PerPage   int
}

type BookRepository struct {
	db  *gorm.DB
	log *zap.Logger
}

func (r *BookRepository) Create(ctx context.Context, book *db.Book) error {
	if err := r.db.WithContext(ctx).Create(book).Error; err != nil {
		r.log.Error("Failed to create book", zap.String("isbn", book.ISBN), zap.Error(err))
		return err
	}
	return nil
}

func (r *BookRepository) Get(ctx context.Context, id uint) (*db.Book, error) {
	var book db.Book
	err := r.db.WithContext(ctx).First(&book, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		r.log.Error("Failed to get book", zap.Uint("id", id), zap.Error(err))
		return nil, err
	}
	return &book, nil
}

// FindByISBN returns the lowest-id book carrying isbn other than exceptID
// (0 excludes nothing), or ErrBookNotFound.
func (r *BookRepository) FindByISBN(ctx context.Context, isbn string, exceptID uint) (*db.Book, error) {
	var book db.Book
	query := r.db.WithContext(ctx).Where("isbn = ?", isbn)
	if exceptID != 0 {
		query = query.Where("id <> ?", exceptID)
	}
	err := query.Order("id").First(&book).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		r.log.Error("Failed to find book by isbn", zap.String("isbn", isbn), zap.Error(err))
		return nil, err
	}
	return &book, nil
}

// Save writes every column of book, including zero values.
func (r *BookRepository) Save(ctx context.Context, book *db.Book) error {
	if book.ID == 0 {
		return ErrBookNotFound
	}
	if err := r.db.WithContext(ctx).Save(book).Error; err != nil {
		r.log.Error("Failed to save book", zap.Uint("id", book.ID), zap.Error(err))
		return err
	}
	return nil
}

func (r *BookRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&db.Book{}, id)
	if result.Error != nil {
		r.log.Error("Failed to delete book", zap.Uint("id", id), zap.Error(result.Error))
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrBookNotFound
	}
	return nil
}

// List returns one page of books and the total number matching the search.
// The search term is matched case-insensitively as a substring of title,
// authors, subjects and isbn.
func (r *BookRepository) List(ctx context.Context, p ListParams) ([]db.Book, int64, error) {
	order, err := orderClause(p.SortBy, p.SortOrder)
	if err != nil {
		return nil, 0, err
	}
	page, perPage := p.Page, p.PerPage
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 50
	}

	query := r.db.WithContext(ctx).Model(&db.Book{})
	if term := strings.TrimSpace(p.Search); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		query = query.Where(
			"LOWER(title) LIKE ? OR LOWER(authors) LIKE ? OR LOWER(subjects) LIKE ? OR LOWER(isbn) LIKE ?",
			like, like, like, like,
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		r.log.Error("Failed to count books", zap.Error(err))
		return nil, 0, err
	}

	var books []db.Book
	err = query.Order(order).Order("id").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&books).Error
	if err != nil {
		r.log.Error("Failed to list books", zap.Error(err))
		return nil, 0, err
	}
	return books, total, nil
}

func orderClause(sortBy, sortOrder string) (string, error) {
	if sortBy == "" {
		sortBy = "title"
	}
	col, ok := sortColumns[sortBy]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidSortColumn, sortBy)
	}
	dir := "ASC"
	if strings.EqualFold(sortOrder, "desc") {
		dir = "DESC"
	}
	return col + " " + dir, nil
}
