package db

import (
	"time"

	"gorm.io/gorm"
)

// Transaction log actions.
const (
	ActionAdd     = "ADD"
	ActionEdit    = "EDIT"
	ActionDelete  = "DELETE"
	ActionRestore = "RESTORE"
)

// Book is one catalogued volume. Authors and subjects are stored flattened.
// LocationID is not a schema foreign key: a deleted location leaves books
// pointing at nothing, which readers render as "Unknown".
type Book struct {
	ID                     uint      `gorm:"primaryKey" json:"id"`
	ISBN                   string    `gorm:"column:isbn;type:varchar(20);index:idx_books_isbn" json:"isbn"`
	OLID                   string    `gorm:"column:olid;type:varchar(20)" json:"olid,omitempty"`
	LCCN                   string    `gorm:"column:lccn;type:varchar(20)" json:"lccn,omitempty"`
	Title                  string    `gorm:"type:varchar(255);not null;index:idx_books_title" json:"title"`
	Authors                string    `gorm:"type:varchar(255)" json:"authors"`
	PublishDate            string    `gorm:"type:varchar(50)" json:"publish_date"`
	NumberOfPages          string    `gorm:"type:varchar(20)" json:"number_of_pages"`
	Subjects               string    `gorm:"type:text" json:"subjects"`
	OpenLibraryMedcoverURL string    `gorm:"column:openlibrary_medcover_url;type:varchar(255)" json:"openlibrary_medcover_url"`
	OpenLibraryPreviewURL  string    `gorm:"column:openlibrary_preview_url;type:varchar(255)" json:"openlibrary_preview_url"`
	DeweyDecimalClass      *string   `gorm:"column:dewey_decimal_class;type:varchar(50)" json:"dewey_decimal_class,omitempty"`
	LocationID             *uint     `gorm:"column:location_id;index:idx_books_location" json:"location_id"`
	CreatedAt              time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt              time.Time `gorm:"not null" json:"updated_at"`
}

func (Book) TableName() string {
	return "books"
}

func (b *Book) BeforeCreate(tx *gorm.DB) error {
	now := time.Now().UTC()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	if b.UpdatedAt.IsZero() {
		b.UpdatedAt = now
	}
	return nil
}

func (b *Book) BeforeUpdate(tx *gorm.DB) error {
	b.UpdatedAt = time.Now().UTC()
	return nil
}

type Location struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	LabelName string `gorm:"type:varchar(20);not null;uniqueIndex:idx_locations_label" json:"label_name"`
	FullName  string `gorm:"type:varchar(100)" json:"full_name"`
}

func (Location) TableName() string {
	return "locations"
}

// TransactionLog rows are append-only.
type TransactionLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Timestamp time.Time `gorm:"not null;index:idx_logs_timestamp" json:"timestamp"`
	Action    string    `gorm:"type:varchar(10);not null" json:"action"`
	BookID    *uint     `gorm:"index:idx_logs_book" json:"book_id"`
	BookTitle string    `gorm:"type:varchar(255)" json:"book_title"`
	Details   string    `gorm:"type:text" json:"details"`
}

func (TransactionLog) TableName() string {
	return "transaction_log"
}

func (l *TransactionLog) BeforeCreate(tx *gorm.DB) error {
	if l.Timestamp.IsZero() {
		l.Timestamp = time.Now().UTC()
	}
	return nil
}

// RevokedToken records a logged-out session token until it would have
// expired anyway.
type RevokedToken struct {
	JTI       string    `gorm:"column:jti;primaryKey;type:varchar(64)"`
	ExpiresAt time.Time `gorm:"not null;index:idx_revoked_tokens_expires"`
	CreatedAt time.Time
}

func (RevokedToken) TableName() string {
	return "revoked_tokens"
}
