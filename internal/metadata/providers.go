package metadata

import (
	"context"
	"errors"

	"github.com/pawsen/library-org/internal/platform/googlebooks"
	"github.com/pawsen/library-org/internal/platform/openlibrary"
)

// OpenLibraryAPI is the part of openlibrary.Client the provider needs.
type OpenLibraryAPI interface {
	GetBookByISBN(ctx context.Context, isbn string) (*openlibrary.BookDetails, error)
	BaseURL() string
}

// GoogleBooksAPI is the part of googlebooks.Client the provider needs.
type GoogleBooksAPI interface {
	SearchByISBN(ctx context.Context, isbn string) (*googlebooks.VolumesResponse, error)
}

type OpenLibraryProvider struct {
	client OpenLibraryAPI
}

func NewOpenLibraryProvider(client OpenLibraryAPI) *OpenLibraryProvider {
	return &OpenLibraryProvider{client: client}
}

func (p *OpenLibraryProvider) Name() string { return "openlibrary" }

func (p *OpenLibraryProvider) Lookup(ctx context.Context, isbn string) (Record, error) {
	details, err := p.client.GetBookByISBN(ctx, isbn)
	if err != nil {
		if errors.Is(err, openlibrary.ErrNotFound) {
			return Record{}, nil
		}
		return Record{}, err
	}

	rec := Record{
		Title:         JoinTitle(details.Title, details.Subtitle),
		PublishedDate: details.PublishDate,
		Description:   string(details.Description),
		NumberOfPages: details.NumberOfPages,
		Thumbnail:     details.Cover.Medium,
	}
	for _, a := range details.Authors {
		rec.Authors = append(rec.Authors, a.Name)
	}
	for _, s := range details.Subjects {
		rec.Subjects = append(rec.Subjects, s.Name)
	}
	if details.Key != "" {
		rec.PreviewLink = p.client.BaseURL() + details.Key
	}
	return rec, nil
}

type GoogleBooksProvider struct {
	client GoogleBooksAPI
}

func NewGoogleBooksProvider(client GoogleBooksAPI) *GoogleBooksProvider {
	return &GoogleBooksProvider{client: client}
}

func (p *GoogleBooksProvider) Name() string { return "googlebooks" }

// Lookup uses only the first search result.
func (p *GoogleBooksProvider) Lookup(ctx context.Context, isbn string) (Record, error) {
	res, err := p.client.SearchByISBN(ctx, isbn)
	if err != nil {
		return Record{}, err
	}
	if len(res.Items) == 0 {
		return Record{}, nil
	}

	info := res.Items[0].VolumeInfo
	return Record{
		Title:         JoinTitle(info.Title, info.Subtitle),
		Authors:       info.Authors,
		PublishedDate: info.PublishedDate,
		Description:   info.Description,
		Subjects:      info.Categories,
		NumberOfPages: info.PageCount,
		PreviewLink:   info.PreviewLink,
		Thumbnail:     info.ImageLinks.Thumbnail,
	}, nil
}
