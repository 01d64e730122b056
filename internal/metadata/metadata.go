// Package metadata looks up bibliographic data for an ISBN across an ordered
// list of providers and keeps the first record that carries a title.
package metadata

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/pawsen/library-org/internal/metrics"
)

// Record is the merged view of one provider response. Any field may be empty.
type Record struct {
	Title         string   `json:"title"`
	Authors       []string `json:"authors,omitempty"`
	PublishedDate string   `json:"published_date,omitempty"`
	Description   string   `json:"description,omitempty"`
	Subjects      []string `json:"subjects,omitempty"`
	NumberOfPages int      `json:"number_of_pages,omitempty"`
	PreviewLink   string   `json:"preview_link,omitempty"`
	Thumbnail     string   `json:"thumbnail,omitempty"`
	Source        string   `json:"source,omitempty"`
}

// IsEmpty reports whether no provider contributed any field.
func (r Record) IsEmpty() bool {
	return r.Title == "" &&
		len(r.Authors) == 0 &&
		r.PublishedDate == "" &&
		r.Description == "" &&
		len(r.Subjects) == 0 &&
		r.NumberOfPages == 0 &&
		r.PreviewLink == "" &&
		r.Thumbnail == ""
}

// JoinTitle renders "title - subtitle", or title alone when there is no subtitle.
func JoinTitle(title, subtitle string) string {
	if subtitle == "" {
		return title
	}
	return title + " - " + subtitle
}

// Provider is one bibliographic source. Lookup returns an empty Record and a
// nil error when the source simply has nothing for the ISBN.
type Provider interface {
	Name() string
	Lookup(ctx context.Context, isbn string) (Record, error)
}

type Fetcher struct {
	providers []Provider
	timeout   time.Duration
	log       *zap.Logger
	metrics   *metrics.Metrics
}

func NewFetcher(log *zap.Logger, m *metrics.Metrics, timeout time.Duration, providers ...Provider) *Fetcher {
	return &Fetcher{
		providers: providers,
		timeout:   timeout,
		log:       log,
		metrics:   m,
	}
}

// Fetch tries each provider in order, one at a time, and stops at the first
// record with a title. Otherwise it returns the last partial record seen, which
// may be empty. Provider failures are logged and skipped, never returned.
func (f *Fetcher) Fetch(ctx context.Context, isbn string) Record {
	var result Record
	for _, p := range f.providers {
		rec, err := f.lookup(ctx, p, isbn)
		if err != nil {
			outcome := metrics.OutcomeError
			if errors.Is(err, context.DeadlineExceeded) {
				outcome = metrics.OutcomeTimeout
			}
			f.metrics.MetadataLookup(p.Name(), outcome)
			f.log.Warn("Metadata provider failed",
				zap.String("provider", p.Name()),
				zap.String("isbn", isbn),
				zap.Error(err))
			continue
		}
		if rec.IsEmpty() {
			f.metrics.MetadataLookup(p.Name(), metrics.OutcomeMiss)
			continue
		}

		rec.Source = p.Name()
		result = rec
		if rec.Title != "" {
			f.metrics.MetadataLookup(p.Name(), metrics.OutcomeHit)
			f.log.Debug("Metadata found", zap.String("provider", p.Name()), zap.String("isbn", isbn))
			return result
		}
		f.metrics.MetadataLookup(p.Name(), metrics.OutcomePartial)
	}
	return result
}

func (f *Fetcher) lookup(ctx context.Context, p Provider, isbn string) (Record, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}
	return p.Lookup(ctx, isbn)
}
