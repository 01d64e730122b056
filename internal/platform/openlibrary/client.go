package openlibrary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// ErrNotFound is returned when the bibkeys response has no entry for the ISBN.
var ErrNotFound = errors.New("openlibrary: isbn not found")

const DefaultBaseURL = "https://openlibrary.org"

type Client struct {
	httpClient *http.Client
	userAgent  string
	baseURL    string
	limiter    *rate.Limiter
	maxRetries int
}

type Options struct {
	BaseURL    string
	UserAgent  string
	Timeout    time.Duration
	RPS        float64
	MaxRetries int
}

func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.RPS <= 0 {
		opts.RPS = 1
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		userAgent:  opts.UserAgent,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		limiter:    rate.NewLimiter(rate.Limit(opts.RPS), 1),
		maxRetries: opts.MaxRetries,
	}
}

// BaseURL is the site root used to build absolute preview links.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type NamedRef struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Text accepts both the plain string and the {"type": ..., "value": ...}
// object forms Open Library uses for free-text fields.
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*t = Text(s)
		return nil
	}
	var obj struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	*t = Text(obj.Value)
	return nil
}

// BookDetails matches api/books?jscmd=data
type BookDetails struct {
	Key           string     `json:"key"`
	Title         string     `json:"title"`
	Subtitle      string     `json:"subtitle"`
	Authors       []NamedRef `json:"authors"`
	Publishers    []NamedRef `json:"publishers"`
	PublishDate   string     `json:"publish_date"`
	Description   Text       `json:"description"`
	Notes         Text       `json:"notes"`
	Subjects      []NamedRef `json:"subjects"`
	NumberOfPages int        `json:"number_of_pages"`
	Cover         struct {
		Small  string `json:"small"`
		Medium string `json:"medium"`
		Large  string `json:"large"`
	} `json:"cover"`
	Identifiers struct {
		OpenLibrary []string `json:"openlibrary"`
		LCCN        []string `json:"lccn"`
	} `json:"identifiers"`
	Classifications struct {
		DeweyDecimalClass []string `json:"dewey_decimal_class"`
	} `json:"classifications"`
}

func BibKey(isbn string) string {
	return "ISBN:" + isbn
}

func (c *Client) GetBooksByISBN(ctx context.Context, isbns []string) (map[string]BookDetails, error) {
	if len(isbns) == 0 {
		return nil, nil
	}

	bibkeys := make([]string, len(isbns))
	for i, isbn := range isbns {
		bibkeys[i] = BibKey(isbn)
	}

	u := fmt.Sprintf("%s/api/books?bibkeys=%s&jscmd=data&format=json",
		c.baseURL, url.QueryEscape(strings.Join(bibkeys, ",")))

	var res map[string]BookDetails
	if err := c.get(ctx, u, &res); err != nil {
		return nil, err
	}
	return res, nil
}

// GetBookByISBN fetches a single bibkey entry.
func (c *Client) GetBookByISBN(ctx context.Context, isbn string) (*BookDetails, error) {
	res, err := c.GetBooksByISBN(ctx, []string{isbn})
	if err != nil {
		return nil, err
	}
	details, ok := res[BibKey(isbn)]
	if !ok {
		return nil, ErrNotFound
	}
	return &details, nil
}

func (c *Client) get(ctx context.Context, url string, target interface{}) error {
	var lastErr error
	for i := 0; i <= c.maxRetries; i++ {
		if i > 0 {
			// Backoff: 1s, 2s, 4s...
			backoff := time.Duration(1<<uint(i-1)) * time.Second
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		if c.userAgent != "" {
			req.Header.Set("User-Agent", c.userAgent)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				lastErr = fmt.Errorf("unexpected status code: %d", resp.StatusCode)
				continue
			}
			return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		}

		err = json.NewDecoder(resp.Body).Decode(target)
		resp.Body.Close()
		return err
	}
	return fmt.Errorf("after %d retries: %w", c.maxRetries, lastErr)
}
