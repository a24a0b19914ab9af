// Package googlebooks is a client for the Google Books volumes API.
package googlebooks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"readtrac/internal/book"
	"readtrac/internal/logging"
	"readtrac/internal/metrics"
)

const (
	DefaultBaseURL = "https://www.googleapis.com/books/v1"
	// MaxResults is the largest page the volumes endpoint serves.
	MaxResults = 40
)

var (
	ErrNotFound = errors.New("volume not found")
	// ErrUnavailable is returned while the circuit breaker is open.
	ErrUnavailable = errors.New("catalog unavailable")
)

// StatusError is a non-200 response from the API.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d", e.Code)
}

func (e *StatusError) retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

type Config struct {
	BaseURL    string        `koanf:"base_url"`
	APIKey     string        `koanf:"api_key"`
	UserAgent  string        `koanf:"user_agent"`
	RPS        float64       `koanf:"rps"`
	MaxRetries int           `koanf:"max_retries"`
	Timeout    time.Duration `koanf:"timeout"`
	CacheTTL   time.Duration `koanf:"cache_ttl"`
	Breaker    BreakerConfig `koanf:"breaker"`
}

// Cache stores raw API responses.
type Cache interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte, ttl time.Duration) error
}

// Sanitizer turns description markup into plain text.
type Sanitizer interface {
	Text(s string) string
}

type Client struct {
	httpClient *http.Client
	cfg        Config
	limiter    *rate.Limiter
	breaker    *breaker
	cache      Cache
	sanitizer  Sanitizer
	metrics    metrics.Recorder
	backoff    func(attempt int) time.Duration
}

// Option customizes a Client.
type Option func(*Client)

func WithCache(c Cache) Option              { return func(cl *Client) { cl.cache = c } }
func WithSanitizer(s Sanitizer) Option      { return func(cl *Client) { cl.sanitizer = s } }
func WithMetrics(m metrics.Recorder) Option { return func(cl *Client) { cl.metrics = m } }
func WithHTTPClient(h *http.Client) Option  { return func(cl *Client) { cl.httpClient = h } }

func NewClient(cfg Config, opts ...Option) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "readtrac/1.0"
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 5
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	c := &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RPS), 1),
		breaker:    newBreaker(cfg.Breaker),
		metrics:    metrics.Nop{},
		backoff: func(attempt int) time.Duration {
			// 500ms, 1s, 2s...
			return time.Duration(1<<uint(attempt-1)) * 500 * time.Millisecond
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type volumesResponse struct {
	TotalItems int      `json:"totalItems"`
	Items      []volume `json:"items"`
}

type volume struct {
	ID         string     `json:"id"`
	VolumeInfo volumeInfo `json:"volumeInfo"`
}

type volumeInfo struct {
	Title         string   `json:"title"`
	Authors       []string `json:"authors"`
	PublishedDate string   `json:"publishedDate"`
	Description   string   `json:"description"`
	PageCount     *int     `json:"pageCount"`
	Categories    []string `json:"categories"`
	AverageRating *float64 `json:"averageRating"`
	ImageLinks    struct {
		SmallThumbnail string `json:"smallThumbnail"`
		Thumbnail      string `json:"thumbnail"`
	} `json:"imageLinks"`
}

// Search runs a free-text volumes query.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]book.Book, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []book.Book{}, nil
	}
	if limit <= 0 {
		limit = 10
	}
	limit = min(limit, MaxResults)

	params := url.Values{}
	params.Set("q", query)
	params.Set("maxResults", fmt.Sprint(limit))
	params.Set("printType", "books")

	var res volumesResponse
	if err := c.get(ctx, "/volumes", params, &res); err != nil {
		return nil, err
	}

	out := make([]book.Book, 0, len(res.Items))
	for _, v := range res.Items {
		out = append(out, c.toBook(v))
	}
	return out, nil
}

// SearchBySubject searches volumes tagged with genre.
func (c *Client) SearchBySubject(ctx context.Context, genre string, limit int) ([]book.Book, error) {
	genre = strings.TrimSpace(genre)
	if genre == "" {
		return []book.Book{}, nil
	}
	return c.Search(ctx, "subject:"+genre, limit)
}

// Volume fetches a single volume by its catalog id.
func (c *Client) Volume(ctx context.Context, id string) (book.Book, error) {
	id = strings.TrimSpace(id)
	if id == "" || strings.ContainsAny(id, "/?#") {
		return book.Book{}, ErrNotFound
	}
	var v volume
	if err := c.get(ctx, "/volumes/"+url.PathEscape(id), url.Values{}, &v); err != nil {
		return book.Book{}, err
	}
	if v.ID == "" {
		return book.Book{}, ErrNotFound
	}
	return c.toBook(v), nil
}

func (c *Client) toBook(v volume) book.Book {
	info := v.VolumeInfo
	b := book.Book{
		Title:         strings.TrimSpace(info.Title),
		Author:        "Unknown Author",
		ExternalID:    v.ID,
		PublishedDate: info.PublishedDate,
		PageCount:     info.PageCount,
		Rating:        info.AverageRating,
		IsExternal:    true,
	}
	if len(info.Authors) > 0 {
		b.Author = strings.Join(info.Authors, ", ")
	}
	if len(info.Categories) > 0 {
		b.Genre = info.Categories[0]
	}

	cover := info.ImageLinks.Thumbnail
	if cover == "" {
		cover = info.ImageLinks.SmallThumbnail
	}
	b.CoverURL = strings.Replace(cover, "http://", "https://", 1)

	b.Description = info.Description
	if c.sanitizer != nil {
		b.Description = c.sanitizer.Text(b.Description)
	}
	return b
}

func (c *Client) endpoint(path string, params url.Values) string {
	if c.cfg.APIKey != "" {
		params.Set("key", c.cfg.APIKey)
	}
	u := strings.TrimRight(c.cfg.BaseURL, "/") + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

// cacheKey is the request URL without the API key.
func cacheKey(path string, params url.Values) string {
	p := url.Values{}
	for k, v := range params {
		if k != "key" {
			p[k] = v
		}
	}
	return "gbooks:" + path + "?" + p.Encode()
}

func (c *Client) get(ctx context.Context, path string, params url.Values, target any) error {
	key := cacheKey(path, params)
	if c.cache != nil {
		if raw, ok, err := c.cache.Get(key); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Msg("catalog cache read failed")
		} else if ok {
			c.metrics.RecordCatalogRequest(metrics.CatalogCacheHit, 0)
			return json.Unmarshal(raw, target)
		}
	}

	start := time.Now()
	u := c.endpoint(path, params)
	raw, err := c.breaker.execute(func() ([]byte, error) {
		return c.fetch(ctx, u)
	})
	switch {
	case errors.Is(err, ErrUnavailable):
		c.metrics.RecordCatalogRequest(metrics.CatalogBreakerOpen, 0)
		return err
	case err != nil:
		c.metrics.RecordCatalogRequest(metrics.CatalogError, time.Since(start))
		return err
	}
	c.metrics.RecordCatalogRequest(metrics.CatalogOK, time.Since(start))

	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("decode catalog response: %w", err)
	}
	if c.cache != nil && c.cfg.CacheTTL > 0 {
		if err := c.cache.Set(key, raw, c.cfg.CacheTTL); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Msg("catalog cache write failed")
		}
	}
	return nil
}

// fetch performs the request with retries on transport errors, 429 and 5xx.
func (c *Client) fetch(ctx context.Context, u string) ([]byte, error) {
	var lastErr error
	for i := 0; i <= c.cfg.MaxRetries; i++ {
		if i > 0 {
			select {
			case <-time.After(c.backoff(i)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		body, err := c.do(ctx, u)
		if err == nil {
			return body, nil
		}
		var se *StatusError
		if errors.As(err, &se) && !se.retryable() {
			if se.Code == http.StatusNotFound {
				return nil, ErrNotFound
			}
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
		logging.Ctx(ctx).Debug().Err(err).Int("attempt", i+1).Msg("catalog request failed")
	}
	return nil, fmt.Errorf("after %d retries: %w", c.cfg.MaxRetries, lastErr)
}

func (c *Client) do(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{Code: resp.StatusCode}
	}
	return io.ReadAll(io.LimitReader(resp.Body, 8<<20))
}
