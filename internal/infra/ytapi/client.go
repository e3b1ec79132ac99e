// Package ytapi provides the YouTube Data API v3 search client.
package ytapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Malay-Mete/musicsync-11/internal/domain/player"
)

const (
	// DefaultBaseURL is the YouTube Data API base URL.
	DefaultBaseURL = "https://www.googleapis.com/youtube/v3"

	// DefaultUserAgent identifies us to the API.
	DefaultUserAgent = "musicsync/1.0 (https://github.com/Malay-Mete/musicsync-11)"

	// DefaultTimeout for HTTP requests.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResults is the fixed result count per search.
	DefaultMaxResults = 10

	// DefaultRateLimit keeps us well under the API quota burst limits.
	DefaultRateLimit = 5 // requests per second
)

// Common errors, classifiable by the caller.
var (
	// ErrQuotaExceeded indicates the API key ran out of quota.
	ErrQuotaExceeded = errors.New("quota exceeded")

	// ErrRateLimited indicates the rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrTemporaryFailure indicates an upstream failure worth retrying later.
	ErrTemporaryFailure = errors.New("temporary failure")
)

// Client searches for videos via the YouTube Data API.
type Client struct {
	baseURL    string
	apiKey     string
	userAgent  string
	maxResults int
	httpClient *http.Client
	limiter    *rateLimiter
}

// Option is a functional option for configuring the client.
type Option func(*Client)

// WithBaseURL sets a custom base URL (useful for testing).
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithUserAgent sets a custom User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithMaxResults sets the per-search result limit.
func WithMaxResults(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxResults = n
		}
	}
}

// NewClient creates a new YouTube search client.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		userAgent:  DefaultUserAgent,
		maxResults: DefaultMaxResults,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: newRateLimiter(DefaultRateLimit),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// searchResponse is the wire shape of a /search response. Only the fields we
// map into tracks are declared; everything else is dropped at the boundary.
type searchResponse struct {
	Items []searchItem `json:"items"`
}

type searchItem struct {
	ID struct {
		VideoID string `json:"videoId"`
	} `json:"id"`
	Snippet struct {
		Title        string `json:"title"`
		ChannelTitle string `json:"channelTitle"`
		PublishedAt  string `json:"publishedAt"`
		Thumbnails   struct {
			Medium struct {
				URL string `json:"url"`
			} `json:"medium"`
			Default struct {
				URL string `json:"url"`
			} `json:"default"`
		} `json:"thumbnails"`
	} `json:"snippet"`
}

// Search performs one video search and maps the results into tracks.
// Duration is left empty: filling it would require a second videos.list
// call per page, which we do not make.
func (c *Client) Search(ctx context.Context, query string) ([]player.Track, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("q", query)
	params.Set("type", "video")
	params.Set("maxResults", fmt.Sprintf("%d", c.maxResults))
	params.Set("key", c.apiKey)

	searchURL := fmt.Sprintf("%s/search?%s", c.baseURL, params.Encode())

	log.Debug().Str("query", query).Msg("Searching YouTube")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// Success
	case http.StatusForbidden:
		log.Warn().Str("query", query).Msg("YouTube API quota exceeded")
		return nil, ErrQuotaExceeded
	case http.StatusTooManyRequests:
		log.Warn().Str("query", query).Msg("YouTube API rate limit exceeded")
		return nil, ErrRateLimited
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		log.Warn().Int("status", resp.StatusCode).Msg("YouTube API temporary error")
		return nil, ErrTemporaryFailure
	default:
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var searchResp searchResponse
	if err := json.Unmarshal(body, &searchResp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	tracks := make([]player.Track, 0, len(searchResp.Items))
	for _, item := range searchResp.Items {
		if item.ID.VideoID == "" {
			continue
		}
		thumb := item.Snippet.Thumbnails.Medium.URL
		if thumb == "" {
			thumb = item.Snippet.Thumbnails.Default.URL
		}
		tracks = append(tracks, player.Track{
			ID:           item.ID.VideoID,
			Title:        item.Snippet.Title,
			Thumbnail:    thumb,
			ChannelTitle: item.Snippet.ChannelTitle,
			PublishedAt:  item.Snippet.PublishedAt,
		})
	}

	log.Debug().Str("query", query).Int("results", len(tracks)).Msg("YouTube search complete")
	return tracks, nil
}

// rateLimiter enforces a minimum interval between requests.
type rateLimiter struct {
	mu          sync.Mutex
	interval    time.Duration
	lastRequest time.Time
}

func newRateLimiter(requestsPerSecond int) *rateLimiter {
	return &rateLimiter{
		interval: time.Second / time.Duration(requestsPerSecond),
	}
}

// Wait blocks until a request can be made.
func (r *rateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	nextAllowed := r.lastRequest.Add(r.interval)

	if now.Before(nextAllowed) {
		select {
		case <-time.After(nextAllowed.Sub(now)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	r.lastRequest = time.Now()
	return nil
}
