// Package neynar fetches Farcaster profiles and casts from the Neynar API,
// charging every call against the daily credit budget.
package neynar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"golang.org/x/time/rate"

	"personacard.app/agent/core/config"
	"personacard.app/agent/internal/credits"
)

const DefaultBaseURL = "https://api.neynar.com/v2/farcaster"

// ErrProfileNotFound is returned when the API has no user for the fid.
var ErrProfileNotFound = errors.New("farcaster profile not found")

// APIError is a non-2xx response that survived retries.
type APIError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("neynar %s returned status %d", e.Endpoint, e.StatusCode)
}

// Retryable reports whether a later attempt might succeed.
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

type Profile struct {
	FID            int64
	Username       string
	DisplayName    string
	PfpURL         string
	Bio            string
	FollowerCount  int
	FollowingCount int
}

type Client struct {
	baseURL  string
	apiKey   string
	http     *http.Client
	executor failsafe.Executor[*http.Response]
	credits  *credits.Tracker
	pacer    *rate.Limiter
	pageSize int
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithPageInterval overrides the minimum spacing between page requests.
func WithPageInterval(d time.Duration) Option {
	return func(c *Client) {
		c.pacer = newPacer(d)
	}
}

func New(cfg config.NeynarConfig, tracker *credits.Tracker, opts ...Option) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 || pageSize > credits.MaxPageSize {
		pageSize = credits.MaxPageSize
	}

	c := &Client{
		baseURL:  baseURL,
		apiKey:   cfg.APIKey,
		http:     &http.Client{Timeout: timeout},
		executor: newExecutor(cfg.MaxRetries),
		credits:  tracker,
		pacer:    newPacer(cfg.PageInterval),
		pageSize: pageSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func newPacer(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

// Credits exposes the tracker this client charges.
func (c *Client) Credits() *credits.Tracker {
	return c.credits
}

type userBulkResponse struct {
	Users []apiUser `json:"users"`
}

type apiUser struct {
	FID            int64  `json:"fid"`
	Username       string `json:"username"`
	DisplayName    string `json:"display_name"`
	PfpURL         string `json:"pfp_url"`
	FollowerCount  int    `json:"follower_count"`
	FollowingCount int    `json:"following_count"`
	Profile        struct {
		Bio struct {
			Text string `json:"text"`
		} `json:"bio"`
	} `json:"profile"`
}

// FetchProfile looks up one user. A 404 or an empty user list is
// ErrProfileNotFound; other failures are *APIError or transport errors.
func (c *Client) FetchProfile(ctx context.Context, fid int64) (*Profile, error) {
	if err := c.credits.Consume(credits.CostUserBulk, fmt.Sprintf("fetchUserProfile(%d)", fid)); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("fids", strconv.FormatInt(fid, 10))

	var body userBulkResponse
	if err := c.get(ctx, "/user/bulk", q, &body); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	if len(body.Users) == 0 {
		return nil, ErrProfileNotFound
	}

	u := body.Users[0]
	return &Profile{
		FID:            u.FID,
		Username:       u.Username,
		DisplayName:    u.DisplayName,
		PfpURL:         u.PfpURL,
		Bio:            u.Profile.Bio.Text,
		FollowerCount:  u.FollowerCount,
		FollowingCount: u.FollowingCount,
	}, nil
}

type castsPage struct {
	Casts []json.RawMessage `json:"casts"`
	Next  *struct {
		Cursor string `json:"cursor"`
	} `json:"next"`
}

// FetchCasts pages through the user's feed, newest first, until maxCasts
// casts are collected, a page comes back empty or there is no next cursor.
// Each page is charged before it is requested, so a quota error can stop the
// fetch midway; in that case nothing is returned.
func (c *Client) FetchCasts(ctx context.Context, fid int64, maxCasts int) ([]Cast, error) {
	if maxCasts <= 0 {
		maxCasts = credits.DefaultMaxCasts
	}

	all := make([]Cast, 0, min(maxCasts, c.pageSize))
	cursor := ""

	for len(all) < maxCasts {
		if err := c.pacer.Wait(ctx); err != nil {
			return nil, err
		}

		limit := min(maxCasts-len(all), c.pageSize)
		page, next, err := c.fetchPage(ctx, fid, limit, cursor)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}

		all = append(all, page[:min(len(page), maxCasts-len(all))]...)
		if next == "" {
			break
		}
		cursor = next
	}

	slog.DebugContext(ctx, "fetched casts", "fid", fid, "count", len(all))
	return all, nil
}

func (c *Client) fetchPage(ctx context.Context, fid int64, limit int, cursor string) ([]Cast, string, error) {
	if err := c.credits.Consume(credits.CostFeedUserCasts, fmt.Sprintf("fetchUserCasts(%d)", fid)); err != nil {
		return nil, "", err
	}

	q := url.Values{}
	q.Set("fid", strconv.FormatInt(fid, 10))
	q.Set("limit", strconv.Itoa(limit))
	if cursor != "" {
		q.Set("cursor", cursor)
	}

	var body castsPage
	if err := c.get(ctx, "/feed/user/casts", q, &body); err != nil {
		return nil, "", err
	}

	casts := make([]Cast, 0, len(body.Casts))
	for _, raw := range body.Casts {
		var cast Cast
		if err := json.Unmarshal(raw, &cast); err != nil {
			return nil, "", fmt.Errorf("decoding cast: %w", err)
		}
		cast.Raw = raw
		casts = append(casts, cast)
	}

	next := ""
	if body.Next != nil {
		next = body.Next.Cursor
	}
	return casts, next, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}

	resp, err := c.executor.WithContext(ctx).Get(func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("x-api-key", c.apiKey)

		resp, err := c.http.Do(req)
		if err == nil && shouldRetry(resp, nil) {
			// The retry policy discards this response. Keep the status for
			// the final error and release the connection.
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
		}
		return resp, err
	})
	if err != nil {
		if resp != nil && shouldRetry(resp, nil) {
			return &APIError{Endpoint: path, StatusCode: resp.StatusCode}
		}
		return fmt.Errorf("neynar %s: %w", path, err)
	}
	if shouldRetry(resp, nil) {
		return &APIError{Endpoint: path, StatusCode: resp.StatusCode}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &APIError{Endpoint: path, StatusCode: resp.StatusCode, Body: string(b)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}
