// Package codeforces resolves a Codeforces handle to live rating data using
// the public, unauthenticated user.info endpoint:
//
//	GET {base}/user.info?handles={handle}
//	{"status":"OK","result":[{"handle":"tourist","rating":3800,"maxRating":3979,"lastOnlineTimeSeconds":1700000000}]}
//
// Results can be cached (see RedisCache) so profile views and the sync job
// do not hit the third party for every request.
package codeforces

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	// ErrHandleNotFound means the third party does not know the handle.
	ErrHandleNotFound = errors.New("codeforces handle not found")

	// ErrLookupFailed means the third party answered with a non-OK status.
	ErrLookupFailed = errors.New("codeforces lookup failed")

	// ErrUnexpectedStatus means the HTTP response could not be interpreted.
	ErrUnexpectedStatus = errors.New("unexpected response from codeforces")
)

var lookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "students_dashboard",
	Name:      "codeforces_lookups_total",
	Help:      "Codeforces user.info lookups by outcome",
}, []string{"outcome"})

// UserInfo is the subset of the user.info result we use.
type UserInfo struct {
	Handle                string `json:"handle"`
	Rating                int    `json:"rating"`
	MaxRating             int    `json:"maxRating"`
	LastOnlineTimeSeconds int64  `json:"lastOnlineTimeSeconds"`
}

// LastOnline converts LastOnlineTimeSeconds to a UTC time.
func (u UserInfo) LastOnline() time.Time {
	return time.Unix(u.LastOnlineTimeSeconds, 0).UTC()
}

// Lookup is what handlers and the sync job depend on.
type Lookup interface {
	UserInfo(ctx context.Context, handle string) (UserInfo, error)
}

// Refresher is a Lookup that can skip its cache on demand. The sync job
// uses it so an explicit sync never stores cached ratings.
type Refresher interface {
	Lookup
	Refresh(ctx context.Context, handle string) (UserInfo, error)
}

// Cache stores lookups by handle. Get reports a miss with ok == false.
type Cache interface {
	Get(ctx context.Context, handle string) (info UserInfo, ok bool, err error)
	Set(ctx context.Context, handle string, info UserInfo) error
	Invalidate(ctx context.Context, handle string) error
}

// Client talks to the Codeforces API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      Cache
}

var _ Refresher = (*Client)(nil)

// Option customises a Client.
type Option func(*Client)

// WithCache makes the client consult and fill c.
func WithCache(c Cache) Option {
	return func(cl *Client) { cl.cache = c }
}

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(cl *Client) { cl.httpClient = hc }
}

// NewClient returns a client for baseURL (e.g. "https://codeforces.com/api")
// whose requests give up after timeout.
func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type envelope struct {
	Status  string     `json:"status"`
	Comment string     `json:"comment"`
	Result  []UserInfo `json:"result"`
}

// UserInfo returns live rating data for handle, from the cache when it
// holds a fresh entry.
func (c *Client) UserInfo(ctx context.Context, handle string) (UserInfo, error) {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return UserInfo{}, ErrHandleNotFound
	}

	if c.cache != nil {
		info, ok, err := c.cache.Get(ctx, handle)
		if err != nil {
			zap.L().Warn("codeforces cache read failed", zap.String("handle", handle), zap.Error(err))
		} else if ok {
			lookups.WithLabelValues("cache_hit").Inc()
			return info, nil
		}
	}

	return c.load(ctx, handle)
}

// Refresh always asks the API and replaces whatever the cache holds.
func (c *Client) Refresh(ctx context.Context, handle string) (UserInfo, error) {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return UserInfo{}, ErrHandleNotFound
	}
	return c.load(ctx, handle)
}

// load fetches handle and writes the result through to the cache. A handle
// the API no longer knows is dropped from the cache.
func (c *Client) load(ctx context.Context, handle string) (UserInfo, error) {
	info, err := c.fetch(ctx, handle)
	if err != nil {
		lookups.WithLabelValues("error").Inc()
		if c.cache != nil && errors.Is(err, ErrHandleNotFound) {
			if ierr := c.cache.Invalidate(ctx, handle); ierr != nil {
				zap.L().Warn("codeforces cache invalidate failed", zap.String("handle", handle), zap.Error(ierr))
			}
		}
		return UserInfo{}, err
	}
	lookups.WithLabelValues("fetched").Inc()

	if c.cache != nil {
		if err := c.cache.Set(ctx, handle, info); err != nil {
			zap.L().Warn("codeforces cache write failed", zap.String("handle", handle), zap.Error(err))
		}
	}
	return info, nil
}

func (c *Client) fetch(ctx context.Context, handle string) (UserInfo, error) {
	endpoint := c.baseURL + "/user.info?handles=" + url.QueryEscape(handle)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return UserInfo{}, fmt.Errorf("UserInfo: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return UserInfo{}, fmt.Errorf("UserInfo: request: %w", err)
	}
	defer resp.Body.Close()

	// Unknown handles come back as HTTP 400 with a FAILED envelope, so the
	// body is decoded before the status code is judged.
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return UserInfo{}, fmt.Errorf("%w: HTTP %d: %v", ErrUnexpectedStatus, resp.StatusCode, err)
	}

	if env.Status != "OK" {
		if strings.Contains(strings.ToLower(env.Comment), "not found") {
			return UserInfo{}, fmt.Errorf("%w: %s", ErrHandleNotFound, env.Comment)
		}
		return UserInfo{}, fmt.Errorf("%w: %s", ErrLookupFailed, env.Comment)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return UserInfo{}, fmt.Errorf("%w: HTTP %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	if len(env.Result) == 0 {
		return UserInfo{}, ErrHandleNotFound
	}

	return env.Result[0], nil
}
