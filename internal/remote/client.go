// Package remote is the HTTP client for the planner server's document API.
// Client implements persist.Remote, so the layout, template and settings
// stores can sync against a running server.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/fieldplanner/planner/internal/persist"
)

// StatusError is a non-2xx response from the server.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Code)
	}
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Message)
}

type Client struct {
	base       *url.URL
	http       *http.Client
	logger     *slog.Logger
	minBackoff time.Duration
	maxBackoff time.Duration

	mu    sync.RWMutex
	token string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithBackoff sets the reconnect delay range of subscriptions.
func WithBackoff(minDelay, maxDelay time.Duration) Option {
	return func(c *Client) { c.minBackoff, c.maxBackoff = minDelay, maxDelay }
}

func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func New(baseURL string, logger *slog.Logger, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("server url %q: scheme must be http or https", baseURL)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	c := &Client{
		base:       u,
		http:       &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
		minBackoff: 500 * time.Millisecond,
		maxBackoff: 30 * time.Second,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Login exchanges the shared password for a session token used on every
// later request.
func (c *Client) Login(ctx context.Context, password string) error {
	var resp struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/gate/login", map[string]string{"password": password}, &resp); err != nil {
		return fmt.Errorf("logging in: %w", err)
	}
	c.mu.Lock()
	c.token = resp.Token
	c.mu.Unlock()
	return nil
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) Get(ctx context.Context, key persist.Key) (persist.Document, error) {
	var doc persist.Document
	err := c.do(ctx, http.MethodGet, docPath(key), nil, &doc)
	var se *StatusError
	if errors.As(err, &se) && se.Code == http.StatusNotFound {
		return persist.Document{}, persist.ErrNotFound
	}
	return doc, err
}

func (c *Client) Merge(ctx context.Context, key persist.Key, fields map[string]json.RawMessage) error {
	return c.do(ctx, http.MethodPatch, docPath(key), fields, nil)
}

// Subscribe follows key over a WebSocket. A dropped connection is reported
// to fn and retried with exponential backoff; the first snapshot after a
// reconnect brings the caller up to date.
func (c *Client) Subscribe(ctx context.Context, key persist.Key, fn func(persist.Document, error)) func() {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		backoff := c.minBackoff
		for {
			received, err := c.follow(ctx, key, fn)
			if ctx.Err() != nil {
				return
			}
			if received {
				backoff = c.minBackoff
			}
			c.logger.Warn("subscription dropped", "key", key.String(), "error", err, "retry_in", backoff)
			fn(persist.Document{}, err)

			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, c.maxBackoff)
		}
	}()

	return func() {
		cancel()
		<-done
	}
}

// follow reads snapshots until the connection fails. received reports
// whether at least one snapshot arrived.
func (c *Client) follow(ctx context.Context, key persist.Key, fn func(persist.Document, error)) (received bool, err error) {
	conn, _, err := websocket.Dial(ctx, c.wsURL(key), &websocket.DialOptions{
		HTTPHeader: c.authHeader(),
	})
	if err != nil {
		return false, fmt.Errorf("connecting to %s: %w", key, err)
	}
	defer conn.CloseNow()
	conn.SetReadLimit(8 << 20)

	for {
		var doc persist.Document
		if err := wsjson.Read(ctx, conn, &doc); err != nil {
			return received, fmt.Errorf("reading %s: %w", key, err)
		}
		if ctx.Err() != nil {
			return received, ctx.Err()
		}
		received = true
		fn(doc, nil)
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.authHeader() {
		req.Header[k] = v
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		var e struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&e)
		return &StatusError{Code: resp.StatusCode, Message: e.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func (c *Client) authHeader() http.Header {
	h := http.Header{}
	if tok := c.Token(); tok != "" {
		h.Set("Authorization", "Bearer "+tok)
	}
	return h
}

func (c *Client) wsURL(key persist.Key) string {
	u := *c.base
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	return u.String() + docPath(key) + "/ws"
}

func docPath(key persist.Key) string {
	return "/api/docs/" + url.PathEscape(string(key.Kind)) + "/" + url.PathEscape(key.Scope)
}
