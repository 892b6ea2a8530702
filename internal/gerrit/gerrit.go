// Package gerrit is a minimal read-only client for the Gerrit REST API.
package gerrit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrNoMagicPrefix is returned when a response body lacks the anti-XSSI
// line Gerrit puts in front of every JSON payload.
var ErrNoMagicPrefix = errors.New("response has no magic prefix line")

type Client struct {
	baseURL   string
	hostname  string
	userAgent string
	http      *http.Client
	logger    *slog.Logger
}

type Option func(*Client)

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// NewClient binds a client to the REST root of a Gerrit server, e.g.
// https://review.example.org/.
func NewClient(baseURL, userAgent string, logger *slog.Logger, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse url %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Hostname() == "" {
		return nil, fmt.Errorf("url %q: scheme and host required", baseURL)
	}

	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		hostname:  u.Hostname(),
		userAgent: userAgent,
		http:      http.DefaultClient,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Hostname is the host part of the base URL, without port.
func (c *Client) Hostname() string {
	return c.hostname
}

type Change struct {
	Number   int
	ChangeID string
	Subject  string
	Owner    string
	// Insertions and Deletions are nil when the server does not report them.
	Insertions *int
	Deletions  *int
}

type accountInfo struct {
	Name      string `json:"name"`
	Username  string `json:"username"`
	AccountID int    `json:"_account_id"`
}

type changeInfo struct {
	Number     *int        `json:"_number"`
	ChangeID   string      `json:"change_id"`
	Subject    string      `json:"subject"`
	Owner      accountInfo `json:"owner"`
	Insertions *int        `json:"insertions"`
	Deletions  *int        `json:"deletions"`
}

// Version returns the server version, e.g. "2.8". Numeric versions keep
// their literal JSON text.
func (c *Client) Version(ctx context.Context) (string, error) {
	var raw jsoniter.RawMessage
	if err := c.get(ctx, "/config/server/version", nil, &raw); err != nil {
		return "", fmt.Errorf("get version: %w", err)
	}
	v, err := parseVersion(raw)
	if err != nil {
		return "", fmt.Errorf("parse version: %w", err)
	}
	return v, nil
}

// ProjectCount returns how many projects the server lists.
func (c *Client) ProjectCount(ctx context.Context) (int, error) {
	var projects map[string]jsoniter.RawMessage
	if err := c.get(ctx, "/projects/", nil, &projects); err != nil {
		return 0, fmt.Errorf("list projects: %w", err)
	}
	if projects == nil {
		return 0, fmt.Errorf("list projects: expected object")
	}
	return len(projects), nil
}

// OpenChanges returns at most limit open changes in server order.
func (c *Client) OpenChanges(ctx context.Context, limit int) ([]Change, error) {
	q := url.Values{}
	q.Set("q", "status:open")
	q.Set("n", strconv.Itoa(limit))

	var infos []changeInfo
	if err := c.get(ctx, "/changes/", q, &infos); err != nil {
		return nil, fmt.Errorf("list changes: %w", err)
	}
	if infos == nil {
		return nil, fmt.Errorf("list changes: expected array")
	}

	changes := make([]Change, 0, len(infos))
	for i, ci := range infos {
		if ci.Number == nil || ci.ChangeID == "" {
			return nil, fmt.Errorf("parse changes: entry %d missing _number or change_id", i)
		}
		chg := Change{
			Number:   *ci.Number,
			ChangeID: ci.ChangeID,
			Subject:  ci.Subject,
			Owner:    ci.Owner.displayName(),
		}
		if ci.Insertions != nil && ci.Deletions != nil {
			chg.Insertions = ci.Insertions
			chg.Deletions = ci.Deletions
		}
		changes = append(changes, chg)
	}

	if limit >= 0 && len(changes) > limit {
		changes = changes[:limit]
	}
	return changes, nil
}

func (a accountInfo) displayName() string {
	switch {
	case a.Name != "":
		return a.Name
	case a.Username != "":
		return a.Username
	case a.AccountID != 0:
		return strconv.Itoa(a.AccountID)
	default:
		return ""
	}
}

// StripMagicPrefix drops everything up to and including the first newline.
func StripMagicPrefix(body []byte) ([]byte, error) {
	i := bytes.IndexByte(body, '\n')
	if i < 0 {
		return nil, ErrNoMagicPrefix
	}
	return body[i+1:], nil
}

func parseVersion(raw []byte) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == "" {
			return "", errors.New("empty version")
		}
		return s, nil
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return "", fmt.Errorf("expected string or number: %w", err)
	}
	return string(bytes.TrimSpace(raw)), nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, v any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	c.logger.Debug("gerrit get", "url", endpoint)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("GET %s: %s", path, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	payload, err := StripMagicPrefix(body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}
