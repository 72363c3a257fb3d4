package catalog

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
)

const (
	DefaultBaseURL = "https://raw.githubusercontent.com/jakubGodula/cyber-toolkit/main/roles/"
	DefaultIndex   = "role_names"

	// maxDocumentBytes caps one catalog document.
	maxDocumentBytes = 4 << 20
)

var (
	ErrFetch      = errors.New("catalog: fetch failed")
	ErrEmptyRole  = errors.New("catalog: empty role name")
	ErrBadRole    = errors.New("catalog: role name is not a document name")
	ErrInvalidURL = errors.New("catalog: invalid base url")
	ErrTooLarge   = errors.New("catalog: document too large")
)

// StatusError reports a non-success HTTP response.
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("catalog: GET %s: %s", e.URL, e.Status)
}

func (e *StatusError) Unwrap() error { return ErrFetch }

// Config wires an HTTP catalog.
type Config struct {
	BaseURL string
	Index   string
	// Timeout bounds one HTTP attempt; zero leaves the client default.
	Timeout time.Duration
	// Retries is the number of extra attempts after a transient failure.
	Retries int
	// RetryInterval is the first backoff delay; zero uses 500ms.
	RetryInterval time.Duration
	Client        *http.Client
}

// HTTP is a RoleCatalog backed by plain-text documents under one base URL:
// <base>/<role> holds one tool per line and <base>/<index> one role per line.
type HTTP struct {
	base          *url.URL
	index         string
	client        *http.Client
	retries       int
	retryInterval time.Duration
}

// NewHTTP validates the base URL and builds the catalog client.
func NewHTTP(cfg Config) (*HTTP, error) {
	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		raw = DefaultBaseURL
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidURL, raw, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("%w: %q: unsupported scheme", ErrInvalidURL, raw)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	index := strings.TrimSpace(cfg.Index)
	if index == "" {
		index = DefaultIndex
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}
	if cfg.Timeout > 0 {
		c := *client
		c.Timeout = cfg.Timeout
		client = &c
	}
	interval := cfg.RetryInterval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &HTTP{
		base:          base,
		index:         index,
		client:        client,
		retries:       max(cfg.Retries, 0),
		retryInterval: interval,
	}, nil
}

// URLFor returns the document URL for one role. Characters with URL meaning
// are escaped so a role can only name a document under the base path.
func (c *HTTP) URLFor(role string) string {
	u := *c.base
	u.Path = c.base.Path + role
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

// Fetch returns the raw lines of one role's tool list.
func (c *HTTP) Fetch(ctx context.Context, role string) ([]string, error) {
	role, err := documentName(role)
	if err != nil {
		return nil, err
	}
	return c.document(ctx, c.URLFor(role))
}

// documentName accepts role names that map onto exactly one document.
func documentName(role string) (string, error) {
	role = strings.TrimSpace(role)
	if role == "" {
		return "", ErrEmptyRole
	}
	if role == "." || role == ".." || strings.ContainsAny(role, "/\\") {
		return "", fmt.Errorf("%w: %q", ErrBadRole, role)
	}
	return role, nil
}

// Index returns the role names listed in the catalog index document.
func (c *HTTP) Index(ctx context.Context) ([]string, error) {
	lines, err := c.document(ctx, c.URLFor(c.index))
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if name := strings.TrimSpace(line); name != "" {
			out = append(out, name)
		}
	}
	return out, nil
}

func (c *HTTP) document(ctx context.Context, target string) ([]string, error) {
	var lines []string
	op := func() error {
		var err error
		lines, err = c.get(ctx, target)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil || !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.retryInterval
	policy.MaxElapsedTime = 0
	b := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(c.retries)), ctx)

	err := backoff.RetryNotify(op, b, func(err error, wait time.Duration) {
		log.Warn().Err(err).Str("url", target).Dur("retry_in", wait).Msg("catalog fetch retry")
	})
	if err != nil {
		return nil, err
	}
	return lines, nil
}

func (c *HTTP) get(ctx context.Context, target string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFetch, target, err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFetch, target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &StatusError{URL: target, StatusCode: resp.StatusCode, Status: resp.Status}
	}
	lines, err := readDocument(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: read body: %w", ErrFetch, target, err)
	}
	log.Debug().Str("url", target).Int("lines", len(lines)).Msg("catalog fetched")
	return lines, nil
}

// retryable reports whether another attempt could succeed: transport errors
// and 5xx/429 responses.
func retryable(err error) bool {
	if errors.Is(err, ErrTooLarge) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= 500 || statusErr.StatusCode == http.StatusTooManyRequests
	}
	return true
}

// readDocument splits r into lines. A document over maxDocumentBytes is an
// error; a cut-off tool list must never be used.
func readDocument(r io.Reader) ([]string, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxDocumentBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxDocumentBytes {
		return nil, fmt.Errorf("%w: exceeds %d bytes", ErrTooLarge, maxDocumentBytes)
	}
	return SplitLines(bytes.NewReader(data))
}

// SplitLines reads r into lines without trailing newline characters.
func SplitLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64<<10), maxDocumentBytes)
	for scanner.Scan() {
		lines = append(lines, strings.TrimRight(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}
