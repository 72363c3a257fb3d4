package catalog

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Catalog is the full remote catalog surface used by the CLI.
type Catalog interface {
	Fetch(ctx context.Context, role string) ([]string, error)
	Index(ctx context.Context) ([]string, error)
}

// Open picks the catalog implementation for cfg.BaseURL: file:// URLs read a
// local mirror, everything else goes over HTTP.
func Open(cfg Config) (Catalog, error) {
	raw := strings.TrimSpace(cfg.BaseURL)
	if strings.HasPrefix(raw, "file://") {
		u, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidURL, raw, err)
		}
		if u.Path == "" {
			return nil, fmt.Errorf("%w: %q: missing path", ErrInvalidURL, raw)
		}
		return NewDir(u.Path, cfg.Index), nil
	}
	return NewHTTP(cfg)
}
