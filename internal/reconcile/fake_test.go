package reconcile

import (
	"context"
	"errors"
	"fmt"
)

var errUnreachable = errors.New("dial tcp: connection refused")

type fakeCatalog struct {
	lists map[string][]string
	fail  map[string]error
	calls []string
}

func newFakeCatalog(lists map[string][]string) *fakeCatalog {
	return &fakeCatalog{lists: lists, fail: map[string]error{}}
}

func (c *fakeCatalog) Fetch(_ context.Context, role string) ([]string, error) {
	c.calls = append(c.calls, role)
	if err, ok := c.fail[role]; ok {
		return nil, err
	}
	lines, ok := c.lists[role]
	if !ok {
		return nil, fmt.Errorf("catalog: GET %s: 404 Not Found", role)
	}
	return lines, nil
}

func teamCatalog() *fakeCatalog {
	return newFakeCatalog(map[string][]string{
		"blue-teamer": {`"nmap",`, `"wireshark",`},
		"red-teamer":  {"nmap", "metasploit"},
		"x":           {"shared", "x-only"},
		"y":           {"shared", "y-only"},
	})
}
