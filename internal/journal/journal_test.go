package journal

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/danmuck/rolectl/internal/pkgmgr"
	"github.com/danmuck/rolectl/internal/roles"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRecordAndList(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}
	ctx := context.Background()

	first := s.Begin("add", []string{"red-teamer"})
	first.Status = StatusPartial
	first.RolesBefore = roles.NewSet("blue-teamer")
	first.RolesAfter = roles.NewSet("blue-teamer", "red-teamer")
	first.Results = []pkgmgr.Result{{
		Verb:      pkgmgr.VerbInstall,
		Mode:      pkgmgr.ModeIndividual,
		Succeeded: roles.NewSet("nmap"),
		Failed:    roles.NewSet("metasploit"),
	}}
	if _, err := s.Record(ctx, first); err != nil {
		t.Fatalf("record first: %v", err)
	}

	second := s.Begin("remove", []string{"blue-teamer"})
	second.Status = StatusOK
	if _, err := s.Record(ctx, second); err != nil {
		t.Fatalf("record second: %v", err)
	}

	entries, err := s.List(ctx, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Command != "remove" || entries[1].Command != "add" {
		t.Fatalf("entries must be newest first: %s, %s", entries[0].Command, entries[1].Command)
	}
	got := entries[1]
	if got.ID != first.ID || got.Status != StatusPartial {
		t.Fatalf("unexpected entry: %+v", got)
	}
	if !got.RolesAfter.Equal(roles.NewSet("blue-teamer", "red-teamer")) {
		t.Fatalf("unexpected roles after: %v", got.RolesAfter)
	}
	if len(got.Results) != 1 || !got.Results[0].Failed.Equal(roles.NewSet("metasploit")) {
		t.Fatalf("unexpected results: %+v", got.Results)
	}

	limited, err := s.List(ctx, 1)
	if err != nil {
		t.Fatalf("list limited: %v", err)
	}
	if len(limited) != 1 || limited[0].Command != "remove" {
		t.Fatalf("unexpected limited list: %+v", limited)
	}
}

func TestClosedStore(t *testing.T) {
	s := openTestStore(t)
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := s.List(context.Background(), 0); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open("  "); err == nil {
		t.Fatalf("expected error for empty path")
	}
}
