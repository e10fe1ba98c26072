package audit

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/msgpo/kalliope-app/internal/infrastructure/config"
	"github.com/msgpo/kalliope-app/internal/infrastructure/database"
	_ "github.com/msgpo/kalliope-app/migrations"
)

func openTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()

	db, err := database.Open(config.DatabaseConfig{
		Path:        filepath.Join(t.TempDir(), "history.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return NewSQLiteRepository(db.DB)
}

func TestCreateAndList(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 14, 8, 0, 0, 0, time.UTC)

	entries := []*Entry{
		{Action: ActionRun, Subject: "greet", Source: "name", Status: "complete", DurationMS: 12.5, CreatedAt: base},
		{Action: ActionTransition, Subject: "home", Source: "alice/phone", Status: "enter", CreatedAt: base.Add(time.Minute)},
		{Action: ActionRun, Subject: "home", Source: "name", Status: "error", Error: "boom", CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, e := range entries {
		if err := repo.Create(ctx, e); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if e.ID == "" {
			t.Error("Create() did not assign an ID")
		}
	}

	got, err := repo.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if got.Total != 3 || len(got.Entries) != 3 || got.Limit != defaultLimit {
		t.Fatalf("List() = total %d len %d limit %d", got.Total, len(got.Entries), got.Limit)
	}
	if got.Entries[0].Subject != "home" || got.Entries[0].Error != "boom" {
		t.Errorf("newest entry = %+v", got.Entries[0])
	}
	oldest := got.Entries[2]
	if oldest.DurationMS != 12.5 || !oldest.CreatedAt.Equal(base) || oldest.Error != "" {
		t.Errorf("oldest entry = %+v", oldest)
	}
}

func TestListFilters(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	for _, e := range []*Entry{
		{Action: ActionRun, Subject: "greet", Source: "name"},
		{Action: ActionRun, Subject: "home", Source: "name"},
		{Action: ActionTransition, Subject: "home", Source: "dev", Status: "enter"},
	} {
		if err := repo.Create(ctx, e); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	tests := []struct {
		name      string
		filter    Filter
		wantTotal int
		wantLen   int
	}{
		{name: "by action", filter: Filter{Action: ActionRun}, wantTotal: 2, wantLen: 2},
		{name: "by subject", filter: Filter{Subject: "home"}, wantTotal: 2, wantLen: 2},
		{name: "both", filter: Filter{Action: ActionTransition, Subject: "home"}, wantTotal: 1, wantLen: 1},
		{name: "paged", filter: Filter{Limit: 1, Offset: 1}, wantTotal: 3, wantLen: 1},
		{name: "past end", filter: Filter{Offset: 10}, wantTotal: 3, wantLen: 0},
		{name: "limit clamped", filter: Filter{Limit: 1000, Offset: -4}, wantTotal: 3, wantLen: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if got.Total != tt.wantTotal || len(got.Entries) != tt.wantLen {
				t.Errorf("List() total %d len %d, want %d %d", got.Total, len(got.Entries), tt.wantTotal, tt.wantLen)
			}
			if got.Limit > maxLimit || got.Offset < 0 {
				t.Errorf("List() limit %d offset %d not clamped", got.Limit, got.Offset)
			}
		})
	}
}

type memRepo struct {
	entries []Entry
	err     error
}

func (m *memRepo) Create(_ context.Context, e *Entry) error {
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, *e)
	return nil
}

func (m *memRepo) List(context.Context, Filter) (*ListResult, error) {
	return &ListResult{Entries: m.entries, Total: len(m.entries)}, nil
}

type warnLogger struct {
	warnings []string
}

func (l *warnLogger) Warn(msg string, _ ...any) {
	l.warnings = append(l.warnings, msg)
}

func TestRecorder(t *testing.T) {
	repo := &memRepo{}
	rec := NewRecorder(repo, nil)
	now := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	rec.now = func() time.Time { return now }

	rec.RecordRun("greet", "name", "complete", 1500*time.Microsecond, nil)
	rec.RecordRun("missing", "name", "", time.Millisecond, errors.New("not found"))
	rec.RecordTransition("home", "alice/phone", "enter", now)

	if len(repo.entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(repo.entries))
	}
	if e := repo.entries[0]; e.Action != ActionRun || e.Status != "complete" || e.DurationMS != 1.5 || !e.CreatedAt.Equal(now) {
		t.Errorf("entry[0] = %+v", e)
	}
	if e := repo.entries[1]; e.Status != "error" || e.Error != "not found" {
		t.Errorf("entry[1] = %+v", e)
	}
	if e := repo.entries[2]; e.Action != ActionTransition || e.Source != "alice/phone" || e.Status != "enter" {
		t.Errorf("entry[2] = %+v", e)
	}
}

func TestRecorder_LogsFailures(t *testing.T) {
	logger := &warnLogger{}
	rec := NewRecorder(&memRepo{err: errors.New("disk full")}, logger)

	rec.RecordRun("greet", "name", "complete", time.Millisecond, nil)

	if len(logger.warnings) != 1 {
		t.Errorf("warnings = %v, want one", logger.warnings)
	}
}
