package geofence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/msgpo/kalliope-app/internal/infrastructure/database"
)

// SQLiteStore is a Platform that keeps fences in the local database.
//
// Initialize applies pending migrations; the geofences table is created by
// migrations/20261014_090000_geofences.up.sql.
type SQLiteStore struct {
	db    *database.DB
	ready atomic.Bool
	now   func() time.Time
}

// NewSQLiteStore creates a store over db. Import package migrations so
// Initialize can create the schema.
func NewSQLiteStore(db *database.DB) *SQLiteStore {
	return &SQLiteStore{db: db, now: time.Now}
}

// Initialize migrates the database and checks the geofences table exists.
func (s *SQLiteStore) Initialize(ctx context.Context) error {
	if err := s.db.Migrate(ctx); err != nil {
		return fmt.Errorf("migrating geofence store: %w", err)
	}
	var name string
	err := s.db.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'geofences'",
	).Scan(&name)
	if err != nil {
		return fmt.Errorf("checking geofences table: %w", err)
	}
	s.ready.Store(true)
	return nil
}

// AddOrUpdate inserts f or replaces the fence with the same ID. The last
// seen event is kept unless the geometry changes.
func (s *SQLiteStore) AddOrUpdate(ctx context.Context, f Fence) error {
	if !s.ready.Load() {
		return ErrNotInitialized
	}
	if err := f.Validate(); err != nil {
		return err
	}

	const query = `INSERT INTO geofences (id, latitude, longitude, radius, transition, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			last_event = CASE
				WHEN geofences.latitude = excluded.latitude
				 AND geofences.longitude = excluded.longitude
				 AND geofences.radius = excluded.radius
				THEN geofences.last_event ELSE NULL END,
			last_event_at = CASE
				WHEN geofences.latitude = excluded.latitude
				 AND geofences.longitude = excluded.longitude
				 AND geofences.radius = excluded.radius
				THEN geofences.last_event_at ELSE NULL END,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			radius = excluded.radius,
			transition = excluded.transition,
			updated_at = excluded.updated_at`

	now := formatTime(s.now())
	if _, err := s.db.ExecContext(ctx, query,
		f.ID, f.Latitude, f.Longitude, f.Radius, string(f.Transition), now, now,
	); err != nil {
		return fmt.Errorf("upserting fence %s: %w", f.ID, err)
	}
	return nil
}

// List returns all fences ordered by ID.
func (s *SQLiteStore) List(ctx context.Context) ([]StoredFence, error) {
	if !s.ready.Load() {
		return nil, ErrNotInitialized
	}

	const query = `SELECT id, latitude, longitude, radius, transition,
		created_at, updated_at, last_event, last_event_at
		FROM geofences ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying fences: %w", err)
	}
	defer rows.Close()

	fences := []StoredFence{}
	for rows.Next() {
		f, err := scanFence(rows)
		if err != nil {
			return nil, err
		}
		fences = append(fences, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating fences: %w", err)
	}
	return fences, nil
}

// Get returns the fence with the given ID.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*StoredFence, error) {
	if !s.ready.Load() {
		return nil, ErrNotInitialized
	}

	const query = `SELECT id, latitude, longitude, radius, transition,
		created_at, updated_at, last_event, last_event_at
		FROM geofences WHERE id = ?`
	f, err := scanFence(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrFenceNotFound
	}
	return f, err
}

// RecordEvent stores a transition reported for fence id.
func (s *SQLiteStore) RecordEvent(ctx context.Context, id string, event Transition, at time.Time) error {
	if !s.ready.Load() {
		return ErrNotInitialized
	}

	result, err := s.db.ExecContext(ctx,
		"UPDATE geofences SET last_event = ?, last_event_at = ? WHERE id = ?",
		string(event), formatTime(at), id,
	)
	if err != nil {
		return fmt.Errorf("recording event for fence %s: %w", id, err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrFenceNotFound
	}
	return nil
}

// Remove deletes fence id.
func (s *SQLiteStore) Remove(ctx context.Context, id string) error {
	if !s.ready.Load() {
		return ErrNotInitialized
	}

	result, err := s.db.ExecContext(ctx, "DELETE FROM geofences WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting fence %s: %w", id, err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrFenceNotFound
	}
	return nil
}

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanFence(row rowScanner) (*StoredFence, error) {
	var (
		f                    StoredFence
		transition           string
		createdAt, updatedAt string
		lastEvent            sql.NullString
		lastEventAt          sql.NullString
	)
	err := row.Scan(&f.ID, &f.Latitude, &f.Longitude, &f.Radius, &transition,
		&createdAt, &updatedAt, &lastEvent, &lastEventAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning fence: %w", err)
	}

	f.Transition = Transition(transition)
	f.CreatedAt = parseTime(createdAt)
	f.UpdatedAt = parseTime(updatedAt)
	if lastEvent.Valid {
		f.LastEvent = Transition(lastEvent.String)
	}
	if lastEventAt.Valid {
		t := parseTime(lastEventAt.String)
		f.LastEventAt = &t
	}
	return &f, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime ignores malformed values; only this package writes the columns.
func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s) //nolint:errcheck // Format is controlled
	return t
}
