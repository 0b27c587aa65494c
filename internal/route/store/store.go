package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/gigaz-dev/walker/internal/game"
	"github.com/gigaz-dev/walker/internal/route"

	_ "modernc.org/sqlite"
)

var ErrRouteNotFound = errors.New("route not found")

// DB wraps the SQLite database holding persisted waypoint records.
type DB struct {
	*sql.DB
}

// Open opens (or creates) a SQLite database and runs migrations.
func Open(path string) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	db := &DB{sqlDB}
	if err := db.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS routes (
	name       TEXT PRIMARY KEY,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS waypoints (
	route            TEXT    NOT NULL REFERENCES routes(name) ON DELETE CASCADE,
	seq              INTEGER NOT NULL,
	x                REAL    NOT NULL,
	y                REAL    NOT NULL,
	z                REAL    NOT NULL,
	label            TEXT    NOT NULL DEFAULT '',
	wait_ms          INTEGER NOT NULL DEFAULT 0,
	max_attempts     INTEGER,
	attempt_delay_ms INTEGER,
	PRIMARY KEY (route, seq)
);
`

func (db *DB) migrate() error {
	_, err := db.Exec(schema)
	return err
}

type RouteInfo struct {
	Name      string
	Legs      int
	UpdatedAt time.Time
}

// SaveRoute replaces the named route with r.
func (db *DB) SaveRoute(ctx context.Context, name string, r route.Route) error {
	if name == "" {
		return errors.New("route name is required")
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM waypoints WHERE route = ?`, name); err != nil {
		return fmt.Errorf("clear waypoints: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO routes (name, updated_at) VALUES (?, ?)
		 ON CONFLICT(name) DO UPDATE SET updated_at = excluded.updated_at`, name, now); err != nil {
		return fmt.Errorf("upsert route: %w", err)
	}

	for i, leg := range r {
		var maxAttempts, delayMs sql.NullInt64
		if leg.Policy != nil {
			maxAttempts = sql.NullInt64{Int64: int64(leg.Policy.MaxAttempts), Valid: true}
			delayMs = sql.NullInt64{Int64: leg.Policy.AttemptDelay.Milliseconds(), Valid: true}
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO waypoints (route, seq, x, y, z, label, wait_ms, max_attempts, attempt_delay_ms)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			name, i, leg.Goal.X, leg.Goal.Y, leg.Goal.Z, leg.Label, leg.DwellBefore.Milliseconds(), maxAttempts, delayMs); err != nil {
			return fmt.Errorf("insert waypoint %d: %w", i, err)
		}
	}
	return tx.Commit()
}

func (db *DB) LoadRoute(ctx context.Context, name string) (route.Route, error) {
	var exists int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM routes WHERE name = ?`, name).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("lookup route %s: %w", name, err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("%w: %s", ErrRouteNotFound, name)
	}

	rows, err := db.QueryContext(ctx,
		`SELECT x, y, z, label, wait_ms, max_attempts, attempt_delay_ms
		 FROM waypoints WHERE route = ? ORDER BY seq`, name)
	if err != nil {
		return nil, fmt.Errorf("query waypoints: %w", err)
	}
	defer rows.Close()

	r := route.Route{}
	for rows.Next() {
		var (
			x, y, z     float64
			label       string
			waitMs      int64
			maxAttempts sql.NullInt64
			delayMs     sql.NullInt64
		)
		if err := rows.Scan(&x, &y, &z, &label, &waitMs, &maxAttempts, &delayMs); err != nil {
			return nil, fmt.Errorf("scan waypoint: %w", err)
		}
		leg := route.Leg{
			Goal:        game.NewWaypoint(x, y, z),
			Label:       label,
			DwellBefore: time.Duration(waitMs) * time.Millisecond,
		}
		if maxAttempts.Valid {
			p := game.RetryPolicy{
				MaxAttempts:  int(maxAttempts.Int64),
				AttemptDelay: time.Duration(delayMs.Int64) * time.Millisecond,
			}
			leg.Policy = &p
		}
		r = append(r, leg)
	}
	return r, rows.Err()
}

func (db *DB) ListRoutes(ctx context.Context) ([]RouteInfo, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT r.name, r.updated_at, COUNT(w.seq)
		 FROM routes r LEFT JOIN waypoints w ON w.route = r.name
		 GROUP BY r.name, r.updated_at ORDER BY r.name`)
	if err != nil {
		return nil, fmt.Errorf("list routes: %w", err)
	}
	defer rows.Close()

	var out []RouteInfo
	for rows.Next() {
		var info RouteInfo
		var updated string
		if err := rows.Scan(&info.Name, &updated, &info.Legs); err != nil {
			return nil, fmt.Errorf("scan route: %w", err)
		}
		info.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
		out = append(out, info)
	}
	return out, rows.Err()
}

func (db *DB) DeleteRoute(ctx context.Context, name string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM routes WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete route %s: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRouteNotFound, name)
	}
	return nil
}

// Source loads a named route from the database on every session start. A
// missing or unreadable route is reported as malformed route data.
type Source struct {
	DB   *DB
	Name string
}

func (s Source) Load(ctx context.Context) (route.Route, error) {
	r, err := s.DB.LoadRoute(ctx, s.Name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", route.ErrMalformedRoute, err)
	}
	return r, nil
}
