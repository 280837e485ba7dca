// Package store persists per lap telemetry aggregates in a local
// sqlite file so repeated analysis sessions skip the raw CSV crunch.
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"golang.org/x/mod/semver"
	_ "modernc.org/sqlite" // database/sql driver

	"github.com/raceiq/raceiq-console-go/pkg/model"
)

// SchemaVersion is stamped into the store on Create and checked on
// Open. Stores whose major version differs are rejected.
const SchemaVersion = "v1.0.0"

var ErrSchemaVersion = errors.New("incompatible store schema version")

//go:embed migrations
var migrations embed.FS

// Store is a sqlite backed preaggregate store. It is safe for
// concurrent use through the underlying database/sql pool.
type Store struct {
	db *sql.DB
}

// Create opens (or creates) the store file at path, applies pending
// migrations and stamps the current schema version.
func Create(path string) (*Store, error) {
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate store %s: %w", path, err)
	}
	if _, err := db.Exec(
		`INSERT INTO schema_info (id, version) VALUES (1, ?)
		 ON CONFLICT (id) DO UPDATE SET version=excluded.version`,
		SchemaVersion,
	); err != nil {
		db.Close()
		return nil, fmt.Errorf("stamp schema version: %w", err)
	}
	return &Store{db: db}, nil
}

// Open opens an existing store and verifies its schema version. The
// sqlite driver would silently create a missing file, so the path is
// checked up front.
func Open(path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("store %s: %w", path, err)
	}
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db}
	version, err := s.Version(context.Background())
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("store %s: %w", path, err)
	}
	if semver.Major(version) != semver.Major(SchemaVersion) {
		db.Close()
		return nil, fmt.Errorf("%w: store has %q, need %s",
			ErrSchemaVersion, version, semver.Major(SchemaVersion))
	}
	return s, nil
}

// Version reads the schema version stamp.
func (s *Store) Version(ctx context.Context) (string, error) {
	var version string
	err := s.db.QueryRowContext(ctx,
		`SELECT version FROM schema_info WHERE id = 1`).Scan(&version)
	if err != nil {
		return "", fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}

// WriteAggregates replaces the stored aggregates with aggs. Undefined
// metrics are stored as NULL.
func (s *Store) WriteAggregates(ctx context.Context, aggs []model.TelemetryAggregate) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, `DELETE FROM lap_aggregates`); err != nil {
		return fmt.Errorf("clear aggregates: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO lap_aggregates (
			vehicle_id, lap_no, sample_count,
			avg_speed, max_speed, avg_throttle, avg_brake,
			avg_long_accel, avg_gear, avg_engine_rpm,
			est_fuel_used, est_tyre_wear
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i := range aggs {
		a := &aggs[i]
		if _, err := stmt.ExecContext(ctx,
			a.VehicleID, a.LapNo, a.SampleCount,
			nullable(a.AvgSpeed), nullable(a.MaxSpeed),
			nullable(a.AvgThrottle), nullable(a.AvgBrake),
			nullable(a.AvgLongAccel), nullable(a.AvgGear),
			nullable(a.AvgEngineRPM),
			nullable(a.EstFuelUsed), nullable(a.EstTyreWear),
		); err != nil {
			return fmt.Errorf("insert aggregate %s lap %d: %w", a.VehicleID, a.LapNo, err)
		}
	}
	return tx.Commit()
}

// ReadAggregates returns all stored aggregates ordered by vehicle and
// lap. NULL columns come back as undefined metrics.
func (s *Store) ReadAggregates(ctx context.Context) ([]model.TelemetryAggregate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT vehicle_id, lap_no, sample_count,
		       avg_speed, max_speed, avg_throttle, avg_brake,
		       avg_long_accel, avg_gear, avg_engine_rpm,
		       est_fuel_used, est_tyre_wear
		FROM lap_aggregates
		ORDER BY vehicle_id, lap_no`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ret []model.TelemetryAggregate
	for rows.Next() {
		var (
			a    model.TelemetryAggregate
			cols [9]sql.NullFloat64
		)
		if err := rows.Scan(
			&a.VehicleID, &a.LapNo, &a.SampleCount,
			&cols[0], &cols[1], &cols[2], &cols[3],
			&cols[4], &cols[5], &cols[6],
			&cols[7], &cols[8],
		); err != nil {
			return nil, err
		}
		a.AvgSpeed = metric(cols[0])
		a.MaxSpeed = metric(cols[1])
		a.AvgThrottle = metric(cols[2])
		a.AvgBrake = metric(cols[3])
		a.AvgLongAccel = metric(cols[4])
		a.AvgGear = metric(cols[5])
		a.AvgEngineRPM = metric(cols[6])
		a.EstFuelUsed = metric(cols[7])
		a.EstTyreWear = metric(cols[8])
		ret = append(ret, a)
	}
	return ret, rows.Err()
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func openDB(path string) (*sql.DB, error) {
	dsn := filepath.Clean(path) +
		"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	return db, nil
}

func migrateUp(db *sql.DB) error {
	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return err
	}
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return err
	}
	// Closing m would close the store's own connection, so it is
	// left to the garbage collector.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// nullable maps undefined metrics to NULL for insertion.
func nullable(m model.Metric) any {
	if !m.Defined() {
		return nil
	}
	return m.Float()
}

func metric(v sql.NullFloat64) model.Metric {
	if !v.Valid {
		return model.UndefinedMetric()
	}
	return model.MetricOf(v.Float64)
}
