package batch

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/nthompson1415/AVECapstone/internal/harm"
)

// ErrRunNotFound is returned for an unknown run id.
var ErrRunNotFound = errors.New("run not found")

// RunInfo describes a stored batch run.
type RunInfo struct {
	ID        string    `json:"id"`
	Seed      int64     `json:"seed"`
	Count     int       `json:"count"`
	TieBreak  string    `json:"tieBreak"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store persists batch runs in a SQLite database: run metadata, export rows
// and per-level outcomes.
type Store struct {
	db *sql.DB
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		seed INTEGER NOT NULL,
		count INTEGER NOT NULL,
		tie_break TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS export_rows (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		record TEXT NOT NULL,
		PRIMARY KEY (run_id, position)
	)`,
	`CREATE TABLE IF NOT EXISTS outcomes (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		scenario_id TEXT NOT NULL,
		level TEXT NOT NULL,
		recommendation TEXT NOT NULL,
		harm_a REAL NOT NULL,
		harm_b REAL NOT NULL,
		difference REAL NOT NULL,
		PRIMARY KEY (run_id, position)
	)`,
}

// OpenStore opens or creates the database at path and ensures the schema.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open run store %s: %w", path, err)
	}
	// A single connection keeps in-memory databases and writes consistent.
	db.SetMaxOpenConns(1)

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return &Store{db: db}, nil
}

// SaveRun stores a completed run and returns its metadata.
func (s *Store) SaveRun(ctx context.Context, seed int64, opts Options, evals []Evaluation) (RunInfo, error) {
	tb := opts.TieBreak
	if tb == "" {
		tb = defaultTieBreak
	}
	info := RunInfo{
		ID:        uuid.New().String(),
		Seed:      seed,
		Count:     len(evals),
		TieBreak:  string(tb),
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return RunInfo{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO runs (id, seed, count, tie_break, created_at) VALUES (?, ?, ?, ?, ?)",
		info.ID, info.Seed, info.Count, info.TieBreak, info.CreatedAt.Format(time.RFC3339),
	); err != nil {
		return RunInfo{}, fmt.Errorf("failed to insert run: %w", err)
	}

	rowStmt, err := tx.PrepareContext(ctx, "INSERT INTO export_rows (run_id, position, record) VALUES (?, ?, ?)")
	if err != nil {
		return RunInfo{}, err
	}
	defer rowStmt.Close()
	for i, r := range Rows(evals) {
		rec, err := json.Marshal(r.Record())
		if err != nil {
			return RunInfo{}, err
		}
		if _, err := rowStmt.ExecContext(ctx, info.ID, i, string(rec)); err != nil {
			return RunInfo{}, fmt.Errorf("failed to insert row %d: %w", i, err)
		}
	}

	outStmt, err := tx.PrepareContext(ctx,
		"INSERT INTO outcomes (run_id, position, scenario_id, level, recommendation, harm_a, harm_b, difference) VALUES (?, ?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return RunInfo{}, err
	}
	defer outStmt.Close()
	for i, o := range Outcomes(evals) {
		if _, err := outStmt.ExecContext(ctx, info.ID, i, o.ScenarioID, o.Level, string(o.Recommendation), o.HarmA, o.HarmB, o.Difference); err != nil {
			return RunInfo{}, fmt.Errorf("failed to insert outcome %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return RunInfo{}, fmt.Errorf("failed to commit run: %w", err)
	}
	return info, nil
}

// LoadRun returns the metadata of one run.
func (s *Store) LoadRun(ctx context.Context, id string) (RunInfo, error) {
	row := s.db.QueryRowContext(ctx, "SELECT id, seed, count, tie_break, created_at FROM runs WHERE id = ?", id)
	info, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RunInfo{}, ErrRunNotFound
	}
	return info, err
}

// ListRuns returns every run, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]RunInfo, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, seed, count, tie_break, created_at FROM runs ORDER BY created_at DESC, rowid DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []RunInfo{}
	for rows.Next() {
		info, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, info)
	}
	return runs, rows.Err()
}

// LoadRecords returns a run's export rows in Header order.
func (s *Store) LoadRecords(ctx context.Context, id string) ([][]string, error) {
	if _, err := s.LoadRun(ctx, id); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, "SELECT record FROM export_rows WHERE run_id = ? ORDER BY position", id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records [][]string
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var rec []string
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("corrupt row in run %s: %w", id, err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// LoadOutcomes returns a run's outcomes in evaluation order.
func (s *Store) LoadOutcomes(ctx context.Context, id string) ([]Outcome, error) {
	if _, err := s.LoadRun(ctx, id); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT scenario_id, level, recommendation, harm_a, harm_b, difference FROM outcomes WHERE run_id = ? ORDER BY position", id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Outcome
	for rows.Next() {
		var o Outcome
		var rec string
		if err := rows.Scan(&o.ScenarioID, &o.Level, &rec, &o.HarmA, &o.HarmB, &o.Difference); err != nil {
			return nil, err
		}
		o.Recommendation = harm.Recommendation(rec)
		out = append(out, o)
	}
	return out, rows.Err()
}

// DeleteRun removes a run and everything stored with it.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM runs WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRunNotFound
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (RunInfo, error) {
	var info RunInfo
	var created string
	if err := sc.Scan(&info.ID, &info.Seed, &info.Count, &info.TieBreak, &created); err != nil {
		return RunInfo{}, err
	}
	t, err := time.Parse(time.RFC3339, created)
	if err != nil {
		return RunInfo{}, fmt.Errorf("bad timestamp on run %s: %w", info.ID, err)
	}
	info.CreatedAt = t
	return info, nil
}
