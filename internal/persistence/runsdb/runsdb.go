// Package runsdb archives completed playthrough-engine runs in a
// SQLite database so prior derivations can be listed and compared.
package runsdb

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"multiworld.gg/internal/logic/playthrough"
)

type Store struct {
	db *sql.DB
}

// Run is one archived engine invocation.
type Run struct {
	ID                 int64
	WorldDigest        string
	Game               string
	Status             string // "ok" or "error"
	Spheres            int
	PlaythroughJSON    string
	ExcessPrecollected []string
	UnreachableExcess  []string
	Error              string
	CreatedAt          string
}

func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			world_digest TEXT NOT NULL,
			game TEXT NOT NULL,
			status TEXT NOT NULL,
			spheres INTEGER NOT NULL,
			playthrough_json TEXT NOT NULL,
			excess_precollected TEXT NOT NULL,
			unreachable_excess TEXT NOT NULL,
			error TEXT NOT NULL,
			created_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_digest ON runs(world_digest, created_at);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Close() error { return s.db.Close() }

// RecordSuccess archives a finished run.
func (s *Store) RecordSuccess(digest, game string, res *playthrough.Result) (int64, error) {
	pj, err := json.Marshal(res.Playthrough)
	if err != nil {
		return 0, err
	}
	return s.insert(Run{
		WorldDigest:        digest,
		Game:               game,
		Status:             "ok",
		Spheres:            len(res.Playthrough.Spheres),
		PlaythroughJSON:    string(pj),
		ExcessPrecollected: res.ExcessPrecollected,
		UnreachableExcess:  res.UnreachableExcess,
	})
}

// RecordFailure archives an aborted run with its error text.
func (s *Store) RecordFailure(digest, game string, runErr error) (int64, error) {
	return s.insert(Run{
		WorldDigest:     digest,
		Game:            game,
		Status:          "error",
		PlaythroughJSON: "{}",
		Error:           runErr.Error(),
	})
}

func (s *Store) insert(r Run) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO runs (world_digest, game, status, spheres, playthrough_json,
			excess_precollected, unreachable_excess, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.WorldDigest, r.Game, r.Status, r.Spheres, r.PlaythroughJSON,
		joinList(r.ExcessPrecollected), joinList(r.UnreachableExcess), r.Error,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// Runs lists archived runs for a world digest, newest first. An empty
// digest lists everything.
func (s *Store) Runs(digest string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		`SELECT id, world_digest, game, status, spheres, playthrough_json,
			excess_precollected, unreachable_excess, error, created_at
		 FROM runs
		 WHERE (? = '' OR world_digest = ?)
		 ORDER BY id DESC LIMIT ?`,
		digest, digest, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var excess, unreachable string
		if err := rows.Scan(&r.ID, &r.WorldDigest, &r.Game, &r.Status, &r.Spheres,
			&r.PlaythroughJSON, &excess, &unreachable, &r.Error, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.ExcessPrecollected = splitList(excess)
		r.UnreachableExcess = splitList(unreachable)
		out = append(out, r)
	}
	return out, rows.Err()
}

func joinList(items []string) string { return strings.Join(items, "\n") }

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
