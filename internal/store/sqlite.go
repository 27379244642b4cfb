package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/materialscodegraph/materialscodegraph/internal/asset"
)

//go:embed schema.sql
var schemaSQL string

// SQLiteStore persists the provenance graph in SQLite.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//   - a single-connection pool (SQLite allows one writer at a time)
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite creates or opens a SQLite-backed store at path. Pragmas and
// schema are applied automatically; the function is idempotent.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect database: %w", err)
	}

	// Single writer to avoid SQLITE_BUSY errors.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("execute %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Put inserts an asset. ON CONFLICT(id) DO NOTHING keeps the write
// idempotent: content-addressed IDs imply identical payloads.
func (s *SQLiteStore) Put(ctx context.Context, a asset.Asset) (string, error) {
	if a.ID == "" {
		return "", fmt.Errorf("put asset: empty id")
	}

	payload, err := json.Marshal(a.Payload)
	if err != nil {
		return "", fmt.Errorf("put asset %s: encode payload: %w", a.ID, err)
	}
	var units sql.NullString
	if a.Units != nil {
		enc, err := json.Marshal(a.Units)
		if err != nil {
			return "", fmt.Errorf("put asset %s: encode units: %w", a.ID, err)
		}
		units = sql.NullString{String: string(enc), Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO assets (id, kind, payload, units, uri, hash)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, a.ID, string(a.Kind), string(payload), units, nullable(a.URI), nullable(a.Hash))
	if err != nil {
		return "", fmt.Errorf("put asset %s: %w", a.ID, err)
	}
	return a.ID, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (asset.Asset, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, kind, payload, units, uri, hash FROM assets WHERE id = ?
	`, id)

	a, err := scanAsset(row)
	if err == sql.ErrNoRows {
		return asset.Asset{}, false, nil
	}
	if err != nil {
		return asset.Asset{}, false, err
	}
	return a, true, nil
}

func (s *SQLiteStore) GetMany(ctx context.Context, ids []string) ([]asset.Asset, error) {
	out := make([]asset.Asset, 0, len(ids))
	for _, id := range ids {
		a, ok, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, a)
		}
	}
	return out, nil
}

// Append writes the batch in one transaction so a crash mid-batch leaves
// the ledger either fully extended or untouched.
func (s *SQLiteStore) Append(ctx context.Context, edges []asset.Edge) (int, error) {
	if len(edges) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("append edges: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO edges (from_id, to_id, rel, t) VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("append edges: prepare: %w", err)
	}
	defer stmt.Close()

	for i, e := range edges {
		if _, err := stmt.ExecContext(ctx, e.From, e.To, string(e.Rel), e.T); err != nil {
			return 0, fmt.Errorf("append edges: edge %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("append edges: commit: %w", err)
	}
	return len(edges), nil
}

// Query returns matching edges ordered by seq, i.e. ledger order.
func (s *SQLiteStore) Query(ctx context.Context, f EdgeFilter) ([]asset.Edge, error) {
	var conds []string
	var args []any
	if f.From != "" {
		conds = append(conds, "from_id = ?")
		args = append(args, f.From)
	}
	if f.To != "" {
		conds = append(conds, "to_id = ?")
		args = append(args, f.To)
	}
	if f.RunID != "" {
		conds = append(conds, "(from_id = ? OR to_id = ?)")
		args = append(args, f.RunID, f.RunID)
	}

	query := "SELECT from_id, to_id, rel, t FROM edges"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY seq ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query edges: %w", err)
	}
	defer rows.Close()

	edges := []asset.Edge{}
	for rows.Next() {
		var e asset.Edge
		var rel string
		if err := rows.Scan(&e.From, &e.To, &rel, &e.T); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		e.Rel = asset.Relation(rel)
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate edges: %w", err)
	}
	return edges, nil
}

func (s *SQLiteStore) PutRun(ctx context.Context, r asset.Run) error {
	if r.ID == "" {
		return fmt.Errorf("put run: empty id")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, kind, status, runner_version, started_at, ended_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			runner_version = excluded.runner_version,
			started_at = excluded.started_at,
			ended_at = excluded.ended_at
	`, r.ID, r.Kind, string(r.Status), nullable(r.RunnerVersion), nullable(r.StartedAt), nullable(r.EndedAt))
	if err != nil {
		return fmt.Errorf("put run %s: %w", r.ID, err)
	}
	return nil
}

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (asset.Run, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, kind, status, runner_version, started_at, ended_at
		FROM runs WHERE id = ?
	`, id)

	var r asset.Run
	var status string
	var version, started, ended sql.NullString
	err := row.Scan(&r.ID, &r.Kind, &status, &version, &started, &ended)
	if err == sql.ErrNoRows {
		return asset.Run{}, false, nil
	}
	if err != nil {
		return asset.Run{}, false, fmt.Errorf("get run %s: %w", id, err)
	}
	r.Status = asset.RunStatus(status)
	r.RunnerVersion = version.String
	r.StartedAt = started.String
	r.EndedAt = ended.String
	return r, true, nil
}

// scanAsset reads one assets row.
func scanAsset(row *sql.Row) (asset.Asset, error) {
	var a asset.Asset
	var kind, payload string
	var units, uri, hash sql.NullString
	if err := row.Scan(&a.ID, &kind, &payload, &units, &uri, &hash); err != nil {
		return asset.Asset{}, err
	}
	a.Kind = asset.Kind(kind)
	if err := json.Unmarshal([]byte(payload), &a.Payload); err != nil {
		return asset.Asset{}, fmt.Errorf("decode payload for %s: %w", a.ID, err)
	}
	if units.Valid {
		if err := json.Unmarshal([]byte(units.String), &a.Units); err != nil {
			return asset.Asset{}, fmt.Errorf("decode units for %s: %w", a.ID, err)
		}
	}
	a.URI = uri.String
	a.Hash = hash.String
	return a, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
