// Package sqlitestore persists projects and discovered versions in SQLite.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sqlite "modernc.org/sqlite"

	"github.com/relwatch/relwatch/internal/core"
)

const schema = `
CREATE TABLE IF NOT EXISTS projects (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	name               TEXT NOT NULL,
	homepage           TEXT NOT NULL DEFAULT '',
	ecosystem          TEXT NOT NULL DEFAULT '',
	backend            TEXT NOT NULL DEFAULT '',
	version_url        TEXT NOT NULL DEFAULT '',
	version_regex      TEXT NOT NULL DEFAULT '',
	version_prefix     TEXT NOT NULL DEFAULT '',
	version_scheme     TEXT NOT NULL DEFAULT '',
	insecure           INTEGER NOT NULL DEFAULT 0,
	fetch_timeout_ms   INTEGER NOT NULL DEFAULT 0,
	latest_version     TEXT NOT NULL DEFAULT '',
	latest_raw_version TEXT NOT NULL DEFAULT '',
	last_checked       TIMESTAMP,
	UNIQUE (name, ecosystem)
);

CREATE TABLE IF NOT EXISTS versions (
	project_id    INTEGER NOT NULL REFERENCES projects (id),
	raw           TEXT NOT NULL,
	version       TEXT NOT NULL,
	discovered_at TIMESTAMP NOT NULL,
	UNIQUE (project_id, version)
);

CREATE INDEX IF NOT EXISTS idx_versions_project ON versions (project_id);
`

// Store implements core.Store on a SQLite database file.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the
// schema. WAL keeps concurrent pass workers from serializing on reads.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

const projectColumns = `id, name, homepage, ecosystem, backend, version_url,
	version_regex, version_prefix, version_scheme, insecure, fetch_timeout_ms,
	latest_version, latest_raw_version, last_checked`

func scanProject(row interface{ Scan(...any) error }) (*core.Project, error) {
	var (
		p         core.Project
		insecure  int
		timeoutMS int64
		checked   sql.NullTime
	)
	err := row.Scan(&p.ID, &p.Name, &p.Homepage, &p.Ecosystem, &p.Backend,
		&p.VersionURL, &p.VersionRegex, &p.VersionPrefix, &p.VersionScheme,
		&insecure, &timeoutMS, &p.LatestVersion, &p.LatestRawVersion, &checked)
	if err != nil {
		return nil, err
	}
	p.Insecure = insecure != 0
	p.FetchTimeout = time.Duration(timeoutMS) * time.Millisecond
	if checked.Valid {
		p.LastChecked = checked.Time.UTC()
	}
	return &p, nil
}

func (s *Store) GetProject(ctx context.Context, id int64) (*core.Project, error) {
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM projects WHERE id = ?", projectColumns), id)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading project %d: %w", id, err)
	}
	return p, nil
}

func (s *Store) ListProjects(ctx context.Context, filter core.ProjectFilter) ([]core.Project, error) {
	query := fmt.Sprintf("SELECT %s FROM projects", projectColumns)
	var (
		where []string
		args  []any
	)
	if filter.Ecosystem != "" {
		where = append(where, "ecosystem = ?")
		args = append(args, filter.Ecosystem)
	}
	if filter.Backend != "" {
		where = append(where, "backend = ?")
		args = append(args, filter.Backend)
	}
	if filter.MissingEcosystem {
		where = append(where, "ecosystem = ''")
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	defer rows.Close()

	var out []core.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning project: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (s *Store) CreateProject(ctx context.Context, p *core.Project) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO projects (name, homepage, ecosystem, backend, version_url,
			version_regex, version_prefix, version_scheme, insecure,
			fetch_timeout_ms, latest_version, latest_raw_version)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Name, p.Homepage, p.Ecosystem, p.Backend, p.VersionURL,
		p.VersionRegex, p.VersionPrefix, p.VersionScheme, boolInt(p.Insecure),
		p.FetchTimeout.Milliseconds(), p.LatestVersion, p.LatestRawVersion)
	if err != nil {
		if isUniqueViolation(err) {
			return &core.ConflictError{Name: p.Name, Ecosystem: p.Ecosystem, Reason: "project already exists"}
		}
		return fmt.Errorf("creating project %q: %w", p.Name, err)
	}
	p.ID, err = res.LastInsertId()
	return err
}

// UpdateLatestVersion writes the new latest version only if the stored value
// still matches prev, making concurrent writers conflict-loud instead of
// last-writer-wins. The discovered version is also appended to the history.
func (s *Store) UpdateLatestVersion(ctx context.Context, id int64, rec core.VersionRecord, prev string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE projects SET latest_version = ?, latest_raw_version = ?, last_checked = ?
		 WHERE id = ? AND latest_version = ?`,
		rec.Version, rec.Raw, rec.DiscoveredAt.UTC(), id, prev)
	if err != nil {
		return fmt.Errorf("updating latest version: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var exists int
		if err := tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM projects WHERE id = ?", id).Scan(&exists); err != nil {
			return err
		}
		if exists == 0 {
			return core.ErrNotFound
		}
		return &core.ConflictError{Name: fmt.Sprintf("project %d", id), Reason: "latest version changed concurrently"}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO versions (project_id, raw, version, discovered_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (project_id, version) DO NOTHING`,
		rec.ProjectID, rec.Raw, rec.Version, rec.DiscoveredAt.UTC()); err != nil {
		return fmt.Errorf("recording version: %w", err)
	}

	return tx.Commit()
}

func (s *Store) TouchLastChecked(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE projects SET last_checked = ? WHERE id = ?", time.Now().UTC(), id)
	return err
}

func (s *Store) ListVersions(ctx context.Context, projectID int64) ([]core.VersionRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT project_id, raw, version, discovered_at FROM versions
		 WHERE project_id = ? ORDER BY discovered_at DESC, version DESC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing versions: %w", err)
	}
	defer rows.Close()

	var out []core.VersionRecord
	for rows.Next() {
		var rec core.VersionRecord
		if err := rows.Scan(&rec.ProjectID, &rec.Raw, &rec.Version, &rec.DiscoveredAt); err != nil {
			return nil, err
		}
		rec.DiscoveredAt = rec.DiscoveredAt.UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) SetEcosystem(ctx context.Context, id int64, ecosystem string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE projects SET ecosystem = ? WHERE id = ?", ecosystem, id)
	if err != nil {
		if isUniqueViolation(err) {
			return &core.ConflictError{
				Name:      fmt.Sprintf("project %d", id),
				Ecosystem: ecosystem,
				Reason:    "name already taken in ecosystem",
			}
		}
		return fmt.Errorf("setting ecosystem: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// sqlite extended result code for a UNIQUE constraint violation.
const sqliteConstraintUnique = 2067

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqliteConstraintUnique
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
