package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped whenever schema.sql changes incompatibly. The
// journal is disposable history, so a mismatch asks the operator to delete it.
const schemaVersion = 1

// timeLayout is fixed width so started_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrSchemaMismatch indicates the journal was created by an incompatible build.
var ErrSchemaMismatch = errors.New("journal schema version mismatch")

// Entry is one recorded pass.
type Entry struct {
	ID            string
	CorrelationID string
	Run           string
	RunPath       string
	Mode          string
	State         string
	Disposition   string
	Sequencing    string
	Conversion    string
	Delivery      string
	// Writes lists the status mutations as category=status, in order.
	Writes    []string
	Reason    string
	Error     string
	StartedAt time.Time
	Duration  time.Duration
}

// Filter narrows List results.
type Filter struct {
	Run   string
	Since time.Time
	Limit int
}

// Journal is the SQLite-backed pass history.
type Journal struct {
	db   *sql.DB
	path string
}

// Open creates or opens the journal database at path.
func Open(ctx context.Context, path string) (*Journal, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("journal path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}

	j := &Journal{db: db, path: path}
	if err := j.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return j, nil
}

// Path returns the database file location.
func (j *Journal) Path() string { return j.path }

// Close closes the database.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

func (j *Journal) initSchema(ctx context.Context) error {
	var tableExists int
	err := j.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		tx, err := j.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin schema tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()
		if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit schema: %w", err)
		}
		return nil
	}

	var version int
	if err := j.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: %s has version %d, expected %d (delete the file to start a new journal)",
			ErrSchemaMismatch, j.path, version, schemaVersion)
	}
	return nil
}

// Record appends entry and returns it with its assigned id.
func (j *Journal) Record(ctx context.Context, entry Entry) (Entry, error) {
	if strings.TrimSpace(entry.Run) == "" {
		return entry, errors.New("journal entry requires a run name")
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.StartedAt.IsZero() {
		entry.StartedAt = time.Now()
	}
	entry.StartedAt = entry.StartedAt.UTC()

	_, err := j.db.ExecContext(ctx,
		`INSERT INTO passes (
            id, correlation_id, run_name, run_path, mode, state, disposition,
            sequencing, conversion, delivery, writes, reason, error_message,
            started_at, duration_ms
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		nullableString(entry.CorrelationID),
		entry.Run,
		entry.RunPath,
		entry.Mode,
		nullableString(entry.State),
		nullableString(entry.Disposition),
		nullableString(entry.Sequencing),
		nullableString(entry.Conversion),
		nullableString(entry.Delivery),
		nullableString(strings.Join(entry.Writes, ",")),
		nullableString(entry.Reason),
		nullableString(entry.Error),
		entry.StartedAt.Format(timeLayout),
		entry.Duration.Milliseconds(),
	)
	if err != nil {
		return entry, fmt.Errorf("insert pass: %w", err)
	}
	return entry, nil
}

const entryColumns = `id, correlation_id, run_name, run_path, mode, state, disposition,
    sequencing, conversion, delivery, writes, reason, error_message, started_at, duration_ms`

// List returns entries newest first.
func (j *Journal) List(ctx context.Context, filter Filter) ([]Entry, error) {
	var (
		clauses []string
		args    []any
	)
	if run := strings.TrimSpace(filter.Run); run != "" {
		clauses = append(clauses, "run_name = ?")
		args = append(args, run)
	}
	if !filter.Since.IsZero() {
		clauses = append(clauses, "started_at >= ?")
		args = append(args, filter.Since.UTC().Format(timeLayout))
	}
	query := "SELECT " + entryColumns + " FROM passes"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY started_at DESC, rowid DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list passes: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate passes: %w", err)
	}
	return entries, nil
}

// Prune deletes entries that started before cutoff.
func (j *Journal) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := j.db.ExecContext(ctx, "DELETE FROM passes WHERE started_at < ?", cutoff.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("prune passes: %w", err)
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var (
		entry                                                   Entry
		correlation, state, disposition, sequencing, conversion sql.NullString
		delivery, writes, reason, errMsg                        sql.NullString
		started                                                 string
		durationMS                                              int64
	)
	if err := row.Scan(
		&entry.ID, &correlation, &entry.Run, &entry.RunPath, &entry.Mode, &state, &disposition,
		&sequencing, &conversion, &delivery, &writes, &reason, &errMsg, &started, &durationMS,
	); err != nil {
		return Entry{}, fmt.Errorf("scan pass: %w", err)
	}
	entry.CorrelationID = correlation.String
	entry.State = state.String
	entry.Disposition = disposition.String
	entry.Sequencing = sequencing.String
	entry.Conversion = conversion.String
	entry.Delivery = delivery.String
	entry.Reason = reason.String
	entry.Error = errMsg.String
	if writes.String != "" {
		entry.Writes = strings.Split(writes.String, ",")
	}
	ts, err := time.Parse(time.RFC3339Nano, started)
	if err != nil {
		return Entry{}, fmt.Errorf("parse started_at %q: %w", started, err)
	}
	entry.StartedAt = ts
	entry.Duration = time.Duration(durationMS) * time.Millisecond
	return entry, nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
