package journal

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Journal records bring-up events to an embedded SQLite database so a
// failed container start can be reconstructed afterwards. It is strictly
// best-effort: the orchestrator treats journal failures as warnings.
//
// A nil *Journal is valid and records nothing.
type Journal struct {
	db *sql.DB
}

// Event is one row in the bring-up journal.
type Event struct {
	Stage      string // resolve, launch, prestart, handoff
	Name       string // service or workload name
	PID        int
	Status     string // started, ready, timeout, skipped, killed, handoff
	Detail     string
	OccurredAt time.Time
}

// Open creates (or opens) the journal database.
// DSN format:
//   - "sqlite:///path/to/file.db"
//   - "/path/to/file.db" (without prefix)
//   - ":memory:" (in-memory database)
func Open(dsn string) (*Journal, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("empty journal DSN")
	}
	if strings.HasPrefix(strings.ToLower(dsn), "sqlite://") {
		dsn = strings.TrimPrefix(dsn, "sqlite://")
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	j := &Journal{db: db}
	if err := j.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return j, nil
}

func (j *Journal) ensureSchema(ctx context.Context) error {
	// Append-only audit table, no primary key.
	stmt := `CREATE TABLE IF NOT EXISTS boot_journal(
		timestamp TIMESTAMP NOT NULL DEFAULT (CURRENT_TIMESTAMP),
		stage TEXT NOT NULL,
		name TEXT NOT NULL,
		pid INTEGER NOT NULL,
		status TEXT NOT NULL,
		detail TEXT
	);`
	_, err := j.db.ExecContext(ctx, stmt)
	return err
}

// Record appends one event. Safe on a nil journal.
func (j *Journal) Record(ctx context.Context, e Event) error {
	if j == nil || j.db == nil {
		return nil
	}
	occur := e.OccurredAt
	if occur.IsZero() {
		occur = time.Now()
	}
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO boot_journal(timestamp, stage, name, pid, status, detail)
		VALUES(?, ?, ?, ?, ?, ?);`,
		occur.UTC(), e.Stage, e.Name, e.PID, e.Status, e.Detail)
	return err
}

func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}
