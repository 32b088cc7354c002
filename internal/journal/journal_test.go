package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestOpenRecordAndCount(t *testing.T) {
	j, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = j.Close() }()

	ctx := context.Background()
	events := []Event{
		{Stage: "launch", Name: "store", PID: 100, Status: "started"},
		{Stage: "launch", Name: "store", Status: "ready", Detail: "127.0.0.1:9000"},
		{Stage: "prestart", Name: "primary", PID: 101, Status: "killed", OccurredAt: time.Now()},
	}
	for _, e := range events {
		if err := j.Record(ctx, e); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	var n int
	if err := j.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM boot_journal").Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != len(events) {
		t.Fatalf("expected %d rows, got %d", len(events), n)
	}

	var status, detail string
	err = j.db.QueryRowContext(ctx,
		"SELECT status, detail FROM boot_journal WHERE stage = 'launch' AND status = 'ready'").
		Scan(&status, &detail)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if detail != "127.0.0.1:9000" {
		t.Fatalf("unexpected detail: %q", detail)
	}
}

func TestOpenWithSQLitePrefixAndFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "boot.db")
	j, err := Open("sqlite://" + path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := j.Record(context.Background(), Event{Stage: "resolve", Name: "plan", Status: "ok"}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Reopening the same file sees the persisted row.
	j, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = j.Close() }()
	var n int
	if err := j.db.QueryRow("SELECT COUNT(*) FROM boot_journal").Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 persisted row, got %d", n)
	}
}

func TestOpenEmptyDSN(t *testing.T) {
	if _, err := Open("  "); err == nil {
		t.Fatalf("expected error for empty DSN")
	}
}

func TestNilJournalIsSafe(t *testing.T) {
	var j *Journal
	if err := j.Record(context.Background(), Event{Stage: "launch"}); err != nil {
		t.Fatalf("nil journal record: %v", err)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("nil journal close: %v", err)
	}
}
