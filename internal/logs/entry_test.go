package logs_test

import (
	"errors"
	"testing"
	"time"

	"pyproj/internal/logging"
	"pyproj/internal/logs"
)

func TestParseEntryRoundTrip(t *testing.T) {
	rec := logging.NewRecord("app.main", logging.LevelError, "job %s failed", []any{"sync"},
		logging.Fields{"user_id": 42, "region": "eu", "ratio": 0.5}, logging.NewExceptionInfo(errors.New("boom")))
	rec.Time = time.Date(2026, 3, 4, 5, 6, 7, 8_000_000, time.UTC)

	payload, err := (&logging.JSONRenderer{SessionID: "sess-1"}).Render(rec)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	entry, err := logs.ParseEntry(string(payload))
	if err != nil {
		t.Fatalf("ParseEntry: %v", err)
	}

	if !entry.Time.Equal(rec.Time) {
		t.Fatalf("expected time %s, got %s", rec.Time, entry.Time)
	}
	if entry.Level != "ERROR" || entry.Severity() != logging.LevelError {
		t.Fatalf("unexpected level %q", entry.Level)
	}
	if entry.Logger != "app.main" || entry.Message != "job sync failed" {
		t.Fatalf("unexpected logger/message %q/%q", entry.Logger, entry.Message)
	}
	if entry.PID != rec.ProcessID || entry.SessionID != "sess-1" {
		t.Fatalf("unexpected pid/session %d/%q", entry.PID, entry.SessionID)
	}
	if got := entry.FieldKeys(); len(got) != 3 || got[0] != "ratio" || got[1] != "region" || got[2] != "user_id" {
		t.Fatalf("unexpected field keys %v", got)
	}
	if entry.Fields["user_id"] != "42" || entry.Fields["region"] != "eu" || entry.Fields["ratio"] != "0.5" {
		t.Fatalf("unexpected fields %v", entry.Fields)
	}
	if entry.Exception == nil || entry.Exception.Message != "boom" || len(entry.Exception.Stack) == 0 {
		t.Fatalf("unexpected exception %+v", entry.Exception)
	}
}

func TestParseEntryRejectsNonObjects(t *testing.T) {
	for _, line := range []string{"plain text", "[1,2]", `"str"`} {
		entry, err := logs.ParseEntry(line)
		if !errors.Is(err, logs.ErrNotJSON) {
			t.Fatalf("%q: expected ErrNotJSON, got %v", line, err)
		}
		if entry.Raw != line {
			t.Fatalf("%q: raw line not kept", line)
		}
	}
}

func TestParseLinesKeepsPlainText(t *testing.T) {
	entries := logs.ParseLines([]string{`{"level":"INFO","message":"ok"}`, "", "stray output"})
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[1].Message != "stray output" || entries[1].Level != "" {
		t.Fatalf("unexpected plain entry %+v", entries[1])
	}
}

func TestQueryMatch(t *testing.T) {
	entries := logs.ParseLines([]string{
		`{"level":"DEBUG","logger":"app.db","message":"pool warm"}`,
		`{"level":"WARNING","logger":"app.db.pool","message":"slow query"}`,
		`{"level":"ERROR","logger":"application","message":"lookalike"}`,
	})

	tests := []struct {
		name  string
		query logs.Query
		want  []bool
	}{
		{name: "empty", query: logs.Query{}, want: []bool{true, true, true}},
		{name: "level", query: logs.Query{Level: "warning"}, want: []bool{false, true, true}},
		{name: "prefix", query: logs.Query{LoggerPrefix: "app.db"}, want: []bool{true, true, false}},
		{name: "search", query: logs.Query{Search: "SLOW"}, want: []bool{false, true, false}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for i, entry := range entries {
				if got := tc.query.Match(entry); got != tc.want[i] {
					t.Fatalf("entry %d: expected %v, got %v", i, tc.want[i], got)
				}
			}
		})
	}
}
