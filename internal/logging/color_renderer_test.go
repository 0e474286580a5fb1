package logging

import (
	"strings"
	"testing"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"
)

func fixedRecord(name string, level Level, template string, args []any, fields Fields) *Record {
	rec := NewRecord(name, level, template, args, fields, nil)
	rec.Time = time.Date(2026, 3, 4, 5, 6, 7, 8_000_000, time.Local)
	return rec
}

func TestColorRendererPlainLayout(t *testing.T) {
	r := NewColorRenderer(false, false)
	out, err := r.Render(fixedRecord("app.main", LevelInfo, "hello %s", []any{"world"}, Fields{"user_id": 42}))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	want := "2026-03-04 05:06:07.008 INFO app.main hello world\n"
	if string(out) != want {
		t.Fatalf("unexpected output\n got: %q\nwant: %q", out, want)
	}
}

func TestColorRendererWrapsLineInLevelColor(t *testing.T) {
	r := NewColorRenderer(true, false)
	out, err := r.Render(fixedRecord("app", LevelError, "failed", nil, nil))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	line := string(out)
	prefix := text.Colors{text.FgRed}.EscapeSeq()
	if !strings.HasPrefix(line, prefix) {
		t.Fatalf("expected red prefix, got %q", line)
	}
	if !strings.HasSuffix(line, text.EscapeReset+"\n") {
		t.Fatalf("expected reset before newline, got %q", line)
	}
	if !strings.Contains(line, " ERROR app failed") {
		t.Fatalf("unexpected layout %q", line)
	}
}

func TestColorRendererShowFields(t *testing.T) {
	r := NewColorRenderer(false, true)
	out, err := r.Render(fixedRecord("app", LevelInfo, "saved", nil, Fields{"path": "/tmp/a b", "count": 3}))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.HasSuffix(string(out), `saved count=3 path="/tmp/a b"`+"\n") {
		t.Fatalf("unexpected fields rendering %q", out)
	}
}

func TestColorRendererExceptionBlock(t *testing.T) {
	rec := fixedRecord("app", LevelError, "request failed", nil, nil)
	rec.Exception = &ExceptionInfo{
		Type:    "*net.OpError",
		Message: "connection refused",
		Stack:   []string{"main.dial (main.go:10)", "main.main (main.go:3)"},
	}
	out, err := NewColorRenderer(true, false).Render(rec)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	lines := strings.Split(strings.TrimSuffix(string(out), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header plus 3 exception lines, got %d: %q", len(lines), out)
	}
	if lines[1] != "    *net.OpError: connection refused" {
		t.Fatalf("unexpected exception header %q", lines[1])
	}
	if lines[2] != "        main.dial (main.go:10)" {
		t.Fatalf("unexpected frame %q", lines[2])
	}
}
