package logging

import "testing"

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{" Warning ", LevelWarning},
		{"warn", LevelWarning},
		{"ERROR", LevelError},
		{"critical", LevelCritical},
		{"fatal", LevelCritical},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if err != nil {
			t.Fatalf("ParseLevel(%q) returned error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	if _, err := ParseLevel("verbose"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestLevelOrderingAndNames(t *testing.T) {
	ordered := []Level{LevelDebug, LevelInfo, LevelWarning, LevelError, LevelCritical}
	names := []string{"DEBUG", "INFO", "WARNING", "ERROR", "CRITICAL"}
	for i, level := range ordered {
		if i > 0 && !(ordered[i-1] < level) {
			t.Fatalf("expected %v < %v", ordered[i-1], level)
		}
		if level.String() != names[i] {
			t.Fatalf("String() = %q, want %q", level.String(), names[i])
		}
	}
	if got := Level(-8).String(); got != "DEBUG" {
		t.Fatalf("levels below DEBUG should render as DEBUG, got %q", got)
	}
}

func TestLevelTextRoundTrip(t *testing.T) {
	var level Level
	if err := level.UnmarshalText([]byte("warning")); err != nil {
		t.Fatalf("UnmarshalText: %v", err)
	}
	text, err := level.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText: %v", err)
	}
	if string(text) != "WARNING" {
		t.Fatalf("unexpected text %q", text)
	}
	if err := level.UnmarshalText([]byte("nope")); err == nil {
		t.Fatal("expected error for unknown level")
	}
}
