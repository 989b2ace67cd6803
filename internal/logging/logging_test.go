package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   LevelDebug,
		"INFO":    LevelInfo,
		"warning": LevelWarn,
		"error":   LevelError,
		"":        LevelInfo,
		"loud":    LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestJSONOutputCarriesRunID(t *testing.T) {
	var buf bytes.Buffer
	InitLogger(LevelInfo, FormatJSON, &buf)
	defer InitLogger(LevelInfo, FormatText, os.Stderr)

	ctx := WithRunID(context.Background(), "01HRUN")
	InfoContext(ctx, "document processed", "doc_id", "d1")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	if rec["run_id"] != "01HRUN" {
		t.Errorf("run_id = %v", rec["run_id"])
	}
	if rec["doc_id"] != "d1" {
		t.Errorf("doc_id = %v", rec["doc_id"])
	}
}

func TestLevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	InitLogger(LevelInfo, FormatText, &buf)
	defer InitLogger(LevelInfo, FormatText, os.Stderr)

	Debug("hidden")
	Info("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("debug message should be filtered at info level")
	}
	if !strings.Contains(out, "shown") {
		t.Error("info message should be written")
	}
}

func TestNewRunIDUnique(t *testing.T) {
	a, b := NewRunID(), NewRunID()
	if a == b {
		t.Error("run IDs should differ")
	}
	if len(a) != 26 {
		t.Errorf("ULID should have 26 characters, got %d", len(a))
	}
}

func TestOrFallsBack(t *testing.T) {
	if Or(nil) != GetLogger() {
		t.Error("Or(nil) should return the global logger")
	}
}
