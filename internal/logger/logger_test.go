package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/jwebster45206/wired-engine/internal/config"
)

func TestSetupTo_ProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log := SetupTo(&buf, &config.Config{Environment: "production", LogLevel: slog.LevelInfo})
	WithSession(log, "abc").Info("Scene changed", "scene_id", "SCENE_00_ENTRY")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("Expected JSON output, got %q: %v", buf.String(), err)
	}
	if rec["world_id"] != "abc" || rec["scene_id"] != "SCENE_00_ENTRY" {
		t.Errorf("Missing attributes in %v", rec)
	}
}

func TestSetupTo_DevelopmentRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := SetupTo(&buf, &config.Config{Environment: "development", LogLevel: slog.LevelWarn})
	log.Info("hidden")
	WithError(log, errors.New("boom")).Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("Info record should be filtered at warn level")
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "error=boom") {
		t.Errorf("Unexpected output %q", out)
	}
}

func TestSetupTo_SourceOnlyAtDebug(t *testing.T) {
	tests := []struct {
		level      slog.Level
		wantSource bool
	}{
		{slog.LevelDebug, true},
		{slog.LevelInfo, false},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		log := SetupTo(&buf, &config.Config{Environment: "development", LogLevel: tt.level})
		log.Warn("Clock unreadable")
		if got := strings.Contains(buf.String(), "source="); got != tt.wantSource {
			t.Errorf("level %s: source present = %v, want %v (%q)", tt.level, got, tt.wantSource, buf.String())
		}
	}
}
