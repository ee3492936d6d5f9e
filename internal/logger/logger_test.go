package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/safin-krmavi/Bulltrek/internal/config"
)

func TestNewWritesServiceField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	log, err := New(config.LogConfig{Level: "debug", Encoding: "json", OutputPaths: []string{path}}, "bulltrekd")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	log.Debug("hello")
	_ = log.Sync()

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(b))), &entry); err != nil {
		t.Fatalf("decode %q: %v", b, err)
	}
	if entry["service"] != "bulltrekd" || entry["msg"] != "hello" {
		t.Fatalf("entry=%v", entry)
	}
}

func TestNewLevelFallback(t *testing.T) {
	log, err := New(config.LogConfig{Level: "loud", OutputPaths: []string{" "}}, "")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if log.Core().Enabled(-1) {
		t.Fatalf("debug should be disabled at the info fallback")
	}
	if got := outputPaths(nil); len(got) != 1 || got[0] != "stdout" {
		t.Fatalf("outputs=%v", got)
	}
}
