package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNew_Text(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, false, "text")

	logger.Debug("hidden")
	logger.Info("vote recorded", "record_id", "abc")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("debug line logged without verbose")
	}
	if !strings.Contains(out, "record_id=abc") {
		t.Errorf("unexpected text output: %s", out)
	}
}

func TestNew_JSONVerbose(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, true, "JSON")

	logger.Debug("rechecked", "status", "disputed")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected a JSON line, got %q: %v", buf.String(), err)
	}
	if line["level"] != "DEBUG" || line["status"] != "disputed" {
		t.Errorf("unexpected fields: %v", line)
	}
}

func TestDiscard(t *testing.T) {
	Discard().Error("nothing to see")
}
