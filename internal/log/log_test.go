package log

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := new(bytes.Buffer)
	original := Logger()
	ReplaceLogger(slog.New(newHandler(buf)))
	t.Cleanup(func() {
		ReplaceLogger(original)
		_ = SetLevel("info")
	})
	return buf
}

func TestInfoProducesLogfmtWithTimestamp(t *testing.T) {
	buf := captureLogs(t)

	Info(context.Background(), "hello", "user", "test")

	line := strings.TrimSpace(buf.String())
	for _, want := range []string{"ts=", "level=info", "msg=hello", "user=test"} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in log line, got %q", want, line)
		}
	}
}

func TestWithAttrsAppendsContextFields(t *testing.T) {
	buf := captureLogs(t)

	ctx := WithAttrs(context.Background(), "request_id", "abc")
	ctx = WithAttrs(ctx, "identity", "u-1")
	Warn(ctx, "careful")

	line := strings.TrimSpace(buf.String())
	for _, want := range []string{"level=warn", "msg=careful", "request_id=abc", "identity=u-1"} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in log line, got %q", want, line)
		}
	}
}

func TestSetLevelFiltersLowerLevels(t *testing.T) {
	buf := captureLogs(t)

	if err := SetLevel("WARN"); err != nil {
		t.Fatalf("SetLevel returned error: %v", err)
	}
	Info(nil, "hidden")
	Error(nil, "shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info line should be filtered at warn level: %q", out)
	}
	if !strings.Contains(out, "msg=shown") {
		t.Fatalf("expected error line, got %q", out)
	}

	if err := SetLevel("verbose"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}
