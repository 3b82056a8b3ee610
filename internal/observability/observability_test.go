package observability

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"go.opentelemetry.io/contrib/processors/minsev"
)

func TestInstrumentFormats(t *testing.T) {
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	tests := []struct {
		format string
		want   string
	}{
		{format: FormatText, want: "msg=hello"},
		{format: FormatJSON, want: `"msg":"hello"`},
		{format: FormatOTel, want: "hello"},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			noOTLP := func(string) string { return "" }

			shutdown, err := instrument(context.Background(), &buf, noOTLP, slog.LevelInfo, tt.format)
			if err != nil {
				t.Fatalf("instrument() error = %v", err)
			}

			slog.Debug("hidden")
			slog.Info("hello")
			if err := shutdown(context.Background()); err != nil {
				t.Fatalf("shutdown() error = %v", err)
			}

			out := buf.String()
			if !strings.Contains(out, tt.want) {
				t.Errorf("output %q does not contain %q", out, tt.want)
			}
			if strings.Contains(out, "hidden") {
				t.Errorf("output %q contains a record below the configured level", out)
			}
		})
	}
}

func TestInstrumentRejectsUnknownFormat(t *testing.T) {
	if _, err := instrument(context.Background(), &bytes.Buffer{}, func(string) string { return "" }, slog.LevelInfo, "xml"); err == nil {
		t.Error("instrument() error = nil, want error")
	}
}

func TestSeverityFor(t *testing.T) {
	tests := []struct {
		level slog.Level
		want  minsev.Severity
	}{
		{level: slog.LevelDebug, want: minsev.SeverityDebug},
		{level: slog.LevelInfo, want: minsev.SeverityInfo},
		{level: slog.LevelWarn, want: minsev.SeverityWarn},
		{level: slog.LevelError, want: minsev.SeverityError},
	}

	for _, tt := range tests {
		if got := severityFor(tt.level); got != tt.want {
			t.Errorf("severityFor(%v) = %v, want %v", tt.level, got, tt.want)
		}
	}
}
