// Package observability configures the process-wide slog logger.
//
// Text and JSON formats write to stderr. The otel format routes records through an
// OpenTelemetry LoggerProvider: exported over OTLP when OTEL_EXPORTER_OTLP_ENDPOINT
// (or OTEL_EXPORTER_OTLP_LOGS_ENDPOINT) is set, printed to stderr otherwise.
package observability

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/contrib/processors/minsev"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// instrumentationName identifies log records emitted through the OpenTelemetry bridge.
const instrumentationName = "github.com/florianilch/authkit"

// Supported log formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatOTel = "otel"
)

// ShutdownFunc flushes and releases logging resources.
type ShutdownFunc func(context.Context) error

// Instrument installs the default slog logger for level and format.
// The returned ShutdownFunc must be called before exit to flush buffered records.
func Instrument(ctx context.Context, level slog.Level, format string) (ShutdownFunc, error) {
	return instrument(ctx, os.Stderr, os.Getenv, level, format)
}

func instrument(ctx context.Context, w io.Writer, getenv func(string) string, level slog.Level, format string) (ShutdownFunc, error) {
	noop := func(context.Context) error { return nil }

	switch format {
	case FormatText, "":
		slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
		return noop, nil
	case FormatJSON:
		slog.SetDefault(slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})))
		return noop, nil
	case FormatOTel:
		return instrumentOTel(ctx, w, getenv, level)
	default:
		return nil, fmt.Errorf("unsupported log format: %q", format)
	}
}

func instrumentOTel(ctx context.Context, w io.Writer, getenv func(string) string, level slog.Level) (ShutdownFunc, error) {
	processor, err := newProcessor(ctx, w, getenv)
	if err != nil {
		return nil, fmt.Errorf("creating log processor: %w", err)
	}

	provider := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(minsev.NewLogProcessor(processor, severityFor(level))),
	)
	global.SetLoggerProvider(provider)

	// Errors inside the OpenTelemetry pipeline cannot be logged through it
	fallback := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelWarn}))
	otel.SetErrorHandler(otel.ErrorHandlerFunc(func(err error) {
		fallback.Warn("opentelemetry error", "error", err)
	}))

	slog.SetDefault(slog.New(otelslog.NewHandler(instrumentationName, otelslog.WithLoggerProvider(provider))))

	return provider.Shutdown, nil
}

// newProcessor picks the exporter from the standard OTEL_EXPORTER_OTLP_* variables.
func newProcessor(ctx context.Context, w io.Writer, getenv func(string) string) (sdklog.Processor, error) {
	if getenv("OTEL_EXPORTER_OTLP_ENDPOINT") == "" && getenv("OTEL_EXPORTER_OTLP_LOGS_ENDPOINT") == "" {
		exporter, err := stdoutlog.New(stdoutlog.WithWriter(w))
		if err != nil {
			return nil, err
		}
		return sdklog.NewSimpleProcessor(exporter), nil
	}

	protocol := getenv("OTEL_EXPORTER_OTLP_LOGS_PROTOCOL")
	if protocol == "" {
		protocol = getenv("OTEL_EXPORTER_OTLP_PROTOCOL")
	}

	switch protocol {
	case "grpc":
		exporter, err := otlploggrpc.New(ctx)
		if err != nil {
			return nil, err
		}
		return sdklog.NewBatchProcessor(exporter), nil
	case "", "http/protobuf":
		exporter, err := otlploghttp.New(ctx)
		if err != nil {
			return nil, err
		}
		return sdklog.NewBatchProcessor(exporter), nil
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol: %q", protocol)
	}
}

// severityFor maps a slog level to the minimum OpenTelemetry severity.
func severityFor(level slog.Level) minsev.Severity {
	switch {
	case level <= slog.LevelDebug:
		return minsev.SeverityDebug
	case level <= slog.LevelInfo:
		return minsev.SeverityInfo
	case level <= slog.LevelWarn:
		return minsev.SeverityWarn
	default:
		return minsev.SeverityError
	}
}
