package observability

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const serviceName = "batch-trace"

// LoggerConfig selects level, encoding and the component tag of a logger.
type LoggerConfig struct {
	Level     string
	Format    string // json or console
	Component string // api, batchctl
}

// NewLogger builds a production zap logger. Every entry carries the service
// name and, when set, the component that emitted it.
func NewLogger(cfg LoggerConfig) (*zap.Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	encoding, err := parseFormat(cfg.Format)
	if err != nil {
		return nil, err
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.Encoding = encoding
	zcfg.EncoderConfig.TimeKey = "timestamp"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zcfg.DisableStacktrace = true
	zcfg.OutputPaths = []string{"stderr"}
	zcfg.InitialFields = map[string]any{"service": serviceName}
	if component := strings.TrimSpace(cfg.Component); component != "" {
		zcfg.InitialFields["component"] = component
	}

	logger, err := zcfg.Build(zap.AddCaller())
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}

func parseLevel(level string) (zapcore.Level, error) {
	normalized := strings.ToLower(strings.TrimSpace(level))
	if normalized == "" {
		return zapcore.InfoLevel, nil
	}

	var parsed zapcore.Level
	if err := parsed.UnmarshalText([]byte(normalized)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return parsed, nil
}

func parseFormat(format string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json":
		return "json", nil
	case "console":
		return "console", nil
	}
	return "", fmt.Errorf("invalid log format %q: want json or console", format)
}

type logFieldsKey struct{}

// logFields is what request-scoped code knows about who is acting and for
// which request.
type logFields struct {
	correlationID string
	operator      string
}

func fieldsFrom(ctx context.Context) logFields {
	if ctx == nil {
		return logFields{}
	}
	fields, _ := ctx.Value(logFieldsKey{}).(logFields)
	return fields
}

func withFields(ctx context.Context, update func(*logFields)) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	fields := fieldsFrom(ctx)
	update(&fields)
	return context.WithValue(ctx, logFieldsKey{}, fields)
}

func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return withFields(ctx, func(f *logFields) { f.correlationID = strings.TrimSpace(correlationID) })
}

func CorrelationIDFromContext(ctx context.Context) (string, bool) {
	id := fieldsFrom(ctx).correlationID
	return id, id != ""
}

// WithOperator records the acting operator for log enrichment.
func WithOperator(ctx context.Context, operator string) context.Context {
	return withFields(ctx, func(f *logFields) { f.operator = strings.TrimSpace(operator) })
}

func OperatorFromContext(ctx context.Context) (string, bool) {
	operator := fieldsFrom(ctx).operator
	return operator, operator != ""
}

// WithContextLogger returns logger annotated with the correlation id and
// operator carried by ctx. A nil logger stays nil.
func WithContextLogger(logger *zap.Logger, ctx context.Context) *zap.Logger {
	if logger == nil {
		return nil
	}

	f := fieldsFrom(ctx)
	fields := make([]zap.Field, 0, 2)
	if f.correlationID != "" {
		fields = append(fields, zap.String("correlationId", f.correlationID))
	}
	if f.operator != "" {
		fields = append(fields, zap.String("operator", f.operator))
	}
	if len(fields) == 0 {
		return logger
	}
	return logger.With(fields...)
}
