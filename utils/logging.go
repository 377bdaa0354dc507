package utils

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/darkace1998/crash-video-recorder/constants"
)

// CorrelationIDKey is the context key under which HTTP handlers store the request's correlation ID.
type CorrelationIDKey struct{}

var (
	componentLogLevels = make(map[string]slog.Level)
	componentLogMu     sync.RWMutex
	globalLogLevel     = slog.LevelInfo
	globalLogMu        sync.RWMutex
)

// SetGlobalLogLevel sets the level used by components without an override.
func SetGlobalLogLevel(level string) {
	globalLogMu.Lock()
	defer globalLogMu.Unlock()
	globalLogLevel = ParseLogLevel(level)
}

// SetComponentLogLevel sets the log level for a specific component.
func SetComponentLogLevel(component string, level string) {
	componentLogMu.Lock()
	defer componentLogMu.Unlock()
	componentLogLevels[component] = ParseLogLevel(level)
}

// GetComponentLogLevel returns the log level for a specific component.
// If no specific level is set, returns the global log level.
func GetComponentLogLevel(component string) slog.Level {
	componentLogMu.RLock()
	level, ok := componentLogLevels[component]
	componentLogMu.RUnlock()
	if ok {
		return level
	}
	globalLogMu.RLock()
	defer globalLogMu.RUnlock()
	return globalLogLevel
}

// GenerateCorrelationID returns a short request ID: the first 12 hex digits of a UUIDv4.
func GenerateCorrelationID() string {
	id := uuid.NewString()
	return id[:8] + id[9:13]
}

// ContextWithCorrelationID adds a correlation ID to the context
func ContextWithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, CorrelationIDKey{}, correlationID)
}

// CorrelationIDFromContext retrieves the correlation ID from context
func CorrelationIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(CorrelationIDKey{}).(string); ok {
		return id
	}
	return ""
}

// ComponentLogger writes through the default slog logger, tagging records with
// a component name (capture, recorder, recovery, spool, server) and, for
// request-scoped work, a correlation ID. Each component can be given its own
// level through logging.components in the config file.
type ComponentLogger struct {
	component     string
	correlationID string
	attrs         []any
}

// NewComponentLogger creates a new component logger
func NewComponentLogger(component string) *ComponentLogger {
	return &ComponentLogger{
		component: component,
		attrs:     make([]any, 0, 8),
	}
}

// WithCorrelationID adds a correlation ID to the logger
func (l *ComponentLogger) WithCorrelationID(correlationID string) *ComponentLogger {
	return &ComponentLogger{
		component:     l.component,
		correlationID: correlationID,
		attrs:         l.attrs,
	}
}

// WithContext extracts correlation ID from context
func (l *ComponentLogger) WithContext(ctx context.Context) *ComponentLogger {
	return l.WithCorrelationID(CorrelationIDFromContext(ctx))
}

// With adds additional attributes to the logger
func (l *ComponentLogger) With(args ...any) *ComponentLogger {
	newAttrs := make([]any, len(l.attrs)+len(args))
	copy(newAttrs, l.attrs)
	copy(newAttrs[len(l.attrs):], args)
	return &ComponentLogger{
		component:     l.component,
		correlationID: l.correlationID,
		attrs:         newAttrs,
	}
}

func (l *ComponentLogger) buildArgs(args []any) []any {
	baseArgs := make([]any, 0, len(args)+len(l.attrs)+4)
	baseArgs = append(baseArgs, "component", l.component)
	if l.correlationID != "" {
		baseArgs = append(baseArgs, "correlation_id", l.correlationID)
	}
	baseArgs = append(baseArgs, l.attrs...)
	baseArgs = append(baseArgs, args...)
	return baseArgs
}

func (l *ComponentLogger) shouldLog(level slog.Level) bool {
	return level >= GetComponentLogLevel(l.component)
}

func (l *ComponentLogger) log(level slog.Level, msg string, args []any) {
	if !l.shouldLog(level) {
		return
	}
	slog.Default().Log(context.Background(), level, msg, l.buildArgs(args)...)
}

// Debug logs at debug level.
func (l *ComponentLogger) Debug(msg string, args ...any) { l.log(slog.LevelDebug, msg, args) }

// Info logs at info level.
func (l *ComponentLogger) Info(msg string, args ...any) { l.log(slog.LevelInfo, msg, args) }

// Warn logs at warn level.
func (l *ComponentLogger) Warn(msg string, args ...any) { l.log(slog.LevelWarn, msg, args) }

// Error logs at error level.
func (l *ComponentLogger) Error(msg string, args ...any) { l.log(slog.LevelError, msg, args) }

// ParseLogLevel maps a configured level name onto slog. Unknown names mean info.
func ParseLogLevel(level string) slog.Level {
	switch level {
	case constants.LogLevelDebug:
		return slog.LevelDebug
	case constants.LogLevelInfo:
		return slog.LevelInfo
	case constants.LogLevelWarn:
		return slog.LevelWarn
	case constants.LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
