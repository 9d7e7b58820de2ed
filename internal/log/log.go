package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"time"
)

var (
	currentLevel atomic.Value // stores slog.Level
	output       atomic.Value // stores io.Writer
)

// LevelTrace sits below debug and carries wire-level detail such as
// upstream payloads and camera events.
const LevelTrace = slog.Level(-8)

var levelNames = map[slog.Level]string{
	slog.LevelError: "error",
	slog.LevelWarn:  "warn",
	slog.LevelInfo:  "info",
	slog.LevelDebug: "debug",
	LevelTrace:      "trace",
}

func init() {
	level, err := parseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		level = slog.LevelInfo
	}

	currentLevel.Store(level)
	output.Store(io.Writer(os.Stderr))
	updateHandler()
}

func parseLevel(s string) (slog.Level, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	switch name {
	case "":
		return slog.LevelInfo, nil
	case "warning":
		return slog.LevelWarn, nil
	}
	for level, n := range levelNames {
		if n == name {
			return level, nil
		}
	}
	return 0, fmt.Errorf("invalid log level: %s", s)
}

// updateHandler rebuilds the default logger from the current level,
// output and LOG_FORMAT.
func updateHandler() {
	jsonFormat := strings.EqualFold(os.Getenv("LOG_FORMAT"), "json")
	opts := &slog.HandlerOptions{
		Level: currentLevel.Load().(slog.Level),
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			switch a.Key {
			case slog.TimeKey:
				if jsonFormat {
					return slog.String("timestamp", a.Value.Time().UTC().Format(time.RFC3339Nano))
				}
				return slog.String(slog.TimeKey, a.Value.Time().Format("2006-01-02 15:04:05.000-07:00"))
			case slog.LevelKey:
				if a.Value.Any().(slog.Level) == LevelTrace {
					return slog.String(slog.LevelKey, "TRACE")
				}
			}
			return a
		},
	}

	w := output.Load().(io.Writer)
	if jsonFormat {
		slog.SetDefault(slog.New(slog.NewJSONHandler(w, opts)))
		return
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, opts)))
}

// SetOutput redirects log output.
func SetOutput(w io.Writer) {
	output.Store(w)
	updateHandler()
}

// SetLogLevel atomically updates the log level at runtime
func SetLogLevel(level string) error {
	newLevel, err := parseLevel(level)
	if err != nil {
		return err
	}

	currentLevel.Store(newLevel)
	updateHandler()

	LogInfoWithFields("logging", "Log level changed", map[string]any{
		"new_level": levelNames[newLevel],
	})
	return nil
}

// GetLogLevel returns the current log level as a string
func GetLogLevel() string {
	if name, ok := levelNames[currentLevel.Load().(slog.Level)]; ok {
		return name
	}
	return "unknown"
}

func Logf(format string, args ...any) {
	slog.Default().Info(fmt.Sprintf(format, args...))
}

func LogError(format string, args ...any) {
	slog.Default().Error(fmt.Sprintf(format, args...))
}

func LogWarn(format string, args ...any) {
	slog.Default().Warn(fmt.Sprintf(format, args...))
}

func logWithFields(level slog.Level, component, message string, fields map[string]any) {
	logger := slog.Default()
	if !logger.Enabled(context.Background(), level) {
		return
	}
	args := make([]any, 0, len(fields)*2+2)
	args = append(args, "component", component)
	for k, v := range fields {
		args = append(args, k, v)
	}
	logger.Log(context.Background(), level, message, args...)
}

func LogInfoWithFields(component, message string, fields map[string]any) {
	logWithFields(slog.LevelInfo, component, message, fields)
}

func LogDebugWithFields(component, message string, fields map[string]any) {
	logWithFields(slog.LevelDebug, component, message, fields)
}

func LogErrorWithFields(component, message string, fields map[string]any) {
	logWithFields(slog.LevelError, component, message, fields)
}

func LogWarnWithFields(component, message string, fields map[string]any) {
	logWithFields(slog.LevelWarn, component, message, fields)
}

func LogTraceWithFields(component, message string, fields map[string]any) {
	logWithFields(LevelTrace, component, message, fields)
}
