// Package logger is the daemon-wide leveled logger. Output is line-oriented
// text with a timestamp and level prefix; structured variants append
// key=value pairs so operator-facing events (parse failures, connection
// lifecycle) stay grep-able.
package logger

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"strings"
	"sync"
	"time"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var (
	mu           sync.Mutex
	currentLevel = LevelInfo
	logger       = stdlog.New(os.Stdout, "", 0)
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// SetLevel selects the minimum level that gets emitted. Unknown names leave
// the level unchanged.
func SetLevel(level string) {
	mu.Lock()
	defer mu.Unlock()
	switch strings.ToUpper(level) {
	case "DEBUG":
		currentLevel = LevelDebug
	case "INFO":
		currentLevel = LevelInfo
	case "WARN":
		currentLevel = LevelWarn
	case "ERROR":
		currentLevel = LevelError
	}
}

// SetOutput redirects log output. Tests use this to capture entries.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logger = stdlog.New(w, "", 0)
}

func log(level Level, format string, v ...any) {
	mu.Lock()
	defer mu.Unlock()
	if level < currentLevel {
		return
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	prefix := fmt.Sprintf("[%s] [%s] ", timestamp, level.String())
	message := fmt.Sprintf(format, v...)
	logger.Println(prefix + message)
}

// logKV emits a message followed by key=value pairs. Values render with %v;
// string values that contain spaces are quoted.
func logKV(level Level, message string, kv ...any) {
	var b strings.Builder
	b.WriteString(message)
	for i := 0; i+1 < len(kv); i += 2 {
		b.WriteByte(' ')
		fmt.Fprintf(&b, "%v=", kv[i])
		if s, ok := kv[i+1].(string); ok && strings.ContainsRune(s, ' ') {
			fmt.Fprintf(&b, "%q", s)
		} else {
			fmt.Fprintf(&b, "%v", kv[i+1])
		}
	}
	log(level, "%s", b.String())
}

func Debug(format string, v ...any) {
	log(LevelDebug, format, v...)
}

func Info(format string, v ...any) {
	log(LevelInfo, format, v...)
}

func Warn(format string, v ...any) {
	log(LevelWarn, format, v...)
}

func Error(format string, v ...any) {
	log(LevelError, format, v...)
}

// DebugKV, InfoKV, WarnKV and ErrorKV emit a message with structured
// key=value context.

func DebugKV(message string, kv ...any) {
	logKV(LevelDebug, message, kv...)
}

func InfoKV(message string, kv ...any) {
	logKV(LevelInfo, message, kv...)
}

func WarnKV(message string, kv ...any) {
	logKV(LevelWarn, message, kv...)
}

func ErrorKV(message string, kv ...any) {
	logKV(LevelError, message, kv...)
}
