package debug

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu      sync.Mutex
	console zapcore.Core = zapcore.NewNopCore()
	file    *os.File
	fileLog zapcore.Core
	logger  = zap.NewNop()
	level   = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

// Init sends log output at or above levelName (debug, info, warn, error)
// to stderr.
func Init(levelName string) error {
	lvl, err := zapcore.ParseLevel(levelName)
	if err != nil {
		return fmt.Errorf("invalid log level: %s", levelName)
	}

	mu.Lock()
	defer mu.Unlock()

	level.SetLevel(lvl)
	enc := zap.NewDevelopmentEncoderConfig()
	enc.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	console = zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.Lock(os.Stderr), level)
	rebuild()
	return nil
}

// Enable tees every log entry, debug included, to path (truncated).
func Enable(path string) error {
	mu.Lock()
	defer mu.Unlock()

	if file != nil {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}

	file = f
	enc := zap.NewProductionEncoderConfig()
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	fileLog = zapcore.NewCore(zapcore.NewJSONEncoder(enc), zapcore.AddSync(f), zapcore.DebugLevel)
	rebuild()

	logger.Debug("=== Debug logging started ===")
	return nil
}

// Disable stops file logging
func Disable() {
	mu.Lock()
	defer mu.Unlock()

	if file != nil {
		_ = logger.Sync()
		file.Close()
		file = nil
	}
	fileLog = nil
	rebuild()
}

// rebuild must be called with mu held
func rebuild() {
	core := console
	if fileLog != nil {
		core = zapcore.NewTee(console, fileLog)
	}
	logger = zap.New(core)
}

// L returns the process logger. It discards everything until Init or Enable.
func L() *zap.Logger {
	mu.Lock()
	defer mu.Unlock()
	return logger
}

// Sync flushes buffered entries
func Sync() {
	_ = L().Sync()
}

// Log writes a debug message tagged with category
func Log(category, format string, args ...any) {
	L().Debug(fmt.Sprintf(format, args...), zap.String("category", category))
}

// LogEvery logs only every N calls (use for high-frequency events)
var counters = make(map[string]int)

func LogEvery(n int, category, format string, args ...any) {
	mu.Lock()
	key := category + format
	counters[key]++
	count := counters[key]
	mu.Unlock()

	if count%n == 0 {
		Log(category, format+" (every %d, count=%d)", append(args, n, count)...)
	}
}
