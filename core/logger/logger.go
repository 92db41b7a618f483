package logger

import (
	"fmt"
	"io"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case DEBUG:
		return zapcore.DebugLevel
	case WARN:
		return zapcore.WarnLevel
	case ERROR:
		return zapcore.ErrorLevel
	case FATAL:
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

type zapLogger struct {
	mu      sync.RWMutex
	level   zap.AtomicLevel
	writers []io.Writer
	sugar   *zap.SugaredLogger
}

var globalLogger *zapLogger

func init() {
	globalLogger = &zapLogger{
		level:   zap.NewAtomicLevelAt(zapcore.InfoLevel),
		writers: []io.Writer{os.Stdout},
	}
	globalLogger.rebuild()
}

func encoderConfig(color bool) zapcore.EncoderConfig {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("06-01-02 15:04:05")
	cfg.CallerKey = ""
	cfg.NameKey = ""
	cfg.StacktraceKey = ""
	if color {
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	return cfg
}

// rebuild must be called with mu held for writing (or from init).
func (zl *zapLogger) rebuild() {
	cores := make([]zapcore.Core, 0, len(zl.writers))
	for _, w := range zl.writers {
		// Only the terminal gets ANSI colors; files stay plain.
		enc := zapcore.NewConsoleEncoder(encoderConfig(w == io.Writer(os.Stdout)))
		cores = append(cores, zapcore.NewCore(enc, zapcore.AddSync(w), zl.level))
	}
	zl.sugar = zap.New(zapcore.NewTee(cores...)).Sugar()
}

func SetVerbose(verbose bool) {
	if verbose {
		globalLogger.level.SetLevel(zapcore.DebugLevel)
		return
	}
	globalLogger.level.SetLevel(zapcore.InfoLevel)
}

func IsVerbose() bool {
	return globalLogger.level.Enabled(zapcore.DebugLevel)
}

func SetLevel(level LogLevel) {
	globalLogger.level.SetLevel(level.zapLevel())
}

func SetWriterForAll(writer io.Writer) {
	globalLogger.mu.Lock()
	defer globalLogger.mu.Unlock()
	globalLogger.writers = []io.Writer{writer}
	globalLogger.rebuild()
}

func AddWriterForAll(writer io.Writer) {
	globalLogger.mu.Lock()
	defer globalLogger.mu.Unlock()
	globalLogger.writers = append(globalLogger.writers, writer)
	globalLogger.rebuild()
}

// SetLogFile tees every log line into path, appending.
func SetLogFile(path string) (func() error, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	AddWriterForAll(f)
	return f.Close, nil
}

func Sync() {
	globalLogger.mu.RLock()
	defer globalLogger.mu.RUnlock()
	_ = globalLogger.sugar.Sync()
}

func (zl *zapLogger) log(level LogLevel, format string, args ...interface{}) {
	zl.mu.RLock()
	sugar := zl.sugar
	zl.mu.RUnlock()

	switch level {
	case DEBUG:
		sugar.Debugf(format, args...)
	case INFO:
		sugar.Infof(format, args...)
	case WARN:
		sugar.Warnf(format, args...)
	case ERROR:
		sugar.Errorf(format, args...)
	case FATAL:
		sugar.Fatalf(format, args...)
	}
}

func Debug(format string, args ...interface{}) {
	globalLogger.log(DEBUG, format, args...)
}

func Info(format string, args ...interface{}) {
	globalLogger.log(INFO, format, args...)
}

func Warn(format string, args ...interface{}) {
	globalLogger.log(WARN, format, args...)
}

func Error(format string, args ...interface{}) {
	globalLogger.log(ERROR, format, args...)
}

func Fatal(format string, args ...interface{}) {
	globalLogger.log(FATAL, format, args...)
}

func GetLogFromLevel(level LogLevel) func(format string, args ...interface{}) {
	return func(format string, args ...interface{}) {
		globalLogger.log(level, format, args...)
	}
}
