package log

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the structured logger used across drivertrack.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(err error, msg string, keysAndValues ...any)

	// WithName and WithValues derive a child that shares the parent's level.
	WithName(name string) Logger
	WithValues(keysAndValues ...any) Logger

	// Logr bridges to libraries that take a logr sink, such as the mongo driver.
	Logr() logr.Logger

	// SetLevel changes the minimum level of this logger and all its children.
	SetLevel(level string) error

	Sync() error
}

var _ Logger = (*zapLogger)(nil)

type zapLogger struct {
	z     *zap.Logger
	level zap.AtomicLevel
}

// NewLogger builds a Logger writing to opts.OutputPaths. It panics when an
// output path cannot be opened; Options.Validate catches everything else.
func NewLogger(opts *Options) Logger {
	l, err := newZapLogger(opts)
	if err != nil {
		panic(err)
	}
	return l
}

func newZapLogger(opts *Options) (*zapLogger, error) {
	if opts == nil {
		opts = NewOptions()
	}

	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(opts.Level)); err != nil {
		level.SetLevel(zapcore.InfoLevel)
	}

	paths := opts.OutputPaths
	if len(paths) == 0 {
		paths = []string{"stdout"}
	}
	sink, _, err := zap.Open(paths...)
	if err != nil {
		return nil, fmt.Errorf("failed to open log outputs %v: %w", paths, err)
	}
	errSink, _, err := zap.Open("stderr")
	if err != nil {
		return nil, fmt.Errorf("failed to open log error output: %w", err)
	}

	zo := []zap.Option{
		zap.ErrorOutput(errSink),
		zap.AddStacktrace(zapcore.ErrorLevel),
	}
	if !opts.DisableCaller {
		zo = append(zo, zap.AddCaller(), zap.AddCallerSkip(opts.CallerSkip))
	}

	z := zap.New(zapcore.NewCore(newEncoder(opts), sink, level), zo...)
	if opts.Name != "" {
		z = z.Named(opts.Name)
	}

	return &zapLogger{z: z, level: level}, nil
}

// newEncoder picks JSON with epoch-millisecond times for production, and a
// human-readable console layout otherwise. Durations are always milliseconds.
func newEncoder(opts *Options) zapcore.Encoder {
	cfg := zapcore.EncoderConfig{
		MessageKey:     "message",
		LevelKey:       "level",
		TimeKey:        "timestamp",
		NameKey:        "logger",
		CallerKey:      "caller",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeCaller:   zapcore.ShortCallerEncoder,
		EncodeDuration: millisDurationEncoder,
	}

	if opts.Format == FormatJSON {
		cfg.EncodeLevel = zapcore.LowercaseLevelEncoder
		cfg.EncodeTime = zapcore.EpochMillisTimeEncoder
		return zapcore.NewJSONEncoder(cfg)
	}

	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	if opts.EnableColor {
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapcore.NewConsoleEncoder(cfg)
}

func millisDurationEncoder(d time.Duration, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendFloat64(float64(d) / float64(time.Millisecond))
}

func (l *zapLogger) Debug(msg string, keysAndValues ...any) {
	l.z.Debug(msg, toFields(keysAndValues...)...)
}

func (l *zapLogger) Info(msg string, keysAndValues ...any) {
	l.z.Info(msg, toFields(keysAndValues...)...)
}

func (l *zapLogger) Warn(msg string, keysAndValues ...any) {
	l.z.Warn(msg, toFields(keysAndValues...)...)
}

func (l *zapLogger) Error(err error, msg string, keysAndValues ...any) {
	fields := toFields(keysAndValues...)
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	l.z.Error(msg, fields...)
}

func (l *zapLogger) WithName(name string) Logger {
	return &zapLogger{z: l.z.Named(name), level: l.level}
}

func (l *zapLogger) WithValues(keysAndValues ...any) Logger {
	return &zapLogger{z: l.z.With(toFields(keysAndValues...)...), level: l.level}
}

func (l *zapLogger) Logr() logr.Logger { return zapr.NewLogger(l.z) }
func (l *zapLogger) Sync() error       { return l.z.Sync() }

func (l *zapLogger) SetLevel(level string) error {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	l.level.SetLevel(lvl)
	return nil
}

var std atomic.Pointer[zapLogger]

func init() {
	std.Store(&zapLogger{z: zap.NewNop(), level: zap.NewAtomicLevel()})
}

// Init replaces the global logger. The previous one is flushed.
func Init(opts *Options) {
	prev := std.Swap(NewLogger(opts).(*zapLogger))
	_ = prev.Sync()
}

// Std returns the global logger.
func Std() Logger { return std.Load() }

// NewNopLogger returns a logger that discards everything.
func NewNopLogger() Logger {
	return &zapLogger{z: zap.NewNop(), level: zap.NewAtomicLevel()}
}

func Debug(msg string, keysAndValues ...any)            { std.Load().Debug(msg, keysAndValues...) }
func Info(msg string, keysAndValues ...any)             { std.Load().Info(msg, keysAndValues...) }
func Warn(msg string, keysAndValues ...any)             { std.Load().Warn(msg, keysAndValues...) }
func Error(err error, msg string, keysAndValues ...any) { std.Load().Error(err, msg, keysAndValues...) }
func WithName(name string) Logger                       { return std.Load().WithName(name) }
func WithValues(keysAndValues ...any) Logger            { return std.Load().WithValues(keysAndValues...) }
func Logr() logr.Logger                                 { return std.Load().Logr() }
func SetLevel(level string) error                       { return std.Load().SetLevel(level) }
func Sync() error                                       { return std.Load().Sync() }
