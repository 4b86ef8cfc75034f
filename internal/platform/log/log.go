// Package applog 进程级日志：zap 负责编码输出，slog 作为调用接口。
// 两者共用一个 zap.AtomicLevel，运行中调用 SetLevel 即可同时生效。
package applog

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
	"sync"

	slogzap "github.com/samber/slog-zap/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config 日志配置
type Config struct {
	Level     string    // debug | info | warn(ing) | error
	Format    string    // text | json
	AddSource bool      // 记录调用位置
	Output    io.Writer // 默认 stdout
}

var (
	level = zap.NewAtomicLevel()

	mu   sync.RWMutex
	base *zap.Logger
)

// Init 按配置重建全局 logger，可重复调用（测试里用来切换输出）
func Init(cfg Config) {
	level.SetLevel(ParseLevel(cfg.Level))

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	opts := []zap.Option{zap.AddStacktrace(zapcore.ErrorLevel)}
	if cfg.AddSource {
		opts = append(opts, zap.AddCaller())
	}
	logger := zap.New(zapcore.NewCore(encoderFor(cfg.Format), zapcore.AddSync(out), level), opts...)

	mu.Lock()
	prev := base
	base = logger
	mu.Unlock()
	if prev != nil {
		_ = prev.Sync()
	}
	zap.ReplaceGlobals(logger)

	slog.SetDefault(slog.New(slogzap.Option{
		Level:     sharedLevel{},
		Logger:    logger,
		AddSource: cfg.AddSource,
	}.NewZapHandler()))

	// 第三方库经由标准 log 包输出的内容写到同一个地方
	log.SetOutput(out)
	log.SetFlags(0)
}

// SetLevel 运行中调整级别
func SetLevel(name string) { level.SetLevel(ParseLevel(name)) }

// CurrentLevel 当前级别名
func CurrentLevel() string { return level.Level().String() }

// ParseLevel 解析级别名，无法识别时为 info
func ParseLevel(name string) zapcore.Level {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "warning" {
		name = "warn"
	}
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(name)); err != nil {
		return zapcore.InfoLevel
	}
	return l
}

// sharedLevel 把 zap 级别映射到 slog：debug=-4 info=0 warn=4 error=8
type sharedLevel struct{}

func (sharedLevel) Level() slog.Level { return slog.Level(int(level.Level()) * 4) }

func encoderFor(format string) zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "time"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	if strings.EqualFold(format, "json") {
		return zapcore.NewJSONEncoder(cfg)
	}
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewConsoleEncoder(cfg)
}

// Sync 刷新缓冲，进程退出前调用
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	if base != nil {
		_ = base.Sync()
	}
}

// Zap 返回底层 zap logger
func Zap() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if base != nil {
		return base
	}
	return zap.L()
}

// With 返回带固定字段的 logger
func With(args ...any) *slog.Logger { return slog.Default().With(args...) }

// Component 返回带 component 字段的 logger
func Component(name string) *slog.Logger { return With("component", name) }

func Debug(msg string, args ...any) { slog.Debug(msg, args...) }
func Info(msg string, args ...any)  { slog.Info(msg, args...) }
func Warn(msg string, args ...any)  { slog.Warn(msg, args...) }
func Error(msg string, args ...any) { slog.Error(msg, args...) }

func Debugf(format string, args ...any) { Debug(fmt.Sprintf(format, args...)) }
func Infof(format string, args ...any)  { Info(fmt.Sprintf(format, args...)) }
func Warnf(format string, args ...any)  { Warn(fmt.Sprintf(format, args...)) }
func Errorf(format string, args ...any) { Error(fmt.Sprintf(format, args...)) }

// Fatalf 记录后刷新缓冲并退出
func Fatalf(format string, args ...any) {
	Error(fmt.Sprintf(format, args...))
	Sync()
	os.Exit(1)
}
