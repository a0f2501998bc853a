package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"
)

var (
	instance *slog.Logger
	once     sync.Once
)

// Config 控制日志级别与输出位置
type Config struct {
	Debug bool
	// FilePath 非空时同时写入该文件（追加模式）
	FilePath string
}

// Setup 初始化全局 logger，只有第一次调用生效
func Setup(cfg Config) {
	once.Do(func() {
		ops := &slog.HandlerOptions{
			AddSource: true,
			Level:     slog.LevelInfo,
		}
		if cfg.Debug {
			ops.Level = slog.LevelDebug
		}

		var out io.Writer = os.Stdout
		if cfg.FilePath != "" {
			if f, err := openLogFile(cfg.FilePath); err == nil {
				out = io.MultiWriter(os.Stdout, f)
			}
		}

		instance = slog.New(slog.NewTextHandler(out, ops))
		slog.SetDefault(instance)
	})
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
}

func get() *slog.Logger {
	if instance == nil {
		Setup(Config{})
	}
	return instance
}

// log 记录调用方的 PC，source 指向真正的调用位置而不是本文件
func log(level slog.Level, msg string, args ...any) {
	l := get()
	ctx := context.Background()
	if !l.Enabled(ctx, level) {
		return
	}
	var pcs [1]uintptr
	// 跳过 runtime.Callers、log 和导出的包装函数
	runtime.Callers(3, pcs[:])
	r := slog.NewRecord(time.Now(), level, msg, pcs[0])
	r.Add(args...)
	_ = l.Handler().Handle(ctx, r)
}

func Info(msg string, args ...any)  { log(slog.LevelInfo, msg, args...) }
func Warn(msg string, args ...any)  { log(slog.LevelWarn, msg, args...) }
func Error(msg string, args ...any) { log(slog.LevelError, msg, args...) }
func Debug(msg string, args ...any) { log(slog.LevelDebug, msg, args...) }
