package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"
)

// 日志文件超过该大小时轮转
const maxLogSize = 10 * 1024 * 1024

var (
	logFile *os.File
	logPath string
)

// Init 把标准日志同时输出到终端和 path 指向的文件，path 为空时只输出到终端
func Init(path string) error {
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds | log.Lshortfile)
	if path == "" {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	// 文件过大时先轮转
	if info, err := os.Stat(path); err == nil && info.Size() > maxLogSize {
		backupPath := fmt.Sprintf("%s.%d", path, time.Now().Unix())
		if err := os.Rename(path, backupPath); err != nil {
			return fmt.Errorf("failed to rotate log file: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	logFile = f
	logPath = path

	log.SetOutput(io.MultiWriter(os.Stdout, f))
	LogInfo("日志文件: %s", logPath)
	return nil
}

// Close 关闭日志文件，输出恢复到终端
func Close() {
	if logFile != nil {
		log.SetOutput(os.Stdout)
		_ = logFile.Close()
		logFile = nil
	}
}

// LogInfo logs an info message
func LogInfo(format string, args ...any) {
	log.Printf("[INFO] "+format, args...)
}

// LogError logs an error message
func LogError(format string, args ...any) {
	log.Printf("[ERROR] "+format, args...)
}

// LogPanic 记录 panic 及堆栈
func LogPanic(r any) {
	log.Printf("[PANIC] %v\n%s", r, debug.Stack())
}

// GetLogPath 当前日志文件路径
func GetLogPath() string {
	return logPath
}
