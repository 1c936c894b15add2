package scraper

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

type Logger interface {
	Printf(format string, a ...interface{})
}

type BufferedLogger struct {
	mu     sync.Mutex
	buffer bytes.Buffer
}

func (buflog *BufferedLogger) Printf(format string, a ...interface{}) {
	buflog.mu.Lock()
	defer buflog.mu.Unlock()
	fmt.Fprintf(&buflog.buffer, format, a...)
	buflog.buffer.WriteByte('\n')
}

func (buflog *BufferedLogger) String() string {
	buflog.mu.Lock()
	defer buflog.mu.Unlock()
	return buflog.buffer.String()
}

func (buflog *BufferedLogger) Flush(logger Logger) {
	s := buflog.String()
	if s != "" {
		logger.Printf("%v", strings.TrimSuffix(s, "\n"))
	}
}

// SlogLogger forwards Printf lines to a structured logger at the given level.
type SlogLogger struct {
	Logger *slog.Logger
	Level  slog.Level
}

func (logger SlogLogger) Printf(format string, a ...interface{}) {
	l := logger.Logger
	if l == nil {
		l = slog.Default()
	}
	l.Log(context.Background(), logger.Level, strings.TrimRight(fmt.Sprintf(format, a...), "\n"), "component", "browser")
}
