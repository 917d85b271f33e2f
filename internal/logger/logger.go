package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
	FATAL
)

var (
	levelNames = map[Level]string{
		DEBUG: "DEBUG",
		INFO:  "INFO",
		WARN:  "WARN",
		ERROR: "ERROR",
		FATAL: "FATAL",
	}

	levelColors = map[Level]string{
		DEBUG: "\033[36m",
		INFO:  "\033[32m",
		WARN:  "\033[33m",
		ERROR: "\033[31m",
		FATAL: "\033[35m",
	}

	reset = "\033[0m"
	gray  = "\033[90m"
)

type Logger struct {
	mu        *sync.Mutex
	level     Level
	out       io.Writer
	service   string
	component string
	useColors bool
	showTime  bool
	exit      func(int)
}

// New builds a logger for a binary or package, configured from LOG_LEVEL and LOG_COLORS.
func New(service string) *Logger {
	return &Logger{
		mu:        &sync.Mutex{},
		level:     ParseLevel(os.Getenv("LOG_LEVEL")),
		out:       os.Stdout,
		service:   service,
		useColors: os.Getenv("LOG_COLORS") != "false",
		showTime:  true,
		exit:      os.Exit,
	}
}

// NewWithWriter returns an uncoloured logger without timestamps writing to w.
func NewWithWriter(service string, w io.Writer, level Level) *Logger {
	return &Logger{
		mu:      &sync.Mutex{},
		level:   level,
		out:     w,
		service: service,
		exit:    os.Exit,
	}
}

// Discard drops everything below FATAL.
func Discard() *Logger {
	return NewWithWriter("", io.Discard, FATAL)
}

func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return DEBUG
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	case "FATAL":
		return FATAL
	default:
		return INFO
	}
}

// With returns a child logger tagged with component; it shares level and output.
func (l *Logger) With(component string) *Logger {
	child := *l
	if l.component != "" {
		child.component = l.component + "." + component
	} else {
		child.component = component
	}
	return &child
}

func (l *Logger) Enabled(level Level) bool {
	return level >= l.level
}

func (l *Logger) log(level Level, format string, args ...interface{}) {
	if level < l.level {
		return
	}

	var buf strings.Builder

	if l.showTime {
		buf.WriteString(time.Now().Format("15:04:05"))
		buf.WriteString(" ")
	}

	if l.useColors {
		buf.WriteString(levelColors[level])
	}
	buf.WriteString(fmt.Sprintf("%-5s", levelNames[level]))
	if l.useColors {
		buf.WriteString(reset)
	}
	buf.WriteString(" ")

	if tag := l.tag(); tag != "" {
		if l.useColors {
			buf.WriteString(gray)
		}
		buf.WriteString("[")
		buf.WriteString(tag)
		buf.WriteString("]")
		if l.useColors {
			buf.WriteString(reset)
		}
		buf.WriteString(" ")
	}

	buf.WriteString(fmt.Sprintf(format, args...))

	l.mu.Lock()
	fmt.Fprintln(l.out, buf.String())
	l.mu.Unlock()

	if level == FATAL {
		l.exit(1)
	}
}

func (l *Logger) tag() string {
	switch {
	case l.service != "" && l.component != "":
		return l.service + "/" + l.component
	case l.component != "":
		return l.component
	default:
		return l.service
	}
}

func (l *Logger) Debug(format string, args ...interface{}) {
	l.log(DEBUG, format, args...)
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.log(INFO, format, args...)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	l.log(WARN, format, args...)
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.log(ERROR, format, args...)
}

func (l *Logger) Fatal(format string, args ...interface{}) {
	l.log(FATAL, format, args...)
}

// SetStdLog redirects the standard log package (net/http server errors) to this logger.
func (l *Logger) SetStdLog() {
	log.SetOutput(&stdLogWriter{logger: l, level: INFO})
	log.SetFlags(0)
}

// StdLogger wraps l for APIs that want a *log.Logger, such as http.Server.ErrorLog.
func (l *Logger) StdLogger(level Level) *log.Logger {
	return log.New(&stdLogWriter{logger: l, level: level}, "", 0)
}

type stdLogWriter struct {
	logger *Logger
	level  Level
}

func (w *stdLogWriter) Write(p []byte) (n int, err error) {
	msg := strings.TrimSpace(string(p))
	w.logger.log(w.level, "%s", msg)
	return len(p), nil
}
