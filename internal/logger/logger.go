// Package logger writes dispresence's log file.
//
// Every record is one line:
//
//	2006-01-02T15:04:05.000Z [LEVEL] message | key=value, key2=value2
//
// The editor logs only to the file because the terminal belongs to the UI.
// `dispresence run` also echoes each line to stderr. Besides the slog levels
// there is TRACE, used for the per-send payload dump, and FAIL, used when
// the runner gives up before broadcasting.
package logger

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// ///////////////////////////////////////////////
// Levels
// ///////////////////////////////////////////////

const (
	LevelTrace slog.Level = -8
	LevelDebug            = slog.LevelDebug
	LevelInfo             = slog.LevelInfo
	LevelWarn             = slog.LevelWarn
	LevelError            = slog.LevelError
	LevelFail  slog.Level = 12
)

// levels is ordered by severity. A record is labelled with the first entry
// whose level is at least its own.
var levels = []struct {
	name  string
	level slog.Level
}{
	{"trace", LevelTrace},
	{"debug", LevelDebug},
	{"info", LevelInfo},
	{"warn", LevelWarn},
	{"error", LevelError},
	{"fail", LevelFail},
}

func levelName(l slog.Level) string {
	for _, lv := range levels {
		if l <= lv.level {
			return strings.ToUpper(lv.name)
		}
	}
	return "FAIL"
}

// LookupLevel resolves a settings level name, ignoring case.
func LookupLevel(name string) (slog.Level, bool) {
	for _, lv := range levels {
		if strings.EqualFold(name, lv.name) {
			return lv.level, true
		}
	}
	return 0, false
}

// LevelNames lists the accepted level names, least severe first.
func LevelNames() []string {
	names := make([]string, len(levels))
	for i, lv := range levels {
		names[i] = lv.name
	}
	return names
}

// ParseLevel is [LookupLevel] with unknown names mapped to info. Settings
// are validated before logging starts, so the fallback only covers a
// hand-built config.
func ParseLevel(name string) slog.Level {
	if l, ok := LookupLevel(name); ok {
		return l
	}
	return LevelInfo
}

// ///////////////////////////////////////////////
// Handler
// ///////////////////////////////////////////////

// lineEnding keeps the log readable in Notepad.
var lineEnding = "\n"

func init() {
	if runtime.GOOS == "windows" {
		lineEnding = "\r\n"
	}
}

// Handler is the slog.Handler behind the log file. Handlers derived with
// WithAttrs and WithGroup share the parent's writer lock.
type Handler struct {
	w     io.Writer
	mu    *sync.Mutex
	level slog.Level
	// prefix is the group path applied to record attributes, "a.b." style.
	prefix string
	// preset holds WithAttrs output, already rendered as key=value.
	preset []string
}

// NewHandler returns a Handler writing records at or above level to w.
func NewHandler(w io.Writer, level slog.Level) *Handler {
	return &Handler{w: w, mu: &sync.Mutex{}, level: level}
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	fields := append([]string(nil), h.preset...)
	r.Attrs(func(a slog.Attr) bool {
		fields = appendAttr(fields, h.prefix, a)
		return true
	})

	var b strings.Builder
	b.WriteString(r.Time.UTC().Format("2006-01-02T15:04:05.000Z"))
	b.WriteString(" [")
	b.WriteString(levelName(r.Level))
	b.WriteString("] ")
	b.WriteString(r.Message)
	if len(fields) > 0 {
		b.WriteString(" | ")
		b.WriteString(strings.Join(fields, ", "))
	}
	b.WriteString(lineEnding)

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

// appendAttr renders a as key=value under prefix. Group values are
// flattened into dotted keys and empty attributes are dropped.
func appendAttr(fields []string, prefix string, a slog.Attr) []string {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return fields
	}
	if a.Value.Kind() == slog.KindGroup {
		inner := prefix
		if a.Key != "" {
			inner += a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			fields = appendAttr(fields, inner, ga)
		}
		return fields
	}
	return append(fields, prefix+a.Key+"="+a.Value.String())
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	preset := append([]string(nil), h.preset...)
	for _, a := range attrs {
		preset = appendAttr(preset, h.prefix, a)
	}
	return &Handler{w: h.w, mu: h.mu, level: h.level, prefix: h.prefix, preset: preset}
}

// WithGroup nests the keys of later attributes under name. Attributes added
// before the group keep their keys.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &Handler{w: h.w, mu: h.mu, level: h.level, prefix: h.prefix + name + ".", preset: h.preset}
}

// ///////////////////////////////////////////////
// File Logger
// ///////////////////////////////////////////////

// defaultBackups is how many rotated files are kept when Options leaves
// MaxBackups at zero.
const defaultBackups = 3

// Options configures [NewLogger].
type Options struct {
	// Path is the log file, normally <data-dir>/dispresence.log.
	Path  string
	Level slog.Level
	// MaxSizeMB rotates the file once it grows past this size.
	MaxSizeMB  int
	MaxBackups int
	// Console receives a copy of every line. Nil for the editor.
	Console io.Writer
}

// NewLogger opens the rotating log file. Close the returned io.Closer on
// exit so the last lines reach disk.
func NewLogger(opts Options) (*slog.Logger, io.Closer, error) {
	if opts.Path == "" {
		return nil, nil, errors.New("log path is required")
	}
	if opts.MaxBackups <= 0 {
		opts.MaxBackups = defaultBackups
	}
	file := &lumberjack.Logger{
		Filename:   opts.Path,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     28,
	}

	var w io.Writer = file
	if opts.Console != nil {
		w = io.MultiWriter(file, opts.Console)
	}
	return slog.New(NewHandler(w, opts.Level)), file, nil
}

// Trace logs msg at [LevelTrace].
func Trace(logger *slog.Logger, msg string, args ...any) {
	logger.Log(context.Background(), LevelTrace, msg, args...)
}

// Fail logs msg at [LevelFail].
func Fail(logger *slog.Logger, msg string, args ...any) {
	logger.Log(context.Background(), LevelFail, msg, args...)
}

// ///////////////////////////////////////////////
// ReadTail
// ///////////////////////////////////////////////

// maxLineBytes bounds a single log line read back by [ReadTail]. Records
// carry at most a few presence strings, far below this.
const maxLineBytes = 1 << 20

// ReadTail returns the last n lines of the file at path, oldest first and
// joined with "\n". A missing file yields an error matching os.ErrNotExist.
func ReadTail(path string, n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("line count must be positive, got %d", n)
	}
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	tail := make([]string, 0, n)
	for scanner.Scan() {
		if len(tail) == n {
			copy(tail, tail[1:])
			tail = tail[:n-1]
		}
		tail = append(tail, strings.TrimRight(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("read log file: %w", err)
	}
	return strings.Join(tail, "\n"), nil
}
