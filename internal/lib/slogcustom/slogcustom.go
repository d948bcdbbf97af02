package slogcustom

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Форматы вывода логов
const (
	FormatColor = "color"
	FormatText  = "text"
	FormatJSON  = "json"
)

type CustomHandler struct {
	l      *log.Logger
	level  slog.Leveler
	attrs  []slog.Attr
	prefix string
}

func NewCustomHandler(out io.Writer, level slog.Leveler) *CustomHandler {
	return &CustomHandler{
		l:     log.New(out, "", 0),
		level: level,
	}
}

// New создает логгер. Цветной вывод используется только для терминала,
// в остальных случаях формат "color" заменяется на "text".
func New(out io.Writer, format string, level slog.Leveler) *slog.Logger {
	if format == "" || format == FormatColor {
		format = FormatText
		if f, ok := out.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
			format = FormatColor
		}
	}

	var h slog.Handler
	switch format {
	case FormatColor:
		h = NewCustomHandler(out, level)
	case FormatJSON:
		h = slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})
	default:
		h = slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})
	}

	return slog.New(h)
}

// ParseLevel переводит строку (debug, info, warn, error) в уровень логирования.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}

func (c *CustomHandler) Handle(_ context.Context, r slog.Record) error {
	level := r.Level.String() + ":"

	switch r.Level {
	case slog.LevelDebug:
		level = color.MagentaString(level)
	case slog.LevelInfo:
		level = color.HiBlueString(level)
	case slog.LevelWarn:
		level = color.YellowString(level)
	case slog.LevelError:
		level = color.RedString(level)
	}

	var b strings.Builder
	for _, a := range c.attrs {
		writeAttr(&b, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&b, c.prefix, a)
		return true
	})

	c.l.Println(
		r.Time.Format("15:04:05.000"),
		level,
		r.Message,
		strings.TrimSuffix(b.String(), " "),
	)
	return nil
}

func (c *CustomHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return c
	}

	h := *c
	h.attrs = make([]slog.Attr, 0, len(c.attrs)+len(attrs))
	h.attrs = append(h.attrs, c.attrs...)
	for _, a := range attrs {
		a.Key = c.prefix + a.Key
		h.attrs = append(h.attrs, a)
	}
	return &h
}

func (c *CustomHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return c
	}

	h := *c
	h.prefix = c.prefix + name + "."
	return &h
}

func (c *CustomHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= c.level.Level()
}

func writeAttr(b *strings.Builder, prefix string, a slog.Attr) {
	if a.Equal(slog.Attr{}) {
		return
	}

	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			writeAttr(b, prefix+a.Key+".", ga)
		}
		return
	}

	b.WriteString(color.GreenString(prefix + a.Key))
	b.WriteString("=")
	b.WriteString(fmt.Sprint(a.Value.Resolve().Any()))
	b.WriteString(" ")
}
