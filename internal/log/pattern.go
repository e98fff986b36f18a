package log

import (
	"context"
	"io"
	"log/slog"
	"runtime"
	"sync"

	"github.com/sirupsen/logrus"
)

// patternHandler is a slog.Handler that renders records with the logrus
// pattern formatter.
type patternHandler struct {
	out    *patternOutput
	level  slog.Leveler
	attrs  logrus.Fields
	prefix string // group prefix, "" or "a.b."
}

// patternOutput is shared by all handlers derived through WithAttrs/WithGroup.
type patternOutput struct {
	mu     sync.Mutex
	logger *logrus.Logger
}

func newPatternHandler(w io.Writer, level slog.Level, pattern, timeFormat string) *patternHandler {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&formatter{pattern: pattern, time: timeFormat})
	l.SetLevel(logrus.TraceLevel) // filtering happens in Enabled
	l.SetReportCaller(true)

	return &patternHandler{
		out:   &patternOutput{logger: l},
		level: level,
		attrs: logrus.Fields{},
	}
}

func (h *patternHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *patternHandler) Handle(_ context.Context, r slog.Record) error {
	data := make(logrus.Fields, len(h.attrs)+r.NumAttrs())
	for k, v := range h.attrs {
		data[k] = v
	}
	r.Attrs(func(a slog.Attr) bool {
		addAttr(data, h.prefix, a)
		return true
	})

	entry := &logrus.Entry{
		Logger:  h.out.logger,
		Data:    data,
		Time:    r.Time,
		Level:   toLogrusLevel(r.Level),
		Message: r.Message,
	}
	if r.PC != 0 {
		frame, _ := runtime.CallersFrames([]uintptr{r.PC}).Next()
		entry.Caller = &frame
	}

	b, err := h.out.logger.Formatter.Format(entry)
	if err != nil {
		return err
	}

	h.out.mu.Lock()
	defer h.out.mu.Unlock()
	_, err = h.out.logger.Out.Write(b)
	return err
}

func (h *patternHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h2 := h.clone()
	for _, a := range attrs {
		addAttr(h2.attrs, h2.prefix, a)
	}
	return h2
}

func (h *patternHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := h.clone()
	h2.prefix += name + "."
	return h2
}

func (h *patternHandler) clone() *patternHandler {
	attrs := make(logrus.Fields, len(h.attrs))
	for k, v := range h.attrs {
		attrs[k] = v
	}
	return &patternHandler{out: h.out, level: h.level, attrs: attrs, prefix: h.prefix}
}

// addAttr flattens a into data, joining group names with dots.
func addAttr(data logrus.Fields, prefix string, a slog.Attr) {
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		if a.Key != "" {
			prefix += a.Key + "."
		}
		for _, ga := range v.Group() {
			addAttr(data, prefix, ga)
		}
		return
	}
	if a.Key == "" {
		return
	}
	data[prefix+a.Key] = v.Any()
}

func toLogrusLevel(l slog.Level) logrus.Level {
	switch {
	case l >= slog.LevelError:
		return logrus.ErrorLevel
	case l >= slog.LevelWarn:
		return logrus.WarnLevel
	case l >= slog.LevelInfo:
		return logrus.InfoLevel
	default:
		return logrus.DebugLevel
	}
}
