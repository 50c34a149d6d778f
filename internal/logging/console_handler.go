package logging

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"
)

// consoleHandler renders one header line per record followed by indented
// fields:
//
//	2026-01-02 15:04:05 INFO [writer] Session 1a2b3c4d · Track 3.1 – track verified
//	    - Writes: 2
//
// At debug level fields keep their raw keys.
type consoleHandler struct {
	mu     *sync.Mutex
	out    io.Writer
	level  slog.Leveler
	source bool
	group  string
	fields []field
}

type field struct {
	key   string
	value slog.Value
}

func newPrettyHandler(w io.Writer, level *slog.LevelVar, source bool) slog.Handler {
	return &consoleHandler{mu: &sync.Mutex{}, out: w, level: level, source: source}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.fields = slices.Clip(h.fields)
	for _, a := range attrs {
		next.fields = appendField(next.fields, h.group, a)
	}
	return &next
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.group = h.group + name + "."
	return &next
}

func (h *consoleHandler) Handle(_ context.Context, r slog.Record) error {
	fields := slices.Clone(h.fields)
	r.Attrs(func(a slog.Attr) bool {
		fields = appendField(fields, h.group, a)
		return true
	})

	var component, session, track string
	rest := fields[:0]
	for _, f := range lastWins(fields) {
		switch f.key {
		case FieldComponent:
			component = plainValue(f.value)
		case FieldSessionID:
			session = plainValue(f.value)
		case FieldTrack:
			track = plainValue(f.value)
		default:
			rest = append(rest, f)
		}
	}

	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	msg := strings.TrimSpace(r.Message)
	if msg == "" {
		msg = "(no message)"
	}

	var buf bytes.Buffer
	buf.WriteString(ts.In(time.Local).Format(consoleTimeLayout))
	buf.WriteString(" " + levelLabel(r.Level))
	if component != "" {
		buf.WriteString(" [" + component + "]")
	}
	if subject := FormatSubject(session, track); subject != "" {
		buf.WriteString(" " + subject)
	}
	buf.WriteString(" – " + msg)
	if h.source {
		if src := r.Source(); src != nil {
			buf.WriteString(" [" + sourceLabel(src) + "]")
		}
	}
	buf.WriteByte('\n')

	for _, f := range rest {
		if r.Level < slog.LevelInfo {
			buf.WriteString("    " + f.key)
		} else {
			buf.WriteString("    - " + fieldLabel(f.key))
		}
		buf.WriteString(": " + fieldValue(f.value) + "\n")
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.out.Write(buf.Bytes())
	return err
}

// FormatSubject builds the "Session xxxxxxxx · Track c.h" subject shown after
// the component. Session ids are cut to eight characters.
func FormatSubject(session, track string) string {
	var parts []string
	if session = strings.TrimSpace(session); session != "" {
		parts = append(parts, "Session "+session[:min(len(session), 8)])
	}
	if track = strings.TrimSpace(track); track != "" {
		parts = append(parts, "Track "+track)
	}
	return strings.Join(parts, " · ")
}

// appendField flattens groups into dotted keys and skips empty attributes.
func appendField(dst []field, prefix string, a slog.Attr) []field {
	if a.Equal(slog.Attr{}) {
		return dst
	}
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		if a.Key != "" {
			prefix += a.Key + "."
		}
		for _, g := range v.Group() {
			dst = appendField(dst, prefix, g)
		}
		return dst
	}
	return append(dst, field{key: prefix + a.Key, value: v})
}

// lastWins keeps the first position of each key with its last value.
func lastWins(fields []field) []field {
	pos := make(map[string]int, len(fields))
	out := make([]field, 0, len(fields))
	for _, f := range fields {
		if i, ok := pos[f.key]; ok {
			out[i].value = f.value
			continue
		}
		pos[f.key] = len(out)
		out = append(out, f)
	}
	return out
}
