package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
)

// consoleHandler writes one line per record:
//
//	<time> <LEVEL> <run> <stage|component>: <message> (<accession> <artifact>) key=value ...
//
// The run ID is shortened to its first eight characters. event_type is only
// printed for warnings and errors.
type consoleHandler struct {
	out       *lockedWriter
	level     slog.Leveler
	addSource bool
	fields    []field
	group     string
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) write(p []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, err := l.w.Write(p)
	return err
}

type field struct {
	key   string
	value slog.Value
}

const shortRunIDLen = 8

func newConsoleHandler(w io.Writer, level slog.Leveler, addSource bool) *consoleHandler {
	return &consoleHandler{out: &lockedWriter{w: w}, level: level, addSource: addSource}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.fields = slices.Clone(h.fields)
	for _, a := range attrs {
		clone.fields = appendField(clone.fields, h.group, a)
	}
	return &clone
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.group = h.group + name + "."
	return &clone
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	fields := slices.Clone(h.fields)
	record.Attrs(func(a slog.Attr) bool {
		fields = appendField(fields, h.group, a)
		return true
	})

	var runID, stage, component, eventType string
	var subject []string
	rest := fields[:0]
	for _, f := range fields {
		switch f.key {
		case FieldRunID:
			runID = plainValue(f.value)
		case FieldStage:
			stage = plainValue(f.value)
		case FieldComponent:
			component = plainValue(f.value)
		case FieldEventType:
			eventType = plainValue(f.value)
		case FieldAccession, FieldArtifact:
			subject = append(subject, plainValue(f.value))
		default:
			rest = append(rest, f)
		}
	}

	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	var b strings.Builder
	b.WriteString(ts.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, " %-5s", levelLabel(record.Level))
	if runID != "" {
		b.WriteByte(' ')
		b.WriteString(shortRunID(runID))
	}
	scope := stage
	if scope == "" {
		scope = component
	}
	b.WriteByte(' ')
	if scope != "" {
		b.WriteString(scope)
		b.WriteString(": ")
	}
	if msg := strings.TrimSpace(record.Message); msg != "" {
		b.WriteString(msg)
	} else {
		b.WriteString("(no message)")
	}
	if len(subject) > 0 {
		b.WriteString(" (")
		b.WriteString(strings.Join(subject, " "))
		b.WriteByte(')')
	}
	if h.addSource && record.PC != 0 {
		if src := record.Source(); src != nil && src.File != "" {
			fmt.Fprintf(&b, " [%s:%d]", filepath.Base(src.File), src.Line)
		}
	}
	if eventType != "" && record.Level >= slog.LevelWarn {
		rest = append(rest, field{key: FieldEventType, value: slog.StringValue(eventType)})
	}
	for _, f := range rest {
		b.WriteByte(' ')
		b.WriteString(f.key)
		b.WriteByte('=')
		b.WriteString(formatValue(f.value))
	}
	b.WriteByte('\n')

	return h.out.write([]byte(b.String()))
}

func appendField(dst []field, group string, a slog.Attr) []field {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return dst
	}
	if a.Value.Kind() == slog.KindGroup {
		prefix := group
		if a.Key != "" {
			prefix += a.Key + "."
		}
		for _, member := range a.Value.Group() {
			dst = appendField(dst, prefix, member)
		}
		return dst
	}
	return append(dst, field{key: group + a.Key, value: a.Value})
}

func shortRunID(id string) string {
	if len(id) > shortRunIDLen {
		return id[:shortRunIDLen]
	}
	return id
}

// plainValue renders v without quoting, for promoted fields.
func plainValue(v slog.Value) string {
	if v.Kind() == slog.KindString {
		return v.String()
	}
	return formatValue(v)
}

func formatValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		return quoteIfNeeded(v.String())
	case slog.KindDuration:
		return v.Duration().Round(time.Millisecond).String()
	case slog.KindTime:
		return v.Time().UTC().Format(time.RFC3339)
	case slog.KindAny:
		switch x := v.Any().(type) {
		case error:
			return quoteIfNeeded(x.Error())
		case []string:
			items := make([]string, len(x))
			for i, s := range x {
				items[i] = quoteIfNeeded(s)
			}
			return "[" + strings.Join(items, ",") + "]"
		default:
			return quoteIfNeeded(fmt.Sprint(x))
		}
	default:
		return v.String()
	}
}

func quoteIfNeeded(s string) string {
	if s == "" || strings.ContainsFunc(s, func(r rune) bool { return r <= ' ' || r == '=' || r == '"' }) {
		return strconv.Quote(s)
	}
	return s
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}
