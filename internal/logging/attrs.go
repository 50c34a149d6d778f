package logging

import (
	"log/slog"
)

// Attr aliases slog.Attr so call sites build fields through this package.
type Attr = slog.Attr

func String(key, value string) Attr { return slog.String(key, value) }

func Int(key string, value int) Attr { return slog.Int(key, value) }

func Uint64(key string, value uint64) Attr { return slog.Uint64(key, value) }

func Float64(key string, value float64) Attr { return slog.Float64(key, value) }

// Error renders err under the "error" key. A nil error yields an empty
// attribute, which handlers drop.
func Error(err error) Attr {
	if err == nil {
		return Attr{}
	}
	return slog.String("error", err.Error())
}

// Args converts attributes into the variadic form slog methods accept.
func Args(attrs ...Attr) []any {
	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}
	return args
}

func hasKey(attrs []Attr, key string) bool {
	for _, a := range attrs {
		if a.Key == key {
			return true
		}
	}
	return false
}
