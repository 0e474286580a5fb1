package logging

import (
	"fmt"
	"log/slog"
	"strconv"
	"unicode/utf8"
)

// formatFieldValue renders an extra field for the console as a logfmt-style
// value. Strings are quoted only when they would break key=value parsing.
func formatFieldValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "<nil>"
	case []byte:
		if utf8.Valid(t) {
			return quoteIfNeeded(string(t))
		}
		return fmt.Sprintf("%x", t)
	case error:
		return quoteIfNeeded(t.Error())
	}

	val := slog.AnyValue(v).Resolve()
	switch val.Kind() {
	case slog.KindString:
		return quoteIfNeeded(val.String())
	case slog.KindBool:
		return strconv.FormatBool(val.Bool())
	case slog.KindInt64:
		return strconv.FormatInt(val.Int64(), 10)
	case slog.KindUint64:
		return strconv.FormatUint(val.Uint64(), 10)
	case slog.KindFloat64:
		return strconv.FormatFloat(val.Float64(), 'g', -1, 64)
	case slog.KindDuration:
		return val.Duration().String()
	case slog.KindTime:
		return formatTimestamp(val.Time())
	default:
		return quoteIfNeeded(fmt.Sprint(val.Any()))
	}
}

func quoteIfNeeded(s string) string {
	if needsQuotes(s) {
		return strconv.Quote(s)
	}
	return s
}

func needsQuotes(s string) bool {
	if s == "" {
		return true
	}
	for _, r := range s {
		if r <= ' ' || r == '=' || r == '"' || r == utf8.RuneError {
			return true
		}
	}
	return false
}
