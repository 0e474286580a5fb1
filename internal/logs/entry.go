package logs

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/valyala/fastjson"

	"pyproj/internal/logging"
)

// ErrNotJSON is returned by ParseEntry for lines that are not JSON objects.
var ErrNotJSON = errors.New("log line is not a JSON object")

// Entry is one decoded line of the JSON file sink.
type Entry struct {
	Time      time.Time
	Level     string
	Logger    string
	Message   string
	PID       int
	TID       int
	SessionID string
	Fields    map[string]string
	Exception *Exception
	Raw       string
}

// Exception is the decoded exception group of an entry.
type Exception struct {
	Type    string
	Message string
	Stack   []string
}

// FieldKeys returns the extra field names in sorted order.
func (e Entry) FieldKeys() []string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Severity maps the entry level back to a logging.Level. Unknown names sort
// with INFO.
func (e Entry) Severity() logging.Level {
	level, err := logging.ParseLevel(e.Level)
	if err != nil {
		return logging.LevelInfo
	}
	return level
}

var parserPool fastjson.ParserPool

// ParseEntry decodes an NDJSON line. Fields other than the reserved ones are
// kept as their JSON text, with strings unquoted.
func ParseEntry(line string) (Entry, error) {
	entry := Entry{Raw: line}

	p := parserPool.Get()
	defer parserPool.Put(p)

	v, err := p.Parse(line)
	if err != nil {
		return entry, ErrNotJSON
	}
	obj, err := v.Object()
	if err != nil {
		return entry, ErrNotJSON
	}

	obj.Visit(func(key []byte, val *fastjson.Value) {
		switch k := string(key); k {
		case logging.FieldTimestamp:
			if ts, err := time.Parse(time.RFC3339Nano, string(val.GetStringBytes())); err == nil {
				entry.Time = ts
			}
		case logging.FieldLevel:
			entry.Level = string(val.GetStringBytes())
		case logging.FieldLogger:
			entry.Logger = string(val.GetStringBytes())
		case logging.FieldMessage:
			entry.Message = string(val.GetStringBytes())
		case logging.FieldPID:
			entry.PID = val.GetInt()
		case logging.FieldTID:
			entry.TID = val.GetInt()
		case logging.FieldSessionID:
			entry.SessionID = string(val.GetStringBytes())
		case logging.FieldException:
			entry.Exception = parseException(val)
		default:
			if entry.Fields == nil {
				entry.Fields = make(map[string]string)
			}
			entry.Fields[k] = valueText(val)
		}
	})
	return entry, nil
}

func parseException(v *fastjson.Value) *Exception {
	if v.Type() != fastjson.TypeObject {
		return nil
	}
	exc := &Exception{
		Type:    string(v.GetStringBytes("type")),
		Message: string(v.GetStringBytes("message")),
	}
	for _, frame := range v.GetArray("stack") {
		exc.Stack = append(exc.Stack, string(frame.GetStringBytes()))
	}
	return exc
}

func valueText(v *fastjson.Value) string {
	if v.Type() == fastjson.TypeString {
		return string(v.GetStringBytes())
	}
	return v.String()
}

// Query narrows a set of entries. Empty fields match everything.
type Query struct {
	Level        string // minimum severity name
	LoggerPrefix string
	Search       string
}

// Match reports whether e satisfies every set condition of q. LoggerPrefix
// matches the logger itself and its descendants.
func (q Query) Match(e Entry) bool {
	if q.Level != "" {
		if min, err := logging.ParseLevel(q.Level); err == nil && e.Severity() < min {
			return false
		}
	}
	if q.LoggerPrefix != "" && !logging.NamespaceFilter(q.LoggerPrefix)(&logging.Record{LoggerName: e.Logger}) {
		return false
	}
	if q.Search != "" {
		needle := strings.ToLower(q.Search)
		if !strings.Contains(strings.ToLower(e.Message), needle) && !strings.Contains(strings.ToLower(e.Raw), needle) {
			return false
		}
	}
	return true
}

// ParseLines decodes lines, skipping blank ones. Lines that are not JSON
// become entries holding only Raw and the text as Message.
func ParseLines(lines []string) []Entry {
	entries := make([]Entry, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		entry, err := ParseEntry(line)
		if err != nil {
			entry.Message = line
		}
		entries = append(entries, entry)
	}
	return entries
}
