package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
)

// JSON keys owned by the renderer. Extra fields never overwrite them.
const (
	FieldTimestamp = "ts"
	FieldLevel     = "level"
	FieldLogger    = "logger"
	FieldMessage   = "message"
	FieldException = "exception"
	FieldPID       = "pid"
	FieldTID       = "tid"
	FieldSessionID = "session_id"
)

var reservedKeys = map[string]struct{}{
	FieldTimestamp:  {},
	FieldLevel:      {},
	FieldLogger:     {},
	FieldMessage:    {},
	FieldException:  {},
	FieldPID:        {},
	FieldTID:        {},
	FieldSessionID:  {},
	slog.TimeKey:    {},
	slog.MessageKey: {},
	slog.SourceKey:  {},
}

// IsReservedKey reports whether key is owned by the JSON renderer.
func IsReservedKey(key string) bool {
	_, ok := reservedKeys[key]
	return ok
}

// CollisionPolicy decides what happens to an extra field whose key is
// reserved.
type CollisionPolicy string

const (
	// CollisionRename moves the field to "extra_<key>". When that key is
	// also taken the field is dropped.
	CollisionRename CollisionPolicy = "rename"
	// CollisionDrop discards the field.
	CollisionDrop CollisionPolicy = "drop"
)

const renamedPrefix = "extra_"

// ParseCollisionPolicy validates a policy name. Empty selects rename.
func ParseCollisionPolicy(name string) (CollisionPolicy, error) {
	switch CollisionPolicy(name) {
	case "", CollisionRename:
		return CollisionRename, nil
	case CollisionDrop:
		return CollisionDrop, nil
	default:
		return "", fmt.Errorf("unknown collision policy %q", name)
	}
}

// JSONRenderer renders one JSON object per line. The zero value uses the
// rename collision policy and omits the session id.
type JSONRenderer struct {
	Collision CollisionPolicy
	SessionID string
}

func (r *JSONRenderer) Render(rec *Record) ([]byte, error) {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{
		Level:       slog.Level(math.MinInt),
		ReplaceAttr: replaceReservedAttr,
	})

	out := slog.NewRecord(rec.Time, rec.Level.slog(), rec.Message(), 0)
	out.AddAttrs(
		slog.String(FieldLogger, rec.LoggerName),
		slog.Int(FieldPID, rec.ProcessID),
		slog.Int(FieldTID, rec.ThreadID),
	)
	if r.SessionID != "" {
		out.AddAttrs(slog.String(FieldSessionID, r.SessionID))
	}
	out.AddAttrs(r.extraAttrs(rec.Fields)...)
	if exc := rec.Exception; exc != nil {
		stack := exc.Stack
		if stack == nil {
			stack = []string{}
		}
		out.AddAttrs(slog.Group(FieldException,
			slog.String("type", exc.Type),
			slog.String("message", exc.Message),
			slog.Any("stack", stack),
		))
	}

	if err := handler.Handle(context.Background(), out); err != nil {
		return nil, fmt.Errorf("render json: %w", err)
	}
	return buf.Bytes(), nil
}

func replaceReservedAttr(groups []string, attr slog.Attr) slog.Attr {
	if len(groups) > 0 {
		return attr
	}
	switch attr.Key {
	case slog.TimeKey:
		attr.Key = FieldTimestamp
		if attr.Value.Kind() == slog.KindTime {
			attr.Value = slog.StringValue(formatJSONTimestamp(attr.Value.Time()))
		}
	case slog.LevelKey:
		if level, ok := attr.Value.Any().(slog.Level); ok {
			attr.Value = slog.StringValue(levelFromSlog(level).String())
		}
	case slog.MessageKey:
		attr.Key = FieldMessage
	}
	return attr
}

// extraAttrs resolves key collisions and returns the extra fields sorted by
// their final key.
func (r *JSONRenderer) extraAttrs(fields Fields) []slog.Attr {
	if len(fields) == 0 {
		return nil
	}
	final := make(map[string]any, len(fields))
	var renamed []string
	for k, v := range fields {
		if IsReservedKey(k) {
			if r.Collision == CollisionDrop {
				continue
			}
			renamed = append(renamed, k)
			continue
		}
		final[k] = v
	}
	sort.Strings(renamed)
	for _, k := range renamed {
		target := renamedPrefix + k
		if _, taken := final[target]; taken {
			continue
		}
		final[target] = fields[k]
	}

	keys := make([]string, 0, len(final))
	for k := range final {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	attrs := make([]slog.Attr, 0, len(keys))
	for _, k := range keys {
		attrs = append(attrs, slog.Attr{Key: k, Value: jsonSafeValue(final[k])})
	}
	return attrs
}

// jsonSafeValue falls back to the string form of values encoding/json
// cannot represent.
func jsonSafeValue(v any) slog.Value {
	val := slog.AnyValue(v).Resolve()
	switch val.Kind() {
	case slog.KindFloat64:
		f := val.Float64()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return slog.StringValue(strconv.FormatFloat(f, 'g', -1, 64))
		}
	case slog.KindAny:
		a := val.Any()
		if err, ok := a.(error); ok {
			if _, marshals := a.(json.Marshaler); !marshals {
				return slog.StringValue(err.Error())
			}
		}
		if _, err := json.Marshal(a); err != nil {
			return slog.StringValue(fmt.Sprint(a))
		}
	}
	return val
}
