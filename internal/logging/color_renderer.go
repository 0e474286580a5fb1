package logging

import (
	"bytes"
	"sort"

	"github.com/jedib0t/go-pretty/v6/text"
)

var levelColors = map[Level]text.Colors{
	LevelDebug:    {text.FgHiBlack},
	LevelInfo:     {text.FgGreen},
	LevelWarning:  {text.FgYellow},
	LevelError:    {text.FgRed},
	LevelCritical: {text.FgRed, text.Bold},
}

const exceptionIndent = "    "

// ColorRenderer renders one human-readable line per record:
//
//	<color><timestamp> <LEVEL> <logger> <message><reset>
//
// followed by an indented exception block when the record carries one.
// Without color the layout is identical, minus the escape sequences.
type ColorRenderer struct {
	colorize   bool
	showFields bool
}

// NewColorRenderer builds a renderer. showFields appends extra fields as
// sorted key=value pairs after the message.
func NewColorRenderer(colorize, showFields bool) *ColorRenderer {
	return &ColorRenderer{colorize: colorize, showFields: showFields}
}

// Colorize reports whether escape sequences are emitted.
func (r *ColorRenderer) Colorize() bool {
	return r.colorize
}

func (r *ColorRenderer) Render(rec *Record) ([]byte, error) {
	var buf bytes.Buffer
	if r.colorize {
		buf.WriteString(levelEscape(rec.Level))
	}
	buf.WriteString(formatTimestamp(rec.Time))
	buf.WriteByte(' ')
	buf.WriteString(rec.Level.String())
	buf.WriteByte(' ')
	buf.WriteString(rec.LoggerName)
	buf.WriteByte(' ')
	buf.WriteString(rec.Message())
	if r.showFields && len(rec.Fields) > 0 {
		writeFields(&buf, rec.Fields)
	}
	if r.colorize {
		buf.WriteString(text.EscapeReset)
	}
	buf.WriteByte('\n')

	if exc := rec.Exception; exc != nil {
		buf.WriteString(exceptionIndent)
		buf.WriteString(exc.Type)
		buf.WriteString(": ")
		buf.WriteString(exc.Message)
		buf.WriteByte('\n')
		for _, frame := range exc.Stack {
			buf.WriteString(exceptionIndent)
			buf.WriteString(exceptionIndent)
			buf.WriteString(frame)
			buf.WriteByte('\n')
		}
	}
	return buf.Bytes(), nil
}

func levelEscape(level Level) string {
	colors, ok := levelColors[level]
	if !ok {
		colors = levelColors[levelFromName(level.String())]
	}
	return colors.EscapeSeq()
}

// ColorizeLevel wraps s in the escape sequence used for level.
func ColorizeLevel(level Level, s string) string {
	return levelEscape(level) + s + text.EscapeReset
}

func levelFromName(name string) Level {
	level, _ := ParseLevel(name)
	return level
}

func writeFields(buf *bytes.Buffer, fields Fields) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		buf.WriteByte(' ')
		buf.WriteString(k)
		buf.WriteByte('=')
		buf.WriteString(formatFieldValue(fields[k]))
	}
}
