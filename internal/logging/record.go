package logging

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"
)

// Fields carries caller-supplied structured data attached to a record.
type Fields map[string]any

// ExceptionInfo describes an error attached to a record by the producer.
type ExceptionInfo struct {
	Type    string
	Message string
	Stack   []string
}

// NewExceptionInfo captures err together with the stack of the calling
// goroutine. A nil error yields nil.
func NewExceptionInfo(err error) *ExceptionInfo {
	return newExceptionInfo(err, 1)
}

// newExceptionInfo skips extra frames above its caller when capturing the
// stack.
func newExceptionInfo(err error, extra int) *ExceptionInfo {
	if err == nil {
		return nil
	}
	return &ExceptionInfo{
		Type:    fmt.Sprintf("%T", err),
		Message: err.Error(),
		Stack:   captureStack(3 + extra),
	}
}

func captureStack(skip int) []string {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(skip, pcs)
	if n == 0 {
		return nil
	}
	frames := runtime.CallersFrames(pcs[:n])
	stack := make([]string, 0, n)
	for {
		frame, more := frames.Next()
		if !strings.HasPrefix(frame.Function, "runtime.") {
			stack = append(stack, fmt.Sprintf("%s (%s:%d)", frame.Function, frame.File, frame.Line))
		}
		if !more {
			break
		}
	}
	return stack
}

// Record is a single log event. Records are built by NewRecord and are not
// modified afterwards; the formatted message is computed at most once, and
// only when a sink asks for it.
type Record struct {
	LoggerName string
	Level      Level
	Template   string
	Args       []any
	Fields     Fields
	Exception  *ExceptionInfo
	Time       time.Time
	ThreadID   int
	ProcessID  int

	messageOnce sync.Once
	message     string
}

var processID = os.Getpid()

// NewRecord captures an event at the current time on the calling thread.
// Args and fields are copied so later changes by the caller are not observed.
func NewRecord(name string, level Level, template string, args []any, fields Fields, exc *ExceptionInfo) *Record {
	rec := &Record{
		LoggerName: name,
		Level:      level,
		Template:   template,
		Exception:  exc,
		Time:       time.Now(),
		ThreadID:   currentThreadID(),
		ProcessID:  processID,
	}
	if len(args) > 0 {
		rec.Args = append([]any(nil), args...)
	}
	if len(fields) > 0 {
		rec.Fields = make(Fields, len(fields))
		for k, v := range fields {
			rec.Fields[k] = v
		}
	}
	return rec
}

// Message returns the template with its arguments substituted. A template
// without arguments is returned verbatim.
func (r *Record) Message() string {
	r.messageOnce.Do(func() {
		if len(r.Args) == 0 {
			r.message = r.Template
			return
		}
		r.message = fmt.Sprintf(r.Template, r.Args...)
	})
	return r.message
}
