package logging

// Logger emits records under a dotted name. Loggers are cheap handles onto
// the pipeline's registry; two Loggers with the same name share level and
// propagation settings.
type Logger struct {
	p      *Pipeline
	node   *loggerNode
	fields Fields
}

// Name returns the dotted logger name.
func (l *Logger) Name() string {
	return l.node.name
}

// Enabled reports whether a record at level would pass the effective level
// of this logger.
func (l *Logger) Enabled(level Level) bool {
	return level >= l.p.levels.Effective(l.node.name)
}

// SetLevel gives this logger an explicit level.
func (l *Logger) SetLevel(level Level) {
	l.p.levels.Set(l.node.name, level)
}

// ClearLevel makes this logger inherit its level again.
func (l *Logger) ClearLevel() {
	l.p.levels.Clear(l.node.name)
}

// SetPropagate controls whether records continue to ancestor loggers.
func (l *Logger) SetPropagate(propagate bool) {
	l.node.propagate.Store(propagate)
}

// WithFields returns a logger that attaches fields to every record. Fields
// given at the call site win over bound ones.
func (l *Logger) WithFields(fields Fields) *Logger {
	bound := make(Fields, len(l.fields)+len(fields))
	for k, v := range l.fields {
		bound[k] = v
	}
	for k, v := range fields {
		bound[k] = v
	}
	return &Logger{p: l.p, node: l.node, fields: bound}
}

func (l *Logger) Debugf(template string, args ...any) {
	l.emit(LevelDebug, nil, nil, template, args)
}

func (l *Logger) Infof(template string, args ...any) {
	l.emit(LevelInfo, nil, nil, template, args)
}

func (l *Logger) Warningf(template string, args ...any) {
	l.emit(LevelWarning, nil, nil, template, args)
}

func (l *Logger) Errorf(template string, args ...any) {
	l.emit(LevelError, nil, nil, template, args)
}

func (l *Logger) Criticalf(template string, args ...any) {
	l.emit(LevelCritical, nil, nil, template, args)
}

// Log emits a record at an arbitrary level.
func (l *Logger) Log(level Level, template string, args ...any) {
	l.emit(level, nil, nil, template, args)
}

// LogFields emits a record carrying extra structured fields.
func (l *Logger) LogFields(level Level, fields Fields, template string, args ...any) {
	l.emit(level, fields, nil, template, args)
}

// Exception emits an ERROR record with err and the caller's stack attached.
func (l *Logger) Exception(err error, template string, args ...any) {
	if !l.Enabled(LevelError) {
		return
	}
	l.emit(LevelError, nil, newExceptionInfo(err, 1), template, args)
}

func (l *Logger) emit(level Level, fields Fields, exc *ExceptionInfo, template string, args []any) {
	if !l.Enabled(level) {
		return
	}
	rec := NewRecord(l.node.name, level, template, args, mergeFields(l.fields, fields), exc)
	l.p.callHandlers(l.node, rec)
}

func mergeFields(base, extra Fields) Fields {
	if len(base) == 0 {
		return extra
	}
	if len(extra) == 0 {
		return base
	}
	out := make(Fields, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}
