package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// lastResort reports pipeline failures out of band. It never routes
// through the pipeline itself.
type lastResort struct {
	mu sync.Mutex
	w  io.Writer
}

func newLastResort(w io.Writer) *lastResort {
	if w == nil {
		w = os.Stderr
	}
	return &lastResort{w: w}
}

func (l *lastResort) printf(format string, args ...any) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = fmt.Fprintf(l.w, "logging: "+format+"\n", args...)
}
