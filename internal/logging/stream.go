package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

// Stream names accepted by stream sinks.
const (
	StreamStdout = "stdout"
	StreamStderr = "stderr"
)

// Streams holds the writers stream sinks resolve to. Tests swap them for
// buffers; the zero value means the process stdout and stderr.
type Streams struct {
	Stdout io.Writer
	Stderr io.Writer
}

func (s Streams) lookup(name string) (io.Writer, error) {
	switch name {
	case StreamStdout, "":
		if s.Stdout != nil {
			return s.Stdout, nil
		}
		return os.Stdout, nil
	case StreamStderr:
		if s.Stderr != nil {
			return s.Stderr, nil
		}
		return os.Stderr, nil
	default:
		return nil, fmt.Errorf("unknown stream %q", name)
	}
}

// ColorMode selects when the color renderer emits escape sequences.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

// ParseColorMode validates a color mode name. Empty selects auto.
func ParseColorMode(name string) (ColorMode, error) {
	switch ColorMode(name) {
	case "", ColorAuto:
		return ColorAuto, nil
	case ColorAlways:
		return ColorAlways, nil
	case ColorNever:
		return ColorNever, nil
	default:
		return "", fmt.Errorf("unknown color mode %q", name)
	}
}

// Enabled reports whether output to w should carry escape sequences.
func (m ColorMode) Enabled(w io.Writer) bool {
	switch m {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	default:
		return isTerminal(w)
	}
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// nopCloser keeps process streams open when their sink closes.
type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

// NopCloser wraps w so that closing it is a no-op.
func NopCloser(w io.Writer) io.WriteCloser {
	return nopCloser{Writer: w}
}
