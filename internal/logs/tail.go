package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"pyproj/internal/logging"
)

const (
	// pollInterval backs up the directory watch, which can miss writes on
	// some filesystems.
	pollInterval = 250 * time.Millisecond
	maxLineBytes = 1024 * 1024
)

// TailOptions selects what Tail returns.
//
// A negative Offset returns the last Limit lines across the active file and
// up to Backups numbered backups. A non-negative Offset returns the lines
// appended to the active file since that offset. With Follow set and a
// positive Wait, Tail polls until new lines arrive or Wait elapses.
type TailOptions struct {
	Offset  int64
	Limit   int
	Backups int
	Follow  bool
	Wait    time.Duration
}

// TailResult carries the lines read and the offset to resume from.
type TailResult struct {
	Lines  []string
	Offset int64
}

// Tail reads lines from the log file at path.
func Tail(ctx context.Context, path string, opts TailOptions) (TailResult, error) {
	result := TailResult{Offset: opts.Offset}

	info, err := os.Stat(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return result, fmt.Errorf("stat log file: %w", err)
	}
	if err == nil && info.IsDir() {
		return result, fmt.Errorf("log path %q is a directory", path)
	}

	if opts.Wait < 0 {
		opts.Wait = 0
	}

	if opts.Offset < 0 {
		lines, offset, err := lastLines(rotationChain(path, opts.Backups), opts.Limit)
		if err != nil {
			return result, err
		}
		result.Lines = lines
		result.Offset = offset
		if opts.Follow && opts.Wait > 0 && len(lines) == 0 {
			return waitForLines(ctx, path, result.Offset, opts.Wait)
		}
		return result, nil
	}

	lines, offset, err := readForward(path, opts.Offset)
	if err != nil {
		return result, err
	}
	result.Lines = lines
	result.Offset = offset
	if opts.Follow && opts.Wait > 0 && len(lines) == 0 {
		return waitForLines(ctx, path, offset, opts.Wait)
	}
	return result, nil
}

// rotationChain lists the files holding the history of path, oldest first.
func rotationChain(path string, backups int) []string {
	chain := make([]string, 0, backups+1)
	for i := backups; i >= 1; i-- {
		chain = append(chain, logging.BackupName(path, i))
	}
	return append(chain, path)
}

// lastLines keeps the final limit lines across files. The returned offset
// is the size of the last file, where a follow-up read resumes.
func lastLines(files []string, limit int) ([]string, int64, error) {
	var (
		ring   []string
		count  int
		idx    int
		offset int64
	)
	if limit > 0 {
		ring = make([]string, limit)
	}

	for i, path := range files {
		last := i == len(files)-1
		file, err := os.Open(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				if last {
					offset = 0
				}
				continue
			}
			return nil, 0, fmt.Errorf("open log file: %w", err)
		}

		if limit > 0 {
			scanner := newScanner(file)
			for scanner.Scan() {
				ring[idx] = scanner.Text()
				idx = (idx + 1) % limit
				if count < limit {
					count++
				}
			}
			if err := scanner.Err(); err != nil {
				_ = file.Close()
				return nil, 0, fmt.Errorf("read %s: %w", path, err)
			}
		}

		if last {
			end, err := file.Seek(0, io.SeekEnd)
			if err != nil {
				_ = file.Close()
				return nil, 0, fmt.Errorf("seek log file: %w", err)
			}
			offset = end
		}
		_ = file.Close()
	}

	if count == 0 {
		return nil, offset, nil
	}
	lines := make([]string, count)
	if count == limit {
		for i := 0; i < count; i++ {
			lines[i] = ring[(idx+i)%limit]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, offset, nil
}

// readForward returns the complete lines after offset. When the file is
// shorter than offset it was rotated or truncated, and reading restarts at
// the beginning of the new file. A trailing partial line is left for the
// next call.
func readForward(path string, offset int64) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, 0, fmt.Errorf("stat log file: %w", err)
	}
	if offset > info.Size() {
		offset = 0
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, 0, fmt.Errorf("seek log file: %w", err)
	}

	reader := bufio.NewReaderSize(file, 64*1024)
	var lines []string
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, 0, fmt.Errorf("read log file: %w", err)
		}
		offset += int64(len(line))
		if text := trimNewline(line); text != "" {
			lines = append(lines, text)
		}
	}
	return lines, offset, nil
}

// waitForLines re-reads path whenever its directory reports a change and at
// least every pollInterval, until lines arrive, wait elapses, or ctx ends.
func waitForLines(ctx context.Context, path string, offset int64, wait time.Duration) (TailResult, error) {
	deadline := time.Now().Add(wait)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	var (
		events <-chan fsnotify.Event
		errs   <-chan error
	)
	if watcher, err := watchDir(path); err == nil {
		defer watcher.Close()
		events, errs = watcher.Events, watcher.Errors
	}

	result := TailResult{Offset: offset}
	for {
		lines, newOffset, err := readForward(path, offset)
		if err != nil {
			return result, err
		}
		if len(lines) > 0 {
			result.Lines = lines
			result.Offset = newOffset
			return result, nil
		}
		offset = newOffset
		result.Offset = newOffset

		if time.Now().After(deadline) {
			return result, nil
		}

		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-ticker.C:
		case _, ok := <-events:
			if !ok {
				events = nil
			}
		case _, ok := <-errs:
			if !ok {
				errs = nil
			}
		}
	}
}

// watchDir watches the directory of path rather than the file itself, so
// the watch survives the rename that rotation performs.
func watchDir(path string) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return nil, errors.Join(err, watcher.Close())
	}
	return watcher, nil
}

func newScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return scanner
}

func trimNewline(line string) string {
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}
	return line
}
