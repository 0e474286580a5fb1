package logging

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/gofrs/flock"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	// ErrClosed is returned by writes to a closed file destination.
	ErrClosed = errors.New("logging: file destination closed")
	// ErrFileLocked is returned when another process owns the log file.
	ErrFileLocked = errors.New("logging: log file is owned by another process")
)

// Rotator is a file destination that can be rotated on demand.
type Rotator interface {
	io.WriteCloser
	Rotate() error
}

// BackupName returns the path of the n-th numbered backup of path.
func BackupName(path string, n int) string {
	return path + "." + strconv.Itoa(n)
}

// RotatingFile is a size-bounded file with a numbered backup chain:
// path, path.1 (newest backup) ... path.<backupCount> (oldest).
//
// Before a write that would push the active file past maxBytes, the chain
// shifts by one and a fresh active file is opened. Backups are only ever
// renamed or removed, so a crash can leave at most the active file
// incomplete. maxBytes <= 0 disables rotation; backupCount <= 0 truncates
// the active file instead of keeping backups.
type RotatingFile struct {
	mu          sync.Mutex
	path        string
	maxBytes    int64
	backupCount int
	file        *os.File
	size        int64
	lock        *flock.Flock
	onRotate    func()
	closed      bool
}

// OpenRotatingFile opens (or creates) path for appending and takes the
// advisory lock that marks this process as its only writer.
func OpenRotatingFile(path string, maxBytes int64, backupCount int, onRotate func()) (*RotatingFile, error) {
	lock, err := lockLogFile(path)
	if err != nil {
		return nil, err
	}
	f := &RotatingFile{
		path:        path,
		maxBytes:    maxBytes,
		backupCount: backupCount,
		lock:        lock,
		onRotate:    onRotate,
	}
	if err := pruneBackups(path, max(backupCount, 0)); err != nil {
		_ = lock.Unlock()
		return nil, err
	}
	if err := f.open(os.O_APPEND); err != nil {
		_ = lock.Unlock()
		return nil, err
	}
	return f, nil
}

func lockLogFile(path string) (*flock.Flock, error) {
	if err := ensureLogDir(path); err != nil {
		return nil, err
	}
	lock := flock.New(path + ".lock")
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire log file lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFileLocked, path)
	}
	return lock, nil
}

func ensureLogDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure log directory: %w", err)
	}
	return nil
}

func (f *RotatingFile) open(mode int) error {
	file, err := os.OpenFile(f.path, os.O_CREATE|os.O_WRONLY|mode, 0o644)
	if err != nil {
		return fmt.Errorf("open log file %s: %w", f.path, err)
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return fmt.Errorf("stat log file %s: %w", f.path, err)
	}
	f.file = file
	f.size = info.Size()
	return nil
}

// Path returns the active file path.
func (f *RotatingFile) Path() string {
	return f.path
}

// Backups lists the backup files currently on disk, newest first.
func (f *RotatingFile) Backups() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return backupPaths(f.path, f.backupCount)
}

// Size returns the number of bytes in the active file.
func (f *RotatingFile) Size() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.size
}

func (f *RotatingFile) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return 0, ErrClosed
	}
	// A failed rotation can leave no active file; reopen before writing.
	if f.file == nil {
		if err := f.open(os.O_APPEND); err != nil {
			return 0, err
		}
	}
	if f.maxBytes > 0 && f.size > 0 && f.size+int64(len(p)) > f.maxBytes {
		if err := f.rotate(); err != nil {
			return 0, err
		}
	}
	n, err := f.file.Write(p)
	f.size += int64(n)
	return n, err
}

// Rotate shifts the backup chain regardless of the active file size.
func (f *RotatingFile) Rotate() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrClosed
	}
	return f.rotate()
}

func (f *RotatingFile) rotate() error {
	if f.file != nil {
		if err := f.file.Sync(); err != nil {
			return fmt.Errorf("sync log file: %w", err)
		}
		if err := f.file.Close(); err != nil {
			return fmt.Errorf("close log file: %w", err)
		}
		f.file = nil
	}

	mode := os.O_TRUNC
	if f.backupCount > 0 {
		if err := f.shiftBackups(); err != nil {
			// Keep writing to the active file rather than losing records.
			if reopenErr := f.open(os.O_APPEND); reopenErr != nil {
				return errors.Join(err, reopenErr)
			}
			return err
		}
		mode = os.O_EXCL
	}
	if err := f.open(mode); err != nil {
		return err
	}
	if f.onRotate != nil {
		f.onRotate()
	}
	return nil
}

func (f *RotatingFile) shiftBackups() error {
	oldest := BackupName(f.path, f.backupCount)
	if err := os.Remove(oldest); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", oldest, err)
	}
	for i := f.backupCount - 1; i >= 1; i-- {
		src := BackupName(f.path, i)
		if err := os.Rename(src, BackupName(f.path, i+1)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("rename %s: %w", src, err)
		}
	}
	if err := os.Rename(f.path, BackupName(f.path, 1)); err != nil {
		return fmt.Errorf("rename %s: %w", f.path, err)
	}
	return nil
}

// Close flushes and closes the active file and releases the lock.
func (f *RotatingFile) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil
	}
	f.closed = true
	var errs []error
	if f.file != nil {
		if err := f.file.Sync(); err != nil {
			errs = append(errs, err)
		}
		if err := f.file.Close(); err != nil {
			errs = append(errs, err)
		}
		f.file = nil
	}
	if err := f.lock.Unlock(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// timestampedFile rotates through lumberjack, which names backups with the
// rotation time and can expire and gzip them.
type timestampedFile struct {
	*lumberjack.Logger
	lock  *flock.Flock
	limit int64
}

const (
	megabyte = 1024 * 1024
	// unboundedMegabytes stands in for "no size limit"; lumberjack treats
	// MaxSize 0 as its 100 MB default.
	unboundedMegabytes = math.MaxInt32
)

// ErrPayloadTooLarge is returned by timestamped destinations for a single
// write larger than the size limit. lumberjack cannot place such a payload.
var ErrPayloadTooLarge = errors.New("logging: payload exceeds the file size limit")

// OpenTimestampedFile opens a lumberjack-managed destination. lumberjack
// sizes in whole megabytes, so maxBytes is rounded up; maxBytes <= 0 never
// rotates on size.
func OpenTimestampedFile(path string, maxBytes int64, backupCount, maxAgeDays int, compress bool) (Rotator, error) {
	lock, err := lockLogFile(path)
	if err != nil {
		return nil, err
	}
	maxSize := unboundedMegabytes
	if maxBytes > 0 {
		maxSize = int((maxBytes + megabyte - 1) / megabyte)
	}
	return &timestampedFile{
		Logger: &lumberjack.Logger{
			Filename:   path,
			MaxSize:    maxSize,
			MaxBackups: backupCount,
			MaxAge:     maxAgeDays,
			Compress:   compress,
			LocalTime:  true,
		},
		lock:  lock,
		limit: int64(maxSize) * megabyte,
	}, nil
}

func (f *timestampedFile) Write(p []byte) (int, error) {
	if int64(len(p)) > f.limit {
		return 0, fmt.Errorf("%w: %d bytes, limit %d", ErrPayloadTooLarge, len(p), f.limit)
	}
	return f.Logger.Write(p)
}

func (f *timestampedFile) Close() error {
	return errors.Join(f.Logger.Close(), f.lock.Unlock())
}
