package logging

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// pruneBackups removes numbered backups of path beyond keep. They are left
// behind when backup_count is lowered between runs.
func pruneBackups(path string, keep int) error {
	dir := filepath.Dir(path)
	prefix := filepath.Base(path) + "."

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("list log directory: %w", err)
	}
	var errs []error
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(entry.Name(), prefix))
		if err != nil || n <= keep {
			continue
		}
		if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Errorf("remove stale backup: %w", err))
		}
	}
	return errors.Join(errs...)
}

// backupPaths lists the existing backups of path, newest first.
func backupPaths(path string, count int) []string {
	var out []string
	for i := 1; i <= count; i++ {
		name := BackupName(path, i)
		if _, err := os.Stat(name); err == nil {
			out = append(out, name)
		}
	}
	return out
}
