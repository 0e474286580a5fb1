//go:build linux

package logging

import "golang.org/x/sys/unix"

func currentThreadID() int {
	return unix.Gettid()
}
