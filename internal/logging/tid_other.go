//go:build !linux

package logging

func currentThreadID() int {
	return 0
}
