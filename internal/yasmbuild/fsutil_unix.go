//go:build !windows

package yasmbuild

import (
	"os"

	"golang.org/x/sys/unix"
)

// canExecute reports whether the current user can execute the file. The
// access check is authoritative; the mode bits are only a fallback when the
// syscall is unavailable.
func canExecute(path string, info os.FileInfo) bool {
	if !info.Mode().IsRegular() {
		return false
	}
	if err := unix.Access(path, unix.X_OK); err == nil {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
