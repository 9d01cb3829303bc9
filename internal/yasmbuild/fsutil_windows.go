//go:build windows

package yasmbuild

import (
	"os"
	"path/filepath"
	"strings"
)

// canExecute approximates executability from the file extension; Windows has
// no execute permission bit.
func canExecute(path string, info os.FileInfo) bool {
	if !info.Mode().IsRegular() {
		return false
	}
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".exe" || ext == ".dll" || ext == ".bat" || ext == ".cmd"
}
