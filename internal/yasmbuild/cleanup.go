package yasmbuild

import (
	"fmt"
	"os"
	"path/filepath"
)

// cleanWorkspace removes everything a previous run may have left behind:
// old artifacts, the cmake build directory and any stray CMakeCache.txt at
// the base directory. Nothing here treats absence as an error.
func cleanWorkspace(cfg *RunConfig) error {
	stage("Cleaning workspace")

	if err := emptyDir(cfg.ArtifactPath); err != nil {
		return fmt.Errorf("failed to clean artifacts: %w", err)
	}
	if err := cfg.platform.RemoveDir(cfg.BuildPath); err != nil {
		return fmt.Errorf("failed to remove build directory: %w", err)
	}
	cache := filepath.Join(cfg.BaseDir, "CMakeCache.txt")
	if err := os.Remove(cache); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w", cache, err)
	}
	return nil
}

// emptyDir deletes the contents of dir but keeps the directory itself, so
// artifacts/ stays a stable destination across runs.
func emptyDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}
