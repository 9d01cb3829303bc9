package yasmbuild

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

// discoverPatches lists the .patch files under dir in lexical order. The
// naming convention (0001-..., 0002-...) makes lexical order the application
// order. A missing patches directory just means no patches.
func discoverPatches(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read patches directory: %w", err)
	}

	var patches []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".patch") {
			continue
		}
		patches = append(patches, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(patches)
	return patches, nil
}

// cloneSource replaces the source tree with a fresh shallow clone of the
// pinned release tag and pins the checkout explicitly.
func cloneSource(cfg *RunConfig, exe *Executor) error {
	stage("Cloning %s v%s", packageName, yasmVersion)

	if err := cfg.platform.RemoveDir(cfg.SourcePath); err != nil {
		return fmt.Errorf("failed to remove old source tree: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.SourcePath), 0o755); err != nil {
		return err
	}

	tag := "v" + yasmVersion
	clone := exec.Command("git", "clone", "--branch", tag, "--depth", "1", yasmRepoURL, cfg.SourcePath)
	if err := exe.Run(clone); err != nil {
		return fmt.Errorf("git clone failed: %w", err)
	}

	// Shallow clones of a tag normally land on it already; the explicit
	// checkout guards against a repo whose default branch shadows the tag.
	checkout := exec.Command("git", "checkout", tag)
	checkout.Dir = cfg.SourcePath
	if err := exe.Run(checkout); err != nil {
		return fmt.Errorf("git checkout %s failed: %w", tag, err)
	}
	return nil
}

// applyPatches applies every configured patch to the source tree, in order.
// A patch that fails to apply aborts the run.
func applyPatches(cfg *RunConfig, exe *Executor) error {
	if len(cfg.Patches) == 0 {
		return nil
	}
	stage("Applying %d patch(es)", len(cfg.Patches))

	for _, patch := range cfg.Patches {
		colInfo.Printf("Applying %s\n", filepath.Base(patch))
		cmd := exec.Command("git", "apply", patch)
		cmd.Dir = cfg.SourcePath
		if err := exe.Run(cmd); err != nil {
			return fmt.Errorf("failed to apply %s: %w", patch, err)
		}
	}
	return nil
}
