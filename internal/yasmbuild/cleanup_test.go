package yasmbuild

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCleanWorkspace(t *testing.T) {
	base := t.TempDir()
	cfg := &RunConfig{
		BaseDir:      base,
		SourcePath:   filepath.Join(base, "build", "src"),
		BuildPath:    filepath.Join(base, "build", "src", "build"),
		ArtifactPath: filepath.Join(base, "artifacts"),
		platform:     &posixPlatform{},
	}

	if err := os.MkdirAll(cfg.BuildPath, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(cfg.ArtifactPath, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, f := range []string{
		filepath.Join(cfg.ArtifactPath, "yasm-1.3.0.zip"),
		filepath.Join(cfg.BuildPath, "build.ninja"),
		filepath.Join(cfg.BaseDir, "CMakeCache.txt"),
	} {
		if err := os.WriteFile(f, []byte("stale"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	if err := cleanWorkspace(cfg); err != nil {
		t.Fatalf("cleanWorkspace: %v", err)
	}

	entries, err := os.ReadDir(cfg.ArtifactPath)
	if err != nil {
		t.Fatalf("artifacts directory removed, want kept: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("artifacts not emptied: %v", entries)
	}
	if _, err := os.Stat(cfg.BuildPath); !os.IsNotExist(err) {
		t.Error("build directory still present")
	}
	if _, err := os.Stat(filepath.Join(cfg.BaseDir, "CMakeCache.txt")); !os.IsNotExist(err) {
		t.Error("CMakeCache.txt still present")
	}
}

func TestCleanWorkspaceNothingToClean(t *testing.T) {
	base := t.TempDir()
	cfg := &RunConfig{
		BaseDir:      base,
		SourcePath:   filepath.Join(base, "build", "src"),
		BuildPath:    filepath.Join(base, "build", "src", "build"),
		ArtifactPath: filepath.Join(base, "artifacts"),
		platform:     &posixPlatform{},
	}
	if err := cleanWorkspace(cfg); err != nil {
		t.Fatalf("cleanWorkspace on an empty workspace: %v", err)
	}
}
