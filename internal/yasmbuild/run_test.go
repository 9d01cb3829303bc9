package yasmbuild

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"
)

// trackingReader records whether anything tried to read from it.
type trackingReader struct {
	read bool
}

func (r *trackingReader) Read(p []byte) (int, error) {
	r.read = true
	return 0, os.ErrClosed
}

func populatedInstallTree(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "yasm"), []byte("bin"), 0o755); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestConfirmInstallOverwriteNoPromptNeverReadsStdin(t *testing.T) {
	in := &trackingReader{}
	cfg := &RunConfig{Prompt: false, Install: true, InstallPath: populatedInstallTree(t)}

	if !confirmInstallOverwrite(cfg, in) {
		t.Error("overwrite declined without prompting enabled")
	}
	if in.read {
		t.Error("stdin read with --no-prompt")
	}
}

func TestConfirmInstallOverwriteSkipsEmptyTree(t *testing.T) {
	in := &trackingReader{}
	cfg := &RunConfig{Prompt: true, Install: true, InstallPath: t.TempDir()}

	if !confirmInstallOverwrite(cfg, in) {
		t.Error("overwrite declined with nothing to overwrite")
	}
	if in.read {
		t.Error("stdin read with an empty install tree")
	}
}

func TestConfirmInstallOverwriteDeclineLeavesTree(t *testing.T) {
	install := populatedInstallTree(t)
	cfg := &RunConfig{Prompt: true, Install: true, InstallPath: install}

	if confirmInstallOverwrite(cfg, strings.NewReader("n\n")) {
		t.Fatal("overwrite accepted on decline")
	}

	data, err := os.ReadFile(filepath.Join(install, "yasm"))
	if err != nil || string(data) != "bin" {
		t.Errorf("install tree changed after decline: %v %q", err, data)
	}
}

// stubTools puts fake cmake and ninja executables first on PATH. The ninja
// stub populates the install prefix when invoked as `ninja install`, which is
// all the pipeline needs from the real tools.
func stubTools(t *testing.T) {
	t.Helper()
	dir := t.TempDir()

	cmake := "#!/bin/sh\nexit 0\n"
	ninja := `#!/bin/sh
if [ "$1" = "install" ]; then
	mkdir -p ../../install/yasm/1.3.0/bin
	printf 'fake yasm' > ../../install/yasm/1.3.0/bin/yasm
	chmod 755 ../../install/yasm/1.3.0/bin/yasm
fi
exit 0
`
	for name, body := range map[string]string{"cmake": cmake, "ninja": ninja} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

func TestRunPackagesExistingSource(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell stubs")
	}
	stubTools(t)

	base := t.TempDir()
	t.Chdir(base)

	// A pre-populated source tree, no patches directory.
	src := filepath.Join(base, "build", "src")
	if err := os.MkdirAll(src, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "CMakeLists.txt"), []byte("project(yasm)"), 0o644); err != nil {
		t.Fatal(err)
	}

	in := &trackingReader{}
	code := Run(context.Background(), []string{"--no-clone", "--no-prompt"}, in)
	if code != exitOK {
		t.Fatalf("Run = %d, want %d", code, exitOK)
	}
	if in.read {
		t.Error("stdin read with --no-prompt")
	}

	entries, err := os.ReadDir(filepath.Join(base, "artifacts"))
	if err != nil {
		t.Fatal(err)
	}
	var archives []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".zip") {
			archives = append(archives, e.Name())
		}
	}
	if len(archives) != 1 || archives[0] != "yasm-1.3.0.zip" {
		t.Fatalf("archives = %v, want exactly yasm-1.3.0.zip", archives)
	}

	r, err := zip.OpenReader(filepath.Join(base, "artifacts", "yasm-1.3.0.zip"))
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	if len(r.File) == 0 {
		t.Error("archive has no entries")
	}

	if _, err := os.Stat(filepath.Join(base, "artifacts", "yasm-1.3.0.zip.b3sum")); err != nil {
		t.Errorf("checksum sidecar missing: %v", err)
	}
	// Default clean removes the source tree after a successful run.
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Error("source tree still present after clean run")
	}
}

func TestRunUsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown flag", []string{"--bogus"}},
		{"unknown format", []string{"--format", "rar"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := &trackingReader{}
			if code := Run(context.Background(), tt.args, in); code != exitUsage {
				t.Errorf("Run(%v) = %d, want %d", tt.args, code, exitUsage)
			}
			if in.read {
				t.Error("stdin read on a usage error")
			}
		})
	}
}

func TestYesNo(t *testing.T) {
	if yesNo(true) != "YES" || yesNo(false) != "NO" {
		t.Error("yesNo mapping wrong")
	}
}
