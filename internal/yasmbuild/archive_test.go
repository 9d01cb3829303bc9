package yasmbuild

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"
)

// fakeInstallTree lays out a minimal install prefix with one executable and
// one data file.
func fakeInstallTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "bin"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(root, "share", "man"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "bin", "yasm"), []byte("\x7fELF fake"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "share", "man", "yasm.1"), []byte("manual"), 0o644); err != nil {
		t.Fatal(err)
	}
	return root
}

func TestCollectFiles(t *testing.T) {
	root := fakeInstallTree(t)
	entries, err := collectFiles(root, &posixPlatform{})
	if err != nil {
		t.Fatalf("collectFiles: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2: %+v", len(entries), entries)
	}

	byRel := make(map[string]archiveEntry)
	for _, e := range entries {
		byRel[e.Rel] = e
	}
	if e, ok := byRel["bin/yasm"]; !ok || !e.Executable {
		t.Errorf("bin/yasm missing or not executable: %+v", byRel)
	}
	if e, ok := byRel["share/man/yasm.1"]; !ok || e.Executable {
		t.Errorf("share/man/yasm.1 missing or wrongly executable: %+v", byRel)
	}
}

func TestWriteZipPermissions(t *testing.T) {
	root := fakeInstallTree(t)
	entries, err := collectFiles(root, &posixPlatform{})
	if err != nil {
		t.Fatal(err)
	}

	dest := filepath.Join(t.TempDir(), "yasm-1.3.0.zip")
	if err := writeZip(dest, entries); err != nil {
		t.Fatalf("writeZip: %v", err)
	}

	r, err := zip.OpenReader(dest)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer r.Close()

	modes := make(map[string]os.FileMode)
	for _, f := range r.File {
		if f.Method != zip.Deflate {
			t.Errorf("%s stored with method %d, want deflate", f.Name, f.Method)
		}
		if !strings.HasPrefix(f.Name, "yasm/1.3.0/") {
			t.Errorf("entry %q missing versioned prefix", f.Name)
		}
		modes[f.Name] = f.Mode().Perm()
	}

	if got := modes["yasm/1.3.0/bin/yasm"]; got != 0o755 {
		t.Errorf("bin/yasm mode = %o, want 755", got)
	}
	if got := modes["yasm/1.3.0/share/man/yasm.1"]; got != 0o644 {
		t.Errorf("yasm.1 mode = %o, want 644", got)
	}
}

func TestWriteZipEmptyTree(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "empty.zip")
	if err := writeZip(dest, nil); err != nil {
		t.Fatalf("writeZip with no entries: %v", err)
	}
	r, err := zip.OpenReader(dest)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer r.Close()
	if len(r.File) != 0 {
		t.Errorf("got %d entries, want 0", len(r.File))
	}
}

func TestPackageArtifact(t *testing.T) {
	base := t.TempDir()
	cfg := &RunConfig{
		Format:       FormatZip,
		InstallPath:  fakeInstallTree(t),
		ArtifactPath: filepath.Join(base, "artifacts"),
		platform:     &posixPlatform{},
	}

	archive, err := packageArtifact(cfg)
	if err != nil {
		t.Fatalf("packageArtifact: %v", err)
	}
	if filepath.Base(archive) != "yasm-1.3.0.zip" {
		t.Errorf("archive name = %q, want yasm-1.3.0.zip", filepath.Base(archive))
	}

	sum, err := os.ReadFile(archive + ".b3sum")
	if err != nil {
		t.Fatalf("checksum sidecar: %v", err)
	}
	fields := strings.Fields(string(sum))
	if len(fields) != 2 || len(fields[0]) != 64 || fields[1] != "yasm-1.3.0.zip" {
		t.Errorf("malformed checksum line: %q", sum)
	}
}

func TestWriteTarFormats(t *testing.T) {
	root := fakeInstallTree(t)
	entries, err := collectFiles(root, &posixPlatform{})
	if err != nil {
		t.Fatal(err)
	}

	for _, format := range []string{FormatTarGz, FormatTarXz, FormatTarZst} {
		t.Run(format, func(t *testing.T) {
			dest := filepath.Join(t.TempDir(), "yasm-1.3.0."+format)
			if err := writeTar(dest, format, entries); err != nil {
				t.Fatalf("writeTar(%s): %v", format, err)
			}
			info, err := os.Stat(dest)
			if err != nil {
				t.Fatal(err)
			}
			if info.Size() == 0 {
				t.Errorf("%s archive is empty", format)
			}
		})
	}
}
