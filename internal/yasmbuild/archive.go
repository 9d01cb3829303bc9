package yasmbuild

import (
	"archive/tar"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
	"github.com/schollz/progressbar/v3"
	"github.com/ulikunitz/xz"
	"golang.org/x/term"
)

// archiveEntry is one file destined for the artifact, with its path relative
// to the install prefix and whether it keeps an executable mode bit.
type archiveEntry struct {
	Path       string // absolute path on disk
	Rel        string // slash-separated path relative to the install prefix
	Executable bool
	Size       int64
}

// collectFiles walks the install tree and gathers the regular files to
// package. Directories are implied by entry paths; symlinks are skipped
// (the yasm install tree has none, and zip handles them poorly anyway).
func collectFiles(root string, plat Platform) ([]archiveEntry, error) {
	var entries []archiveEntry
	err := filepath.Walk(root, func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		entries = append(entries, archiveEntry{
			Path:       p,
			Rel:        filepath.ToSlash(rel),
			Executable: plat.Executable(p, info),
			Size:       info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to collect install tree: %w", err)
	}
	return entries, nil
}

// entryMode maps executability to the two permission sets the artifact
// carries. Host umask and group quirks never leak into the archive.
func entryMode(e archiveEntry) os.FileMode {
	if e.Executable {
		return 0o755
	}
	return 0o644
}

// entryName places each file under the versioned prefix the consumers of the
// artifact expect to extract.
func entryName(e archiveEntry) string {
	return path.Join(packageName, yasmVersion, e.Rel)
}

// packageArtifact writes the configured archive format into the artifacts
// directory and drops a BLAKE3 checksum next to it. Returns the archive path.
func packageArtifact(cfg *RunConfig) (string, error) {
	stage("Packaging %s", cfg.ArchiveName())

	entries, err := collectFiles(cfg.InstallPath, cfg.platform)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(cfg.ArtifactPath, 0o755); err != nil {
		return "", err
	}

	dest := filepath.Join(cfg.ArtifactPath, cfg.ArchiveName())
	switch cfg.Format {
	case FormatZip:
		err = writeZip(dest, entries)
	default:
		err = writeTar(dest, cfg.Format, entries)
	}
	if err != nil {
		return "", err
	}

	if err := writeArtifactChecksum(dest); err != nil {
		return "", err
	}
	return dest, nil
}

// newArchiveProgress returns a progress bar over the entry count on a
// terminal, or nil when output is piped (per-file prints take over then).
func newArchiveProgress(count int) *progressbar.ProgressBar {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return nil
	}
	return progressbar.Default(int64(count), "packaging")
}

// writeZip produces a deflate zip of the entries. Permission bits travel in
// the external attributes so Unix consumers get them back on extraction.
func writeZip(dest string, entries []archiveEntry) error {
	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	bar := newArchiveProgress(len(entries))
	for _, e := range entries {
		if bar == nil {
			colInfo.Printf("Adding %s\n", e.Rel)
		}
		hdr := &zip.FileHeader{
			Name:   entryName(e),
			Method: zip.Deflate,
		}
		hdr.SetMode(entryMode(e))
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			return err
		}
		if err := copyFileTo(w, e.Path); err != nil {
			return err
		}
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finalize %s: %w", dest, err)
	}
	return f.Close()
}

// writeTar produces a compressed tarball of the entries with the same
// permission mapping as the zip path.
func writeTar(dest, format string, entries []archiveEntry) error {
	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}
	defer f.Close()

	var cw io.WriteCloser
	switch format {
	case FormatTarGz:
		cw = pgzip.NewWriter(f)
	case FormatTarXz:
		cw, err = xz.NewWriter(f)
	case FormatTarZst:
		cw, err = zstd.NewWriter(f)
	default:
		err = fmt.Errorf("unknown archive format %q", format)
	}
	if err != nil {
		return err
	}

	tw := tar.NewWriter(cw)
	bar := newArchiveProgress(len(entries))
	for _, e := range entries {
		if bar == nil {
			colInfo.Printf("Adding %s\n", e.Rel)
		}
		hdr := &tar.Header{
			Name: entryName(e),
			Mode: int64(entryMode(e)),
			Size: e.Size,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if err := copyFileTo(tw, e.Path); err != nil {
			return err
		}
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	if err := tw.Close(); err != nil {
		return err
	}
	if err := cw.Close(); err != nil {
		return err
	}
	return f.Close()
}

func copyFileTo(w io.Writer, path string) error {
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()
	if _, err := io.Copy(w, src); err != nil {
		return fmt.Errorf("failed to archive %s: %w", path, err)
	}
	return nil
}
