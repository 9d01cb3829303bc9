package yasmbuild

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"lukechampine.com/blake3"
)

// writeArtifactChecksum hashes the archive with BLAKE3 and writes a
// b3sum-compatible sidecar file next to it.
func writeArtifactChecksum(archive string) error {
	f, err := os.Open(archive)
	if err != nil {
		return err
	}
	defer f.Close()

	h := blake3.New(32, nil)
	if _, err := io.Copy(h, f); err != nil {
		return fmt.Errorf("failed to hash %s: %w", archive, err)
	}

	sum := hex.EncodeToString(h.Sum(nil))
	line := fmt.Sprintf("%s  %s\n", sum, filepath.Base(archive))
	if err := os.WriteFile(archive+".b3sum", []byte(line), 0o644); err != nil {
		return fmt.Errorf("failed to write checksum file: %w", err)
	}
	debugf("blake3 %s = %s\n", filepath.Base(archive), sum)
	return nil
}
