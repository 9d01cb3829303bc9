package yasmbuild

import (
	"encoding/binary"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// runCommand is the seam the signers use to invoke their external tools, so
// tests can observe the exact command lines without a real codesign or
// signtool on the host.
type runCommand func(exe *Executor, name string, args ...string) error

func defaultRunCommand(exe *Executor, name string, args ...string) error {
	return exe.Run(exec.Command(name, args...))
}

// Mach-O magic numbers, thin and fat, both byte orders.
var machOMagics = []uint32{
	0xfeedface, 0xcefaedfe, // 32-bit
	0xfeedfacf, 0xcffaedfe, // 64-bit
	0xcafebabe, 0xbebafeca, // fat
}

// isMachO reports whether the file starts with a Mach-O magic. Short files
// and read errors simply report false; signing skips them.
func isMachO(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	var head [4]byte
	if _, err := io.ReadFull(f, head[:]); err != nil {
		return false
	}
	magic := binary.BigEndian.Uint32(head[:])
	for _, m := range machOMagics {
		if magic == m {
			return true
		}
	}
	return false
}

// machSigner signs Mach-O binaries with codesign. The signing keychain is
// unlocked first through a helper script in the operator's home directory,
// so the run never prompts for the keychain password mid-build.
type machSigner struct {
	Identity string
	Unlocker string
	run      runCommand
}

func newMachSigner() *machSigner {
	home, _ := os.UserHomeDir()
	return &machSigner{
		Identity: "Developer ID",
		Unlocker: filepath.Join(home, "unlock-keychain"),
		run:      defaultRunCommand,
	}
}

// signTree unlocks the keychain, then signs every executable Mach-O file
// under root. The first failure aborts; a partially-signed tree must never
// be packaged.
func (s *machSigner) signTree(root string, plat Platform, exe *Executor) error {
	stage("Signing executables")

	if _, err := os.Stat(s.Unlocker); err != nil {
		return fmt.Errorf("keychain unlock script not found at %s: %w", s.Unlocker, err)
	}
	if err := s.run(exe, s.Unlocker); err != nil {
		return fmt.Errorf("failed to unlock the signing keychain: %w", err)
	}

	return filepath.Walk(root, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !plat.Executable(path, info) || !isMachO(path) {
			return nil
		}
		colInfo.Printf("Signing %s\n", path)
		// Not --deep: every binary gets signed individually by the walk.
		if err := s.run(exe, "codesign",
			"-f", "--options", "runtime", "--timestamp",
			"-s", s.Identity, path); err != nil {
			return fmt.Errorf("failed to sign %s: %w", path, err)
		}
		return nil
	})
}

// signtoolSigner signs Windows executables with signtool, trying each
// RFC 3161 timestamp server in order until one accepts the request.
type signtoolSigner struct {
	Tool    string
	Cert    string
	Servers []string
	run     runCommand
}

func newSigntoolSigner() *signtoolSigner {
	return &signtoolSigner{
		Tool: "signtool",
		Cert: filepath.Join(os.Getenv("USERPROFILE"), "signingcerts", "codesign.pfx"),
		Servers: []string{
			"http://timestamp.digicert.com",
			"http://timestamp.comodoca.com/rfc3161",
		},
		run: defaultRunCommand,
	}
}

func (s *signtoolSigner) signTree(root string, exe *Executor) error {
	stage("Signing executables")

	if _, err := os.Stat(s.Cert); err != nil {
		return fmt.Errorf("signing certificate not found at %s: %w", s.Cert, err)
	}

	return filepath.Walk(root, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		ext := strings.ToLower(filepath.Ext(path))
		if info.IsDir() || (ext != ".exe" && ext != ".dll") {
			return nil
		}
		colInfo.Printf("Signing %s\n", path)
		return s.signFile(path, exe)
	})
}

// signFile attempts each timestamp server in order. Timestamp servers flake
// often enough that a single failure is routine; only exhausting the list
// aborts the run.
func (s *signtoolSigner) signFile(path string, exe *Executor) error {
	var lastErr error
	for _, server := range s.Servers {
		err := s.run(exe, s.Tool, "sign",
			"/f", s.Cert, "/fd", "sha256", "/tr", server, "/td", "sha256", path)
		if err == nil {
			return nil
		}
		colWarn.Printf("!! Timestamp server %s failed; trying the next one.\n", server)
		lastErr = err
	}
	return fmt.Errorf("failed to sign %s with all timestamp servers: %w", path, lastErr)
}
