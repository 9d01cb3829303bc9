package yasmbuild

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Platform bundles the behavior that diverges per host OS: robust recursive
// deletion, executable detection for the install tree, and code signing.
// The strategy is chosen once at configuration-resolution time instead of
// scattering GOOS conditionals through every stage.
type Platform interface {
	Name() string

	// RemoveDir deletes a directory tree. Absence is not an error.
	RemoveDir(path string) error

	// Executable reports whether a regular file should be treated as
	// executable for signing and archive permission mapping.
	Executable(path string, info os.FileInfo) bool

	// Sign walks the install tree and signs every qualifying binary.
	Sign(cfg *RunConfig, exe *Executor) error
}

func newPlatform(goos string) Platform {
	switch goos {
	case "darwin":
		return &darwinPlatform{signer: newMachSigner()}
	case "windows":
		return &windowsPlatform{signer: newSigntoolSigner()}
	default:
		return &posixPlatform{}
	}
}

// posixPlatform is the generic Unix behavior; Linux and the BSDs build and
// package but have no signing tool.
type posixPlatform struct{}

func (p *posixPlatform) Name() string { return "posix" }

func (p *posixPlatform) RemoveDir(path string) error {
	return os.RemoveAll(path)
}

func (p *posixPlatform) Executable(path string, info os.FileInfo) bool {
	return canExecute(path, info)
}

func (p *posixPlatform) Sign(cfg *RunConfig, exe *Executor) error {
	colWarn.Println("!! No code-signing support on this platform; skipping.")
	return nil
}

type darwinPlatform struct {
	signer *machSigner
}

func (p *darwinPlatform) Name() string { return "darwin" }

func (p *darwinPlatform) RemoveDir(path string) error {
	return os.RemoveAll(path)
}

func (p *darwinPlatform) Executable(path string, info os.FileInfo) bool {
	return canExecute(path, info)
}

func (p *darwinPlatform) Sign(cfg *RunConfig, exe *Executor) error {
	return p.signer.signTree(cfg.InstallPath, p, exe)
}

type windowsPlatform struct {
	signer *signtoolSigner
}

func (p *windowsPlatform) Name() string { return "windows" }

// RemoveDir falls back to the shell when the native removal fails. Recursive
// deletes on Windows routinely hit spurious "access denied" errors that
// rmdir /S /Q does not.
func (p *windowsPlatform) RemoveDir(path string) error {
	err := os.RemoveAll(path)
	if err == nil || os.IsNotExist(err) {
		return nil
	}
	debugf("native RemoveAll failed (%v), falling back to rmdir\n", err)
	cmd := exec.Command("cmd", "/C", fmt.Sprintf(`rmdir /S /Q "%s"`, path))
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if rmErr := cmd.Run(); rmErr != nil {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return nil
}

func (p *windowsPlatform) Executable(path string, info os.FileInfo) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".exe" || ext == ".dll" || ext == ".bat" || ext == ".cmd"
}

func (p *windowsPlatform) Sign(cfg *RunConfig, exe *Executor) error {
	return p.signer.signTree(cfg.InstallPath, exe)
}

// resolveSDKRoot picks the macOS SDK used for CMAKE_OSX_SYSROOT. The
// command-line-tools SDK wins when present; otherwise the path derives from
// the active developer directory.
func resolveSDKRoot(exe *Executor) (string, error) {
	const cltSDK = "/Library/Developer/CommandLineTools/SDKs/MacOSX.sdk"
	if _, err := os.Stat(cltSDK); err == nil {
		if _, err := os.Stat("/Applications/Xcode.app"); err == nil {
			colWarn.Println("!! Xcode and CommandLineTools both installed. Defaulting to CommandLineTools but the build may fail.")
		}
		return cltSDK, nil
	}

	out, err := exe.Output("xcode-select", "-p")
	if err != nil {
		return "", fmt.Errorf("failed to locate the active developer directory: %w", err)
	}
	devDir := strings.TrimSpace(out)
	if devDir == "" {
		return "", fmt.Errorf("xcode-select returned an empty developer directory")
	}
	return devDir + "/Platforms/MacOSX.platform/Developer/SDKs/MacOSX.sdk", nil
}
