package yasmbuild

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// cmakeParam is one -D cache entry. A slice keeps the configure command line
// in a stable, reviewable order.
type cmakeParam struct {
	Option string
	Value  string
}

// cmakeParams assembles the configure-time cache entries for this run.
func cmakeParams(cfg *RunConfig) []cmakeParam {
	params := []cmakeParam{
		{"CMAKE_BUILD_TYPE", "Release"},
		{"BUILD_SHARED_LIBS", "OFF"},
		{"CMAKE_INSTALL_PREFIX", cfg.InstallPath},
	}
	if cfg.SDKRoot != "" {
		params = append(params,
			cmakeParam{"CMAKE_OSX_SYSROOT", cfg.SDKRoot},
			cmakeParam{"CMAKE_OSX_DEPLOYMENT_TARGET", "10.14"},
		)
		if cfg.Universal {
			params = append(params, cmakeParam{"CMAKE_OSX_ARCHITECTURES", "arm64;x86_64"})
		}
	}
	return params
}

// configureSource runs the cmake configure step in a dedicated build
// directory under the source tree.
func configureSource(cfg *RunConfig, exe *Executor) error {
	stage("Configuring %s", packageName)

	if err := os.MkdirAll(cfg.BuildPath, 0o755); err != nil {
		return fmt.Errorf("failed to create build directory: %w", err)
	}

	args := []string{}
	for _, p := range cmakeParams(cfg) {
		args = append(args, fmt.Sprintf("-D%s=%s", p.Option, p.Value))
	}
	args = append(args, "-G", cfg.Generator, cfg.SourcePath)

	colInfo.Printf("cmake %s\n", strings.Join(args, " "))
	cmd := exec.Command("cmake", args...)
	cmd.Dir = cfg.BuildPath
	if err := exe.Run(cmd); err != nil {
		return fmt.Errorf("cmake configure failed: %w", err)
	}
	return nil
}

// buildSource compiles the configured tree.
func buildSource(cfg *RunConfig, exe *Executor) error {
	stage("Building %s", packageName)

	args := []string{}
	if cfg.Jobs > 0 {
		args = append(args, "-j", strconv.Itoa(cfg.Jobs))
	}
	cmd := exec.Command("ninja", args...)
	cmd.Dir = cfg.BuildPath
	if err := exe.Run(cmd); err != nil {
		return fmt.Errorf("build failed: %w", err)
	}
	return nil
}

// installBuild stages the build output into a freshly-recreated install
// prefix so a prior run's files never leak into this build's artifact.
func installBuild(cfg *RunConfig, exe *Executor) error {
	stage("Installing %s to %s", packageName, cfg.InstallPath)

	if err := cfg.platform.RemoveDir(cfg.InstallPath); err != nil {
		return fmt.Errorf("failed to clear install prefix: %w", err)
	}
	if err := os.MkdirAll(cfg.InstallPath, 0o755); err != nil {
		return fmt.Errorf("failed to create install prefix: %w", err)
	}

	cmd := exec.Command("ninja", "install")
	cmd.Dir = cfg.BuildPath
	if err := exe.Run(cmd); err != nil {
		return fmt.Errorf("install failed: %w", err)
	}
	return nil
}
