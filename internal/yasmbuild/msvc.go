package yasmbuild

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// vcvarsPath is where the Visual Studio Build Tools drop the x64 environment
// script for the pinned release.
func vcvarsPath() string {
	return filepath.Join(
		`C:\Program Files (x86)\Microsoft Visual Studio`,
		vsVersion, "BuildTools", "VC", "Auxiliary", "Build", "vcvars64.bat",
	)
}

// resolveWindowsEnv captures the compiler environment that vcvars64.bat would
// set up, by running it in a child cmd.exe and dumping `set` afterwards. The
// result is handed to the Executor so cmake and ninja see cl.exe without the
// parent process ever mutating its own environment.
func resolveWindowsEnv(exe *Executor) ([]string, error) {
	script := vcvarsPath()
	if _, err := os.Stat(script); err != nil {
		return nil, fmt.Errorf("Visual Studio %s Build Tools not found at %s: %w", vsVersion, script, err)
	}

	stage("Loading MSVC %s environment", msvcBuild)
	out, err := exe.Output("cmd", "/C",
		fmt.Sprintf(`call "%s" -vcvars_ver=%s && set`, script, msvcBuild))
	if err != nil {
		return nil, fmt.Errorf("failed to run vcvars64.bat: %w", err)
	}

	vars, err := parseEnvBlock([]byte(out))
	if err != nil {
		return nil, err
	}
	return mergeEnv(os.Environ(), vars), nil
}

// parseEnvBlock extracts KEY=VALUE pairs from the output of `set`. The
// script's own banner lines have no '=' and are skipped; an output with no
// pairs at all means the script failed before reaching `set`.
func parseEnvBlock(out []byte) (map[string]string, error) {
	vars := make(map[string]string)
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimRight(line, "\r")
		i := strings.Index(line, "=")
		if i < 1 {
			continue
		}
		vars[line[:i]] = line[i+1:]
	}
	if len(vars) == 0 {
		return nil, fmt.Errorf("no environment variables in vcvars64.bat output")
	}
	return vars, nil
}

// mergeEnv overlays vars on top of a base environment, replacing existing
// keys case-insensitively (Windows environment names are case-insensitive).
func mergeEnv(base []string, vars map[string]string) []string {
	upper := make(map[string]string, len(vars))
	for k, v := range vars {
		upper[strings.ToUpper(k)] = v
	}

	merged := make([]string, 0, len(base)+len(vars))
	seen := make(map[string]bool, len(vars))
	for _, kv := range base {
		i := strings.Index(kv, "=")
		if i < 1 {
			merged = append(merged, kv)
			continue
		}
		key := strings.ToUpper(kv[:i])
		if v, ok := upper[key]; ok {
			merged = append(merged, kv[:i]+"="+v)
			seen[key] = true
		} else {
			merged = append(merged, kv)
		}
	}
	for k, v := range vars {
		if !seen[strings.ToUpper(k)] {
			merged = append(merged, k+"="+v)
		}
	}
	return merged
}
