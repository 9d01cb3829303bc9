package yasmbuild

import (
	"flag"
	"fmt"
	"math"
	"path/filepath"
	"runtime"

	"github.com/shirou/gopsutil/v4/cpu"
)

// Archive formats accepted by --format. Zip is the historical default; the
// tar variants carry the same permission mapping in tar headers.
const (
	FormatZip    = "zip"
	FormatTarGz  = "tar.gz"
	FormatTarXz  = "tar.xz"
	FormatTarZst = "tar.zst"
)

// RunConfig is the fully-resolved configuration for one run. It is built
// once from flags plus platform probing and never mutated afterwards; every
// stage reads from it.
type RunConfig struct {
	SkipClone bool
	Clean     bool
	Prompt    bool
	Install   bool
	Sign      bool
	Universal bool
	Upload    bool
	Jobs      int // build parallelism; 0 on Windows (ninja decides)
	Format    string

	Patches []string // resolved patch paths, in application order

	BaseDir      string
	SourcePath   string // build/src
	BuildPath    string // build/src/build
	InstallPath  string // build/install/yasm/<version>
	ArtifactPath string // artifacts/
	PatchesPath  string // patches/

	Generator string // build-system generator handed to cmake
	SDKRoot   string // macOS only; empty elsewhere
	Env       []string

	platform Platform
}

// defaultJobs returns ceil(1.1 * logical CPUs), the historical default for
// the ninja job count on non-Windows hosts.
func defaultJobs() int {
	n, err := cpu.Counts(true)
	if err != nil || n < 1 {
		n = runtime.NumCPU()
	}
	return int(math.Ceil(float64(n) * 1.1))
}

// ParseFlags builds a RunConfig from command-line arguments and the base
// directory, without touching the platform (SDK probing and environment
// resolution happen in Resolve so flag handling stays testable).
func ParseFlags(args []string, baseDir string) (*RunConfig, error) {
	cfg := &RunConfig{
		BaseDir:   baseDir,
		Generator: "Ninja",
	}

	fs := flag.NewFlagSet("yasm-build", flag.ContinueOnError)
	fs.BoolVar(&cfg.SkipClone, "no-clone", false, "skip cloning the yasm source code")
	noClean := fs.Bool("no-clean", false, "don't clean before building")
	noPrompt := fs.Bool("no-prompt", false, "don't wait for user confirmation")
	noInstall := fs.Bool("no-install", false, "skip the install step and reuse an existing install tree")
	fs.BoolVar(&cfg.Universal, "universal", false, "build for both x86_64 and arm64 (arm64 Mac host only)")
	fs.BoolVar(&cfg.Sign, "sign", false, "sign all executables")
	fs.BoolVar(&cfg.Upload, "upload", false, "upload the final archive to the release mirror")
	fs.StringVar(&cfg.Format, "format", FormatZip, "archive format: zip, tar.gz, tar.xz or tar.zst")
	fs.BoolVar(&Debug, "debug", false, "enable debug output")
	var extraPatches patchList
	fs.Var(&extraPatches, "patch", "patch the source before building (repeatable)")

	// The external build tool manages its own parallelism on Windows, so
	// the jobs flag only exists elsewhere.
	var jobs *int
	if runtime.GOOS != "windows" {
		jobs = fs.Int("jobs", defaultJobs(), "number of build threads (defaults to 1.1*cpu_count)")
		fs.IntVar(jobs, "j", *jobs, "number of build threads (shorthand)")
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if len(fs.Args()) > 0 {
		return nil, fmt.Errorf("unexpected argument: %s", fs.Args()[0])
	}

	cfg.Clean = !*noClean
	cfg.Prompt = !*noPrompt
	cfg.Install = !*noInstall
	if jobs != nil {
		if *jobs < 1 {
			return nil, fmt.Errorf("invalid job count %d", *jobs)
		}
		cfg.Jobs = *jobs
	}

	switch cfg.Format {
	case FormatZip, FormatTarGz, FormatTarXz, FormatTarZst:
	default:
		return nil, fmt.Errorf("unknown archive format %q", cfg.Format)
	}

	buildDir := filepath.Join(baseDir, "build")
	cfg.SourcePath = filepath.Join(buildDir, "src")
	cfg.BuildPath = filepath.Join(cfg.SourcePath, "build")
	cfg.ArtifactPath = filepath.Join(baseDir, "artifacts")
	cfg.InstallPath = filepath.Join(buildDir, "install", packageName, yasmVersion)
	cfg.PatchesPath = filepath.Join(baseDir, "patches")
	cfg.Patches = extraPatches

	return cfg, nil
}

// Resolve finishes configuration with everything that needs the host
// platform: patch discovery, the platform strategy, the macOS SDK root and
// the Windows compiler environment. After Resolve returns the config is
// immutable.
func (cfg *RunConfig) Resolve(exe *Executor) error {
	discovered, err := discoverPatches(cfg.PatchesPath)
	if err != nil {
		return err
	}
	// Discovered patches apply first, explicit --patch arguments after, in
	// the order given.
	cfg.Patches = append(discovered, cfg.Patches...)

	cfg.platform = newPlatform(runtime.GOOS)

	if cfg.Universal && runtime.GOOS != "darwin" {
		colWarn.Println("!! --universal is a macOS-only feature; ignoring it on this platform.")
		cfg.Universal = false
	}

	switch runtime.GOOS {
	case "darwin":
		sdkRoot, err := resolveSDKRoot(exe)
		if err != nil {
			return err
		}
		cfg.SDKRoot = sdkRoot
		colSuccess.Printf("Sysroot is                   %s\n", sdkRoot)
	case "windows":
		env, err := resolveWindowsEnv(exe)
		if err != nil {
			return err
		}
		cfg.Env = env
	}

	exe.Env = cfg.Env
	return nil
}

// ArchiveName returns the artifact file name for the configured format.
func (cfg *RunConfig) ArchiveName() string {
	return fmt.Sprintf("%s-%s.%s", packageName, yasmVersion, cfg.Format)
}

// patchList collects repeatable --patch flags.
type patchList []string

func (p *patchList) String() string { return fmt.Sprint([]string(*p)) }

func (p *patchList) Set(v string) error {
	abs, err := filepath.Abs(v)
	if err != nil {
		return err
	}
	*p = append(*p, abs)
	return nil
}
