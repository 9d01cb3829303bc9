package yasmbuild

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Exit codes. Scripts wrapping this tool branch on them, so every failure
// class keeps a stable code.
const (
	exitOK          = 0
	exitAborted     = 1 // operator declined a confirmation, or interrupt
	exitToolFailure = 2 // an external build tool failed
	exitEnvFailure  = 3 // host environment could not be resolved
	exitSignFailure = 4 // code signing failed
	exitUsage       = 5 // command line could not be parsed
)

// Run executes one full build with the given arguments and returns the
// process exit code.
func Run(ctx context.Context, args []string, stdin io.Reader) int {
	exe := NewExecutor(ctx)

	cfg, err := ParseFlags(args, mustBaseDir())
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		colError.Println(err)
		return exitUsage
	}

	if err := cfg.Resolve(exe); err != nil {
		colError.Println(err)
		return exitEnvFailure
	}

	printSummary(cfg)

	if cfg.Prompt && !askForConfirmation(colInfo, stdin, "Ready to build?") {
		colWarn.Println("Aborted.")
		return exitAborted
	}
	if !confirmInstallOverwrite(cfg, stdin) {
		colWarn.Println("Aborted.")
		return exitAborted
	}

	if err := os.MkdirAll(cfg.ArtifactPath, 0o755); err != nil {
		colError.Println(err)
		return exitToolFailure
	}

	if cfg.Clean {
		if err := cleanWorkspace(cfg); err != nil {
			colError.Println(err)
			return exitToolFailure
		}
	}

	if code := runBuild(cfg, exe); code != exitOK {
		return code
	}

	if cfg.Sign {
		if err := cfg.platform.Sign(cfg, exe); err != nil {
			colError.Println(err)
			return exitSignFailure
		}
	}

	archive, err := packageArtifact(cfg)
	if err != nil {
		colError.Println(err)
		return exitToolFailure
	}

	if cfg.Upload {
		if err := uploadArtifacts(ctx, archive); err != nil {
			colError.Println(err)
			return exitToolFailure
		}
	}

	if cfg.Clean {
		stage("Removing source tree")
		if err := cfg.platform.RemoveDir(cfg.SourcePath); err != nil {
			colError.Println(err)
			return exitToolFailure
		}
	}

	stage("Done")
	colSuccess.Printf("Artifact ready at %s\n", archive)
	return exitOK
}

// confirmInstallOverwrite asks separately before an existing install tree is
// replaced. Without prompting, or without a populated tree, there is nothing
// to ask and stdin is never touched.
func confirmInstallOverwrite(cfg *RunConfig, stdin io.Reader) bool {
	if !cfg.Prompt || !cfg.Install {
		return true
	}
	entries, err := os.ReadDir(cfg.InstallPath)
	if err != nil || len(entries) == 0 {
		return true
	}
	return askForConfirmation(colWarn, stdin,
		"Install tree at %s will be replaced. Continue?", cfg.InstallPath)
}

// runBuild covers clone through install. Split out so Run stays a readable
// list of stages.
func runBuild(cfg *RunConfig, exe *Executor) int {
	if cfg.SkipClone {
		if _, err := os.Stat(cfg.SourcePath); err != nil {
			colError.Printf("--no-clone given but no source tree at %s\n", cfg.SourcePath)
			return exitToolFailure
		}
		colInfo.Printf("Reusing source tree at %s\n", cfg.SourcePath)
	} else {
		if err := cloneSource(cfg, exe); err != nil {
			colError.Println(err)
			return exitToolFailure
		}
		if err := applyPatches(cfg, exe); err != nil {
			colError.Println(err)
			return exitToolFailure
		}
	}

	if err := configureSource(cfg, exe); err != nil {
		colError.Println(err)
		return exitToolFailure
	}
	if err := buildSource(cfg, exe); err != nil {
		colError.Println(err)
		return exitToolFailure
	}

	if !cfg.Install {
		if _, err := os.Stat(cfg.InstallPath); err != nil {
			colError.Printf("--no-install given but no install tree at %s\n", cfg.InstallPath)
			return exitToolFailure
		}
		colInfo.Printf("Reusing install tree at %s\n", cfg.InstallPath)
		return exitOK
	}
	if err := installBuild(cfg, exe); err != nil {
		colError.Println(err)
		return exitToolFailure
	}
	return exitOK
}

// printSummary shows the resolved run before anything destructive happens.
func printSummary(cfg *RunConfig) {
	stage("%s build v%s", packageName, version)

	colSuccess.Printf("Source path is               %s\n", cfg.SourcePath)
	colSuccess.Printf("Build path is                %s\n", cfg.BuildPath)
	colSuccess.Printf("Install path is              %s\n", cfg.InstallPath)
	colSuccess.Printf("Artifact path is             %s\n", cfg.ArtifactPath)
	colSuccess.Printf("Cloning source:              %s\n", yesNo(!cfg.SkipClone))
	colSuccess.Printf("Cleaning before building:    %s\n", yesNo(cfg.Clean))
	colSuccess.Printf("Installing after building:   %s\n", yesNo(cfg.Install))
	colSuccess.Printf("Signing executables:         %s\n", yesNo(cfg.Sign))
	colSuccess.Printf("Universal build:             %s\n", yesNo(cfg.Universal))
	colSuccess.Printf("Uploading to mirror:         %s\n", yesNo(cfg.Upload))
	colSuccess.Printf("Archive format:              %s\n", cfg.Format)
	if cfg.Jobs > 0 {
		colSuccess.Printf("Build threads:               %d\n", cfg.Jobs)
	}
	for _, patch := range cfg.Patches {
		colSuccess.Printf("Apply patch:                 %s\n", filepath.Base(patch))
	}
}

func yesNo(b bool) string {
	if b {
		return "YES"
	}
	return "NO"
}

// mustBaseDir anchors all relative paths at the working directory.
func mustBaseDir() string {
	dir, err := os.Getwd()
	if err != nil {
		// Getwd only fails when the cwd was deleted out from under us.
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitEnvFailure)
	}
	return dir
}
