package internal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gookit/color"
	"github.com/spf13/cobra"

	"github.com/goplus/depbuild/internal/builder"
	"github.com/goplus/depbuild/internal/config"
	"github.com/goplus/depbuild/internal/metrics"
	"github.com/goplus/depbuild/internal/orchestrator"
	"github.com/goplus/depbuild/internal/platform"
	"github.com/goplus/depbuild/internal/registry"
	"github.com/goplus/depbuild/pkgs/buildsys"
)

// buildFlags holds the settings shared by build and the root command.
type buildFlags struct {
	arch        string
	buildType   string
	macOSSDK    string
	runtimeLib  string
	library     string
	noDeps      bool
	dryRun      bool
	jobs        int
	metricsFile string
}

var buildOpts buildFlags

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build libraries in dependency order",
	Long: `Build compiles every library enabled on the host platform, or a single
library with or without its dependencies, and stops at the first failure.`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

func init() {
	for _, cmd := range []*cobra.Command{rootCmd, buildCmd} {
		f := cmd.Flags()
		f.StringVar(&buildOpts.arch, "arch", config.HostArch(), "Target architecture: x86_64 or arm64")
		f.StringVar(&buildOpts.buildType, "build-type", config.Release, "Build type: Release or Debug")
		f.StringVar(&buildOpts.macOSSDK, "macos-sdk", "", "macOS deployment target, e.g. 13.0 (required on macOS)")
		f.StringVar(&buildOpts.runtimeLib, "runtime-lib", config.RuntimeMD, "Windows runtime library: MD or MT")
		f.StringVar(&buildOpts.library, "library", "", "Build only this library (with dependencies unless --no-deps)")
		f.BoolVar(&buildOpts.noDeps, "no-deps", false, "Do not build the dependencies of --library")
		f.BoolVar(&buildOpts.dryRun, "dry-run", false, "Show what would be built without building")
		f.IntVarP(&buildOpts.jobs, "jobs", "j", 0, "Parallel jobs passed to the native build tool (0: tool default)")
		f.StringVar(&buildOpts.metricsFile, "metrics-file", "", "Write Prometheus metrics of the run to this file")
	}
	rootCmd.AddCommand(buildCmd)
}

// newConfig returns the build configuration selected by the flags.
func (o *buildFlags) newConfig(root string) *config.Config {
	cfg := config.New(root)
	cfg.Arch = config.NormalizeArch(o.arch)
	cfg.BuildType = o.buildType
	cfg.MacOSDeploymentTarget = o.macOSSDK
	cfg.RuntimeLib = o.runtimeLib
	return cfg
}

func runBuild(cmd *cobra.Command, args []string) error {
	if buildOpts.noDeps && buildOpts.library == "" {
		return fmt.Errorf("--no-deps requires --library")
	}
	root, libraries, err := workspace()
	if err != nil {
		return err
	}

	cfg := buildOpts.newConfig(root)
	// configuration problems are reported before anything is loaded
	if problems := cfg.Validate(); len(problems) > 0 {
		return &orchestrator.ConfigError{Problems: problems}
	}

	runner := buildsys.ExecRunner{Stdout: cmd.OutOrStdout(), Stderr: cmd.ErrOrStderr()}
	provider, err := platform.New(cfg.PlatformName(), runner)
	if err != nil {
		return err
	}
	reg, err := registry.Load(libraries)
	if err != nil {
		return err
	}

	var rec *metrics.Recorder
	if buildOpts.metricsFile != "" {
		rec = metrics.New()
	}
	o := orchestrator.New(reg, cfg, provider, runner, orchestrator.Options{
		Jobs:    buildOpts.jobs,
		Metrics: rec,
	})

	libs, err := o.Select(orchestrator.Selection{Library: buildOpts.library, NoDeps: buildOpts.noDeps})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	banner(out, fmt.Sprintf("Building dependencies for '%s'", cfg.BuildSuffix()))
	if buildOpts.dryRun {
		steps, err := o.Plan(libs)
		if err != nil {
			return err
		}
		printPlan(out, steps)
		color.Fprintln(out, color.Info.Sprintf("Dry run - no builds performed."))
		return nil
	}
	fmt.Fprintln(out, "Libraries to build:")
	for _, lib := range libs {
		fmt.Fprintf(out, "  - %s\n", lib.Name)
	}
	fmt.Fprintln(out)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	results, runErr := o.Run(ctx, libs)
	if rec != nil {
		if err := rec.WriteFile(buildOpts.metricsFile); err != nil {
			slog.Error("write metrics", "file", buildOpts.metricsFile, "error", err)
		}
	}
	printResults(out, results)
	if runErr != nil {
		return runErr
	}
	banner(out, "All builds completed successfully!")
	return nil
}

func banner(w io.Writer, title string) {
	line := strings.Repeat("=", 60)
	color.Fprintln(w, color.Info.Sprintf("\n%s\n%s\n%s\n", line, title, line))
}

func printPlan(w io.Writer, steps []orchestrator.Step) {
	fmt.Fprintln(w, "Libraries to build:")
	for _, s := range steps {
		fmt.Fprintf(w, "  - %s (%s)\n", s.Library, s.BuildSystem)
		if len(s.DependsOn) > 0 {
			fmt.Fprintf(w, "      depends on: %s\n", strings.Join(s.DependsOn, ", "))
		}
		fmt.Fprintf(w, "      source:  %s\n      build:   %s\n      install: %s\n", s.SourceDir, s.BuildDir, s.InstallDir)
	}
	fmt.Fprintln(w)
}

func printResults(w io.Writer, results []builder.Result) {
	for _, res := range results {
		d := res.Duration.Round(time.Millisecond)
		if res.OK() {
			color.Fprintln(w, color.Success.Sprintf("  ok    %-20s %s", res.Library, d))
			continue
		}
		color.Fprintln(w, color.Danger.Sprintf("  FAIL  %-20s %s", res.Library, d))
	}
}
