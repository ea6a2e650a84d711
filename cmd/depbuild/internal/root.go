package internal

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/gookit/color"
	"github.com/spf13/cobra"

	"github.com/goplus/depbuild/internal/env"
	"github.com/goplus/depbuild/internal/logging"
	"github.com/goplus/depbuild/internal/orchestrator"
)

var (
	rootDir      string
	librariesDir string
	logLevel     string
)

var rootCmd = &cobra.Command{
	Use:   "depbuild",
	Short: "depbuild builds external native libraries",
	Long: `depbuild builds the external native libraries described in a workspace
with CMake, Autotools, Meson or MSYS2, in dependency order, into an output
tree per platform, architecture and build type.

Without a subcommand depbuild behaves like "depbuild build".`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.SetDefault(logLevel)
	},
	RunE: runBuild,
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&rootDir, "root", "", "Workspace root (default $"+env.RootVar+" or the working directory)")
	f.StringVar(&librariesDir, "libraries", "", "Directory of library descriptors (default <root>/libraries)")
	f.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error (default $"+logging.EnvLevel+" or info)")
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

// printError reports err on w, one line per configuration problem.
func printError(w io.Writer, err error) {
	var cerr *orchestrator.ConfigError
	if errors.As(err, &cerr) {
		for _, p := range cerr.Problems {
			color.Fprintln(w, color.Danger.Sprintf("Error: %s", p))
		}
		return
	}
	color.Fprintln(w, color.Danger.Sprintf("Error: %v", err))
}

// workspace resolves the root and libraries directories from the flags.
func workspace() (root, libraries string, err error) {
	root = rootDir
	if root == "" {
		if root, err = env.RootDir(); err != nil {
			return "", "", fmt.Errorf("resolve workspace root: %w", err)
		}
	}
	libraries = librariesDir
	if libraries == "" {
		libraries = env.LibrariesDir(root)
	}
	return root, libraries, nil
}
