package internal

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goplus/depbuild/internal/config"
	"github.com/goplus/depbuild/internal/orchestrator"
	"github.com/goplus/depbuild/internal/platform"
	"github.com/goplus/depbuild/pkgs/buildsys"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove build directories and empty output directories",
	Long: `Clean removes <root>/builds and empties every directory under <root>/output.
The output directories themselves are kept since other projects may link
to them.`,
	Args: cobra.NoArgs,
	RunE: runClean,
}

func init() {
	rootCmd.AddCommand(cleanCmd)
}

func runClean(cmd *cobra.Command, args []string) error {
	root, _, err := workspace()
	if err != nil {
		return err
	}
	provider, err := platform.New(config.HostPlatform(), buildsys.ExecRunner{})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	banner(out, "Cleaning build directories")
	emptied, err := orchestrator.Clean(root, provider)
	for _, dir := range emptied {
		fmt.Fprintf(out, "  Emptied: %s/\n", dir)
	}
	if err != nil {
		return err
	}
	banner(out, "Clean completed!")
	return nil
}
