package internal

import (
	"fmt"
	"io"
	"strings"

	"github.com/gookit/color"
	"github.com/spf13/cobra"

	"github.com/goplus/depbuild/internal/config"
	"github.com/goplus/depbuild/internal/library"
	"github.com/goplus/depbuild/internal/registry"
)

var listPlatform string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the libraries available on a platform",
	Long:  `List prints the libraries enabled on a platform in build order.`,
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listCmd.Flags().StringVar(&listPlatform, "platform", config.HostPlatform(), "Platform: linux, macos or windows")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	_, libraries, err := workspace()
	if err != nil {
		return err
	}
	reg, err := registry.Load(libraries)
	if err != nil {
		return err
	}
	libs, err := reg.BuildOrder(listPlatform)
	if err != nil {
		return err
	}
	printLibraries(cmd.OutOrStdout(), libs, listPlatform)
	return nil
}

func printLibraries(w io.Writer, libs []*library.Library, platform string) {
	color.Fprintln(w, color.Info.Sprintf("\nAvailable libraries:\n"))
	for _, lib := range libs {
		var details []string
		if len(lib.DependsOn) > 0 {
			details = append(details, "depends on: "+strings.Join(lib.DependsOn, ", "))
		}
		if bs := lib.EffectiveBuildSystem(platform); bs != library.CMake {
			details = append(details, "build: "+string(bs))
		}
		suffix := ""
		if len(details) > 0 {
			suffix = " (" + strings.Join(details, ", ") + ")"
		}
		fmt.Fprintf(w, "  - %s%s\n", lib.Name, suffix)
	}
	fmt.Fprintf(w, "\nTotal: %d libraries for %s\n", len(libs), platform)
}
