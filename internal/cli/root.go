package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"filethings/internal/app"
)

var (
	dataDir    string
	outputJSON bool
	debugFlag  bool
)

// Execute runs the root cobra command.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "filethings",
		Short:         "FileThings local back-end service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "App data directory (default: FILETHINGS_DATA_DIR or the OS data dir)")
	cmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Output machine-readable JSON")
	cmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Enable debug logging and dev-only actions")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newActionCmd())
	cmd.AddCommand(newCommandsCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newFunctionsCmd())
	cmd.AddCommand(newToolsCmd())
	cmd.AddCommand(newUpdateCmd())
	cmd.AddCommand(newPathsCmd())
	return cmd
}

// openServices loads settings and registries for a command. Log records go
// to the rotating file only, unless --debug mirrors them to stderr.
func openServices(cmd *cobra.Command) (*app.Services, io.Closer, error) {
	var stderr io.Writer
	if debugFlag {
		stderr = cmd.ErrOrStderr()
	}
	return app.Open(app.Options{DataDir: dataDir, Debug: debugFlag, Stderr: stderr})
}
