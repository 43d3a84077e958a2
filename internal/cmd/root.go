package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/adrianmross/geo-tree/internal/logger"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "geo-tree",
		Short:         "Browse regions, countries, states and cities; keep the selection as a query string",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Persistent flags for config location (not the selection itself)
	pf := cmd.PersistentFlags()
	pf.String("config", "", "Path to config file (default project .geo-tree.yml else $HOME/.geo-tree/config.yml)")
	pf.BoolP("global", "g", false, "Force use of global config (~/.geo-tree/config.yml)")

	cmd.AddCommand(
		newInitCmd(),
		newListCmd(),
		newCurrentCmd(),
		newUseCmd(),
		newAddCmd(),
		newSetCmd(),
		newDeleteCmd(),
		newStatusCmd(),
		newLocateCmd(),
		newExportCmd(),
		newImportCmd(),
		newDaemonCmd(),
		newTuiCmd(),
	)

	return cmd
}

// Execute runs the CLI.
func Execute() {
	_ = godotenv.Load(".env")
	logger.Setup()
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// ExecuteDaemon runs the daemon entrypoint.
func ExecuteDaemon() {
	_ = godotenv.Load(".env")
	logger.Setup()
	if err := newDaemonServeCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
