package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/adrianmross/geo-tree/pkg/config"
)

func newDeleteCmd() *cobra.Command {
	var cfgPath string
	var useGlobal bool

	cmd := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a bookmark",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			path, cfg, err := loadConfig(cmd, cfgPath)
			if err != nil {
				return err
			}
			if err := cfg.DeleteBookmark(name); err != nil {
				return err
			}
			if err := config.Save(path, cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted bookmark %s\n", name)
			return nil
		},
	}

	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "Path to config file")
	cmd.Flags().BoolVarP(&useGlobal, "global", "g", false, "Use global config (~/.geo-tree/config.yml)")
	return cmd
}
