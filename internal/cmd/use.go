package cmd

import (
	"github.com/spf13/cobra"

	"github.com/adrianmross/geo-tree/pkg/config"
)

func newUseCmd() *cobra.Command {
	var cfgPath string
	var useGlobal bool

	cmd := &cobra.Command{
		Use:   "use <name>",
		Short: "Switch current bookmark",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			path, cfg, err := loadConfig(cmd, cfgPath)
			if err != nil {
				return err
			}
			if _, err := cfg.GetBookmark(name); err != nil {
				return err
			}
			cfg.CurrentBookmark = name
			return config.Save(path, cfg)
		},
	}

	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "Path to config file")
	cmd.Flags().BoolVarP(&useGlobal, "global", "g", false, "Use global config (~/.geo-tree/config.yml)")
	return cmd
}
