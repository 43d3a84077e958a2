package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/adrianmross/geo-tree/pkg/config"
)

func newCurrentCmd() *cobra.Command {
	var cfgPath string
	var useGlobal bool
	var showQuery bool

	cmd := &cobra.Command{
		Use:   "current",
		Short: "Show the current bookmark name",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cfg, err := loadConfig(cmd, cfgPath)
			if err != nil {
				return err
			}
			b, err := currentBookmark(cfg)
			if err != nil {
				return err
			}
			if showQuery {
				fmt.Fprintln(cmd.OutOrStdout(), b.Query)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), b.Name)
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "Path to config file")
	cmd.Flags().BoolVarP(&useGlobal, "global", "g", false, "Use global config (~/.geo-tree/config.yml)")
	cmd.Flags().BoolVarP(&showQuery, "query", "q", false, "Print the query string instead of the name")
	return cmd
}

func currentBookmark(cfg config.Config) (config.Bookmark, error) {
	if cfg.CurrentBookmark == "" {
		return config.Bookmark{}, fmt.Errorf("no current bookmark set")
	}
	return cfg.GetBookmark(cfg.CurrentBookmark)
}
