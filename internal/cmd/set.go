package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/adrianmross/geo-tree/pkg/config"
	"github.com/adrianmross/geo-tree/pkg/query"
)

func newSetCmd() *cobra.Command {
	var cfgPath string
	var useGlobal bool
	var rawQuery, notes string
	var levels levelFlags

	cmd := &cobra.Command{
		Use:   "set <name>",
		Short: "Update fields of a bookmark",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			path, cfg, err := loadConfig(cmd, cfgPath)
			if err != nil {
				return err
			}
			b, err := cfg.GetBookmark(name)
			if err != nil {
				return err
			}
			if rawQuery != "" {
				b.Query = rawQuery
			}
			p, err := query.Parse(b.Query)
			if err != nil {
				return err
			}
			b.Query = levels.apply(p).Encode()
			if notes != "" {
				b.Notes = notes
			}
			if err := b.Validate(); err != nil {
				return err
			}
			if err := cfg.UpsertBookmark(b); err != nil {
				return err
			}
			if err := config.Save(path, cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated bookmark %s\n", name)
			return nil
		},
	}

	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "Path to config file")
	cmd.Flags().BoolVarP(&useGlobal, "global", "g", false, "Use global config (~/.geo-tree/config.yml)")
	cmd.Flags().StringVarP(&rawQuery, "query", "q", "", "Replace the query string")
	cmd.Flags().StringVarP(&notes, "notes", "N", "", "Notes")
	levels.register(cmd)

	return cmd
}
