package cmd

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/adrianmross/geo-tree/pkg/browser"
	"github.com/adrianmross/geo-tree/pkg/geo"
	"github.com/adrianmross/geo-tree/pkg/query"
)

func newLocateCmd() *cobra.Command {
	var cfgPath string
	var useGlobal bool
	var rawQuery string
	var output string

	cmd := &cobra.Command{
		Use:   "locate <value>",
		Short: "Find which regions hold a name, code or id within the loaded selection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cfg, err := loadConfig(cmd, cfgPath)
			if err != nil {
				return err
			}
			raw := rawQuery
			if raw == "" {
				if b, err := currentBookmark(cfg); err == nil {
					raw = b.Query
				}
			}
			p, err := query.Parse(raw)
			if err != nil {
				return err
			}
			_, tree, err := restoreSelection(cmd.Context(), cfg.Options, p)
			if err != nil {
				return err
			}

			results := browser.Locate(tree, args[0])
			switch strings.ToLower(output) {
			case "":
				if len(results) == 0 {
					return fmt.Errorf("%s: %w", args[0], geo.ErrNotFound)
				}
				for _, r := range results {
					fmt.Fprintln(cmd.OutOrStdout(), r.Region)
					for _, path := range r.Paths {
						fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", path)
					}
				}
				return nil
			case "json":
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(results)
			default:
				return fmt.Errorf("unsupported output format: %s", output)
			}
		},
	}

	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "Path to config file")
	cmd.Flags().BoolVarP(&useGlobal, "global", "g", false, "Use global config (~/.geo-tree/config.yml)")
	cmd.Flags().StringVarP(&rawQuery, "query", "q", "", "Selection to load before searching (default: current bookmark)")
	cmd.Flags().StringVarP(&output, "out", "o", "", "Output format: json (default: human-readable)")
	return cmd
}
