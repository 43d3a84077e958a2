package cmd

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/adrianmross/geo-tree/pkg/config"
	"github.com/adrianmross/geo-tree/pkg/geo"
)

func newListCmd() *cobra.Command {
	var cfgPath string
	var useGlobal bool
	var output string
	var verbose bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List bookmarks",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cfg, err := loadConfig(cmd, cfgPath)
			if err != nil {
				return err
			}

			switch strings.ToLower(output) {
			case "":
				for _, b := range cfg.Bookmarks {
					marker := " "
					if b.Name == cfg.CurrentBookmark {
						marker = "*"
					}
					if verbose {
						fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s query=%s notes=%s)\n", marker, b.Name, bookmarkPath(b), b.Query, b.Notes)
						continue
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s)\n", marker, b.Name, bookmarkPath(b))
				}
				return nil
			case "json":
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(cfg.Bookmarks)
			case "yaml", "yml":
				enc := yaml.NewEncoder(cmd.OutOrStdout())
				defer enc.Close()
				return enc.Encode(cfg.Bookmarks)
			case "plain":
				for _, b := range cfg.Bookmarks {
					marker := ""
					if b.Name == cfg.CurrentBookmark {
						marker = "*"
					}
					fmt.Fprintf(cmd.OutOrStdout(), "bookmark=%s%s query=%s notes=%s\n", b.Name, marker, b.Query, b.Notes)
				}
				return nil
			default:
				return fmt.Errorf("unsupported output format: %s", output)
			}
		},
	}

	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "Path to config file")
	cmd.Flags().BoolVarP(&useGlobal, "global", "g", false, "Use global config (~/.geo-tree/config.yml)")
	cmd.Flags().StringVarP(&output, "out", "o", "", "Output format: json|yaml|plain (default: human-readable)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show query and notes in human-readable output")
	return cmd
}

// bookmarkPath renders the selection as "Europe > France > Paris".
func bookmarkPath(b config.Bookmark) string {
	p, err := b.Params()
	if err != nil {
		return b.Query
	}
	parts := make([]string, 0, 4)
	for l := geo.Regions; l <= geo.Cities; l++ {
		v := p.Get(l)
		if v == "" {
			break
		}
		parts = append(parts, geo.ValidateName(v))
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, " > ")
}
