package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/adrianmross/geo-tree/pkg/bookmarkfile"
	"github.com/adrianmross/geo-tree/pkg/config"
)

func newImportCmd() *cobra.Command {
	var cfgPath string
	var useGlobal bool
	var filePath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import bookmarks from an INI file ([name] sections with region/country/state/city)",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, cfg, err := loadConfig(cmd, cfgPath)
			if err != nil {
				return err
			}
			if filePath == "" {
				return fmt.Errorf("--file is required")
			}

			entries, err := bookmarkfile.Load(filePath)
			if err != nil {
				return err
			}

			imported := 0
			skipped := 0
			for _, e := range entries {
				b := config.Bookmark{
					Name:  e.Name,
					Query: e.Params.Encode(),
					Notes: e.Notes,
				}
				if b.Notes == "" {
					b.Notes = "imported from " + filePath
				}
				if err := b.Validate(); err != nil {
					return fmt.Errorf("entry %s invalid: %w", e.Name, err)
				}
				if !overwrite {
					if _, err := cfg.GetBookmark(e.Name); err == nil {
						fmt.Fprintf(cmd.ErrOrStderr(), "skip: %s (exists)\n", e.Name)
						skipped++
						continue
					}
				}
				if err := cfg.UpsertBookmark(b); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "import: %s (%s)\n", e.Name, b.Query)
				imported++
			}

			if err := config.Save(path, cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d bookmarks (skipped %d) from %s\n", imported, skipped, filePath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "Path to geo-tree config file")
	cmd.Flags().BoolVarP(&useGlobal, "global", "g", false, "Use global config (~/.geo-tree/config.yml)")
	cmd.Flags().StringVarP(&filePath, "file", "f", "", "Path to bookmark INI file")
	cmd.Flags().BoolVarP(&overwrite, "overwrite", "w", false, "Overwrite existing bookmarks with same name")
	return cmd
}
