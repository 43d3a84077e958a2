package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/adrianmross/geo-tree/pkg/config"
	"github.com/adrianmross/geo-tree/pkg/geo"
	"github.com/adrianmross/geo-tree/pkg/query"
)

// levelFlags holds the --region/--country/--state/--city values.
type levelFlags [4]string

func (lf *levelFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&lf[geo.Regions], "region", "r", "", "Region (Africa, Americas, Asia, Europe, Oceania, Polar)")
	cmd.Flags().StringVarP(&lf[geo.Countries], "country", "C", "", "Country name")
	cmd.Flags().StringVarP(&lf[geo.States], "state", "s", "", "State name")
	cmd.Flags().StringVar(&lf[geo.Cities], "city", "", "City name")
}

// apply sets the given levels on p in hierarchy order. Setting a level
// clears the ones below it unless they are given too.
func (lf levelFlags) apply(p query.Params) query.Params {
	for l := geo.Regions; l <= geo.Cities; l++ {
		if v := lf[l]; v != "" {
			p = p.Set(l, v)
		}
	}
	return p
}

func newAddCmd() *cobra.Command {
	var cfgPath string
	var useGlobal bool
	var b config.Bookmark
	var levels levelFlags

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add or update a bookmark",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := query.Parse(b.Query)
			if err != nil {
				return err
			}
			b.Query = levels.apply(p).Encode()
			if err := b.Validate(); err != nil {
				return err
			}
			path, cfg, err := loadConfig(cmd, cfgPath)
			if err != nil {
				return err
			}
			if err := cfg.UpsertBookmark(b); err != nil {
				return err
			}
			if err := config.Save(path, cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added/updated bookmark %s\n", b.Name)
			return nil
		},
	}

	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "Path to config file")
	cmd.Flags().BoolVarP(&useGlobal, "global", "g", false, "Use global config (~/.geo-tree/config.yml)")
	cmd.Flags().StringVarP(&b.Name, "name", "n", "", "Bookmark name")
	cmd.Flags().StringVarP(&b.Query, "query", "q", "", "Query string or URL (region=...&country=...)")
	cmd.Flags().StringVarP(&b.Notes, "notes", "N", "", "Notes")
	levels.register(cmd)

	_ = cmd.MarkFlagRequired("name")

	return cmd
}
