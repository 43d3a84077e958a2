package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/adrianmross/geo-tree/pkg/config"
	"github.com/adrianmross/geo-tree/pkg/geo"
	"github.com/adrianmross/geo-tree/pkg/query"
)

// restoreSelection fetches the chain for p over the configured endpoint.
func restoreSelection(ctx context.Context, opts config.Options, p query.Params) ([]geo.Node, geo.Tree, error) {
	b, closeFn, err := newBrowser(opts)
	if err != nil {
		return nil, geo.Tree{}, err
	}
	defer closeFn()
	chain, err := b.Restore(ctx, p)
	return chain, b.Tree(), err
}

func newStatusCmd() *cobra.Command {
	var useGlobal bool
	var cfgPath string
	var output string
	var plain bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show current bookmark resolved against the API (names and ids)",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cfg, err := loadConfig(cmd, cfgPath)
			if err != nil {
				return err
			}
			b, err := currentBookmark(cfg)
			if err != nil {
				return err
			}
			p, err := b.Params()
			if err != nil {
				return err
			}
			chain, _, err := restoreSelection(cmd.Context(), cfg.Options, p)
			if err != nil {
				return err
			}

			resp := map[string]string{"bookmark": b.Name, "query": query.FromChain(chain).Encode()}
			for _, n := range chain {
				param := n.Level.Param()
				resp[param] = n.DisplayName()
				resp[param+"_id"] = strconv.FormatInt(n.Record.ID, 10)
			}
			var unresolved []string
			for l := geo.Level(len(chain)); l <= geo.Cities; l++ {
				if v := p.Get(l); v != "" {
					unresolved = append(unresolved, l.Param()+"="+geo.ValidateName(v))
				}
			}
			if len(unresolved) > 0 {
				resp["unresolved"] = strings.Join(unresolved, " ")
			}

			if plain {
				parts := []string{"bookmark=" + b.Name}
				for _, n := range chain {
					parts = append(parts, n.Level.Param()+"="+resp[n.Level.Param()+"_id"])
				}
				fmt.Fprintln(cmd.OutOrStdout(), strings.Join(parts, " "))
				return nil
			}
			switch strings.ToLower(output) {
			case "":
				fmt.Fprintf(cmd.OutOrStdout(), "bookmark: %s\n", b.Name)
				for _, n := range chain {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (%d)\n", n.Level.Param(), n.DisplayName(), n.Record.ID)
				}
				if u := resp["unresolved"]; u != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "unresolved: %s\n", u)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "query: %s\n", resp["query"])
				return nil
			case "json":
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				enc.SetEscapeHTML(false)
				return enc.Encode(resp)
			case "yaml", "yml":
				enc := yaml.NewEncoder(cmd.OutOrStdout())
				defer enc.Close()
				return enc.Encode(resp)
			case "plain":
				parts := []string{"bookmark=" + b.Name}
				for _, n := range chain {
					parts = append(parts, fmt.Sprintf("%s=%s (%d)", n.Level.Param(), n.DisplayName(), n.Record.ID))
				}
				fmt.Fprintln(cmd.OutOrStdout(), strings.Join(parts, " "))
				return nil
			default:
				return fmt.Errorf("unsupported output format: %s", output)
			}
		},
	}

	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "Path to config file")
	cmd.Flags().BoolVarP(&useGlobal, "global", "g", false, "Use global config (~/.geo-tree/config.yml)")
	cmd.Flags().StringVarP(&output, "out", "o", "", "Output format: json|yaml|plain (default: human-readable)")
	cmd.Flags().BoolVarP(&plain, "plain", "p", false, "Plain ids only (no names)")
	return cmd
}
