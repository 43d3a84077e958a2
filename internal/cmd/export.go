package cmd

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

func newExportCmd() *cobra.Command {
	var cfgPath string
	var useGlobal bool
	var format string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export current bookmark as env, query or json",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cfg, err := loadConfig(cmd, cfgPath)
			if err != nil {
				return err
			}
			b, err := currentBookmark(cfg)
			if err != nil {
				return err
			}

			switch format {
			case "env", "":
				lines, err := b.Env()
				if err != nil {
					return err
				}
				for i := range lines {
					lines[i] = "export " + lines[i]
				}
				fmt.Fprintln(cmd.OutOrStdout(), strings.Join(lines, "\n"))
			case "query":
				p, err := b.Params()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "?"+p.Encode())
			case "json":
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(b); err != nil {
					return err
				}
			default:
				return fmt.Errorf("unsupported format: %s", format)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "Path to config file")
	cmd.Flags().BoolVarP(&useGlobal, "global", "g", false, "Use global config (~/.geo-tree/config.yml)")
	cmd.Flags().StringVarP(&format, "format", "f", "env", "Output format: env|query|json")
	return cmd
}
