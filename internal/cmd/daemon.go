package cmd

import (
	"bytes"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/adrianmross/geo-tree/internal/daemon"
	"github.com/adrianmross/geo-tree/internal/logger"
	"github.com/adrianmross/geo-tree/internal/metrics"
	"github.com/adrianmross/geo-tree/pkg/config"
	"github.com/adrianmross/geo-tree/pkg/ipc"
)

// callTimeout bounds one daemon round trip; restore walks up to four fetches.
const callTimeout = 90 * time.Second

func newDaemonCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Manage the geo-tree daemon",
	}
	cmd.AddCommand(newDaemonServeCmd(), newDaemonCallCmd())
	return cmd
}

func newDaemonServeCmd() *cobra.Command {
	var cfgPath string
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the geo-tree daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := daemon.EnsureConfig(cfgPath)
			if err != nil {
				return err
			}
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			opts := cfg.Options.WithEnv()
			f, closeFn, err := newFetcher(opts)
			if err != nil {
				return err
			}
			defer closeFn()
			svc, err := daemon.NewService(path, f)
			if err != nil {
				return err
			}
			if metricsAddr == "" {
				metricsAddr = opts.MetricsAddr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			g, ctx := errgroup.WithContext(ctx)
			if metricsAddr != "" {
				g.Go(func() error {
					logger.L().Info("metrics_listen", "addr", metricsAddr)
					return metrics.Serve(ctx, metricsAddr)
				})
			}
			g.Go(func() error { return svc.Serve(ctx) })

			fmt.Fprintf(cmd.OutOrStdout(), "Starting daemon with config %s\n", path)
			return g.Wait()
		},
	}

	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "Path to config file")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus /metrics on this address (e.g. :9090)")
	return cmd
}

func newDaemonCallCmd() *cobra.Command {
	var cfgPath string
	var useGlobal bool
	var socket string
	var req ipc.Request
	var bookmark string

	cmd := &cobra.Command{
		Use:   "call <method>",
		Short: "Send one request to a running daemon and print the reply",
		Long: "Methods: get_current, list, use_bookmark, add_bookmark, delete_bookmark, export,\n" +
			"restore, select, tree, locate. The reply data is printed as indented JSON.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if socket == "" {
				_, cfg, err := loadConfig(cmd, cfgPath)
				if err != nil {
					return err
				}
				socket = cfg.Options.SocketPath
			}
			req.Method = args[0]
			if bookmark != "" {
				if !json.Valid([]byte(bookmark)) {
					return fmt.Errorf("--bookmark must be a JSON object")
				}
				req.Bookmark = json.RawMessage(bookmark)
			}

			conn, err := ipc.Dial(socket)
			if err != nil {
				return fmt.Errorf("connect to daemon at %s: %w", socket, err)
			}
			defer conn.Close()
			if err := conn.SetDeadline(time.Now().Add(callTimeout)); err != nil {
				return err
			}
			var data json.RawMessage
			if err := conn.Call(req, &data); err != nil {
				return err
			}
			if len(data) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "ok")
				return nil
			}
			var out bytes.Buffer
			if err := json.Indent(&out, data, "", "  "); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out.String())
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "Path to config file (for socket_path)")
	cmd.Flags().BoolVarP(&useGlobal, "global", "g", false, "Use global config (~/.geo-tree/config.yml)")
	cmd.Flags().StringVar(&socket, "socket", "", "Daemon socket (default: socket_path from config)")
	cmd.Flags().StringVarP(&req.Name, "name", "n", "", "Bookmark name")
	cmd.Flags().StringVarP(&req.Format, "format", "f", "", "Export format")
	cmd.Flags().StringVarP(&req.Query, "query", "q", "", "Query string to restore")
	cmd.Flags().StringVarP(&req.Key, "key", "k", "", "Node key to select (e.g. Countries:75)")
	cmd.Flags().StringVar(&req.Value, "value", "", "Value to locate")
	cmd.Flags().StringVar(&bookmark, "bookmark", "", "Bookmark as JSON for add_bookmark")
	return cmd
}
