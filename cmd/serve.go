package cmd

import (
	"github.com/michaelpento.lv/triscan/api"
	"github.com/michaelpento.lv/triscan/utils/metrics"
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the scanner HTTP and WebSocket API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if serveAddr != "" {
			a.cfg.Server.Addr = serveAddr
		}
		srv := api.NewServer(a.cfg, a.scanner, metrics.Registry(), a.logger, a.sinks()...)
		return srv.ListenAndServe(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
}
