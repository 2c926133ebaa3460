package cmd

import (
	"context"
	"time"

	"github.com/michaelpento.lv/triscan/scanner"
	"github.com/michaelpento.lv/triscan/types"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	watchReq      scanner.ScanRequest
	watchInterval time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Rescan continuously and report every qualifying opportunity",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if watchInterval <= 0 {
			watchInterval = a.cfg.Scanner.ScanInterval
		}
		if watchReq.MaxPaths == 0 {
			watchReq.MaxPaths = a.cfg.Scanner.WatchPaths
		}

		report := scanner.SinkFunc(func(ctx context.Context, opp *types.Opportunity) error {
			a.logger.Info("Opportunity",
				zap.String("path", opp.PathLabel),
				zap.Strings("fees", opp.FeeLabels[:]),
				zap.Float64("net_profit_percent", opp.NetProfitPercent),
				zap.Float64("net_profit", opp.NetProfit),
				zap.Int("confidence", opp.Confidence))
			return nil
		})
		sinks := append([]scanner.Sink{report}, a.sinks()...)

		w, err := scanner.NewWatcher(a.scanner, watchReq, watchInterval, a.logger, sinks...)
		if err != nil {
			return err
		}
		w.Start(ctx)
		<-ctx.Done()
		w.Stop()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	addScanFlags(watchCmd, &watchReq)
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 0, "time between scans (default scanner.scan_interval)")
}
