package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var (
	cfgFile     string
	catalogFile string
	debug       bool
)

var rootCmd = &cobra.Command{
	Use:   "triscan",
	Short: "Triangular arbitrage scanner for Uniswap V3 networks",
	Long: `triscan searches A → B → C → A cycles across Uniswap V3 fee tiers on
Arbitrum and Polygon, prices them net of gas and ranks the results. It runs
one-off scans from the command line, watches continuously, or serves an HTTP API.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.triscan.json)")
	rootCmd.PersistentFlags().StringVar(&catalogFile, "catalog", "", "YAML file adding or replacing networks")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}
