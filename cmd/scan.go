package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/michaelpento.lv/triscan/scanner"
	"github.com/michaelpento.lv/triscan/types"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var (
	scanReq  scanner.ScanRequest
	jsonOut  bool
	profitUp = color.New(color.FgGreen, color.Bold).SprintfFunc()
	profitDn = color.New(color.FgRed).SprintfFunc()
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one scan and print the ranked opportunities",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.scanner.Scan(ctx, scanReq)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if jsonOut {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{
				"opportunities": res.Opportunities,
				"summary":       res.Summary,
			})
		}

		fmt.Fprintf(out, "Scanned %d paths on %s (%s) in %s\n",
			res.PathsScanned, res.Network, res.Strategy, res.Elapsed.Round(time.Millisecond))
		printOpportunities(out, res.Opportunities)
		fmt.Fprintln(out, res.Summary.Recommendation)
		return nil
	},
}

func addScanFlags(cmd *cobra.Command, req *scanner.ScanRequest) {
	cmd.Flags().StringVar(&req.Network, "network", "arbitrum", "network to scan")
	cmd.Flags().Float64Var(&req.Amount, "amount", 1000, "input amount in units of the start token")
	cmd.Flags().StringVar(&req.Strategy, "strategy", "defi", "scan strategy (stable, defi, aggressive, test)")
	cmd.Flags().Float64Var(&req.MinNetProfit, "min-profit", 0.3, "minimum net profit percentage")
	cmd.Flags().IntVar(&req.MaxPaths, "max-paths", 0, "scan at most this many paths (0 uses the strategy limit)")
}

func printOpportunities(w io.Writer, opps []*types.Opportunity) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Path", "Fees", "Gross %", "Net %", "Gas", "Confidence"})
	table.SetAutoWrapText(false)
	for _, opp := range opps {
		net := profitDn("%.3f", opp.NetProfitPercent)
		if opp.NetProfitPercent > 0 {
			net = profitUp("%.3f", opp.NetProfitPercent)
		}
		table.Append([]string{
			opp.PathLabel,
			strings.Join(opp.FeeLabels[:], " / "),
			fmt.Sprintf("%.3f", opp.GrossProfitPercent),
			net,
			fmt.Sprintf("%.4f", opp.GasCostToken),
			fmt.Sprintf("%d", opp.Confidence),
		})
	}
	table.Render()
}

func init() {
	rootCmd.AddCommand(scanCmd)
	addScanFlags(scanCmd, &scanReq)
	scanCmd.Flags().BoolVar(&jsonOut, "json", false, "print JSON instead of a table")
}
