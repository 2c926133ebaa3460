package cmd

import (
	"fmt"

	"github.com/michaelpento.lv/triscan/scanner"
	"github.com/michaelpento.lv/triscan/types"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var (
	analyzeNetwork string
	analyzeAmount  float64
	analyzeFees    []uint
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze A B C",
	Short: "Quote one path A → B → C → A at fixed fee tiers",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		fees := make([]types.FeeTier, 0, len(analyzeFees))
		for _, f := range analyzeFees {
			fees = append(fees, types.FeeTier(f))
		}
		analysis, err := a.scanner.Analyze(ctx, scanner.AnalyzeRequest{
			Network: analyzeNetwork,
			Path:    args,
			Amount:  analyzeAmount,
			Fees:    fees,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		table := tablewriter.NewWriter(out)
		table.SetHeader([]string{"From", "To", "Fee", "Amount in", "Amount out"})
		for _, step := range analysis.Steps {
			table.Append([]string{
				step.From,
				step.To,
				step.Fee.Label(),
				fmt.Sprintf("%.6f", step.AmountIn),
				fmt.Sprintf("%.6f", step.AmountOut),
			})
		}
		table.Render()

		s := analysis.Summary
		net := profitDn("%.4f (%.3f%%)", s.NetProfit, s.NetProfitPercent)
		if s.Profitable {
			net = profitUp("%.4f (%.3f%%)", s.NetProfit, s.NetProfitPercent)
		}
		fmt.Fprintf(out, "%s\ngross %.4f (%.3f%%), gas %.4f %s, net %s\n",
			analysis.Path, s.GrossProfit, s.GrossProfitPercent, s.GasCostToken, args[0], net)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVar(&analyzeNetwork, "network", "arbitrum", "network of the path")
	analyzeCmd.Flags().Float64Var(&analyzeAmount, "amount", 1000, "input amount in units of A")
	analyzeCmd.Flags().UintSliceVar(&analyzeFees, "fees", []uint{3000, 3000, 3000}, "fee tier of each hop")
}
