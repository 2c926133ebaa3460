package cmd

import (
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var tokensCmd = &cobra.Command{
	Use:   "tokens NETWORK",
	Short: "List a network's token catalog by category",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, catalog, err := loadSettings()
		if err != nil {
			return err
		}
		network, ok := catalog.Network(args[0])
		if !ok {
			return fmt.Errorf("network %s not found, choose from %v", args[0], catalog.IDs())
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s (chain %d): %d tokens\n", network.Name, network.ChainID, len(network.Tokens))
		table := tablewriter.NewWriter(out)
		table.SetHeader([]string{"Category", "Symbol", "Address", "Decimals", "Min liquidity"})
		for _, category := range network.Categories() {
			for _, t := range network.TokensByCategory(category) {
				table.Append([]string{
					string(category),
					t.Symbol,
					t.Address.Hex(),
					fmt.Sprintf("%d", t.Decimals),
					fmt.Sprintf("%.0f", t.MinLiquidity),
				})
			}
		}
		table.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokensCmd)
}
