package arbitrage

import "github.com/michaelpento.lv/triscan/types"

var (
	stablePairTiers    = []types.FeeTier{types.Fee005, types.Fee030}
	defaultFeePriority = []types.FeeTier{types.Fee030, types.Fee005, types.Fee100}
)

// SelectFeeTiers orders the fee tiers worth trying for a pair. Two
// stablecoins trade in the tight tiers; anything else follows the strategy.
func SelectFeeTiers(network *types.Network, tokenA, tokenB string, strategy *types.Strategy) []types.FeeTier {
	src := strategy.FeePriority
	if network.IsStable(tokenA) && network.IsStable(tokenB) {
		src = stablePairTiers
	} else if len(src) == 0 {
		src = defaultFeePriority
	}
	return append([]types.FeeTier(nil), src...)
}

// hopTiers bounds SelectFeeTiers to the strategy's per-hop budget
func hopTiers(network *types.Network, tokenA, tokenB string, strategy *types.Strategy) []types.FeeTier {
	tiers := SelectFeeTiers(network, tokenA, tokenB, strategy)
	n := strategy.MaxFeeTiersPerHop
	if n <= 0 {
		n = 1
	}
	if len(tiers) > n {
		tiers = tiers[:n]
	}
	return tiers
}
