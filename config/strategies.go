package config

import "github.com/michaelpento.lv/triscan/types"

var builtinStrategies = []types.Strategy{
	{
		Name:              "stable",
		Description:       "Stablecoin triangles only",
		Categories:        []types.Category{types.CategoryStable},
		MinLiquidity:      10000,
		FeePriority:       []types.FeeTier{types.Fee005, types.Fee030},
		MaxPaths:          10,
		MaxFeeTiersPerHop: 2,
		Topology:          types.TopologyStable,
	},
	{
		Name:              "defi",
		Description:       "DeFi token triangles",
		Categories:        []types.Category{types.CategoryStable, types.CategoryMajor, types.CategoryDefi},
		MinLiquidity:      1000,
		FeePriority:       []types.FeeTier{types.Fee030, types.Fee005, types.Fee100},
		MaxPaths:          15,
		MaxFeeTiersPerHop: 1,
		Topology:          types.TopologyDefi,
	},
	{
		Name:              "aggressive",
		Description:       "All token combinations",
		Categories:        []types.Category{types.CategoryStable, types.CategoryMajor, types.CategoryDefi, types.CategoryMidcap},
		MinLiquidity:      100,
		FeePriority:       []types.FeeTier{types.Fee030, types.Fee100, types.Fee005},
		MaxPaths:          20,
		MaxFeeTiersPerHop: 1,
		Topology:          types.TopologyAggressive,
	},
	{
		Name:              "test",
		Description:       "Quick test with top tokens",
		Categories:        []types.Category{types.CategoryStable, types.CategoryMajor},
		MinLiquidity:      5000,
		FeePriority:       []types.FeeTier{types.Fee030},
		MaxPaths:          5,
		MaxFeeTiersPerHop: 1,
		Topology:          types.TopologyAggressive,
	},
}

// Strategy returns a copy of the named built-in strategy
func Strategy(name string) (*types.Strategy, bool) {
	for _, s := range builtinStrategies {
		if s.Name == name {
			c := s
			c.Categories = append([]types.Category(nil), s.Categories...)
			c.FeePriority = append([]types.FeeTier(nil), s.FeePriority...)
			return &c, true
		}
	}
	return nil, false
}

// StrategyNames lists the built-in strategies in declaration order
func StrategyNames() []string {
	names := make([]string, 0, len(builtinStrategies))
	for _, s := range builtinStrategies {
		names = append(names, s.Name)
	}
	return names
}
