package arbitrage

import (
	"sort"
	"strings"

	"github.com/michaelpento.lv/triscan/types"
)

const (
	defiAnchors       = 3
	defiLegs          = 5
	aggressiveAnchors = 4
	aggressiveLegs    = 6
)

// GeneratePaths builds the candidate cycles for a strategy on a network, in
// generation order, keeping the first path seen for each set of three tokens.
// At most strategy.MaxPaths paths are returned; a non-positive MaxPaths means no limit.
func GeneratePaths(network *types.Network, strategy *types.Strategy) []types.Path {
	allowed := network.TokensByCategory(strategy.Categories...)

	var candidates []types.Path
	switch strategy.Topology {
	case types.TopologyStable:
		stables := symbolsOf(allowed, types.CategoryStable)
		for _, a := range stables {
			for _, b := range stables {
				for _, c := range stables {
					candidates = appendValid(candidates, types.Path{a, b, c})
				}
			}
		}
	case types.TopologyDefi:
		stables := head(symbolsOf(allowed, types.CategoryStable), defiAnchors)
		legs := head(symbolsOf(allowed, types.CategoryMajor, types.CategoryDefi), defiLegs)
		for _, a := range stables {
			for _, b := range legs {
				for _, c := range legs {
					candidates = appendValid(candidates, types.Path{a, b, c})
				}
			}
		}
	default:
		anchors := head(symbolsOf(allowed, types.CategoryStable, types.CategoryMajor), aggressiveAnchors)
		legs := head(symbolsOf(allowed), aggressiveLegs)
		for _, a := range anchors {
			for _, b := range legs {
				for _, c := range legs {
					candidates = appendValid(candidates, types.Path{a, b, c})
				}
			}
		}
	}

	return dedupe(candidates, strategy.MaxPaths)
}

func appendValid(paths []types.Path, p types.Path) []types.Path {
	if !p.Valid() {
		return paths
	}
	return append(paths, p)
}

// symbolsOf returns the symbols of tokens in any of the categories; no categories means all
func symbolsOf(tokens []types.Token, categories ...types.Category) []string {
	var out []string
	for _, t := range tokens {
		if len(categories) == 0 {
			out = append(out, t.Symbol)
			continue
		}
		for _, c := range categories {
			if t.Category == c {
				out = append(out, t.Symbol)
				break
			}
		}
	}
	return out
}

func head(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// dedupe keys paths by their sorted token set so rotations and reversals collapse
func dedupe(paths []types.Path, limit int) []types.Path {
	seen := make(map[string]bool, len(paths))
	var out []types.Path
	for _, p := range paths {
		key := setKey(p)
		if !seen[key] {
			seen[key] = true
			out = append(out, p)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

func setKey(p types.Path) string {
	s := []string{p[0], p[1], p[2]}
	sort.Strings(s)
	return strings.Join(s, "-")
}
