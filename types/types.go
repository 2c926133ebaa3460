package types

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Category is the liquidity-risk bucket a token belongs to
type Category string

const (
	CategoryStable   Category = "stable"
	CategoryMajor    Category = "major"
	CategoryDefi     Category = "defi"
	CategoryMidcap   Category = "midcap"
	CategorySmallcap Category = "smallcap"
)

// Valid reports whether c is one of the known categories
func (c Category) Valid() bool {
	switch c {
	case CategoryStable, CategoryMajor, CategoryDefi, CategoryMidcap, CategorySmallcap:
		return true
	}
	return false
}

// FeeTier is a Uniswap V3 pool fee in hundredths of a basis point
type FeeTier uint32

const (
	Fee005 FeeTier = 500
	Fee030 FeeTier = 3000
	Fee100 FeeTier = 10000
)

// FeeTiers lists every supported fee tier, cheapest first
var FeeTiers = []FeeTier{Fee005, Fee030, Fee100}

// Valid reports whether f is a supported fee tier
func (f FeeTier) Valid() bool {
	return f == Fee005 || f == Fee030 || f == Fee100
}

// Label returns the human readable percentage, e.g. "0.3%"
func (f FeeTier) Label() string {
	switch f {
	case Fee005:
		return "0.05%"
	case Fee030:
		return "0.3%"
	case Fee100:
		return "1%"
	}
	return fmt.Sprintf("%d", uint32(f))
}

// Token is a catalog entry. Tokens are loaded once per network and never mutated.
type Token struct {
	Symbol       string         `json:"symbol" yaml:"symbol"`
	Address      common.Address `json:"address" yaml:"-"`
	Decimals     uint8          `json:"decimals" yaml:"decimals"`
	Category     Category       `json:"category" yaml:"category"`
	MinLiquidity float64        `json:"minLiquidity" yaml:"min_liquidity"`
}

// Network is a supported chain with its token catalog
type Network struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	ChainID     uint64         `json:"chainId"`
	RPCEndpoint string         `json:"-"`
	Quoter      common.Address `json:"quoter"`
	Factory     common.Address `json:"factory"`
	Tokens      []Token        `json:"tokens"`

	index map[string]int
}

// Token looks a token up by symbol
func (n *Network) Token(symbol string) (Token, bool) {
	if n.index == nil {
		for _, t := range n.Tokens {
			if t.Symbol == symbol {
				return t, true
			}
		}
		return Token{}, false
	}
	i, ok := n.index[symbol]
	if !ok {
		return Token{}, false
	}
	return n.Tokens[i], true
}

func (n *Network) buildIndex() {
	n.index = make(map[string]int, len(n.Tokens))
	for i, t := range n.Tokens {
		n.index[t.Symbol] = i
	}
}

// Seal builds the symbol index. Call once after the token list is final;
// after that the network is safe for concurrent readers.
func (n *Network) Seal() {
	n.buildIndex()
}

// IsStable reports whether symbol is a stablecoin on this network
func (n *Network) IsStable(symbol string) bool {
	t, ok := n.Token(symbol)
	return ok && t.Category == CategoryStable
}

// TokensByCategory returns, in catalog order, the tokens in any of the categories
func (n *Network) TokensByCategory(categories ...Category) []Token {
	var out []Token
	for _, t := range n.Tokens {
		for _, c := range categories {
			if t.Category == c {
				out = append(out, t)
				break
			}
		}
	}
	return out
}

// Categories returns the distinct categories present, in first-seen order
func (n *Network) Categories() []Category {
	seen := make(map[Category]bool)
	var out []Category
	for _, t := range n.Tokens {
		if !seen[t.Category] {
			seen[t.Category] = true
			out = append(out, t.Category)
		}
	}
	return out
}

// Topology selects how a strategy shapes candidate triangles
type Topology string

const (
	TopologyStable     Topology = "stable"
	TopologyDefi       Topology = "defi"
	TopologyAggressive Topology = "aggressive"
)

// Strategy bounds which tokens, fee tiers and how many paths a scan considers
type Strategy struct {
	Name              string     `json:"name"`
	Description       string     `json:"description"`
	Categories        []Category `json:"categories"`
	// MinLiquidity is descriptive; pool validation uses the per-token thresholds
	MinLiquidity      float64    `json:"minLiquidity"`
	FeePriority       []FeeTier  `json:"feePriority"`
	MaxPaths          int        `json:"maxPaths"`
	MaxFeeTiersPerHop int        `json:"maxFeeTiersPerHop"`
	Topology          Topology   `json:"topology"`
}

// Allows reports whether tokens of category c may appear in this strategy's paths
func (s *Strategy) Allows(c Category) bool {
	for _, a := range s.Categories {
		if a == c {
			return true
		}
	}
	return false
}

// Path is the cycle A → B → C → A. Symbols are distinct and the direction is fixed.
type Path [3]string

// Valid reports whether all three symbols are non-empty and distinct
func (p Path) Valid() bool {
	if p[0] == "" || p[1] == "" || p[2] == "" {
		return false
	}
	return p[0] != p[1] && p[1] != p[2] && p[0] != p[2]
}

// Hops returns the three (in, out) pairs of the cycle
func (p Path) Hops() [3][2]string {
	return [3][2]string{{p[0], p[1]}, {p[1], p[2]}, {p[2], p[0]}}
}

func (p Path) String() string {
	return fmt.Sprintf("%s → %s → %s → %s", p[0], p[1], p[2], p[0])
}

// PoolInfo is a validated pool
type PoolInfo struct {
	Address   common.Address `json:"address"`
	Liquidity float64        `json:"liquidity"`
}

// GasSnapshot is the latest observed fee data for a network
type GasSnapshot struct {
	MaxFeePerGas         *big.Int `json:"maxFeePerGas"`
	MaxPriorityFeePerGas *big.Int `json:"maxPriorityFeePerGas"`
	Block                uint64   `json:"lastBlock"`
}

// Opportunity is the best fee-tier combination found for one path
type Opportunity struct {
	Network            string            `json:"network"`
	Strategy           string            `json:"strategy"`
	Path               Path              `json:"pathArray"`
	PathLabel          string            `json:"path"`
	InputAmount        float64           `json:"inputAmount"`
	OutputAmount       float64           `json:"outputAmount"`
	GrossProfit        float64           `json:"grossProfit"`
	GrossProfitPercent float64           `json:"grossProfitPercent"`
	NetProfit          float64           `json:"netProfit"`
	NetProfitPercent   float64           `json:"netProfitPercent"`
	GasCostToken       float64           `json:"gasCostTokenA"`
	Fees               [3]FeeTier        `json:"fees"`
	FeeLabels          [3]string         `json:"feeLabels"`
	PoolAddresses      [3]common.Address `json:"poolAddresses"`
	PriceImpacts       [3]float64        `json:"priceImpacts"`
	Confidence         int               `json:"confidence"`
	Timestamp          time.Time         `json:"timestamp"`
}

// Summary aggregates the surfaced opportunities of a scan
type Summary struct {
	BestNetProfit      float64 `json:"bestNetProfit"`
	BestGrossProfit    float64 `json:"bestGrossProfit"`
	EstimatedGasCost   float64 `json:"estimatedGasCost"`
	AverageConfidence  int     `json:"averageConfidence"`
	OpportunitiesFound int     `json:"opportunitiesFound"`
	Recommendation     string  `json:"recommendation"`
}
