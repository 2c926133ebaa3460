package testutils

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/michaelpento.lv/triscan/dex"
	"github.com/michaelpento.lv/triscan/types"
)

// ErrTransport is what the fake provider returns for simulated RPC failures
var ErrTransport = errors.New("connection reset by peer")

// TestNetwork returns a small sealed Arbitrum-like catalog
func TestNetwork() *types.Network {
	n := &types.Network{
		ID:      "arbitrum",
		Name:    "Arbitrum One",
		ChainID: 42161,
		Tokens: []types.Token{
			{Symbol: "USDC", Address: addr("USDC"), Decimals: 6, Category: types.CategoryStable, MinLiquidity: 1_000_000},
			{Symbol: "USDT", Address: addr("USDT"), Decimals: 6, Category: types.CategoryStable, MinLiquidity: 1_000_000},
			{Symbol: "DAI", Address: addr("DAI"), Decimals: 18, Category: types.CategoryStable, MinLiquidity: 500_000},
			{Symbol: "WETH", Address: addr("WETH"), Decimals: 18, Category: types.CategoryMajor, MinLiquidity: 100},
			{Symbol: "WBTC", Address: addr("WBTC"), Decimals: 8, Category: types.CategoryMajor, MinLiquidity: 10},
			{Symbol: "ARB", Address: addr("ARB"), Decimals: 18, Category: types.CategoryDefi, MinLiquidity: 100_000},
			{Symbol: "GMX", Address: addr("GMX"), Decimals: 18, Category: types.CategoryDefi, MinLiquidity: 10_000},
			{Symbol: "MAGIC", Address: addr("MAGIC"), Decimals: 18, Category: types.CategoryMidcap, MinLiquidity: 50_000},
		},
	}
	n.Seal()
	return n
}

func addr(symbol string) common.Address {
	return common.BytesToAddress(crypto.Keccak256([]byte(symbol)))
}

// FakeClock is a manually advanced clock
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// FakeProvider is an in-memory dex.Provider. Rates are human output units per
// human input unit; a hop with no rate reports no liquidity.
type FakeProvider struct {
	mu      sync.Mutex
	network *types.Network
	rates   map[string]float64
	depth   map[string]float64
	pools   map[string]float64

	// DefaultLiquidity is reported for pools without an explicit entry; zero means absent
	DefaultLiquidity float64
	Fees             *dex.FeeData
	FeeErr           error
	PoolErr          error
	QuoteErr         error
	// TransientFailures fails that many quote calls with ErrTransport before answering
	TransientFailures int
	Block             uint64

	quoteCalls int
	poolCalls  int
	feeCalls   int
}

func NewFakeProvider(network *types.Network) *FakeProvider {
	return &FakeProvider{
		network: network,
		rates:   make(map[string]float64),
		depth:   make(map[string]float64),
		pools:   make(map[string]float64),
		Block:   1,
	}
}

func hopKey(in, out string, fee types.FeeTier) string {
	return fmt.Sprintf("%s/%s/%d", in, out, fee)
}

func pairKey(a, b string, fee types.FeeTier) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return hopKey(pair[0], pair[1], fee)
}

// SetRate sets the marginal rate for in -> out at fee
func (f *FakeProvider) SetRate(in, out string, fee types.FeeTier, rate float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rates[hopKey(in, out, fee)] = rate
}

// SetDepth makes the effective rate fall linearly with size, reaching zero at depth input units
func (f *FakeProvider) SetDepth(in, out string, fee types.FeeTier, depth float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.depth[hopKey(in, out, fee)] = depth
}

// SetPool sets the liquidity (18-decimal human units) of the a/b pool at fee
func (f *FakeProvider) SetPool(a, b string, fee types.FeeTier, liquidity float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pools[pairKey(a, b, fee)] = liquidity
}

// Calls returns the number of quote, pool and fee calls made so far
func (f *FakeProvider) Calls() (quotes, pools, fees int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.quoteCalls, f.poolCalls, f.feeCalls
}

func (f *FakeProvider) symbol(a common.Address) (types.Token, bool) {
	for _, t := range f.network.Tokens {
		if t.Address == a {
			return t, true
		}
	}
	return types.Token{}, false
}

func (f *FakeProvider) QuoteExactInputSingle(ctx context.Context, tokenIn, tokenOut common.Address, fee types.FeeTier, amountIn *big.Int) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.quoteCalls++

	if f.TransientFailures > 0 {
		f.TransientFailures--
		return nil, ErrTransport
	}
	if f.QuoteErr != nil {
		return nil, f.QuoteErr
	}

	in, okIn := f.symbol(tokenIn)
	out, okOut := f.symbol(tokenOut)
	if !okIn || !okOut {
		return nil, dex.ErrNoLiquidity
	}
	key := hopKey(in.Symbol, out.Symbol, fee)
	rate, ok := f.rates[key]
	if !ok {
		return nil, dex.ErrNoLiquidity
	}

	amount := dex.FromUnits(amountIn, in.Decimals)
	if depth := f.depth[key]; depth > 0 {
		rate *= 1 - amount/depth
		if rate <= 0 {
			return big.NewInt(0), nil
		}
	}
	return dex.ToUnits(amount*rate, out.Decimals), nil
}

func (f *FakeProvider) PoolFor(ctx context.Context, tokenA, tokenB common.Address, fee types.FeeTier) (*dex.Pool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.poolCalls++

	if f.PoolErr != nil {
		return nil, f.PoolErr
	}
	a, okA := f.symbol(tokenA)
	b, okB := f.symbol(tokenB)
	if !okA || !okB {
		return nil, nil
	}
	key := pairKey(a.Symbol, b.Symbol, fee)
	liquidity, ok := f.pools[key]
	if !ok {
		liquidity = f.DefaultLiquidity
	}
	if liquidity <= 0 {
		return nil, nil
	}
	return &dex.Pool{
		Address:   common.BytesToAddress(crypto.Keccak256([]byte(key))),
		Liquidity: dex.ToUnits(liquidity, 18),
	}, nil
}

func (f *FakeProvider) CurrentFees(ctx context.Context) (*dex.FeeData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.feeCalls++

	if f.FeeErr != nil {
		return nil, f.FeeErr
	}
	if f.Fees == nil {
		return &dex.FeeData{Block: f.Block}, nil
	}
	fees := *f.Fees
	return &fees, nil
}

func (f *FakeProvider) BlockNumber(ctx context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FeeErr != nil {
		return 0, f.FeeErr
	}
	return f.Block, nil
}

// Gwei converts gwei to wei
func Gwei(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000_000))
}
