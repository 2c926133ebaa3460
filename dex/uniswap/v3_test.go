package uniswap

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/michaelpento.lv/triscan/dex"
	"github.com/michaelpento.lv/triscan/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeChain struct {
	t         *testing.T
	quoteOut  *big.Int
	quoteErr  error
	pool      common.Address
	liquidity *big.Int
	header    *gethtypes.Header
	tip       *big.Int
	tipErr    error
	gasPrice  *big.Int
	calls     []ethereum.CallMsg
}

func mustABI(t *testing.T, raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	require.NoError(t, err)
	return parsed
}

func (f *fakeChain) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	f.calls = append(f.calls, msg)
	quoter := mustABI(f.t, quoterABIJson).Methods["quoteExactInputSingle"]
	factory := mustABI(f.t, factoryABIJson).Methods["getPool"]
	pool := mustABI(f.t, poolABIJson).Methods["liquidity"]

	switch sel := msg.Data[:4]; {
	case bytes.Equal(sel, quoter.ID):
		if f.quoteErr != nil {
			return nil, f.quoteErr
		}
		return quoter.Outputs.Pack(f.quoteOut)
	case bytes.Equal(sel, factory.ID):
		return factory.Outputs.Pack(f.pool)
	case bytes.Equal(sel, pool.ID):
		return pool.Outputs.Pack(f.liquidity)
	}
	return nil, errors.New("unknown selector")
}

func (f *fakeChain) HeaderByNumber(ctx context.Context, number *big.Int) (*gethtypes.Header, error) {
	return f.header, nil
}

func (f *fakeChain) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	return f.tip, f.tipErr
}

func (f *fakeChain) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return f.gasPrice, nil
}

func (f *fakeChain) BlockNumber(ctx context.Context) (uint64, error) {
	return 42, nil
}

func newTestProvider(t *testing.T, chain *fakeChain) *UniswapV3 {
	chain.t = t
	u, err := NewUniswapV3(chain, &types.Network{ID: "arbitrum"}, zap.NewNop())
	require.NoError(t, err)
	return u
}

var (
	usdc = common.HexToAddress("0xaf88d065e77c8cC2239327C5EDb3A432268e5831")
	weth = common.HexToAddress("0x82aF49447D8a07e3bd95BD0d56f35241523fBab1")
)

func TestQuoteExactInputSingle(t *testing.T) {
	chain := &fakeChain{quoteOut: big.NewInt(499_000_000_000_000)}
	u := newTestProvider(t, chain)

	out, err := u.QuoteExactInputSingle(context.Background(), usdc, weth, types.Fee030, big.NewInt(1_000_000))
	require.NoError(t, err)
	assert.Equal(t, "499000000000000", out.String())
	require.Len(t, chain.calls, 1)
	assert.Equal(t, QuoterV1Address, *chain.calls[0].To)
}

func TestQuoteRevertIsNoLiquidity(t *testing.T) {
	chain := &fakeChain{quoteErr: errors.New("execution reverted")}
	u := newTestProvider(t, chain)

	_, err := u.QuoteExactInputSingle(context.Background(), usdc, weth, types.Fee100, big.NewInt(1))
	assert.ErrorIs(t, err, dex.ErrNoLiquidity)
}

func TestQuoteTransportErrorIsNotNoLiquidity(t *testing.T) {
	chain := &fakeChain{quoteErr: errors.New("connection refused")}
	u := newTestProvider(t, chain)

	_, err := u.QuoteExactInputSingle(context.Background(), usdc, weth, types.Fee100, big.NewInt(1))
	require.Error(t, err)
	assert.False(t, errors.Is(err, dex.ErrNoLiquidity))
}

// rpcErrorNode answers every JSON-RPC request with the given error object
func rpcErrorNode(t *testing.T, rpcErr string, hits *atomic.Int32) *ethclient.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		var req struct {
			ID json.RawMessage `json:"id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%s,"error":%s}`, req.ID, rpcErr)
	}))
	t.Cleanup(srv.Close)

	client, err := ethclient.DialContext(context.Background(), srv.URL)
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return client
}

func TestQuoteRPCErrors(t *testing.T) {
	tests := []struct {
		name        string
		rpcErr      string
		noLiquidity bool
	}{
		{
			name:        "rate limited",
			rpcErr:      `{"code":-32005,"message":"daily request count exceeded, request rate limited"}`,
			noLiquidity: false,
		},
		{
			name:        "header not found",
			rpcErr:      `{"code":-32000,"message":"header not found"}`,
			noLiquidity: false,
		},
		{
			name:        "internal error with data",
			rpcErr:      `{"code":-32603,"message":"internal error","data":"upstream timeout"}`,
			noLiquidity: false,
		},
		{
			name:        "reverted",
			rpcErr:      `{"code":3,"message":"execution reverted: SPL","data":"0x08c379a0"}`,
			noLiquidity: true,
		},
		{
			name:        "reverted without reason",
			rpcErr:      `{"code":-32000,"message":"execution reverted"}`,
			noLiquidity: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hits atomic.Int32
			client := rpcErrorNode(t, tt.rpcErr, &hits)
			u, err := NewUniswapV3(client, &types.Network{ID: "arbitrum"}, zap.NewNop())
			require.NoError(t, err)

			_, err = u.QuoteExactInputSingle(context.Background(), usdc, weth, types.Fee030, big.NewInt(1_000_000))
			require.Error(t, err)
			assert.Equal(t, tt.noLiquidity, errors.Is(err, dex.ErrNoLiquidity), err.Error())
		})
	}
}

func TestRateLimitedQuoteIsRetried(t *testing.T) {
	var hits atomic.Int32
	client := rpcErrorNode(t, `{"code":-32005,"message":"request rate limited"}`, &hits)

	network := &types.Network{
		ID: "arbitrum",
		Tokens: []types.Token{
			{Symbol: "USDC", Address: usdc, Decimals: 6, Category: types.CategoryStable},
			{Symbol: "WETH", Address: weth, Decimals: 18, Category: types.CategoryMajor},
		},
	}
	network.Seal()
	u, err := NewUniswapV3(client, network, zap.NewNop())
	require.NoError(t, err)

	quoter := dex.NewHopQuoter(dex.Providers{network.ID: u}, dex.RetryConfig{MaxRetries: 2}, nil, zap.NewNop())
	res := quoter.Quote(context.Background(), network, "USDC", "WETH", types.Fee030, 1000)

	assert.Equal(t, dex.QuoteUnavailable, res.Status)
	assert.Equal(t, int32(3), hits.Load())
}

func TestPoolFor(t *testing.T) {
	poolAddr := common.HexToAddress("0xC6962004f452bE9203591991D15f6b388e09E8D0")
	liquidity := new(big.Int).Mul(big.NewInt(5000), big.NewInt(1e18))
	chain := &fakeChain{pool: poolAddr, liquidity: liquidity}
	u := newTestProvider(t, chain)

	pool, err := u.PoolFor(context.Background(), weth, usdc, types.Fee005)
	require.NoError(t, err)
	require.NotNil(t, pool)
	assert.Equal(t, poolAddr, pool.Address)
	assert.Zero(t, liquidity.Cmp(pool.Liquidity))
	require.Len(t, chain.calls, 2)
	assert.Equal(t, V3FactoryAddress, *chain.calls[0].To)
	assert.Equal(t, poolAddr, *chain.calls[1].To)
}

func TestPoolForMissingPool(t *testing.T) {
	chain := &fakeChain{}
	u := newTestProvider(t, chain)

	pool, err := u.PoolFor(context.Background(), weth, usdc, types.Fee100)
	require.NoError(t, err)
	assert.Nil(t, pool)
	assert.Len(t, chain.calls, 1)
}

func TestCurrentFees(t *testing.T) {
	t.Run("eip1559", func(t *testing.T) {
		chain := &fakeChain{
			header: &gethtypes.Header{Number: big.NewInt(100), BaseFee: big.NewInt(10_000_000)},
			tip:    big.NewInt(1_000),
		}
		u := newTestProvider(t, chain)

		fees, err := u.CurrentFees(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "20001000", fees.MaxFeePerGas.String())
		assert.Equal(t, "1000", fees.MaxPriorityFeePerGas.String())
		assert.Equal(t, uint64(100), fees.Block)
	})

	t.Run("tip unavailable", func(t *testing.T) {
		chain := &fakeChain{
			header: &gethtypes.Header{Number: big.NewInt(7), BaseFee: big.NewInt(1)},
			tipErr: errors.New("method not found"),
		}
		u := newTestProvider(t, chain)

		fees, err := u.CurrentFees(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "1000000000", fees.MaxPriorityFeePerGas.String())
		assert.Equal(t, "1000000002", fees.MaxFeePerGas.String())
	})

	t.Run("legacy", func(t *testing.T) {
		chain := &fakeChain{
			header:   &gethtypes.Header{Number: big.NewInt(7)},
			tip:      big.NewInt(5),
			gasPrice: big.NewInt(30_000_000_000),
		}
		u := newTestProvider(t, chain)

		fees, err := u.CurrentFees(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "30000000000", fees.MaxFeePerGas.String())
	})
}
