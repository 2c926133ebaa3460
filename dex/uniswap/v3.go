package uniswap

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/michaelpento.lv/triscan/dex"
	"github.com/michaelpento.lv/triscan/types"
	"go.uber.org/zap"
)

// Deployment addresses shared by Arbitrum and Polygon
var (
	QuoterV1Address  = common.HexToAddress("0xb27308f9F90D607463bb33eA1BeBb41C27CE5AB6")
	V3FactoryAddress = common.HexToAddress("0x1F98431c8aD98523631AE4a59f267346ea31F984")
)

var (
	defaultTipCap = big.NewInt(1_000_000_000)
	two           = big.NewInt(2)
)

// ChainClient is the subset of ethclient the V3 provider needs
type ChainClient interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*gethtypes.Header, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// UniswapV3 implements dex.Provider against the V3 quoter and factory
type UniswapV3 struct {
	client     ChainClient
	quoter     common.Address
	factory    common.Address
	quoterABI  abi.ABI
	factoryABI abi.ABI
	poolABI    abi.ABI
	logger     *zap.Logger
}

// NewUniswapV3 creates a provider for the network's quoter and factory
func NewUniswapV3(client ChainClient, network *types.Network, logger *zap.Logger) (*UniswapV3, error) {
	quoterABI, err := abi.JSON(strings.NewReader(quoterABIJson))
	if err != nil {
		return nil, fmt.Errorf("failed to parse quoter ABI: %w", err)
	}
	factoryABI, err := abi.JSON(strings.NewReader(factoryABIJson))
	if err != nil {
		return nil, fmt.Errorf("failed to parse factory ABI: %w", err)
	}
	poolABI, err := abi.JSON(strings.NewReader(poolABIJson))
	if err != nil {
		return nil, fmt.Errorf("failed to parse pool ABI: %w", err)
	}

	quoter, factory := network.Quoter, network.Factory
	if quoter == (common.Address{}) {
		quoter = QuoterV1Address
	}
	if factory == (common.Address{}) {
		factory = V3FactoryAddress
	}

	return &UniswapV3{
		client:     client,
		quoter:     quoter,
		factory:    factory,
		quoterABI:  quoterABI,
		factoryABI: factoryABI,
		poolABI:    poolABI,
		logger:     logger,
	}, nil
}

// Dial connects to the network's RPC endpoint
func Dial(ctx context.Context, network *types.Network, logger *zap.Logger) (*UniswapV3, *ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, network.RPCEndpoint)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to %s: %w", network.ID, err)
	}
	provider, err := NewUniswapV3(client, network, logger.With(zap.String("network", network.ID)))
	if err != nil {
		client.Close()
		return nil, nil, err
	}
	return provider, client, nil
}

func (u *UniswapV3) call(ctx context.Context, contract abi.ABI, to common.Address, method string, args ...interface{}) ([]interface{}, error) {
	data, err := contract.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}
	res, err := u.client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		if isRevert(err) {
			return nil, fmt.Errorf("%s reverted: %w", method, dex.ErrNoLiquidity)
		}
		return nil, fmt.Errorf("failed to call %s: %w", method, err)
	}
	out, err := contract.Unpack(method, res)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s: %w", method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty %s result", method)
	}
	return out, nil
}

// QuoteExactInputSingle simulates a single-pool exact-input swap
func (u *UniswapV3) QuoteExactInputSingle(ctx context.Context, tokenIn, tokenOut common.Address, fee types.FeeTier, amountIn *big.Int) (*big.Int, error) {
	out, err := u.call(ctx, u.quoterABI, u.quoter, "quoteExactInputSingle",
		tokenIn, tokenOut, big.NewInt(int64(fee)), amountIn, big.NewInt(0))
	if err != nil {
		return nil, err
	}
	amountOut, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected amountOut type %T", out[0])
	}
	return amountOut, nil
}

// PoolFor resolves the pool for the pair at fee and reads its in-range liquidity.
// A nil pool with a nil error means the factory has no such pool.
func (u *UniswapV3) PoolFor(ctx context.Context, tokenA, tokenB common.Address, fee types.FeeTier) (*dex.Pool, error) {
	// factory stores pools under the sorted pair
	if bytes.Compare(tokenA.Bytes(), tokenB.Bytes()) > 0 {
		tokenA, tokenB = tokenB, tokenA
	}

	out, err := u.call(ctx, u.factoryABI, u.factory, "getPool", tokenA, tokenB, big.NewInt(int64(fee)))
	if err != nil {
		return nil, err
	}
	addr, ok := out[0].(common.Address)
	if !ok {
		return nil, fmt.Errorf("unexpected pool type %T", out[0])
	}
	if addr == (common.Address{}) {
		return nil, nil
	}

	out, err = u.call(ctx, u.poolABI, addr, "liquidity")
	if err != nil {
		return nil, err
	}
	liquidity, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected liquidity type %T", out[0])
	}
	return &dex.Pool{Address: addr, Liquidity: liquidity}, nil
}

// CurrentFees derives EIP-1559 fee data the way wallets do:
// maxFee = 2*baseFee + tip. Chains without a base fee fall back to the legacy gas price.
func (u *UniswapV3) CurrentFees(ctx context.Context) (*dex.FeeData, error) {
	header, err := u.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest header: %w", err)
	}

	tip, err := u.client.SuggestGasTipCap(ctx)
	if err != nil || tip == nil {
		u.logger.Debug("Tip cap unavailable, using default", zap.Error(err))
		tip = new(big.Int).Set(defaultTipCap)
	}

	var maxFee *big.Int
	if header.BaseFee != nil {
		maxFee = new(big.Int).Mul(header.BaseFee, two)
		maxFee.Add(maxFee, tip)
	} else {
		maxFee, err = u.client.SuggestGasPrice(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get gas price: %w", err)
		}
	}

	var block uint64
	if header.Number != nil {
		block = header.Number.Uint64()
	}
	return &dex.FeeData{MaxFeePerGas: maxFee, MaxPriorityFeePerGas: tip, Block: block}, nil
}

// BlockNumber returns the latest block height
func (u *UniswapV3) BlockNumber(ctx context.Context) (uint64, error) {
	n, err := u.client.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get block number: %w", err)
	}
	return n, nil
}

// revertErrorCode is the JSON-RPC code geth-compatible nodes use for a reverted eth_call
const revertErrorCode = 3

// isRevert reports whether a call failed because the contract reverted.
// Other JSON-RPC errors (rate limits, missing headers, internal errors)
// are transport failures and must stay retryable.
func isRevert(err error) bool {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == revertErrorCode {
		return true
	}
	return strings.Contains(err.Error(), "execution reverted")
}
