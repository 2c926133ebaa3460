package uniswap

// QuoterV1 quoteExactInputSingle. The function is non-view on chain and is
// only ever executed through eth_call.
const quoterABIJson = `[{
	"inputs": [
		{"internalType": "address", "name": "tokenIn", "type": "address"},
		{"internalType": "address", "name": "tokenOut", "type": "address"},
		{"internalType": "uint24", "name": "fee", "type": "uint24"},
		{"internalType": "uint256", "name": "amountIn", "type": "uint256"},
		{"internalType": "uint160", "name": "sqrtPriceLimitX96", "type": "uint160"}
	],
	"name": "quoteExactInputSingle",
	"outputs": [{"internalType": "uint256", "name": "amountOut", "type": "uint256"}],
	"stateMutability": "nonpayable",
	"type": "function"
}]`

const factoryABIJson = `[{
	"inputs": [
		{"internalType": "address", "name": "tokenA", "type": "address"},
		{"internalType": "address", "name": "tokenB", "type": "address"},
		{"internalType": "uint24", "name": "fee", "type": "uint24"}
	],
	"name": "getPool",
	"outputs": [{"internalType": "address", "name": "pool", "type": "address"}],
	"stateMutability": "view",
	"type": "function"
}]`

const poolABIJson = `[{
	"inputs": [],
	"name": "liquidity",
	"outputs": [{"internalType": "uint128", "name": "", "type": "uint128"}],
	"stateMutability": "view",
	"type": "function"
}]`
