package ethereum

import (
	"io"
	"strings"
)

// Minimal Uniswap V2 Router02 ABI: the view method used for quoting.
func routerABI() io.Reader {
	return strings.NewReader(`[
		{
			"name": "getAmountsOut",
			"type": "function",
			"stateMutability": "view",
			"inputs": [
				{"name": "amountIn", "type": "uint256"},
				{"name": "path",     "type": "address[]"}
			],
			"outputs": [
				{"name": "amounts", "type": "uint256[]"}
			]
		}
	]`)
}
