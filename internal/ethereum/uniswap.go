package ethereum

import (
	"context"
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/kjannette/trahn-planner/internal/models"
)

// Mainnet defaults: Uniswap V2 Router02, WETH and USDC (6 decimals).
const (
	DefaultRouterAddress = "0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D"
	DefaultWETHAddress   = "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"
	DefaultQuoteAddress  = "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
	DefaultQuoteDecimals = 6
)

// callContracter is satisfied by *Client.
type callContracter interface {
	CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error)
}

// UniswapQuoter prices 1 WETH in the quote token through the V2 router.
type UniswapQuoter struct {
	client     callContracter
	routerAddr common.Address
	wethAddr   common.Address
	quoteAddr  common.Address
	quoteDec   int
	routerABI  abi.ABI
}

func NewUniswapQuoter(client callContracter, routerAddr, wethAddr, quoteAddr string, quoteDecimals int) (*UniswapQuoter, error) {
	rABI, err := abi.JSON(routerABI())
	if err != nil {
		return nil, fmt.Errorf("parse router ABI: %w", err)
	}
	if routerAddr == "" {
		routerAddr = DefaultRouterAddress
	}
	if wethAddr == "" {
		wethAddr = DefaultWETHAddress
	}
	if quoteAddr == "" {
		quoteAddr = DefaultQuoteAddress
	}
	if quoteDecimals <= 0 {
		quoteDecimals = DefaultQuoteDecimals
	}
	return &UniswapQuoter{
		client:     client,
		routerAddr: common.HexToAddress(routerAddr),
		wethAddr:   common.HexToAddress(wethAddr),
		quoteAddr:  common.HexToAddress(quoteAddr),
		quoteDec:   quoteDecimals,
		routerABI:  rABI,
	}, nil
}

// ETHPrice returns the amount of quote token received for exactly 1 ETH.
func (u *UniswapQuoter) ETHPrice(ctx context.Context) (models.Quote, error) {
	path := []common.Address{u.wethAddr, u.quoteAddr}
	data, err := u.routerABI.Pack("getAmountsOut", toEthWei(1), path)
	if err != nil {
		return models.Quote{}, fmt.Errorf("pack getAmountsOut: %w", err)
	}

	result, err := u.client.CallContract(ctx, u.routerAddr, data)
	if err != nil {
		return models.Quote{}, fmt.Errorf("getAmountsOut call: %w", err)
	}

	out, err := u.routerABI.Unpack("getAmountsOut", result)
	if err != nil {
		return models.Quote{}, fmt.Errorf("unpack getAmountsOut: %w", err)
	}
	amounts, ok := out[0].([]*big.Int)
	if !ok || len(amounts) != len(path) {
		return models.Quote{}, fmt.Errorf("unexpected getAmountsOut result %v", out)
	}

	price := fromTokenWei(amounts[len(amounts)-1], u.quoteDec)
	if price <= 0 {
		return models.Quote{}, fmt.Errorf("invalid on-chain price: %f", price)
	}

	return models.Quote{
		Symbol:    "ETH",
		Price:     price,
		Source:    "uniswap-v2",
		Timestamp: time.Now().UTC(),
	}, nil
}

// --- helpers ---

func toEthWei(eth float64) *big.Int {
	f := new(big.Float).Mul(new(big.Float).SetFloat64(eth), new(big.Float).SetFloat64(1e18))
	i, _ := f.Int(nil)
	return i
}

func fromTokenWei(amount *big.Int, decimals int) float64 {
	f, _ := new(big.Float).Quo(
		new(big.Float).SetInt(amount),
		new(big.Float).SetFloat64(math.Pow10(decimals)),
	).Float64()
	return f
}
