package ethereum

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Client is a read-only JSON-RPC connection. It never signs or sends transactions.
type Client struct {
	rpc *ethclient.Client
}

func NewClient(rpcURL string) (*Client, error) {
	rpc, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial RPC: %w", err)
	}
	return &Client{rpc: rpc}, nil
}

func (c *Client) Close() { c.rpc.Close() }

// BlockNumber returns the latest block; startup uses it to check the RPC.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	return c.rpc.BlockNumber(ctx)
}

// CallContract performs a read-only eth_call and returns the raw result.
func (c *Client) CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	msg := map[string]interface{}{
		"to":   to.Hex(),
		"data": fmt.Sprintf("0x%x", data),
	}
	var result string
	err := c.rpc.Client().CallContext(ctx, &result, "eth_call", msg, "latest")
	if err != nil {
		return nil, err
	}
	return common.FromHex(result), nil
}
