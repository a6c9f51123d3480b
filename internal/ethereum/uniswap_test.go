package ethereum

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCaller struct {
	result []byte
	err    error
	to     common.Address
	data   []byte
}

func (s *stubCaller) CallContract(_ context.Context, to common.Address, data []byte) ([]byte, error) {
	s.to, s.data = to, data
	return s.result, s.err
}

func parsedRouterABI(t *testing.T) abi.ABI {
	t.Helper()
	a, err := abi.JSON(routerABI())
	require.NoError(t, err)
	return a
}

func packAmounts(t *testing.T, amounts ...*big.Int) []byte {
	t.Helper()
	b, err := parsedRouterABI(t).Methods["getAmountsOut"].Outputs.Pack(amounts)
	require.NoError(t, err)
	return b
}

func TestETHPrice(t *testing.T) {
	stub := &stubCaller{result: packAmounts(t, toEthWei(1), big.NewInt(2_712_345_678))}
	q, err := NewUniswapQuoter(stub, "", "", "", 0)
	require.NoError(t, err)

	quote, err := q.ETHPrice(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 2712.345678, quote.Price, 1e-9)
	assert.Equal(t, "ETH", quote.Symbol)
	assert.Equal(t, "uniswap-v2", quote.Source)
	assert.Equal(t, common.HexToAddress(DefaultRouterAddress), stub.to)

	args, err := parsedRouterABI(t).Methods["getAmountsOut"].Inputs.Unpack(stub.data[4:])
	require.NoError(t, err)
	assert.Equal(t, 0, args[0].(*big.Int).Cmp(toEthWei(1)))
	assert.Equal(t, []common.Address{
		common.HexToAddress(DefaultWETHAddress),
		common.HexToAddress(DefaultQuoteAddress),
	}, args[1].([]common.Address))
}

func TestETHPrice_Errors(t *testing.T) {
	q, err := NewUniswapQuoter(&stubCaller{err: errors.New("rpc down")}, "", "", "", 0)
	require.NoError(t, err)
	_, err = q.ETHPrice(context.Background())
	assert.ErrorContains(t, err, "rpc down")

	q, err = NewUniswapQuoter(&stubCaller{result: packAmounts(t, toEthWei(1), big.NewInt(0))}, "", "", "", 0)
	require.NoError(t, err)
	_, err = q.ETHPrice(context.Background())
	assert.ErrorContains(t, err, "invalid on-chain price")
}

func TestFromTokenWei(t *testing.T) {
	assert.Equal(t, 1.5, fromTokenWei(big.NewInt(1_500_000), 6))
	assert.Equal(t, 1.0, fromTokenWei(toEthWei(1), 18))
}

func TestClientCallContract(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     json.RawMessage `json:"id"`
			Method string          `json:"method"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "eth_call", req.Method)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%s,"result":"0x0102"}`, req.ID)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)
	defer c.Close()

	out, err := c.CallContract(context.Background(), common.HexToAddress(DefaultRouterAddress), []byte{0xaa})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02}, out)
}

func TestClientBlockNumber(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     json.RawMessage `json:"id"`
			Method string          `json:"method"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "eth_blockNumber", req.Method)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%s,"result":"0x12d687"}`, req.ID)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)
	defer c.Close()

	n, err := c.BlockNumber(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1234567), n)
}
