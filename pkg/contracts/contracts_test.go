package contracts

import (
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestABIsParse(t *testing.T) {
	tests := []struct {
		name    string
		abiJSON string
		methods []string
	}{
		{"ERC20", ERC20ABI, []string{"balanceOf", "allowance", "totalSupply", "decimals", "symbol", "approve", "transfer", "transferFrom"}},
		{"Pair", UniswapV2PairABI, []string{"getReserves", "token0", "token1", "totalSupply"}},
		{"Factory", UniswapV2FactoryABI, []string{"getPair"}},
		{"Router", UniswapV2RouterABI, []string{"factory", "swapExactTokensForTokens"}},
		{"WarpRoute", HyperlaneWarpRouteABI, []string{"balanceOf", "transferRemote"}},
		{"ChilizDEX", ChilizDEXABI, []string{"getPrice", "getAllPrices"}},
		{"PaymentProcessor", PaymentProcessorABI, []string{"processPayment"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := abi.JSON(strings.NewReader(tt.abiJSON))
			require.NoError(t, err)
			for _, method := range tt.methods {
				_, ok := parsed.Methods[method]
				assert.True(t, ok, "method %s missing", method)
			}
		})
	}
}

func TestGetAllPricesReturnsElevenTokens(t *testing.T) {
	parsed, err := abi.JSON(strings.NewReader(ChilizDEXABI))
	require.NoError(t, err)
	assert.Len(t, parsed.Methods["getAllPrices"].Outputs, 11)
}

func TestTransferRemoteIsPayable(t *testing.T) {
	parsed, err := abi.JSON(strings.NewReader(HyperlaneWarpRouteABI))
	require.NoError(t, err)
	assert.True(t, parsed.Methods["transferRemote"].IsPayable())
}

func TestAddressToBytes32(t *testing.T) {
	addr := common.HexToAddress("0x286757c8D8f506a756AB00A7eaC22ce1F9ee3F16")
	encoded := AddressToBytes32(addr)

	for i := 0; i < 12; i++ {
		assert.Equal(t, byte(0), encoded[i])
	}
	assert.Equal(t, addr.Bytes(), encoded[12:])
}

func TestParseReceivedTransferRemote(t *testing.T) {
	route, err := NewHyperlaneWarpRoute(common.HexToAddress("0x286757c8D8f506a756AB00A7eaC22ce1F9ee3F16"), nil)
	require.NoError(t, err)

	parsed, err := abi.JSON(strings.NewReader(HyperlaneWarpRouteABI))
	require.NoError(t, err)
	event := parsed.Events["ReceivedTransferRemote"]
	data, err := event.Inputs.NonIndexed().Pack(big.NewInt(25_000_000_000_000_000))
	require.NoError(t, err)

	recipient := common.HexToAddress("0x00000000000000000000000000000000000000bb")
	t.Run("decodes the payout", func(t *testing.T) {
		received, err := route.ParseReceivedTransferRemote(types.Log{
			Topics: []common.Hash{event.ID, common.BigToHash(big.NewInt(11155111)), common.Hash(AddressToBytes32(recipient))},
			Data:   data,
		})
		require.NoError(t, err)
		assert.Equal(t, uint32(11155111), received.Origin)
		assert.Equal(t, recipient, received.Recipient)
		assert.Equal(t, "25000000000000000", received.Amount.String())
	})

	t.Run("rejects other events", func(t *testing.T) {
		_, err := route.ParseReceivedTransferRemote(types.Log{
			Topics: []common.Hash{parsed.Events["SentTransferRemote"].ID, common.Hash{}, common.Hash{}},
			Data:   data,
		})
		assert.Error(t, err)
	})
}
