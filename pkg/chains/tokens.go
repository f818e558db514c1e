package chains

import (
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// TokenKind describes the role a token plays in a payment
type TokenKind string

const (
	KindPayment     TokenKind = "payment"
	KindBridgeProxy TokenKind = "bridge_proxy"
	KindRouting     TokenKind = "routing"
	KindNative      TokenKind = "native"
	KindWrapped     TokenKind = "wrapped"
	KindFan         TokenKind = "fan"
)

// PriceDecimals is the precision the destination DEX uses when pricing fan tokens
const PriceDecimals int32 = 18

const (
	SymbolUSDC = "USDC"
	SymbolUSDT = "USDT"
	SymbolMCHZ = "MCHZ"
	SymbolWETH = "WETH"
	SymbolCHZ  = "CHZ"
	SymbolWCHZ = "WCHZ"
)

// Token holds the on-chain identity of a token
type Token struct {
	Symbol   string
	Name     string
	ChainID  int
	Address  common.Address
	Decimals int32
	Kind     TokenKind
}

// fanTokenOrder is the order in which the Chiliz DEX returns prices from getAllPrices
var fanTokenOrder = []string{"PSG", "BAR", "SPURS", "ACM", "OG", "CITY", "AFC", "MENGO", "JUV", "NAP", "ATM"}

var tokens = map[int]map[string]Token{
	SepoliaChainID: {
		SymbolUSDC: {SymbolUSDC, "USD Coin", SepoliaChainID, common.HexToAddress("0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238"), 6, KindPayment},
		SymbolUSDT: {SymbolUSDT, "Tether", SepoliaChainID, common.HexToAddress("0x7169D38820dfd117C3FA1f22a697dBA58d90BA06"), 6, KindPayment},
		SymbolMCHZ: {SymbolMCHZ, "Mock Chiliz", SepoliaChainID, common.HexToAddress("0xDA1fe1Db9b04a810cbb214a294667833e4c8D8F7"), 18, KindBridgeProxy},
		SymbolWETH: {SymbolWETH, "Wrapped Ether", SepoliaChainID, common.HexToAddress("0xfFf9976782d46CC05630D1f6eBAb18b2324d6B14"), 18, KindRouting},
	},
	ChilizSpicyChainID: {
		SymbolCHZ:  {SymbolCHZ, "Chiliz", ChilizSpicyChainID, common.Address{}, 18, KindNative},
		SymbolWCHZ: {SymbolWCHZ, "Wrapped Chiliz", ChilizSpicyChainID, common.HexToAddress("0x678c34581db0a7808d0aC669d7025f1408C9a3C6"), 18, KindWrapped},
		"PSG":      {"PSG", "Paris Saint-Germain", ChilizSpicyChainID, common.HexToAddress("0x6D124526a5948Cb82BB5B531Bf9989D8aB34C899"), 0, KindFan},
		"BAR":      {"BAR", "FC Barcelona", ChilizSpicyChainID, common.HexToAddress("0x0fE14905415E67620BeA20528839676684260851"), 0, KindFan},
		"SPURS":    {"SPURS", "Tottenham", ChilizSpicyChainID, common.HexToAddress("0x6199FF3173872E4dd1CF61cD958740A8CF8CAE75"), 0, KindFan},
		"ACM":      {"ACM", "AC Milan", ChilizSpicyChainID, common.HexToAddress("0xa34e100D5545d5aa7793e451Fa4fdf5DaB84C94c"), 0, KindFan},
		"OG":       {"OG", "OG Esports", ChilizSpicyChainID, common.HexToAddress("0x55922807d03C61DE294b8794c25338d3AFc0EFF6"), 0, KindFan},
		"CITY":     {"CITY", "Manchester City", ChilizSpicyChainID, common.HexToAddress("0x6350f61CDa7baea0eFAFF15ba10eb7A668E816da"), 0, KindFan},
		"AFC":      {"AFC", "Arsenal", ChilizSpicyChainID, common.HexToAddress("0x75A5Db3a95d009a493a2a235A62097fd38D93bd4"), 0, KindFan},
		"MENGO":    {"MENGO", "Flamengo", ChilizSpicyChainID, common.HexToAddress("0x8B67D9503B65c9f8d90AA5cAd9c25890918e5061"), 0, KindFan},
		"JUV":      {"JUV", "Juventus", ChilizSpicyChainID, common.HexToAddress("0x141Da2E915892D6D6c7584424A64903050Ac4226"), 0, KindFan},
		"NAP":      {"NAP", "Napoli", ChilizSpicyChainID, common.HexToAddress("0x7b57895dfbff9B096BFA75f54Bad64953717a37d"), 0, KindFan},
		"ATM":      {"ATM", "Atletico Madrid", ChilizSpicyChainID, common.HexToAddress("0xAFdC9d9bD8baA0e0A7d636Ef8d27f28e94aE73c7"), 0, KindFan},
	},
}

// GetToken returns the token with the given symbol on a chain, case-insensitive
func GetToken(chainID int, symbol string) (Token, bool) {
	chainTokens, exists := tokens[chainID]
	if !exists {
		return Token{}, false
	}
	token, exists := chainTokens[strings.ToUpper(strings.TrimSpace(symbol))]
	return token, exists
}

// GetPaymentToken returns an accepted stable payment token on the source chain
func GetPaymentToken(symbol string) (Token, error) {
	token, exists := GetToken(SepoliaChainID, symbol)
	if !exists || token.Kind != KindPayment {
		return Token{}, fmt.Errorf("unsupported payment token: %s", symbol)
	}
	return token, nil
}

// GetFanToken returns a fan token on the destination chain
func GetFanToken(symbol string) (Token, error) {
	token, exists := GetToken(ChilizSpicyChainID, symbol)
	if !exists || token.Kind != KindFan {
		return Token{}, fmt.Errorf("unsupported fan token: %s", symbol)
	}
	return token, nil
}

// MustGetToken returns a registry token and panics when it is missing
func MustGetToken(chainID int, symbol string) Token {
	token, exists := GetToken(chainID, symbol)
	if !exists {
		panic(fmt.Sprintf("token %s not registered for chain %d", symbol, chainID))
	}
	return token
}

// FanTokens returns all fan tokens in Chiliz DEX price order
func FanTokens() []Token {
	out := make([]Token, 0, len(fanTokenOrder))
	for _, symbol := range fanTokenOrder {
		out = append(out, tokens[ChilizSpicyChainID][symbol])
	}
	return out
}

// TokensForChain returns the tokens registered on a chain sorted by symbol
func TokensForChain(chainID int) []Token {
	chainTokens := tokens[chainID]
	out := make([]Token, 0, len(chainTokens))
	for _, token := range chainTokens {
		out = append(out, token)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// ParseAmount parses a positive decimal amount
func ParseAmount(amount string) (decimal.Decimal, error) {
	value, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %v", amount, err)
	}
	if !value.IsPositive() {
		return decimal.Zero, fmt.Errorf("invalid amount %q: must be greater than 0", amount)
	}
	return value, nil
}

// ToBaseUnits converts a decimal amount to base units, truncating extra precision
func ToBaseUnits(amount decimal.Decimal, decimals int32) *big.Int {
	return amount.Shift(decimals).Truncate(0).BigInt()
}

// ToBaseUnitsCeil converts a decimal amount to base units, rounding any extra precision up
func ToBaseUnitsCeil(amount decimal.Decimal, decimals int32) *big.Int {
	return amount.Shift(decimals).Ceil().BigInt()
}

// FromBaseUnits converts base units back to a decimal amount
func FromBaseUnits(amount *big.Int, decimals int32) decimal.Decimal {
	if amount == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(amount, -decimals)
}

// FormatBaseUnits formats base units with exactly the token's number of decimals
func FormatBaseUnits(amount *big.Int, decimals int32) string {
	return FromBaseUnits(amount, decimals).StringFixed(decimals)
}
