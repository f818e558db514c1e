package config

import (
	"fmt"

	"github.com/drift-pay/drift-gateway/pkg/chains"
)

// Network specific values
// Note: contract address values are not prefixed with "Default"
// These are the deployed contracts but can still be overridden by environment variables for debugging purposes

const (
	// Sepolia

	SepoliaUniswapV2Router   = "0xC532a74256D3Db42D0Bf7a0400fEFDbad7694008"
	SepoliaHyperlaneWarpMCHZ = "0xeb2a0b7aaaDd23851c08B963C3F4fbe00B897c04"

	DefaultSepoliaRPCURL = "https://ethereum-sepolia-rpc.publicnode.com"

	// alchemySepoliaRPCFormat is used when only ALCHEMY_API_KEY is provided
	alchemySepoliaRPCFormat = "https://eth-sepolia.g.alchemy.com/v2/%s"

	// Chiliz Spicy

	ChilizHyperlaneWarpCHZ = "0x286757c8D8f506a756AB00A7eaC22ce1F9ee3F16"
	ChilizFanTokenDEX      = "0xFbef475155294d7Ef054f2b79B908c91A9914d82"

	DefaultChilizRPCURL = "https://spicy-rpc.chiliz.com"
)

// defaultRPCURLs maps chain IDs to their public RPC endpoints
var defaultRPCURLs = map[int]string{
	chains.SepoliaChainID:     DefaultSepoliaRPCURL,
	chains.ChilizSpicyChainID: DefaultChilizRPCURL,
}

// GetDefaultRPCURL returns the public RPC endpoint for a chain
func GetDefaultRPCURL(chainID int) string {
	url, exists := defaultRPCURLs[chainID]
	if !exists {
		return ""
	}
	return url
}

// alchemySepoliaURL builds the Alchemy endpoint for Sepolia
func alchemySepoliaURL(apiKey string) string {
	return fmt.Sprintf(alchemySepoliaRPCFormat, apiKey)
}
