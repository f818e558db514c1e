package chains

const (
	// SepoliaChainID is the source chain where payments are collected and swapped
	SepoliaChainID = 11155111

	// ChilizSpicyChainID is the destination chain where fan tokens are delivered
	ChilizSpicyChainID = 88882
)

// ChainList contains the list of supported chain IDs
var ChainList = []int{
	SepoliaChainID,     // Ethereum Sepolia
	ChilizSpicyChainID, // Chiliz Spicy testnet
}

// chainNames maps chain IDs to their names
var chainNames = map[int]string{
	SepoliaChainID:     "SEPOLIA",
	ChilizSpicyChainID: "CHILIZ_SPICY",
}

// hyperlaneDomains maps chain IDs to the Hyperlane domain used by warp routes
var hyperlaneDomains = map[int]uint32{
	SepoliaChainID:     11155111,
	ChilizSpicyChainID: 88882,
}

// GetChainName returns the name of the chain for a given chain ID
func GetChainName(chainID int) string {
	name, exists := chainNames[chainID]
	if !exists {
		return ""
	}
	return name
}

// GetHyperlaneDomain returns the Hyperlane domain of a chain
func GetHyperlaneDomain(chainID int) (uint32, bool) {
	domain, exists := hyperlaneDomains[chainID]
	return domain, exists
}
