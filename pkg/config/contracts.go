package config

import (
	"fmt"

	"github.com/pooofdevelopment/clob-trader/pkg/types"
)

var contractConfigs = map[int64]*types.ContractConfig{
	types.PolygonChainID: {
		Exchange:          "0x4bFb41d5B3570DeFd03C39a9A4D8dE6Bd8B8982E",
		Collateral:        "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174",
		ConditionalTokens: "0x4D97DCd97eC945f40cF65F87097ACe5EA0476045",
	},
	types.AmoyChainID: {
		Exchange:          "0xdFE02Eb6733538f8Ea35D585af8DE5958AD99E40",
		Collateral:        "0x9c4e1703476e875070ee25b56a58b008cfb8fa78",
		ConditionalTokens: "0x69308FB512518e39F9b16112fA8d994F4e2Bf8bB",
	},
}

var negRiskContractConfigs = map[int64]*types.ContractConfig{
	types.PolygonChainID: {
		Exchange:          "0xC5d563A36AE78145C45a50134d48A1215220f80a",
		Collateral:        "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174",
		ConditionalTokens: "0x4D97DCd97eC945f40cF65F87097ACe5EA0476045",
		NegRiskAdapter:    "0xd91E80cF2E7be2e162c6513ceD06f1dD0dA35296",
	},
	types.AmoyChainID: {
		Exchange:          "0xd91E80cF2E7be2e162c6513ceD06f1dD0dA35296",
		Collateral:        "0x9c4e1703476e875070ee25b56a58b008cfb8fa78",
		ConditionalTokens: "0x69308FB512518e39F9b16112fA8d994F4e2Bf8bB",
		NegRiskAdapter:    "0xd91E80cF2E7be2e162c6513ceD06f1dD0dA35296",
	},
}

// GetContractConfig returns the contract configuration for the specified chain.
// The neg-risk exchange is a distinct contract; callers must pass the market's
// own negRisk flag.
func GetContractConfig(chainID int64, negRisk bool) (*types.ContractConfig, error) {
	var config *types.ContractConfig
	if negRisk {
		config = negRiskContractConfigs[chainID]
	} else {
		config = contractConfigs[chainID]
	}

	if config == nil {
		return nil, fmt.Errorf("invalid chainID: %d", chainID)
	}

	// Hand out a copy so the tables stay immutable
	out := *config
	return &out, nil
}

// SupportedChain reports whether contract addresses are known for chainID
func SupportedChain(chainID int64) bool {
	_, ok := contractConfigs[chainID]
	return ok
}
