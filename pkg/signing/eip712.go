package signing

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/pooofdevelopment/clob-trader/pkg/config"
	clobErrors "github.com/pooofdevelopment/clob-trader/pkg/errors"
	"github.com/pooofdevelopment/clob-trader/pkg/types"
)

// Constants for CLOB authentication
const (
	CLOB_DOMAIN_NAME = "ClobAuthDomain"
	CLOB_VERSION     = "1"
	MSG_TO_SIGN      = "This message attests that I control the given wallet"

	ORDER_DOMAIN_NAME    = "Polymarket CTF Exchange"
	ORDER_DOMAIN_VERSION = "1"
)

// SignFunc signs a 32-byte EIP-712 digest and returns a 0x-hex signature
type SignFunc func(hash []byte) (string, error)

var orderTypes = apitypes.Types{
	"EIP712Domain": {
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
		{Name: "verifyingContract", Type: "address"},
	},
	"Order": {
		{Name: "salt", Type: "uint256"},
		{Name: "maker", Type: "address"},
		{Name: "signer", Type: "address"},
		{Name: "taker", Type: "address"},
		{Name: "tokenId", Type: "uint256"},
		{Name: "makerAmount", Type: "uint256"},
		{Name: "takerAmount", Type: "uint256"},
		{Name: "expiration", Type: "uint256"},
		{Name: "nonce", Type: "uint256"},
		{Name: "feeRateBps", Type: "uint256"},
		{Name: "side", Type: "uint8"},
		{Name: "signatureType", Type: "uint8"},
	},
}

var clobAuthTypes = apitypes.Types{
	"EIP712Domain": {
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
	},
	"ClobAuth": {
		{Name: "address", Type: "address"},
		{Name: "timestamp", Type: "string"},
		{Name: "nonce", Type: "uint256"},
		{Name: "message", Type: "string"},
	},
}

// OrderDomain returns the exchange domain an order must be signed against.
// Standard and neg-risk markets settle on different contracts, so negRisk
// has to come from the market itself.
func OrderDomain(chainID int64, negRisk bool) (apitypes.TypedDataDomain, error) {
	contracts, err := config.GetContractConfig(chainID, negRisk)
	if err != nil {
		return apitypes.TypedDataDomain{}, err
	}
	return apitypes.TypedDataDomain{
		Name:              ORDER_DOMAIN_NAME,
		Version:           ORDER_DOMAIN_VERSION,
		ChainId:           math.NewHexOrDecimal256(chainID),
		VerifyingContract: contracts.Exchange,
	}, nil
}

// OrderTypedData builds the EIP-712 payload for an unsigned order
func OrderTypedData(order types.OrderStruct, domain apitypes.TypedDataDomain) apitypes.TypedData {
	return apitypes.TypedData{
		Types:       orderTypes,
		PrimaryType: "Order",
		Domain:      domain,
		Message: apitypes.TypedDataMessage{
			"salt":          order.Salt,
			"maker":         order.Maker,
			"signer":        order.Signer,
			"taker":         order.Taker,
			"tokenId":       order.TokenID,
			"makerAmount":   order.MakerAmount,
			"takerAmount":   order.TakerAmount,
			"expiration":    order.Expiration,
			"nonce":         order.Nonce,
			"feeRateBps":    order.FeeRateBps,
			"side":          strconv.Itoa(int(order.Side)),
			"signatureType": strconv.Itoa(int(order.SignatureType)),
		},
	}
}

// HashOrder returns the EIP-712 digest of an order
func HashOrder(order types.OrderStruct, domain apitypes.TypedDataDomain) ([]byte, error) {
	hash, _, err := apitypes.TypedDataAndHash(OrderTypedData(order, domain))
	if err != nil {
		return nil, fmt.Errorf("hash order: %w", err)
	}
	return hash, nil
}

// SignOrder signs order with signFn. signerAddress must be the order's
// signer; anything else would produce a signature the exchange rejects.
func SignOrder(order types.OrderStruct, signerAddress string, signFn SignFunc, domain apitypes.TypedDataDomain) (*types.SignedOrder, error) {
	if !strings.EqualFold(order.Signer, signerAddress) {
		return nil, fmt.Errorf("%w: order signer %s, signing as %s", clobErrors.ErrSignerMismatch, order.Signer, signerAddress)
	}

	hash, err := HashOrder(order, domain)
	if err != nil {
		return nil, err
	}

	signature, err := signFn(hash)
	if err != nil {
		return nil, fmt.Errorf("sign order: %w", err)
	}

	return &types.SignedOrder{OrderStruct: order, Signature: signature}, nil
}

// ClobAuthTypedData builds the L1 attestation payload
func ClobAuthTypedData(address string, chainID, timestamp, nonce int64) apitypes.TypedData {
	return apitypes.TypedData{
		Types:       clobAuthTypes,
		PrimaryType: "ClobAuth",
		Domain: apitypes.TypedDataDomain{
			Name:    CLOB_DOMAIN_NAME,
			Version: CLOB_VERSION,
			ChainId: math.NewHexOrDecimal256(chainID),
		},
		Message: apitypes.TypedDataMessage{
			"address":   address,
			"timestamp": strconv.FormatInt(timestamp, 10),
			"nonce":     strconv.FormatInt(nonce, 10),
			"message":   MSG_TO_SIGN,
		},
	}
}

// SignClobAuth signs the CLOB authentication message used for L1 headers
func SignClobAuth(address string, chainID, timestamp, nonce int64, signFn SignFunc) (string, error) {
	hash, _, err := apitypes.TypedDataAndHash(ClobAuthTypedData(address, chainID, timestamp, nonce))
	if err != nil {
		return "", fmt.Errorf("hash clob auth: %w", err)
	}
	signature, err := signFn(hash)
	if err != nil {
		return "", fmt.Errorf("sign clob auth: %w", err)
	}
	return signature, nil
}
