package orderbuilder

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"strconv"

	"github.com/polymarket/go-order-utils/pkg/model"

	clobErrors "github.com/pooofdevelopment/clob-trader/pkg/errors"
	"github.com/pooofdevelopment/clob-trader/pkg/signer"
	"github.com/pooofdevelopment/clob-trader/pkg/signing"
	"github.com/pooofdevelopment/clob-trader/pkg/types"
	"github.com/pooofdevelopment/clob-trader/pkg/validation"
)

// saltMask keeps salts inside the range a JSON number holds exactly
const saltMask = (1 << 53) - 1

// GenerateSalt returns a random 53-bit salt as a base-10 string
func GenerateSalt() (string, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	return strconv.FormatUint(binary.BigEndian.Uint64(buf[:])&saltMask, 10), nil
}

// BuildOrderStruct builds the unsigned order for an EOA maker. The order is
// public (zero taker), never expires and pays no fee.
func BuildOrderStruct(params types.OrderParams, makerAddress string, nonce int64) (types.OrderStruct, error) {
	var side model.Side
	switch params.Side {
	case types.BUY:
		side = model.BUY
	case types.SELL:
		side = model.SELL
	default:
		return types.OrderStruct{}, fmt.Errorf("%w, got %q", clobErrors.ErrInvalidSide, params.Side)
	}

	salt, err := GenerateSalt()
	if err != nil {
		return types.OrderStruct{}, err
	}

	makerAmount, takerAmount := CalculateAmounts(params.Price, params.Size, params.Side)

	return types.OrderStruct{
		Salt:          salt,
		Maker:         makerAddress,
		Signer:        makerAddress,
		Taker:         types.ZeroAddress,
		TokenID:       params.TokenID,
		MakerAmount:   makerAmount,
		TakerAmount:   takerAmount,
		Expiration:    "0",
		Nonce:         strconv.FormatInt(nonce, 10),
		FeeRateBps:    "0",
		Side:          side,
		SignatureType: model.EOA,
	}, nil
}

// OrderBuilder handles order creation and signing
type OrderBuilder struct {
	wallet  signer.Wallet
	sigType model.SignatureType
}

// NewOrderBuilder creates a new order builder signing with w
func NewOrderBuilder(w signer.Wallet) *OrderBuilder {
	return &OrderBuilder{wallet: w, sigType: model.EOA}
}

// SignatureType returns the signature type orders are built with
func (ob *OrderBuilder) SignatureType() model.SignatureType {
	return ob.sigType
}

// Address returns the maker and signer address of built orders
func (ob *OrderBuilder) Address() string {
	return ob.wallet.Address()
}

// CreateOrder validates params against the market grid, builds the order and
// signs it against the exchange domain selected by negRisk. Validation
// failures come back as *errors.ValidationError.
func (ob *OrderBuilder) CreateOrder(params types.OrderParams, constraints *types.MarketConstraints, negRisk bool, nonce int64) (*types.SignedOrder, error) {
	if res := validation.ValidateOrderParams(params, constraints); !res.Valid {
		return nil, &clobErrors.ValidationError{Errors: res.Errors}
	}

	order, err := BuildOrderStruct(params, ob.wallet.Address(), nonce)
	if err != nil {
		return nil, err
	}

	domain, err := signing.OrderDomain(ob.wallet.ChainID(), negRisk)
	if err != nil {
		return nil, err
	}

	signed, err := signing.SignOrder(order, ob.wallet.Address(), ob.wallet.Sign, domain)
	if err != nil {
		return nil, err
	}
	signed.NegRisk = negRisk
	return signed, nil
}
