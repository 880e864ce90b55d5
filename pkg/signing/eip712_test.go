package signing

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/polymarket/go-order-utils/pkg/builder"
	"github.com/polymarket/go-order-utils/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	clobErrors "github.com/pooofdevelopment/clob-trader/pkg/errors"
	"github.com/pooofdevelopment/clob-trader/pkg/signer"
	"github.com/pooofdevelopment/clob-trader/pkg/types"
)

const testKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func testOrder(t *testing.T, s *signer.Signer) types.OrderStruct {
	t.Helper()
	return types.OrderStruct{
		Salt:          "479249096354",
		Maker:         s.Address(),
		Signer:        s.Address(),
		Taker:         types.ZeroAddress,
		TokenID:       "71321045679252212594626385532706912750332728571942532289631379312455583992563",
		MakerAmount:   "5000000",
		TakerAmount:   "10000000",
		Expiration:    "0",
		Nonce:         "0",
		FeeRateBps:    "0",
		Side:          model.BUY,
		SignatureType: model.EOA,
	}
}

func recoverAddress(t *testing.T, hash []byte, sigHex string) string {
	t.Helper()
	sig := common.FromHex(sigHex)
	require.Len(t, sig, 65)
	sig[64] -= 27
	pub, err := crypto.SigToPub(hash, sig)
	require.NoError(t, err)
	return crypto.PubkeyToAddress(*pub).Hex()
}

func TestOrderDomain(t *testing.T) {
	std, err := OrderDomain(137, false)
	require.NoError(t, err)
	neg, err := OrderDomain(137, true)
	require.NoError(t, err)

	assert.Equal(t, ORDER_DOMAIN_NAME, std.Name)
	assert.Equal(t, "0x4bFb41d5B3570DeFd03C39a9A4D8dE6Bd8B8982E", std.VerifyingContract)
	assert.Equal(t, "0xC5d563A36AE78145C45a50134d48A1215220f80a", neg.VerifyingContract)

	_, err = OrderDomain(1, false)
	assert.Error(t, err)
}

func TestSignOrderRecoversSigner(t *testing.T) {
	s, err := signer.NewSigner(testKey, 137)
	require.NoError(t, err)
	order := testOrder(t, s)

	for _, negRisk := range []bool{false, true} {
		domain, err := OrderDomain(137, negRisk)
		require.NoError(t, err)

		signed, err := SignOrder(order, s.Address(), s.Sign, domain)
		require.NoError(t, err)
		assert.Equal(t, order, signed.OrderStruct)

		hash, err := HashOrder(order, domain)
		require.NoError(t, err)
		assert.Equal(t, s.Address(), recoverAddress(t, hash, signed.Signature))
	}
}

func TestSignOrderDomainsDiffer(t *testing.T) {
	s, err := signer.NewSigner(testKey, 137)
	require.NoError(t, err)
	order := testOrder(t, s)

	std, _ := OrderDomain(137, false)
	neg, _ := OrderDomain(137, true)

	a, err := HashOrder(order, std)
	require.NoError(t, err)
	b, err := HashOrder(order, neg)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestSignOrderMatchesGoOrderUtils(t *testing.T) {
	s, err := signer.NewSigner(testKey, 137)
	require.NoError(t, err)
	order := testOrder(t, s)
	order.Side = model.SELL

	tests := []struct {
		negRisk  bool
		contract model.VerifyingContract
	}{
		{negRisk: false, contract: model.CTFExchange},
		{negRisk: true, contract: model.NegRiskCTFExchange},
	}

	for _, tt := range tests {
		domain, err := OrderDomain(137, tt.negRisk)
		require.NoError(t, err)
		ours, err := SignOrder(order, s.Address(), s.Sign, domain)
		require.NoError(t, err)

		ref := builder.NewExchangeOrderBuilderImpl(big.NewInt(137), func() int64 { return 479249096354 })
		theirs, err := ref.BuildSignedOrder(s.PrivateKey(), &model.OrderData{
			Maker:         order.Maker,
			Taker:         order.Taker,
			TokenId:       order.TokenID,
			MakerAmount:   order.MakerAmount,
			TakerAmount:   order.TakerAmount,
			Side:          order.Side,
			FeeRateBps:    order.FeeRateBps,
			Nonce:         order.Nonce,
			Signer:        order.Signer,
			Expiration:    order.Expiration,
			SignatureType: order.SignatureType,
		}, tt.contract)
		require.NoError(t, err)

		assert.Equal(t, "0x"+common.Bytes2Hex(theirs.Signature), ours.Signature, "negRisk=%v", tt.negRisk)
	}
}

func TestSignOrderRejectsOtherSigner(t *testing.T) {
	s, err := signer.NewSigner(testKey, 137)
	require.NoError(t, err)
	order := testOrder(t, s)
	domain, _ := OrderDomain(137, false)

	called := false
	_, err = SignOrder(order, "0x0000000000000000000000000000000000000001", func([]byte) (string, error) {
		called = true
		return "", nil
	}, domain)
	require.ErrorIs(t, err, clobErrors.ErrSignerMismatch)
	assert.False(t, called)
}

func TestSignClobAuth(t *testing.T) {
	s, err := signer.NewSigner(testKey, 137)
	require.NoError(t, err)

	sig, err := SignClobAuth(s.Address(), 137, 1700000000, 0, s.Sign)
	require.NoError(t, err)

	hash, _, err := apitypes.TypedDataAndHash(ClobAuthTypedData(s.Address(), 137, 1700000000, 0))
	require.NoError(t, err)
	assert.Equal(t, s.Address(), recoverAddress(t, hash, sig))

	other, err := SignClobAuth(s.Address(), 137, 1700000000, 1, s.Sign)
	require.NoError(t, err)
	assert.NotEqual(t, sig, other)
}
