package headers

import (
	"fmt"
	"strconv"
	"time"

	"github.com/pooofdevelopment/clob-trader/pkg/signer"
	"github.com/pooofdevelopment/clob-trader/pkg/signing"
	"github.com/pooofdevelopment/clob-trader/pkg/types"
)

// Header constants
const (
	POLY_ADDRESS    = "POLY_ADDRESS"
	POLY_SIGNATURE  = "POLY_SIGNATURE"
	POLY_TIMESTAMP  = "POLY_TIMESTAMP"
	POLY_NONCE      = "POLY_NONCE"
	POLY_API_KEY    = "POLY_API_KEY"
	POLY_PASSPHRASE = "POLY_PASSPHRASE"
)

// Now is the clock used for header timestamps
var Now = time.Now

// CreateLevel1Headers creates Level 1 Poly headers for a request
func CreateLevel1Headers(w signer.Wallet, nonce int64) (map[string]string, error) {
	timestamp := Now().Unix()

	signature, err := signing.SignClobAuth(w.Address(), w.ChainID(), timestamp, nonce, w.Sign)
	if err != nil {
		return nil, fmt.Errorf("failed to sign auth message: %w", err)
	}

	return map[string]string{
		POLY_ADDRESS:   w.Address(),
		POLY_SIGNATURE: signature,
		POLY_TIMESTAMP: strconv.FormatInt(timestamp, 10),
		POLY_NONCE:     strconv.FormatInt(nonce, 10),
	}, nil
}

// CreateLevel2Headers creates Level 2 Poly headers for a request.
// requestArgs.RequestPath is signed as given, so callers pass the bare path
// even when the request itself carries a query string.
func CreateLevel2Headers(address string, creds *types.ApiCreds, requestArgs *types.RequestArgs) (map[string]string, error) {
	if !creds.Valid() {
		return nil, fmt.Errorf("incomplete api credentials")
	}

	timestamp := Now().Unix()

	hmacSig, err := signing.BuildHMACSignature(
		creds.ApiSecret,
		timestamp,
		requestArgs.Method,
		requestArgs.RequestPath,
		requestArgs.Body,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build HMAC signature: %w", err)
	}

	return map[string]string{
		POLY_ADDRESS:    address,
		POLY_SIGNATURE:  hmacSig,
		POLY_TIMESTAMP:  strconv.FormatInt(timestamp, 10),
		POLY_API_KEY:    creds.ApiKey,
		POLY_PASSPHRASE: creds.ApiPassphrase,
	}, nil
}
