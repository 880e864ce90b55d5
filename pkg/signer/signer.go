package signer

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Wallet is anything that can produce Ethereum signatures over a 32-byte
// digest for one address. A browser or hardware wallet satisfies it as well
// as a raw key.
type Wallet interface {
	Address() string
	ChainID() int64
	Sign(hash []byte) (string, error)
}

// Signer handles private key operations and signing
type Signer struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
	chainID    int64
}

var _ Wallet = (*Signer)(nil)

// NewSigner creates a new signer from a hex private key, with or without 0x
func NewSigner(privateKeyHex string, chainID int64) (*Signer, error) {
	if privateKeyHex == "" || chainID == 0 {
		return nil, fmt.Errorf("private key and chain ID are required")
	}

	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	return &Signer{
		privateKey: privateKey,
		address:    crypto.PubkeyToAddress(privateKey.PublicKey),
		chainID:    chainID,
	}, nil
}

// Address returns the checksummed signer address
func (s *Signer) Address() string {
	return s.address.Hex()
}

func (s *Signer) ChainID() int64 {
	return s.chainID
}

// Sign signs a 32-byte digest and returns 0x-hex r||s||v with v in {27,28}
func (s *Signer) Sign(messageHash []byte) (string, error) {
	if len(messageHash) != common.HashLength {
		return "", fmt.Errorf("invalid message hash length: expected %d, got %d", common.HashLength, len(messageHash))
	}

	signature, err := crypto.Sign(messageHash, s.privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign message: %w", err)
	}

	// Ethereum convention
	signature[crypto.RecoveryIDOffset] += 27

	return "0x" + common.Bytes2Hex(signature), nil
}

// PrivateKey exposes the key for on-chain transactions
func (s *Signer) PrivateKey() *ecdsa.PrivateKey {
	return s.privateKey
}
