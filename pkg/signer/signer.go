// Package signer holds the operator's ECDSA key and produces approval
// signatures over hashes computed by the transaction service. It never
// computes a hash itself.
package signer

import (
	"context"
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signer signs 32-byte hashes with the operator key. Signatures are
// deterministic per key and hash.
type Signer struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
}

// NewFromHex builds a signer from a hex-encoded private key, with or without
// a 0x prefix.
func NewFromHex(privateKeyHex string) (*Signer, error) {
	if privateKeyHex == "" {
		return nil, fmt.Errorf("private key cannot be empty")
	}
	if len(privateKeyHex) >= 2 && privateKeyHex[:2] == "0x" {
		privateKeyHex = privateKeyHex[2:]
	}

	privateKey, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ECDSA private key: %w", err)
	}

	publicKey, ok := privateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("failed to cast public key to ECDSA")
	}

	return &Signer{
		privateKey: privateKey,
		address:    crypto.PubkeyToAddress(*publicKey),
	}, nil
}

// SignHash signs the given hash. The recovery id is shifted to the legacy
// 27/28 form the transaction service expects.
func (s *Signer) SignHash(_ context.Context, hash common.Hash) (hexutil.Bytes, error) {
	signature, err := crypto.Sign(hash[:], s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign hash %s: %w", hash.Hex(), err)
	}
	signature[crypto.RecoveryIDOffset] += 27
	return signature, nil
}

// Address returns the operator address derived from the key.
func (s *Signer) Address() common.Address {
	return s.address
}
