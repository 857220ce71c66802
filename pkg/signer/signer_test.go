package signer_test

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultsentry/vaultsentry/pkg/signer"
)

// Well-known dev key (hardhat account 0).
const (
	devKey     = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	devAddress = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

func TestNewFromHex(t *testing.T) {
	s, err := signer.NewFromHex(devKey)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(devAddress), s.Address())

	// 0x prefix is accepted.
	prefixed, err := signer.NewFromHex("0x" + devKey)
	require.NoError(t, err)
	assert.Equal(t, s.Address(), prefixed.Address())
}

func TestNewFromHexRejectsBadInput(t *testing.T) {
	for _, key := range []string{"", "0x", "not-hex", "abcd"} {
		_, err := signer.NewFromHex(key)
		require.Error(t, err, "key %q", key)
	}
}

func TestSignHashIsDeterministicAndRecoverable(t *testing.T) {
	s, err := signer.NewFromHex(devKey)
	require.NoError(t, err)

	hash := crypto.Keccak256Hash([]byte("pending approval"))

	sig1, err := s.SignHash(context.Background(), hash)
	require.NoError(t, err)
	sig2, err := s.SignHash(context.Background(), hash)
	require.NoError(t, err)
	assert.Equal(t, sig1, sig2)

	require.Len(t, []byte(sig1), crypto.SignatureLength)
	v := sig1[crypto.RecoveryIDOffset]
	assert.Contains(t, []byte{27, 28}, v)

	// Recover with the raw recovery id and confirm the operator key signed.
	raw := make([]byte, crypto.SignatureLength)
	copy(raw, sig1)
	raw[crypto.RecoveryIDOffset] = v - 27
	pub, err := crypto.SigToPub(hash[:], raw)
	require.NoError(t, err)
	assert.Equal(t, s.Address(), crypto.PubkeyToAddress(*pub))
}
