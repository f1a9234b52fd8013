package crypto

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carevault/carevault/internal/signer"
	apperrors "github.com/carevault/carevault/pkg/errors"
)

func newTestSigner(t *testing.T) *signer.LocalSigner {
	t.Helper()
	key, err := signer.GenerateWalletKey()
	require.NoError(t, err)
	return signer.NewLocalSignerFromKey(key)
}

func TestDeriveKeyIsDeterministic(t *testing.T) {
	ctx := context.Background()
	capability := newTestSigner(t)

	first, err := DeriveKey(ctx, capability.Address(), capability)
	require.NoError(t, err)
	second, err := DeriveKey(ctx, capability.Address(), capability)
	require.NoError(t, err)

	assert.Len(t, first, KeySize)
	assert.Equal(t, first, second)
}

func TestDeriveKeyDiffersPerWallet(t *testing.T) {
	ctx := context.Background()
	alice := newTestSigner(t)
	bob := newTestSigner(t)

	aliceKey, err := DeriveKey(ctx, alice.Address(), alice)
	require.NoError(t, err)
	bobKey, err := DeriveKey(ctx, bob.Address(), bob)
	require.NoError(t, err)

	assert.NotEqual(t, aliceKey, bobKey)
}

func TestDeriveKeyDecryptsAcrossSessions(t *testing.T) {
	ctx := context.Background()
	walletKey, err := signer.GenerateWalletKey()
	require.NoError(t, err)

	// Session one: derive and encrypt.
	session1 := signer.NewLocalSignerFromKey(walletKey)
	key1, err := DeriveKey(ctx, session1.Address(), session1)
	require.NoError(t, err)
	envelope, err := Encrypt([]byte("persists across sessions"), key1)
	require.NoError(t, err)

	// Session two: fresh capability over the same wallet key.
	session2 := signer.NewLocalSignerFromKey(walletKey)
	key2, err := DeriveKey(ctx, session2.Address(), session2)
	require.NoError(t, err)

	plaintext, err := Decrypt(envelope, key2)
	require.NoError(t, err)
	assert.Equal(t, []byte("persists across sessions"), plaintext)
}

func TestDeriveKeyAcceptsUncheckedCasing(t *testing.T) {
	ctx := context.Background()
	// Fixed key with a mixed-case checksummed address.
	capability, err := signer.NewLocalSigner("ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80")
	require.NoError(t, err)

	lower := strings.ToLower(capability.Address())
	require.NotEqual(t, lower, capability.Address())

	fromLower, err := DeriveKey(ctx, lower, capability)
	require.NoError(t, err)
	fromChecksummed, err := DeriveKey(ctx, capability.Address(), capability)
	require.NoError(t, err)

	assert.Equal(t, fromChecksummed, fromLower)
}

func TestDeriveKeyWithoutCapability(t *testing.T) {
	key, err := DeriveKey(context.Background(), "0x0000000000000000000000000000000000000001", nil)
	assert.Nil(t, key)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeSigningUnavailable))
}

func TestDeriveKeyRejectsMismatchedCapability(t *testing.T) {
	capability := newTestSigner(t)
	other := newTestSigner(t)

	key, err := DeriveKey(context.Background(), other.Address(), capability)
	assert.Nil(t, key)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeSigningUnavailable))
}

type brokenSigner struct {
	addr string
}

func (s *brokenSigner) Address() string { return s.addr }

func (s *brokenSigner) Sign(ctx context.Context, message []byte) ([]byte, error) {
	return nil, errors.New("hardware wallet disconnected")
}

func TestDeriveKeyWrapsSignerErrors(t *testing.T) {
	capability := &brokenSigner{addr: "0x0000000000000000000000000000000000000001"}

	key, err := DeriveKey(context.Background(), capability.addr, capability)
	assert.Nil(t, key)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeSigningUnavailable))
}

func TestDeriveKeyCancelledContext(t *testing.T) {
	capability := newTestSigner(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	key, err := DeriveKey(ctx, capability.Address(), capability)
	assert.Nil(t, key)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeSigningUnavailable))
}

func TestZeroClearsMaterial(t *testing.T) {
	b := []byte{1, 2, 3, 4}
	Zero(b)
	assert.Equal(t, []byte{0, 0, 0, 0}, b)
}
