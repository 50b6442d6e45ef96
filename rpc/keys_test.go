package rpc

import (
	"crypto/sha256"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewKeyPairEncoding(t *testing.T) {
	pair, err := NewKeyPair()
	assert.NoError(t, err)
	assert.True(t, strings.HasPrefix(pair.Public, "PUB_K1_"))
	assert.NotEmpty(t, pair.Private)

	pub, err := PublicKeyFromPrivate(pair.Private)
	assert.NoError(t, err)
	assert.Equal(t, pair.Public, pub)
}

func TestSignVerifyRoundTrip(t *testing.T) {
	pair, err := NewKeyPair()
	assert.NoError(t, err)

	digest := sha256.Sum256([]byte("payload"))
	sig, err := SignDigest(pair.Private, digest[:])
	assert.NoError(t, err)
	assert.True(t, strings.HasPrefix(sig, "SIG_K1_"))

	assert.True(t, VerifyDigest(pair.Public, sig, digest[:]))

	other := sha256.Sum256([]byte("tampered"))
	assert.False(t, VerifyDigest(pair.Public, sig, other[:]))

	stranger, err := NewKeyPair()
	assert.NoError(t, err)
	assert.False(t, VerifyDigest(stranger.Public, sig, digest[:]))
}

func TestBadKeyMaterial(t *testing.T) {
	_, err := PublicKeyFromPrivate("not a key")
	assert.ErrorIs(t, err, ErrBadPrivateKey)

	digest := sha256.Sum256([]byte("x"))
	_, err = SignDigest("not a key", digest[:])
	assert.ErrorIs(t, err, ErrBadPrivateKey)

	pair, err := NewKeyPair()
	assert.NoError(t, err)
	sig, err := SignDigest(pair.Private, digest[:])
	assert.NoError(t, err)
	assert.False(t, VerifyDigest("EOS_garbage", sig, digest[:]))
	assert.False(t, VerifyDigest(pair.Public, "garbage", digest[:]))
}

func TestSigningDigestBindsChain(t *testing.T) {
	tx := []byte(`{"actions":[]}`)
	a := SigningDigest("chain-a", tx)
	b := SigningDigest("chain-b", tx)
	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)

	again := SigningDigest("chain-a", tx)
	assert.Equal(t, a, again)
}
