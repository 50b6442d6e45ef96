package rpc

import (
	"crypto/sha256"
	"errors"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil/base58"
)

const (
	pubKeyPrefix    = "PUB_K1_"
	signaturePrefix = "SIG_K1_"

	privKeyVersion = 0x80
	pubKeyVersion  = 0x00
)

var (
	ErrBadPrivateKey = errors.New("bad_private_key")
	ErrBadPublicKey  = errors.New("bad_public_key")
)

// KeyPair is a secp256k1 pair in wallet string encoding. The private half
// never leaves the vault boundary except inside one signing call.
type KeyPair struct {
	Public  string
	Private string
}

func NewKeyPair() (KeyPair, error) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		return KeyPair{}, err
	}
	return KeyPair{
		Public:  EncodePublicKey(priv.PubKey().SerializeCompressed()),
		Private: base58.CheckEncode(priv.Serialize(), privKeyVersion),
	}, nil
}

func EncodePublicKey(compressed []byte) string {
	return pubKeyPrefix + base58.CheckEncode(compressed, pubKeyVersion)
}

// PublicKeyFromPrivate derives the wallet-encoded public key from a
// wallet-encoded private key.
func PublicKeyFromPrivate(wif string) (string, error) {
	raw, version, err := base58.CheckDecode(wif)
	if err != nil || version != privKeyVersion || len(raw) != 32 {
		return "", ErrBadPrivateKey
	}
	priv, _ := btcec.PrivKeyFromBytes(raw)
	return EncodePublicKey(priv.PubKey().SerializeCompressed()), nil
}

// SignDigest signs a 32-byte digest with a wallet-encoded private key and
// returns the wallet signature string.
func SignDigest(wif string, digest []byte) (string, error) {
	raw, version, err := base58.CheckDecode(wif)
	if err != nil || version != privKeyVersion || len(raw) != 32 {
		return "", ErrBadPrivateKey
	}
	priv, _ := btcec.PrivKeyFromBytes(raw)
	sig := ecdsa.Sign(priv, digest)
	return signaturePrefix + base58.Encode(sig.Serialize()), nil
}

// VerifyDigest reports whether signature was produced over digest by the
// holder of the wallet-encoded public key.
func VerifyDigest(pub, signature string, digest []byte) bool {
	if !strings.HasPrefix(pub, pubKeyPrefix) || !strings.HasPrefix(signature, signaturePrefix) {
		return false
	}
	rawPub, version, err := base58.CheckDecode(strings.TrimPrefix(pub, pubKeyPrefix))
	if err != nil || version != pubKeyVersion {
		return false
	}
	pubKey, err := btcec.ParsePubKey(rawPub)
	if err != nil {
		return false
	}
	sig, err := ecdsa.ParseDERSignature(base58.Decode(strings.TrimPrefix(signature, signaturePrefix)))
	if err != nil {
		return false
	}
	return sig.Verify(digest, pubKey)
}

// SigningDigest binds a serialized transaction to one chain: sha256 over the
// raw chain id bytes followed by the packed transaction.
func SigningDigest(chainID string, packedTx []byte) []byte {
	h := sha256.New()
	h.Write([]byte(chainID))
	h.Write(packedTx)
	return h.Sum(nil)
}
