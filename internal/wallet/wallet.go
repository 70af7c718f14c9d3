// Package wallet holds the operator keypair and signs serialized
// transactions produced by the swap API.
package wallet

import (
	"bytes"
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"

	"solana-copy-trader/internal/solana"
)

// Signer signs transactions on behalf of the operator account.
type Signer interface {
	// PublicKey returns the base58 operator address.
	PublicKey() string
	// SignTransaction fills the operator's signature slot of a serialized
	// (legacy or versioned) transaction and returns the signed bytes.
	SignTransaction(tx []byte) ([]byte, error)
}

// Keypair is an in-memory ed25519 signer.
type Keypair struct {
	priv ed25519.PrivateKey
	pub  solana.PublicKey
}

// FromBase58 parses a 64-byte base58 secret key (the format wallets export).
func FromBase58(secret string) (*Keypair, error) {
	raw, err := base58.Decode(secret)
	if err != nil {
		return nil, fmt.Errorf("decode private key: %w", err)
	}
	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("private key: expected %d bytes, got %d", ed25519.PrivateKeySize, len(raw))
	}
	priv := ed25519.PrivateKey(raw)
	derived := priv.Public().(ed25519.PublicKey)
	if !bytes.Equal(derived, raw[32:]) {
		return nil, errors.New("private key: public half does not match seed")
	}
	return &Keypair{priv: priv, pub: solana.PublicKeyFromBytes(derived)}, nil
}

// NewKeypair wraps an existing ed25519 private key.
func NewKeypair(priv ed25519.PrivateKey) *Keypair {
	return &Keypair{priv: priv, pub: solana.PublicKeyFromBytes(priv.Public().(ed25519.PublicKey))}
}

// PublicKey implements Signer.
func (k *Keypair) PublicKey() string { return k.pub.String() }

// SignTransaction implements Signer.
func (k *Keypair) SignTransaction(tx []byte) ([]byte, error) {
	sigCount, n, err := readCompactU16(tx, 0)
	if err != nil {
		return nil, fmt.Errorf("signature count: %w", err)
	}
	msgStart := n + sigCount*ed25519.SignatureSize
	if msgStart > len(tx) {
		return nil, fmt.Errorf("transaction truncated: %d signatures, %d bytes", sigCount, len(tx))
	}
	message := tx[msgStart:]

	signers, err := requiredSigners(message)
	if err != nil {
		return nil, err
	}

	slot := -1
	for i, key := range signers {
		if key == k.pub {
			slot = i
			break
		}
	}
	if slot < 0 || slot >= sigCount {
		return nil, fmt.Errorf("operator %s is not a required signer", k.pub)
	}

	out := make([]byte, len(tx))
	copy(out, tx)
	sig := ed25519.Sign(k.priv, message)
	copy(out[n+slot*ed25519.SignatureSize:], sig)
	return out, nil
}

// requiredSigners returns the account keys that must sign the message.
// Versioned messages carry a 0x80|version prefix byte.
func requiredSigners(message []byte) ([]solana.PublicKey, error) {
	off := 0
	if len(message) > 0 && message[0]&0x80 != 0 {
		off = 1
	}
	if len(message) < off+3 {
		return nil, errors.New("message header truncated")
	}
	numRequired := int(message[off])
	off += 3

	numKeys, n, err := readCompactU16(message, off)
	if err != nil {
		return nil, fmt.Errorf("account key count: %w", err)
	}
	off += n
	if numRequired > numKeys || off+numKeys*solana.PublicKeyLength > len(message) {
		return nil, errors.New("account keys truncated")
	}

	keys := make([]solana.PublicKey, numRequired)
	for i := range keys {
		keys[i] = solana.PublicKeyFromBytes(message[off+i*solana.PublicKeyLength:])
	}
	return keys, nil
}

// readCompactU16 decodes the shortvec length encoding.
func readCompactU16(b []byte, off int) (value, size int, err error) {
	for size < 3 {
		if off+size >= len(b) {
			return 0, 0, errors.New("compact-u16 truncated")
		}
		c := b[off+size]
		value |= int(c&0x7f) << (7 * size)
		size++
		if c&0x80 == 0 {
			return value, size, nil
		}
	}
	return 0, 0, errors.New("compact-u16 overflow")
}
