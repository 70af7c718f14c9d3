package solana

import (
	"encoding/binary"
	"fmt"
)

// SPL token account layout: mint(32) | owner(32) | amount(8) | ...
const (
	tokenAccountMinLen  = 72
	mintDecimalsOffset  = 44
	mintAccountMinLen   = 45
	tokenAccountAmtOffs = 64
)

// TokenAccount is the prefix of an SPL token account.
type TokenAccount struct {
	Mint   PublicKey
	Owner  PublicKey
	Amount uint64
}

// DecodeTokenAccount parses SPL token account data.
func DecodeTokenAccount(data []byte) (TokenAccount, error) {
	if len(data) < tokenAccountMinLen {
		return TokenAccount{}, fmt.Errorf("token account data too short: %d", len(data))
	}
	return TokenAccount{
		Mint:   PublicKeyFromBytes(data[0:32]),
		Owner:  PublicKeyFromBytes(data[32:64]),
		Amount: binary.LittleEndian.Uint64(data[tokenAccountAmtOffs : tokenAccountAmtOffs+8]),
	}, nil
}

// DecodeMintDecimals reads the decimals byte of an SPL mint account.
func DecodeMintDecimals(data []byte) (int, error) {
	if len(data) < mintAccountMinLen {
		return 0, fmt.Errorf("mint account data too short: %d", len(data))
	}
	return int(data[mintDecimalsOffset]), nil
}
