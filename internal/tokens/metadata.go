package tokens

import (
	"encoding/binary"
	"fmt"
	"strings"

	"solana-copy-trader/internal/solana"
)

var metadataProgram = solana.MustPublicKey(solana.MetadataProgramID)

// MetadataAddress derives the Metaplex metadata account of a mint.
func MetadataAddress(mint string) (string, error) {
	mintKey, err := solana.ParsePublicKey(mint)
	if err != nil {
		return "", err
	}
	pda, _, err := solana.FindProgramAddress(
		[][]byte{[]byte("metadata"), metadataProgram[:], mintKey[:]},
		metadataProgram,
	)
	if err != nil {
		return "", fmt.Errorf("derive metadata address: %w", err)
	}
	return pda.String(), nil
}

// Metaplex metadata layout: key(1) | update_authority(32) | mint(32) |
// name(borsh string) | symbol(borsh string) | ...
const metadataHeaderLen = 1 + 32 + 32

type onchainMetadata struct {
	Mint   string
	Name   string
	Symbol string
}

func decodeMetadata(data []byte) (onchainMetadata, error) {
	if len(data) < metadataHeaderLen {
		return onchainMetadata{}, fmt.Errorf("metadata account too short: %d", len(data))
	}
	meta := onchainMetadata{
		Mint: solana.PublicKeyFromBytes(data[33:65]).String(),
	}

	offset := metadataHeaderLen
	name, offset, err := readBorshString(data, offset)
	if err != nil {
		return onchainMetadata{}, fmt.Errorf("metadata name: %w", err)
	}
	symbol, _, err := readBorshString(data, offset)
	if err != nil {
		return onchainMetadata{}, fmt.Errorf("metadata symbol: %w", err)
	}

	meta.Name = cleanString(name)
	meta.Symbol = cleanString(symbol)
	return meta, nil
}

func readBorshString(data []byte, offset int) (string, int, error) {
	if offset+4 > len(data) {
		return "", offset, fmt.Errorf("length prefix out of range at %d", offset)
	}
	n := int(binary.LittleEndian.Uint32(data[offset : offset+4]))
	offset += 4
	if n < 0 || offset+n > len(data) {
		return "", offset, fmt.Errorf("string of %d bytes out of range at %d", n, offset)
	}
	return string(data[offset : offset+n]), offset + n, nil
}

// cleanString strips the NUL padding Metaplex stores fixed-width strings with.
func cleanString(s string) string {
	return strings.TrimSpace(strings.TrimRight(s, "\x00"))
}
