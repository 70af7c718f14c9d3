package domain

// TokenMetadata describes a token mint.
type TokenMetadata struct {
	Mint     string
	Name     string
	Symbol   string
	Decimals int
}

// NativeMetadata is the metadata of the native asset.
var NativeMetadata = TokenMetadata{
	Mint:     NativeMint,
	Name:     "Wrapped SOL",
	Symbol:   NativeSymbol,
	Decimals: NativeDecimals,
}
