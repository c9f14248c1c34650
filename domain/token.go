package domain

// TokenMetadata describes a fungible token.
// This is strictly descriptive metadata, fixed at initialization — it does
// NOT carry quantity/balance.
type TokenMetadata struct {
	Name     string
	Symbol   string
	Decimals int32
}
