package domain

import "math/big"

// ZeroAddress is the factory's "absent" sentinel for token addresses.
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// Suggestion bounds enforced by the suggestion provider.
const (
	MaxSymbolLength = 7
	MaxNameLength   = 15
)

// TokenSuggestion is a name/symbol pair derived from a post's text.
// Ephemeral, never persisted.
type TokenSuggestion struct {
	Symbol string `json:"symbol"` // uppercase, <= 7 chars
	Name   string `json:"name"`   // <= 15 chars
}

// TokenRecord is the factory's on-chain record for a source post.
type TokenRecord struct {
	TokenAddress string // hex address, checksummed
	TokenName    string
	TokenSymbol  string
	TotalSupply  *big.Int
	SourceURL    string
	SourceUser   string
}

// DeployRequest carries the arguments of a factory deployment.
type DeployRequest struct {
	Name       string
	Symbol     string
	SourceURL  string
	SourceUser string
}

// Deployment is the outcome of a confirmed factory deployment.
type Deployment struct {
	TransactionHash string
	TokenAddress    string
	BlockNumber     uint64
}

// Launch is the bot's own ledger entry for a token it deployed.
// Corresponds to the token_launches table in PostgreSQL.
type Launch struct {
	LaunchID        string `json:"launch_id"`     // deterministic hash of (source_url, tx_hash)
	MentionID       string `json:"mention_id"`    // mention that triggered the deploy
	PostID          string `json:"post_id"`       // source post id
	SourceURL       string `json:"source_url"`
	SourceUser      string `json:"source_user"`
	TokenName       string `json:"token_name"`
	TokenSymbol     string `json:"token_symbol"`
	TokenAddress    string `json:"token_address"`
	TransactionHash string `json:"tx_hash"`
	BlockNumber     uint64 `json:"block_number"`
	CreatedAt       int64  `json:"created_at"` // unix ms
}
