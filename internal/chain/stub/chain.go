package stub

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"mention-token-bot/internal/chain"
	"mention-token-bot/internal/domain"
)

// Chain is an in-memory factory: deployments become visible to Lookup.
type Chain struct {
	mu sync.Mutex

	Records map[string]*domain.TokenRecord // by source URL

	// Next values handed out by Deploy; generated when empty.
	NextTxHash  string
	NextAddress string

	LookupErr error // returned by every Lookup when set
	DeployErr error // returned by every Deploy when set

	Deploys []domain.DeployRequest
	Lookups []string
	block   uint64
}

// NewChain creates an empty fake chain.
func NewChain() *Chain {
	return &Chain{Records: make(map[string]*domain.TokenRecord), block: 100}
}

// Compile-time interface check.
var _ chain.TokenLookup = (*Chain)(nil)

// Lookup returns the record for sourceURL or nil.
func (c *Chain) Lookup(_ context.Context, sourceURL string) (*domain.TokenRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Lookups = append(c.Lookups, sourceURL)
	if c.LookupErr != nil {
		return nil, c.LookupErr
	}
	rec, ok := c.Records[sourceURL]
	if !ok {
		return nil, nil
	}
	recCopy := *rec
	return &recCopy, nil
}

// Exists reports whether a record exists for sourceURL.
func (c *Chain) Exists(ctx context.Context, sourceURL string) (bool, error) {
	rec, err := c.Lookup(ctx, sourceURL)
	return rec != nil, err
}

// Deploy registers a token for req.SourceURL.
func (c *Chain) Deploy(_ context.Context, req domain.DeployRequest) (*domain.Deployment, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Deploys = append(c.Deploys, req)
	if c.DeployErr != nil {
		return nil, c.DeployErr
	}

	c.block++
	txHash, addr := c.NextTxHash, c.NextAddress
	if txHash == "" {
		txHash = fmt.Sprintf("0x%064x", c.block)
	}
	if addr == "" {
		addr = fmt.Sprintf("0x%040x", c.block)
	}
	c.NextTxHash, c.NextAddress = "", ""

	c.Records[req.SourceURL] = &domain.TokenRecord{
		TokenAddress: addr,
		TokenName:    req.Name,
		TokenSymbol:  req.Symbol,
		TotalSupply:  big.NewInt(1_000_000_000),
		SourceURL:    req.SourceURL,
		SourceUser:   req.SourceUser,
	}
	return &domain.Deployment{TransactionHash: txHash, TokenAddress: addr, BlockNumber: c.block}, nil
}

// DeployCount returns the number of Deploy calls.
func (c *Chain) DeployCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Deploys)
}
