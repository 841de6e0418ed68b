package chain

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"

	"mention-token-bot/internal/domain"
)

// DefaultCallTimeout bounds one read-only contract call.
const DefaultCallTimeout = 15 * time.Second

// revertErrorCode is the JSON-RPC code nodes use for execution reverts.
const revertErrorCode = 3

// ErrRegistryUnavailable wraps registry failures that are not "no record".
// Callers must not treat it as absence.
var ErrRegistryUnavailable = errors.New("token registry unavailable")

// TokenLookup finds the token deployed for a source URL.
type TokenLookup interface {
	Lookup(ctx context.Context, sourceURL string) (*domain.TokenRecord, error)
}

// Registry answers read-only questions about deployed tokens.
type Registry struct {
	factory     *Factory
	callTimeout time.Duration
	logger      *log.Logger
}

// RegistryOptions configures Registry.
type RegistryOptions struct {
	CallTimeout time.Duration
	Logger      *log.Logger
}

// NewRegistry creates a registry over factory.
func NewRegistry(factory *Factory, opts RegistryOptions) *Registry {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	timeout := opts.CallTimeout
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &Registry{factory: factory, callTimeout: timeout, logger: logger}
}

// Compile-time interface check.
var _ TokenLookup = (*Registry)(nil)

// Lookup returns the token for sourceURL, or nil when none exists.
// A zero address or an execution revert both mean "no record".
func (r *Registry) Lookup(ctx context.Context, sourceURL string) (*domain.TokenRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()

	info, err := r.factory.TokenByURL(&bind.CallOpts{Context: ctx}, sourceURL)
	if err != nil {
		if IsRevert(err) {
			r.logger.Printf("lookup %s reverted, treating as absent", sourceURL)
			return nil, nil
		}
		return nil, fmt.Errorf("%w: lookup %s: %v", ErrRegistryUnavailable, sourceURL, err)
	}

	if info.TokenAddress == (common.Address{}) {
		return nil, nil
	}
	return info.record(), nil
}

// Exists reports whether a token is already deployed for sourceURL.
func (r *Registry) Exists(ctx context.Context, sourceURL string) (bool, error) {
	rec, err := r.Lookup(ctx, sourceURL)
	if err != nil {
		return false, err
	}
	return rec != nil, nil
}

// TokensByUser lists tokens deployed for posts by user.
func (r *Registry) TokensByUser(ctx context.Context, user string) ([]*domain.TokenRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()

	infos, err := r.factory.TokensByUser(&bind.CallOpts{Context: ctx}, user)
	if err != nil {
		if IsRevert(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: tokens by user %s: %v", ErrRegistryUnavailable, user, err)
	}

	records := make([]*domain.TokenRecord, 0, len(infos))
	for _, info := range infos {
		if info.TokenAddress == (common.Address{}) {
			continue
		}
		records = append(records, info.record())
	}
	return records, nil
}

// TokenCount returns the number of tokens the factory has deployed.
func (r *Registry) TokenCount(ctx context.Context) (*big.Int, error) {
	ctx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()

	n, err := r.factory.TokenCount(&bind.CallOpts{Context: ctx})
	if err != nil {
		return nil, fmt.Errorf("%w: token count: %v", ErrRegistryUnavailable, err)
	}
	return n, nil
}

// IsRevert reports whether err is an execution revert rather than a
// transport or node failure.
func IsRevert(err error) bool {
	if err == nil {
		return false
	}
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == revertErrorCode {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "execution reverted")
}
