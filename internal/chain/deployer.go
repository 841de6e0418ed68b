package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"mention-token-bot/internal/domain"
)

// Deployer timeouts.
const (
	// DefaultSendTimeout bounds nonce, gas estimation and broadcast.
	DefaultSendTimeout = 15 * time.Second
	// DefaultConfirmTimeout bounds the wait for one confirmation.
	DefaultConfirmTimeout = 2 * time.Minute
)

// DeploymentError is terminal for the current mention; deploys are never retried.
type DeploymentError struct {
	TxHash string // empty if the transaction was never sent
	Reason string
	Err    error
}

func (e *DeploymentError) Error() string {
	msg := "deployment failed: " + e.Reason
	if e.TxHash != "" {
		msg += " (tx " + e.TxHash + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DeploymentError) Unwrap() error {
	return e.Err
}

// Transactor sends the factory deployment transaction.
type Transactor interface {
	Deploy(opts *bind.TransactOpts, req domain.DeployRequest) (*types.Transaction, error)
}

// ReceiptWaiter blocks until tx is mined.
type ReceiptWaiter interface {
	WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)
}

// MinedWaiter waits using a chain backend.
type MinedWaiter struct {
	Backend bind.DeployBackend
}

// WaitMined polls for the receipt of tx.
func (w MinedWaiter) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	return bind.WaitMined(ctx, w.Backend, tx)
}

// Deployer deploys tokens through the factory and resolves their addresses.
type Deployer struct {
	transactor     Transactor
	waiter         ReceiptWaiter
	lookup         TokenLookup
	signer         *bind.TransactOpts
	sendTimeout    time.Duration
	confirmTimeout time.Duration
	logger         *log.Logger
}

// DeployerOptions configures Deployer.
type DeployerOptions struct {
	Transactor     Transactor
	Waiter         ReceiptWaiter
	Lookup         TokenLookup
	Signer         *bind.TransactOpts
	SendTimeout    time.Duration
	ConfirmTimeout time.Duration
	Logger         *log.Logger
}

// NewDeployer creates a deployer.
func NewDeployer(opts DeployerOptions) *Deployer {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	timeout := opts.ConfirmTimeout
	if timeout <= 0 {
		timeout = DefaultConfirmTimeout
	}
	send := opts.SendTimeout
	if send <= 0 {
		send = DefaultSendTimeout
	}
	return &Deployer{
		transactor:     opts.Transactor,
		waiter:         opts.Waiter,
		lookup:         opts.Lookup,
		signer:         opts.Signer,
		sendTimeout:    send,
		confirmTimeout: timeout,
		logger:         logger,
	}
}

// Deploy sends deployERC20Token with zero value, waits for one confirmation,
// then re-reads the token address from the registry.
// Only a cancellation before the send returns a bare context error; once a
// transaction hash exists every failure is a *DeploymentError.
func (d *Deployer) Deploy(ctx context.Context, req domain.DeployRequest) (*domain.Deployment, error) {
	sendCtx, cancelSend := context.WithTimeout(ctx, d.sendTimeout)
	defer cancelSend()

	opts := *d.signer
	opts.Context = sendCtx
	opts.Value = big.NewInt(0)

	tx, err := d.transactor.Deploy(&opts, req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if sendCtx.Err() != nil {
			return nil, &DeploymentError{Reason: "send timeout", Err: sendCtx.Err()}
		}
		return nil, &DeploymentError{Reason: "send transaction", Err: err}
	}
	txHash := tx.Hash().Hex()
	d.logger.Printf("deploy %s (%s) for %s sent: %s", req.Name, req.Symbol, req.SourceURL, txHash)

	waitCtx, cancel := context.WithTimeout(ctx, d.confirmTimeout)
	defer cancel()

	receipt, err := d.waiter.WaitMined(waitCtx, tx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, &DeploymentError{TxHash: txHash, Reason: "confirmation timeout", Err: err}
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, &DeploymentError{TxHash: txHash, Reason: "canceled while waiting", Err: ctxErr}
		}
		return nil, &DeploymentError{TxHash: txHash, Reason: "wait for receipt", Err: err}
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, &DeploymentError{TxHash: txHash, Reason: "transaction reverted"}
	}

	rec, err := d.lookup.Lookup(ctx, req.SourceURL)
	if err != nil {
		return nil, &DeploymentError{TxHash: txHash, Reason: "resolve token address", Err: err}
	}
	if rec == nil {
		return nil, &DeploymentError{TxHash: txHash, Reason: "token not registered after confirmation"}
	}

	var block uint64
	if receipt.BlockNumber != nil {
		block = receipt.BlockNumber.Uint64()
	}
	return &domain.Deployment{
		TransactionHash: txHash,
		TokenAddress:    rec.TokenAddress,
		BlockNumber:     block,
	}, nil
}

// ChainIDReader resolves the chain id from a node.
type ChainIDReader interface {
	ChainID(ctx context.Context) (*big.Int, error)
}

// NewSigner builds transact options from a hex private key.
// A zero chainID is resolved from the node.
func NewSigner(ctx context.Context, privateKeyHex string, chainID int64, node ChainIDReader) (*bind.TransactOpts, error) {
	key, err := ParsePrivateKey(privateKeyHex)
	if err != nil {
		return nil, err
	}

	id := big.NewInt(chainID)
	if chainID == 0 {
		id, err = node.ChainID(ctx)
		if err != nil {
			return nil, fmt.Errorf("resolve chain id: %w", err)
		}
	}

	opts, err := bind.NewKeyedTransactorWithChainID(key, id)
	if err != nil {
		return nil, fmt.Errorf("create transactor: %w", err)
	}
	return opts, nil
}

// ParsePrivateKey parses a hex key with or without 0x prefix.
func ParsePrivateKey(privateKeyHex string) (*ecdsa.PrivateKey, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse deployer key: %w", err)
	}
	return key, nil
}
