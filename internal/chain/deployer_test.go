package chain

import (
	"context"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mention-token-bot/internal/domain"
)

const testKey = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

type fakeTransactor struct {
	err   error
	calls []domain.DeployRequest
	value *big.Int
}

func (f *fakeTransactor) Deploy(opts *bind.TransactOpts, req domain.DeployRequest) (*types.Transaction, error) {
	f.calls = append(f.calls, req)
	f.value = opts.Value
	if f.err != nil {
		return nil, f.err
	}
	to := common.HexToAddress(testFactoryAddress)
	return types.NewTx(&types.LegacyTx{Nonce: uint64(len(f.calls)), To: &to, Gas: 3_000_000, GasPrice: big.NewInt(1)}), nil
}

type fakeWaiter struct {
	status uint64
	block  int64
	hang   bool // wait for ctx instead of returning
	err    error
}

func (f *fakeWaiter) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	if f.hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	return &types.Receipt{Status: f.status, TxHash: tx.Hash(), BlockNumber: big.NewInt(f.block)}, nil
}

type fakeLookup struct {
	rec *domain.TokenRecord
	err error
}

func (f *fakeLookup) Lookup(context.Context, string) (*domain.TokenRecord, error) {
	return f.rec, f.err
}

func newTestDeployer(t *testing.T, tr *fakeTransactor, w *fakeWaiter, l *fakeLookup, timeout time.Duration) *Deployer {
	t.Helper()

	key, err := ParsePrivateKey(testKey)
	require.NoError(t, err)
	signer, err := bind.NewKeyedTransactorWithChainID(key, big.NewInt(11155420))
	require.NoError(t, err)

	return NewDeployer(DeployerOptions{
		Transactor:     tr,
		Waiter:         w,
		Lookup:         l,
		Signer:         signer,
		ConfirmTimeout: timeout,
	})
}

var testDeployRequest = domain.DeployRequest{
	Name:       "PayRespects",
	Symbol:     "PRESSF",
	SourceURL:  "https://x.com/alice/status/55",
	SourceUser: "alice",
}

func TestDeployer_Success(t *testing.T) {
	tr := &fakeTransactor{}
	lookup := &fakeLookup{rec: &domain.TokenRecord{TokenAddress: "0x0000000000000000000000000000000000000dEF"}}
	d := newTestDeployer(t, tr, &fakeWaiter{status: types.ReceiptStatusSuccessful, block: 42}, lookup, time.Second)

	dep, err := d.Deploy(context.Background(), testDeployRequest)
	require.NoError(t, err)

	assert.Equal(t, "0x0000000000000000000000000000000000000dEF", dep.TokenAddress)
	assert.Equal(t, uint64(42), dep.BlockNumber)
	assert.NotEmpty(t, dep.TransactionHash)
	require.Len(t, tr.calls, 1)
	assert.Equal(t, testDeployRequest, tr.calls[0])
	assert.Equal(t, int64(0), tr.value.Int64())
}

func TestDeployer_SendFailure(t *testing.T) {
	tr := &fakeTransactor{err: errors.New("insufficient funds for gas")}
	d := newTestDeployer(t, tr, &fakeWaiter{}, &fakeLookup{}, time.Second)

	_, err := d.Deploy(context.Background(), testDeployRequest)

	var de *DeploymentError
	require.True(t, errors.As(err, &de))
	assert.Empty(t, de.TxHash)
	assert.Equal(t, "send transaction", de.Reason)
}

func TestDeployer_Reverted(t *testing.T) {
	tr := &fakeTransactor{}
	d := newTestDeployer(t, tr, &fakeWaiter{status: types.ReceiptStatusFailed, block: 7}, &fakeLookup{}, time.Second)

	_, err := d.Deploy(context.Background(), testDeployRequest)

	var de *DeploymentError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "transaction reverted", de.Reason)
	assert.NotEmpty(t, de.TxHash)
	assert.Len(t, tr.calls, 1, "deploy must not be retried")
}

func TestDeployer_ConfirmationTimeout(t *testing.T) {
	tr := &fakeTransactor{}
	d := newTestDeployer(t, tr, &fakeWaiter{hang: true}, &fakeLookup{}, 20*time.Millisecond)

	_, err := d.Deploy(context.Background(), testDeployRequest)

	var de *DeploymentError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "confirmation timeout", de.Reason)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDeployer_NotRegisteredAfterConfirmation(t *testing.T) {
	tr := &fakeTransactor{}
	d := newTestDeployer(t, tr, &fakeWaiter{status: types.ReceiptStatusSuccessful}, &fakeLookup{}, time.Second)

	_, err := d.Deploy(context.Background(), testDeployRequest)

	var de *DeploymentError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "token not registered after confirmation", de.Reason)
}

func TestDeployer_LookupUnavailable(t *testing.T) {
	tr := &fakeTransactor{}
	lookup := &fakeLookup{err: ErrRegistryUnavailable}
	d := newTestDeployer(t, tr, &fakeWaiter{status: types.ReceiptStatusSuccessful}, lookup, time.Second)

	_, err := d.Deploy(context.Background(), testDeployRequest)

	var de *DeploymentError
	require.True(t, errors.As(err, &de))
	assert.ErrorIs(t, err, ErrRegistryUnavailable)
}

type fixedChainID struct{ id *big.Int }

func (f fixedChainID) ChainID(context.Context) (*big.Int, error) { return f.id, nil }

func TestNewSigner(t *testing.T) {
	opts, err := NewSigner(context.Background(), "0x"+testKey, 0, fixedChainID{id: big.NewInt(11155420)})
	require.NoError(t, err)
	assert.Equal(t, "0x2c7536E3605D9C16a7a3D7b1898e529396a65c23", opts.From.Hex())

	_, err = NewSigner(context.Background(), "zz", 1, nil)
	assert.Error(t, err)
}

func TestDeployer_SendTimeoutOnStalledNode(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	t.Cleanup(server.Close)
	t.Cleanup(func() { close(release) })

	client, err := Dial(context.Background(), server.URL)
	require.NoError(t, err)
	t.Cleanup(client.Close)
	factory, err := NewFactory(testFactoryAddress, client)
	require.NoError(t, err)

	key, err := ParsePrivateKey(testKey)
	require.NoError(t, err)
	signer, err := bind.NewKeyedTransactorWithChainID(key, big.NewInt(11155420))
	require.NoError(t, err)

	d := NewDeployer(DeployerOptions{
		Transactor:     factory,
		Waiter:         MinedWaiter{Backend: client},
		Lookup:         &fakeLookup{},
		Signer:         signer,
		SendTimeout:    200 * time.Millisecond,
		ConfirmTimeout: 200 * time.Millisecond,
	})

	done := make(chan error, 1)
	go func() {
		_, err := d.Deploy(context.Background(), testDeployRequest)
		done <- err
	}()

	select {
	case err := <-done:
		var de *DeploymentError
		require.True(t, errors.As(err, &de), "got %v", err)
		assert.Equal(t, "send timeout", de.Reason)
		assert.Empty(t, de.TxHash)
	case <-time.After(3 * time.Second):
		t.Fatal("Deploy blocked on a node that never answers")
	}
}

func TestDeployer_CanceledBeforeSend(t *testing.T) {
	tr := &fakeTransactor{err: context.Canceled}
	d := newTestDeployer(t, tr, &fakeWaiter{}, &fakeLookup{}, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.Deploy(ctx, testDeployRequest)

	assert.ErrorIs(t, err, context.Canceled)
	var de *DeploymentError
	assert.False(t, errors.As(err, &de))
}

func TestDeployer_CanceledWhileWaiting(t *testing.T) {
	tr := &fakeTransactor{}
	d := newTestDeployer(t, tr, &fakeWaiter{hang: true}, &fakeLookup{}, time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := d.Deploy(ctx, testDeployRequest)

	var de *DeploymentError
	require.True(t, errors.As(err, &de))
	assert.NotEmpty(t, de.TxHash)
}
