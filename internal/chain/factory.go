// Package chain reads from and deploys through the token factory contract.
package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"mention-token-bot/internal/domain"
)

// tokenInfo mirrors the factory's TokenInfo tuple.
type tokenInfo struct {
	TokenAddress common.Address
	TokenName    string
	TokenSymbol  string
	TotalSupply  *big.Int
	XUrl         string
	XUser        string
}

func (t tokenInfo) record() *domain.TokenRecord {
	return &domain.TokenRecord{
		TokenAddress: t.TokenAddress.Hex(),
		TokenName:    t.TokenName,
		TokenSymbol:  t.TokenSymbol,
		TotalSupply:  t.TotalSupply,
		SourceURL:    t.XUrl,
		SourceUser:   t.XUser,
	}
}

// Factory is a typed binding over the factory contract.
type Factory struct {
	address  common.Address
	contract *bind.BoundContract
}

// NewFactory binds the factory at address to backend.
func NewFactory(address string, backend bind.ContractBackend) (*Factory, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("invalid factory address %q", address)
	}
	parsed, err := ParsedFactoryABI()
	if err != nil {
		return nil, err
	}

	addr := common.HexToAddress(address)
	return &Factory{
		address:  addr,
		contract: bind.NewBoundContract(addr, parsed, backend, backend, backend),
	}, nil
}

// Address returns the bound contract address.
func (f *Factory) Address() common.Address {
	return f.address
}

// TokenByURL calls getTokenByXUrl.
func (f *Factory) TokenByURL(opts *bind.CallOpts, url string) (tokenInfo, error) {
	var out []interface{}
	if err := f.contract.Call(opts, &out, methodTokenByURL, url); err != nil {
		return tokenInfo{}, err
	}
	return *abi.ConvertType(out[0], new(tokenInfo)).(*tokenInfo), nil
}

// TokensByUser calls getTokensByXUser.
func (f *Factory) TokensByUser(opts *bind.CallOpts, user string) ([]tokenInfo, error) {
	var out []interface{}
	if err := f.contract.Call(opts, &out, methodTokensByUser, user); err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new([]tokenInfo)).(*[]tokenInfo), nil
}

// TokenCount calls tokenCount.
func (f *Factory) TokenCount(opts *bind.CallOpts) (*big.Int, error) {
	var out []interface{}
	if err := f.contract.Call(opts, &out, methodTokenCount); err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

// Deploy sends deployERC20Token.
func (f *Factory) Deploy(opts *bind.TransactOpts, req domain.DeployRequest) (*types.Transaction, error) {
	return f.contract.Transact(opts, methodDeploy, req.Name, req.Symbol, req.SourceURL, req.SourceUser)
}

// Dial connects to the chain RPC endpoint.
func Dial(ctx context.Context, rpcURL string) (*ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial chain rpc: %w", err)
	}
	return client, nil
}
