package chain

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// FactoryABI is the interface of the token factory contract.
const FactoryABI = `[
  {"type":"function","name":"INITIAL_AMOUNT","stateMutability":"view","inputs":[],
   "outputs":[{"name":"","type":"uint256","internalType":"uint256"}]},
  {"type":"function","name":"contractAddress","stateMutability":"view","inputs":[],
   "outputs":[{"name":"","type":"address","internalType":"address"}]},
  {"type":"function","name":"deployERC20Token","stateMutability":"payable",
   "inputs":[
     {"name":"name","type":"string","internalType":"string"},
     {"name":"ticker","type":"string","internalType":"string"},
     {"name":"xUrl","type":"string","internalType":"string"},
     {"name":"xUser","type":"string","internalType":"string"}],
   "outputs":[]},
  {"type":"function","name":"getTokenByXUrl","stateMutability":"view",
   "inputs":[{"name":"xUrl","type":"string","internalType":"string"}],
   "outputs":[{"name":"","type":"tuple","internalType":"struct TokenFactory.TokenInfo","components":[
     {"name":"tokenAddress","type":"address","internalType":"address"},
     {"name":"tokenName","type":"string","internalType":"string"},
     {"name":"tokenSymbol","type":"string","internalType":"string"},
     {"name":"totalSupply","type":"uint256","internalType":"uint256"},
     {"name":"xUrl","type":"string","internalType":"string"},
     {"name":"xUser","type":"string","internalType":"string"}]}]},
  {"type":"function","name":"getTokensByXUser","stateMutability":"view",
   "inputs":[{"name":"xUser","type":"string","internalType":"string"}],
   "outputs":[{"name":"","type":"tuple[]","internalType":"struct TokenFactory.TokenInfo[]","components":[
     {"name":"tokenAddress","type":"address","internalType":"address"},
     {"name":"tokenName","type":"string","internalType":"string"},
     {"name":"tokenSymbol","type":"string","internalType":"string"},
     {"name":"totalSupply","type":"uint256","internalType":"uint256"},
     {"name":"xUrl","type":"string","internalType":"string"},
     {"name":"xUser","type":"string","internalType":"string"}]}]},
  {"type":"function","name":"setPoolAddress","stateMutability":"nonpayable",
   "inputs":[{"name":"newAddr","type":"address","internalType":"address"}],"outputs":[]},
  {"type":"function","name":"tokenCount","stateMutability":"view","inputs":[],
   "outputs":[{"name":"","type":"uint256","internalType":"uint256"}]},
  {"type":"function","name":"tokens","stateMutability":"view",
   "inputs":[{"name":"","type":"uint256","internalType":"uint256"}],
   "outputs":[
     {"name":"tokenAddress","type":"address","internalType":"address"},
     {"name":"tokenName","type":"string","internalType":"string"},
     {"name":"tokenSymbol","type":"string","internalType":"string"},
     {"name":"totalSupply","type":"uint256","internalType":"uint256"},
     {"name":"xUrl","type":"string","internalType":"string"},
     {"name":"xUser","type":"string","internalType":"string"}]}
]`

// Factory method names.
const (
	methodDeploy       = "deployERC20Token"
	methodTokenByURL   = "getTokenByXUrl"
	methodTokensByUser = "getTokensByXUser"
	methodTokenCount   = "tokenCount"
)

var parsedFactoryABI = sync.OnceValues(func() (abi.ABI, error) {
	parsed, err := abi.JSON(strings.NewReader(FactoryABI))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("parse factory abi: %w", err)
	}
	return parsed, nil
})

// ParsedFactoryABI returns the parsed factory ABI.
func ParsedFactoryABI() (abi.ABI, error) {
	return parsedFactoryABI()
}
