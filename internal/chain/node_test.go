package chain

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/require"
)

const testFactoryAddress = "0xe7D3930eabD922202B7f9C11084AB4D91444Ba2A"

// fakeNode answers eth_call for the factory ABI from in-memory state.
type fakeNode struct {
	mu       sync.Mutex
	byURL    map[string]tokenInfo
	reverts  map[string]bool
	calls    int
	rpcError *rpcFault // returned for every call when set
}

type rpcFault struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data,omitempty"`
}

func newFakeNode() *fakeNode {
	return &fakeNode{
		byURL:   make(map[string]tokenInfo),
		reverts: make(map[string]bool),
	}
}

func (n *fakeNode) addToken(url, user, name, symbol, address string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.byURL[url] = tokenInfo{
		TokenAddress: common.HexToAddress(address),
		TokenName:    name,
		TokenSymbol:  symbol,
		TotalSupply:  new(big.Int).Mul(big.NewInt(1_000_000_000), big.NewInt(1e18)),
		XUrl:         url,
		XUser:        user,
	}
}

func (n *fakeNode) callCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls
}

func (n *fakeNode) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID     json.RawMessage   `json:"id"`
		Method string            `json:"method"`
		Params []json.RawMessage `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
	result, fault := n.handle(req.Method, req.Params)
	if fault != nil {
		resp["error"] = fault
	} else {
		resp["result"] = result
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (n *fakeNode) handle(method string, params []json.RawMessage) (any, *rpcFault) {
	n.mu.Lock()
	defer n.mu.Unlock()

	switch method {
	case "eth_chainId":
		return "0xaa37dc", nil
	case "eth_call":
	default:
		return nil, &rpcFault{Code: -32601, Message: "method not found: " + method}
	}

	n.calls++
	if n.rpcError != nil {
		return nil, n.rpcError
	}

	var call struct {
		Input hexutil.Bytes `json:"input"`
		Data  hexutil.Bytes `json:"data"`
	}
	if err := json.Unmarshal(params[0], &call); err != nil {
		return nil, &rpcFault{Code: -32602, Message: err.Error()}
	}
	data := call.Input
	if len(data) == 0 {
		data = call.Data
	}

	parsed, err := ParsedFactoryABI()
	if err != nil || len(data) < 4 {
		return nil, &rpcFault{Code: -32602, Message: "bad call data"}
	}
	m, err := parsed.MethodById(data[:4])
	if err != nil {
		return nil, &rpcFault{Code: -32602, Message: err.Error()}
	}
	args, err := m.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, &rpcFault{Code: -32602, Message: err.Error()}
	}

	var out []byte
	switch m.Name {
	case methodTokenByURL:
		url := args[0].(string)
		if n.reverts[url] {
			return nil, &rpcFault{Code: 3, Message: "execution reverted: token not found", Data: "0x"}
		}
		info, ok := n.byURL[url]
		if !ok {
			info = tokenInfo{TotalSupply: big.NewInt(0)}
		}
		out, err = m.Outputs.Pack(info)
	case methodTokensByUser:
		user := args[0].(string)
		list := []tokenInfo{}
		for _, info := range n.byURL {
			if info.XUser == user {
				list = append(list, info)
			}
		}
		out, err = m.Outputs.Pack(list)
	case methodTokenCount:
		out, err = m.Outputs.Pack(big.NewInt(int64(len(n.byURL))))
	default:
		return nil, &rpcFault{Code: -32601, Message: "unsupported method " + m.Name}
	}
	if err != nil {
		return nil, &rpcFault{Code: -32603, Message: err.Error()}
	}
	return hexutil.Encode(out), nil
}

// newTestRegistry starts node behind httptest and returns a registry bound to it.
func newTestRegistry(t *testing.T, node *fakeNode) *Registry {
	t.Helper()

	server := httptest.NewServer(node)
	t.Cleanup(server.Close)

	client, err := Dial(context.Background(), server.URL)
	require.NoError(t, err)
	t.Cleanup(client.Close)

	factory, err := NewFactory(testFactoryAddress, client)
	require.NoError(t, err)

	return NewRegistry(factory, RegistryOptions{})
}
