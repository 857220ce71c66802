package clientset_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/smartcontractkit/chainlink-common/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultsentry/vaultsentry/pkg/clientset"
	"github.com/vaultsentry/vaultsentry/types"
)

// fakeRPC answers just enough JSON-RPC for ethclient.ChainID.
func fakeRPC(t *testing.T, chainIDHex string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     json.RawMessage `json:"id"`
			Method string          `json:"method"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "eth_chainId", req.Method)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  chainIDHex,
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestInitialize(t *testing.T) {
	rpc := fakeRPC(t, "0x1")

	networks := []types.Network{{
		ChainID:              1,
		RPCURL:               rpc.URL,
		TransactionServerURL: "http://txservice.local",
	}}

	set, err := clientset.Initialize(context.Background(), logger.Test(t), networks, "key")
	require.NoError(t, err)
	defer set.Close()

	clients, err := set.ForChain(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), clients.TxService.ChainID())
	// Display name resolved from the chain id when config leaves it empty.
	assert.NotEmpty(t, clients.Network.Name)

	all := set.All()
	require.Len(t, all, 1)
	assert.Equal(t, networks[0].ChainID, all[0].Network.ChainID)
}

func TestInitializeRejectsEmptyNetworkSet(t *testing.T) {
	_, err := clientset.Initialize(context.Background(), logger.Test(t), nil, "")
	require.Error(t, err)
}

func TestInitializeFailsOnChainIDMismatch(t *testing.T) {
	rpc := fakeRPC(t, "0x89") // endpoint serves chain 137

	networks := []types.Network{{
		ChainID:              1,
		RPCURL:               rpc.URL,
		TransactionServerURL: "http://txservice.local",
	}}

	_, err := clientset.Initialize(context.Background(), logger.Test(t), networks, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 1")
}

func TestInitializeFailsOnUnreachableEndpoint(t *testing.T) {
	networks := []types.Network{{
		ChainID:              1,
		RPCURL:               "http://127.0.0.1:1", // nothing listens here
		TransactionServerURL: "http://txservice.local",
	}}

	_, err := clientset.Initialize(context.Background(), logger.Test(t), networks, "")
	require.Error(t, err)
}

func TestForChainUnknownNetwork(t *testing.T) {
	rpc := fakeRPC(t, "0x1")

	set, err := clientset.Initialize(context.Background(), logger.Test(t), []types.Network{{
		ChainID:              1,
		RPCURL:               rpc.URL,
		TransactionServerURL: "http://txservice.local",
	}}, "")
	require.NoError(t, err)
	defer set.Close()

	_, err = set.ForChain(42)
	require.Error(t, err)
}
