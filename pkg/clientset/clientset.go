// Package clientset builds and holds the per-network clients: a read-only
// chain client for the RPC endpoint and a transaction-service client scoped
// to the network. The set is built once at startup; partial availability is
// not supported, any unreachable network aborts initialization.
package clientset

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/ethereum/go-ethereum/ethclient"
	chainselectors "github.com/smartcontractkit/chain-selectors"
	"github.com/smartcontractkit/chainlink-common/pkg/logger"

	"github.com/vaultsentry/vaultsentry/pkg/txservice"
	"github.com/vaultsentry/vaultsentry/types"
)

// NetworkClients is the client pair for one enabled network.
type NetworkClients struct {
	Network   types.Network
	Chain     *ethclient.Client
	TxService *txservice.Client
}

// Set holds the clients for every enabled network, keyed by chain id.
type Set struct {
	lggr    logger.Logger
	clients map[uint64]*NetworkClients
}

// Initialize dials every enabled network and builds its client pair. Any
// failure is returned immediately and the partially built set is discarded.
func Initialize(ctx context.Context, lggr logger.Logger, networks []types.Network, apiKey string, opts ...txservice.Option) (*Set, error) {
	if len(networks) == 0 {
		return nil, fmt.Errorf("no networks enabled")
	}

	set := &Set{
		lggr:    lggr,
		clients: make(map[uint64]*NetworkClients, len(networks)),
	}
	for _, network := range networks {
		clients, err := buildNetworkClients(ctx, lggr, network, apiKey, opts...)
		if err != nil {
			set.Close()
			return nil, fmt.Errorf("initializing network %d (%s): %w", network.ChainID, network.Name, err)
		}
		set.clients[network.ChainID] = clients
	}

	lggr.Infow("network client set initialized", "networks", len(networks))
	return set, nil
}

func buildNetworkClients(ctx context.Context, lggr logger.Logger, network types.Network, apiKey string, opts ...txservice.Option) (*NetworkClients, error) {
	chainClient, err := ethclient.DialContext(ctx, network.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dialing RPC endpoint: %w", err)
	}

	// Connectivity check, and a guard against a misconfigured endpoint
	// serving a different chain.
	chainID, err := chainClient.ChainID(ctx)
	if err != nil {
		chainClient.Close()
		return nil, fmt.Errorf("querying chain id: %w", err)
	}
	if chainID.Uint64() != network.ChainID {
		chainClient.Close()
		return nil, fmt.Errorf("endpoint serves chain %s, expected %d", chainID, network.ChainID)
	}

	txClient, err := txservice.NewClient(lggr, network.TransactionServerURL, apiKey, network.ChainID, opts...)
	if err != nil {
		chainClient.Close()
		return nil, fmt.Errorf("building transaction service client: %w", err)
	}

	if network.Name == "" {
		network.Name = networkName(network.ChainID)
	}

	return &NetworkClients{
		Network:   network,
		Chain:     chainClient,
		TxService: txClient,
	}, nil
}

// ForChain returns the clients for the given chain id. A missing network is a
// programming error once Initialize has succeeded for the enabled set.
func (s *Set) ForChain(chainID uint64) (*NetworkClients, error) {
	clients, ok := s.clients[chainID]
	if !ok {
		return nil, fmt.Errorf("no clients initialized for chain %d", chainID)
	}
	return clients, nil
}

// All returns the client pairs ordered by chain id so scan cycles visit
// networks in a stable order.
func (s *Set) All() []*NetworkClients {
	all := make([]*NetworkClients, 0, len(s.clients))
	for _, clients := range s.clients {
		all = append(all, clients)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].Network.ChainID < all[j].Network.ChainID
	})
	return all
}

// Networks returns the enabled networks ordered by chain id.
func (s *Set) Networks() []types.Network {
	all := s.All()
	networks := make([]types.Network, len(all))
	for i, clients := range all {
		networks[i] = clients.Network
	}
	return networks
}

// Close releases the underlying RPC connections.
func (s *Set) Close() {
	for _, clients := range s.clients {
		clients.Chain.Close()
	}
}

// networkName resolves a display name for the chain id from the
// chain-selectors registry, falling back to the numeric id.
func networkName(chainID uint64) string {
	details, err := chainselectors.GetChainDetailsByChainIDAndFamily(
		strconv.FormatUint(chainID, 10), chainselectors.FamilyEVM)
	if err != nil || details.ChainName == "" {
		return strconv.FormatUint(chainID, 10)
	}
	return details.ChainName
}
