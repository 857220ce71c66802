package vaultsentry

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/vaultsentry/vaultsentry/types"
)

// TransactionService is the per-network capability set consumed by the
// scanner. The service owns authentication and hash computation; pending work
// and approval state are always re-fetched, never cached here.
type TransactionService interface {
	// ListPendingTransactions returns the vault's transactions awaiting
	// approvals, in service order.
	ListPendingTransactions(ctx context.Context, vault common.Address) ([]types.PendingTransaction, error)
	// ListPendingMessages returns the vault's off-chain messages awaiting
	// approvals.
	ListPendingMessages(ctx context.Context, vault common.Address) ([]types.PendingMessage, error)
	// SubmitTransactionApproval records the operator's signature for a
	// pending transaction hash.
	SubmitTransactionApproval(ctx context.Context, hash common.Hash, signature hexutil.Bytes) error
	// SubmitMessageApproval records the operator's signature for a pending
	// message hash.
	SubmitMessageApproval(ctx context.Context, hash common.Hash, signature hexutil.Bytes) error
	// FetchVaultInfo returns the vault metadata held by the service.
	FetchVaultInfo(ctx context.Context, vault common.Address) (*types.VaultInfo, error)
}

// HashSigner produces the operator's approval signature for a hash computed
// by the transaction service. Deterministic per key and hash.
type HashSigner interface {
	SignHash(ctx context.Context, hash common.Hash) (hexutil.Bytes, error)
	// Address is the operator address whose presence in an approval list
	// marks an item as already handled.
	Address() common.Address
}

// Scanner runs one scan-decide-sign-submit cycle across every enabled
// network and reports how many transactions and messages were approved.
type Scanner interface {
	ScanAndProcess(ctx context.Context) (txProcessed, msgProcessed int)
}

// Monitoring provides all core monitoring functionality for the service.
// Also can be implemented as a no-op.
type Monitoring interface {
	// Metrics returns the metrics labeler for the service.
	Metrics() MetricLabeler
}

// MetricLabeler provides all metric recording functionality for the service.
type MetricLabeler interface {
	// With returns a new metrics labeler with the given key-value pairs.
	With(keyValues ...string) MetricLabeler
	// RecordScanCycleDuration records the duration of one full scan cycle.
	RecordScanCycleDuration(ctx context.Context, duration time.Duration)
	// IncrementTransactionsApproved counts submitted transaction approvals.
	IncrementTransactionsApproved(ctx context.Context)
	// IncrementMessagesApproved counts submitted message approvals.
	IncrementMessagesApproved(ctx context.Context)
	// IncrementItemsDenied counts items blocked by the policy engine.
	IncrementItemsDenied(ctx context.Context)
	// IncrementItemsAlreadyApproved counts items skipped because the operator
	// already signed them.
	IncrementItemsAlreadyApproved(ctx context.Context)
	// IncrementSubmissionErrors counts approvals rejected by the service.
	IncrementSubmissionErrors(ctx context.Context)
	// IncrementNetworkFetchErrors counts per-network fetch failures.
	IncrementNetworkFetchErrors(ctx context.Context)
}
