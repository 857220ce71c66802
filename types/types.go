package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// OperationKind distinguishes a plain call from a delegate call. The values
// match the vault contract's operation enum.
type OperationKind uint8

const (
	OperationCall         OperationKind = 0
	OperationDelegateCall OperationKind = 1
)

func (k OperationKind) String() string {
	if k == OperationDelegateCall {
		return "delegate_call"
	}
	return "call"
}

// Network is one enabled chain. The set of networks is fixed at startup.
type Network struct {
	ChainID              uint64
	Name                 string
	RPCURL               string
	TransactionServerURL string
}

// ProposedAction is the semantic payload of a pending transaction,
// independent of which network it is proposed on.
type ProposedAction struct {
	To        common.Address
	Value     *big.Int
	Data      hexutil.Bytes
	Operation OperationKind
}

// PendingTransaction is an on-chain action awaiting additional approvals.
// It is rebuilt from the transaction service on every scan cycle and never
// persisted locally.
type PendingTransaction struct {
	ChainID               uint64
	Hash                  common.Hash
	Action                ProposedAction
	Approvals             []common.Address
	ConfirmationsRequired int
}

// Approved reports whether the given operator address already appears in the
// approval list. Addresses are normalized at the decoding boundary, so equality
// here is case-insensitive with respect to the wire form.
func (t *PendingTransaction) Approved(operator common.Address) bool {
	for _, a := range t.Approvals {
		if a == operator {
			return true
		}
	}
	return false
}

// PendingMessage is an off-chain message awaiting additional approvals. The
// transaction service does not report a required-approval count for messages,
// so callers substitute a configured default.
type PendingMessage struct {
	ChainID   uint64
	Hash      common.Hash
	Payload   []byte
	Approvals []common.Address
}

func (m *PendingMessage) Approved(operator common.Address) bool {
	for _, a := range m.Approvals {
		if a == operator {
			return true
		}
	}
	return false
}

// PolicyDecision is the outcome of evaluating a ProposedAction against the
// deny rules. An empty Reasons list means the action is not denied.
type PolicyDecision struct {
	Denied  bool
	Reasons []string
}

// SubmissionOutcome records the result of one approval submission within a
// scan cycle. Used for logging only, never persisted.
type SubmissionOutcome struct {
	ChainID   uint64
	ItemHash  common.Hash
	Signature hexutil.Bytes
	Success   bool
	Error     string
}

// VaultInfo is the account metadata the transaction service reports for the
// vault on one network.
type VaultInfo struct {
	Address   common.Address
	Nonce     uint64
	Threshold int
	Owners    []common.Address
	Version   string
}

// NetworkVaultInfo pairs a network with the vault metadata fetched from it,
// or the fetch error.
type NetworkVaultInfo struct {
	Network Network
	Info    *VaultInfo
	Err     error
}
