package vaultsentry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/smartcontractkit/chainlink-common/pkg/logger"

	"github.com/vaultsentry/vaultsentry/pkg/policy"
	"github.com/vaultsentry/vaultsentry/pkg/throttle"
	"github.com/vaultsentry/vaultsentry/types"
)

// NetworkEntry pairs an enabled network with its transaction-service client.
type NetworkEntry struct {
	Network types.Network
	Service TransactionService
}

// ScanOrchestrator drives one scan cycle: for every enabled network it lists
// pending transactions and messages, filters them through the policy engine,
// signs accepted items, and submits the approvals. Networks are scanned
// sequentially to stay inside the shared query budget.
type ScanOrchestrator struct {
	lggr                     logger.Logger
	entries                  []NetworkEntry
	engine                   *policy.Engine
	throttle                 *throttle.Throttle
	signer                   HashSigner
	vault                    common.Address
	networkPause             time.Duration
	messageRequiredApprovals int
	monitoring               Monitoring
}

// NewScanOrchestrator validates and assembles an orchestrator. Entries are
// scanned in the order given.
func NewScanOrchestrator(
	lggr logger.Logger,
	entries []NetworkEntry,
	engine *policy.Engine,
	th *throttle.Throttle,
	hashSigner HashSigner,
	vault common.Address,
	networkPause time.Duration,
	messageRequiredApprovals int,
	monitoring Monitoring,
) (*ScanOrchestrator, error) {
	var errs []error
	if lggr == nil {
		errs = append(errs, fmt.Errorf("logger is not set"))
	}
	if len(entries) == 0 {
		errs = append(errs, fmt.Errorf("no network entries"))
	}
	if engine == nil {
		errs = append(errs, fmt.Errorf("policy engine is not set"))
	}
	if th == nil {
		errs = append(errs, fmt.Errorf("throttle is not set"))
	}
	if hashSigner == nil {
		errs = append(errs, fmt.Errorf("signer is not set"))
	}
	if monitoring == nil {
		errs = append(errs, fmt.Errorf("monitoring is not set"))
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return &ScanOrchestrator{
		lggr:                     lggr,
		entries:                  entries,
		engine:                   engine,
		throttle:                 th,
		signer:                   hashSigner,
		vault:                    vault,
		networkPause:             networkPause,
		messageRequiredApprovals: messageRequiredApprovals,
		monitoring:               monitoring,
	}, nil
}

// ScanAndProcess runs one cycle across all networks. A fetch failure on one
// network is logged and treated as zero pending items there; the cycle
// continues with the remaining networks. Returned counts are the approvals
// whose submission call completed without error.
func (o *ScanOrchestrator) ScanAndProcess(ctx context.Context) (txProcessed, msgProcessed int) {
	start := time.Now()
	defer func() {
		o.monitoring.Metrics().RecordScanCycleDuration(ctx, time.Since(start))
	}()

	for i, entry := range o.entries {
		txProcessed += o.processTransactions(ctx, entry)
		msgProcessed += o.processMessages(ctx, entry)

		// Smooth the load on the shared service between per-network bursts.
		if i < len(o.entries)-1 {
			select {
			case <-time.After(o.networkPause):
			case <-ctx.Done():
				return txProcessed, msgProcessed
			}
		}
	}

	o.lggr.Infow("scan cycle complete",
		"transactionsProcessed", txProcessed,
		"messagesProcessed", msgProcessed,
		"duration", time.Since(start),
	)
	return txProcessed, msgProcessed
}

func (o *ScanOrchestrator) processTransactions(ctx context.Context, entry NetworkEntry) int {
	var pending []types.PendingTransaction
	err := o.throttle.Do(ctx, func() error {
		var listErr error
		pending, listErr = entry.Service.ListPendingTransactions(ctx, o.vault)
		return listErr
	})
	if err != nil {
		o.monitoring.Metrics().IncrementNetworkFetchErrors(ctx)
		o.lggr.Errorw("failed to fetch pending transactions, skipping network",
			"chainID", entry.Network.ChainID, "network", entry.Network.Name, "error", err)
		return 0
	}

	operator := o.signer.Address()
	processed := 0
	for _, tx := range pending {
		if tx.Approved(operator) {
			o.monitoring.Metrics().IncrementItemsAlreadyApproved(ctx)
			o.lggr.Debugw("transaction already approved by operator",
				"chainID", tx.ChainID, "hash", tx.Hash.Hex())
			continue
		}

		decision := o.engine.Evaluate(tx.Action)
		if decision.Denied {
			o.monitoring.Metrics().IncrementItemsDenied(ctx)
			o.lggr.Warnw("transaction denied by policy",
				"chainID", tx.ChainID, "hash", tx.Hash.Hex(), "reasons", decision.Reasons)
			continue
		}

		outcome := o.approveTransaction(ctx, entry, tx)
		if outcome.Success {
			o.monitoring.Metrics().IncrementTransactionsApproved(ctx)
			processed++
			o.lggr.Infow("transaction approval submitted",
				"chainID", tx.ChainID, "hash", tx.Hash.Hex(),
				"approvals", len(tx.Approvals), "required", tx.ConfirmationsRequired)
		} else {
			o.monitoring.Metrics().IncrementSubmissionErrors(ctx)
			o.lggr.Errorw("transaction approval failed",
				"chainID", tx.ChainID, "hash", tx.Hash.Hex(), "error", outcome.Error)
		}
	}
	return processed
}

func (o *ScanOrchestrator) processMessages(ctx context.Context, entry NetworkEntry) int {
	var pending []types.PendingMessage
	err := o.throttle.Do(ctx, func() error {
		var listErr error
		pending, listErr = entry.Service.ListPendingMessages(ctx, o.vault)
		return listErr
	})
	if err != nil {
		o.monitoring.Metrics().IncrementNetworkFetchErrors(ctx)
		o.lggr.Errorw("failed to fetch pending messages, skipping network",
			"chainID", entry.Network.ChainID, "network", entry.Network.Name, "error", err)
		return 0
	}

	operator := o.signer.Address()
	processed := 0
	for _, msg := range pending {
		if msg.Approved(operator) {
			o.monitoring.Metrics().IncrementItemsAlreadyApproved(ctx)
			o.lggr.Debugw("message already approved by operator",
				"chainID", msg.ChainID, "hash", msg.Hash.Hex())
			continue
		}

		// Messages carry no call data, so the built-in selector rules never
		// fire here; the check still honors runtime-added catch-all rules.
		decision := o.engine.Evaluate(types.ProposedAction{})
		if decision.Denied {
			o.monitoring.Metrics().IncrementItemsDenied(ctx)
			o.lggr.Warnw("message denied by policy",
				"chainID", msg.ChainID, "hash", msg.Hash.Hex(), "reasons", decision.Reasons)
			continue
		}

		outcome := o.approveMessage(ctx, entry, msg)
		if outcome.Success {
			o.monitoring.Metrics().IncrementMessagesApproved(ctx)
			processed++
			o.lggr.Infow("message approval submitted",
				"chainID", msg.ChainID, "hash", msg.Hash.Hex(),
				"approvals", len(msg.Approvals), "required", o.messageRequiredApprovals)
		} else {
			o.monitoring.Metrics().IncrementSubmissionErrors(ctx)
			o.lggr.Errorw("message approval failed",
				"chainID", msg.ChainID, "hash", msg.Hash.Hex(), "error", outcome.Error)
		}
	}
	return processed
}

func (o *ScanOrchestrator) approveTransaction(ctx context.Context, entry NetworkEntry, tx types.PendingTransaction) types.SubmissionOutcome {
	outcome := types.SubmissionOutcome{ChainID: tx.ChainID, ItemHash: tx.Hash}

	signature, err := o.signer.SignHash(ctx, tx.Hash)
	if err != nil {
		outcome.Error = err.Error()
		return outcome
	}
	outcome.Signature = signature

	err = o.throttle.Do(ctx, func() error {
		return entry.Service.SubmitTransactionApproval(ctx, tx.Hash, signature)
	})
	if err != nil {
		outcome.Error = err.Error()
		return outcome
	}
	outcome.Success = true
	return outcome
}

func (o *ScanOrchestrator) approveMessage(ctx context.Context, entry NetworkEntry, msg types.PendingMessage) types.SubmissionOutcome {
	outcome := types.SubmissionOutcome{ChainID: msg.ChainID, ItemHash: msg.Hash}

	signature, err := o.signer.SignHash(ctx, msg.Hash)
	if err != nil {
		outcome.Error = err.Error()
		return outcome
	}
	outcome.Signature = signature

	err = o.throttle.Do(ctx, func() error {
		return entry.Service.SubmitMessageApproval(ctx, msg.Hash, signature)
	})
	if err != nil {
		outcome.Error = err.Error()
		return outcome
	}
	outcome.Success = true
	return outcome
}
