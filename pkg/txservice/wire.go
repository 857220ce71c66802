package txservice

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/vaultsentry/vaultsentry/types"
)

// Wire structs carry only the fields the scanner reads. Unknown fields are
// dropped on decode; these payloads are never round-tripped back to the
// service.

type pagedResponse[T any] struct {
	Count   int `json:"count"`
	Results []T `json:"results"`
}

type wireConfirmation struct {
	Owner string `json:"owner"`
}

type wireTransaction struct {
	SafeTxHash            string             `json:"safeTxHash"`
	To                    string             `json:"to"`
	Value                 string             `json:"value"`
	Data                  *string            `json:"data"`
	Operation             uint8              `json:"operation"`
	ConfirmationsRequired int                `json:"confirmationsRequired"`
	Confirmations         []wireConfirmation `json:"confirmations"`
}

type wireMessage struct {
	MessageHash   string             `json:"messageHash"`
	Message       json.RawMessage    `json:"message"`
	Confirmations []wireConfirmation `json:"confirmations"`
}

type wireVaultInfo struct {
	Address   string   `json:"address"`
	Nonce     uint64   `json:"nonce"`
	Threshold int      `json:"threshold"`
	Owners    []string `json:"owners"`
	Version   string   `json:"version"`
}

type confirmationRequest struct {
	Signature string `json:"signature"`
}

func (wt wireTransaction) toPendingTransaction(chainID uint64) (types.PendingTransaction, error) {
	if !common.IsHexAddress(wt.To) {
		return types.PendingTransaction{}, fmt.Errorf("invalid target address %q", wt.To)
	}

	value := new(big.Int)
	if wt.Value != "" {
		if _, ok := value.SetString(wt.Value, 10); !ok {
			return types.PendingTransaction{}, fmt.Errorf("invalid value %q", wt.Value)
		}
	}

	var data hexutil.Bytes
	if wt.Data != nil && *wt.Data != "" {
		decoded, err := hexutil.Decode(*wt.Data)
		if err != nil {
			return types.PendingTransaction{}, fmt.Errorf("invalid call data: %w", err)
		}
		data = decoded
	}

	return types.PendingTransaction{
		ChainID: chainID,
		Hash:    common.HexToHash(wt.SafeTxHash),
		Action: types.ProposedAction{
			To:        common.HexToAddress(wt.To),
			Value:     value,
			Data:      data,
			Operation: types.OperationKind(wt.Operation),
		},
		Approvals:             toAddresses(wt.Confirmations),
		ConfirmationsRequired: wt.ConfirmationsRequired,
	}, nil
}

func (wm wireMessage) toPendingMessage(chainID uint64) types.PendingMessage {
	return types.PendingMessage{
		ChainID:   chainID,
		Hash:      common.HexToHash(wm.MessageHash),
		Payload:   wm.Message,
		Approvals: toAddresses(wm.Confirmations),
	}
}

func (wi wireVaultInfo) toVaultInfo() *types.VaultInfo {
	info := &types.VaultInfo{
		Address:   common.HexToAddress(wi.Address),
		Nonce:     wi.Nonce,
		Threshold: wi.Threshold,
		Version:   wi.Version,
	}
	for _, owner := range wi.Owners {
		info.Owners = append(info.Owners, common.HexToAddress(owner))
	}
	return info
}

// toAddresses normalizes approver addresses; HexToAddress makes later
// comparisons case-insensitive with respect to the wire form.
func toAddresses(confirmations []wireConfirmation) []common.Address {
	addrs := make([]common.Address, 0, len(confirmations))
	for _, conf := range confirmations {
		addrs = append(addrs, common.HexToAddress(conf.Owner))
	}
	return addrs
}
