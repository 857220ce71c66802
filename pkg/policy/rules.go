package policy

import (
	"bytes"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vaultsentry/vaultsentry/types"
)

// Function selectors for the vault management calls that must never be
// approved automatically. Kept as data so the rule table is auditable in one
// place; matching is a shared prefix predicate over the call data.
var (
	selectorAddOwner        = [4]byte{0x0d, 0x58, 0x2f, 0x13} // addOwnerWithThreshold(address,uint256)
	selectorRemoveOwner     = [4]byte{0xf8, 0xdc, 0x5d, 0xd9} // removeOwner(address,address,uint256)
	selectorSwapOwner       = [4]byte{0xe3, 0x18, 0xb5, 0x2b} // swapOwner(address,address,address)
	selectorChangeThreshold = [4]byte{0x69, 0x4e, 0x80, 0xc3} // changeThreshold(uint256)
	selectorEnableModule    = [4]byte{0x61, 0x0b, 0x59, 0x25} // enableModule(address)
	selectorDisableModule   = [4]byte{0xe0, 0x09, 0xcf, 0xde} // disableModule(address,address)
)

const (
	RuleOwnershipTransfer       = "ownership-transfer"
	RuleThresholdChange         = "threshold-change"
	RuleModuleManagement        = "module-management"
	RuleDelegateCallRestriction = "delegate-call-restriction"
)

func builtinRules(trustedDelegateTargets map[common.Address]struct{}) []Rule {
	return []Rule{
		selectorRule(RuleOwnershipTransfer,
			"call mutates the vault owner set",
			selectorAddOwner, selectorRemoveOwner, selectorSwapOwner),
		selectorRule(RuleThresholdChange,
			"call changes the required approval threshold",
			selectorChangeThreshold),
		selectorRule(RuleModuleManagement,
			"call enables or disables a vault module",
			selectorEnableModule, selectorDisableModule),
		{
			ID:          RuleDelegateCallRestriction,
			Description: "delegate call to a target outside the trusted allowlist",
			Matches: func(action types.ProposedAction) bool {
				if action.Operation != types.OperationDelegateCall {
					return false
				}
				// No explicit trust means no trust: an empty allowlist
				// denies every delegate call.
				_, trusted := trustedDelegateTargets[action.To]
				return !trusted
			},
		},
	}
}

// selectorRule builds a rule matching any call whose data begins with one of
// the given function selectors. Actions with empty or short call data match
// nothing.
func selectorRule(id, description string, selectors ...[4]byte) Rule {
	return Rule{
		ID:          id,
		Description: description,
		Matches: func(action types.ProposedAction) bool {
			if len(action.Data) < 4 {
				return false
			}
			for _, sel := range selectors {
				if bytes.HasPrefix(action.Data, sel[:]) {
					return true
				}
			}
			return false
		},
	}
}
