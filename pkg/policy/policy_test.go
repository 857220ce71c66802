package policy_test

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultsentry/vaultsentry/pkg/policy"
	"github.com/vaultsentry/vaultsentry/types"
)

func action(data string, op types.OperationKind) types.ProposedAction {
	return types.ProposedAction{
		To:        common.HexToAddress("0x1111111111111111111111111111111111111111"),
		Value:     big.NewInt(0),
		Data:      hexutil.MustDecode(data),
		Operation: op,
	}
}

func TestSelectorRules(t *testing.T) {
	engine := policy.NewEngine(nil)

	testcases := []struct {
		name       string
		data       string
		expectRule string
	}{
		{
			name:       "addOwnerWithThreshold",
			data:       "0x0d582f13000000000000000000000000a0b86991c6218b36c1d19d4a2e9eb0ce3606eb480000000000000000000000000000000000000000000000000000000000000002",
			expectRule: policy.RuleOwnershipTransfer,
		},
		{
			name:       "removeOwner",
			data:       "0xf8dc5dd9",
			expectRule: policy.RuleOwnershipTransfer,
		},
		{
			name:       "swapOwner",
			data:       "0xe318b52b",
			expectRule: policy.RuleOwnershipTransfer,
		},
		{
			name:       "changeThreshold",
			data:       "0x694e80c30000000000000000000000000000000000000000000000000000000000000003",
			expectRule: policy.RuleThresholdChange,
		},
		{
			name:       "enableModule",
			data:       "0x610b5925",
			expectRule: policy.RuleModuleManagement,
		},
		{
			name:       "disableModule",
			data:       "0xe009cfde",
			expectRule: policy.RuleModuleManagement,
		},
	}

	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			decision := engine.Evaluate(action(tc.data, types.OperationCall))
			require.True(t, decision.Denied)
			require.Len(t, decision.Reasons, 1)
			assert.Contains(t, decision.Reasons[0], tc.expectRule)
		})
	}
}

func TestSelectorRulesIgnoreShortOrEmptyData(t *testing.T) {
	engine := policy.NewEngine(nil)

	for _, data := range []string{"0x", "0x0d", "0x0d582f"} {
		decision := engine.Evaluate(action(data, types.OperationCall))
		assert.False(t, decision.Denied, "data %q should not match any selector", data)
		assert.Empty(t, decision.Reasons)
	}
}

func TestDelegateCallDeniedByDefault(t *testing.T) {
	engine := policy.NewEngine(nil)

	decision := engine.Evaluate(action("0x", types.OperationDelegateCall))
	require.True(t, decision.Denied)
	require.Len(t, decision.Reasons, 1)
	assert.Contains(t, decision.Reasons[0], policy.RuleDelegateCallRestriction)
}

func TestDelegateCallTrustedTarget(t *testing.T) {
	target := common.HexToAddress("0x1111111111111111111111111111111111111111")
	// Mixed-case input normalizes to the same address.
	engine := policy.NewEngine([]common.Address{
		common.HexToAddress("0x1111111111111111111111111111111111111111"),
	})

	decision := engine.Evaluate(types.ProposedAction{
		To:        target,
		Value:     big.NewInt(0),
		Operation: types.OperationDelegateCall,
	})
	assert.False(t, decision.Denied)

	other := engine.Evaluate(types.ProposedAction{
		To:        common.HexToAddress("0x2222222222222222222222222222222222222222"),
		Value:     big.NewInt(0),
		Operation: types.OperationDelegateCall,
	})
	assert.True(t, other.Denied)
}

func TestDelegateRuleNeverFiresForPlainCalls(t *testing.T) {
	engine := policy.NewEngine(nil)

	decision := engine.Evaluate(action("0x", types.OperationCall))
	assert.False(t, decision.Denied)
}

func TestEvaluateCollectsAllReasons(t *testing.T) {
	engine := policy.NewEngine(nil)

	// An ownership-transfer selector sent as a delegate call trips two rules.
	decision := engine.Evaluate(action("0x0d582f13", types.OperationDelegateCall))
	require.True(t, decision.Denied)
	require.Len(t, decision.Reasons, 2)
	assert.Contains(t, decision.Reasons[0], policy.RuleOwnershipTransfer)
	assert.Contains(t, decision.Reasons[1], policy.RuleDelegateCallRestriction)
}

func TestEvaluateIsIdempotent(t *testing.T) {
	engine := policy.NewEngine(nil)
	act := action("0x694e80c3", types.OperationCall)

	first := engine.Evaluate(act)
	second := engine.Evaluate(act)
	assert.Equal(t, first, second)
}

func TestAddAndRemoveRules(t *testing.T) {
	engine := policy.NewEngine(nil)

	denyAll := policy.Rule{
		ID:          "deny-all",
		Description: "denies everything",
		Matches:     func(types.ProposedAction) bool { return true },
	}
	engine.Add(denyAll)

	decision := engine.Evaluate(action("0x", types.OperationCall))
	require.True(t, decision.Denied)

	require.True(t, engine.Remove("deny-all"))
	require.False(t, engine.Remove("deny-all"))

	decision = engine.Evaluate(action("0x", types.OperationCall))
	assert.False(t, decision.Denied)
}

func TestDuplicateRuleIDsAllFire(t *testing.T) {
	engine := policy.NewEngine(nil)

	for range 2 {
		engine.Add(policy.Rule{
			ID:          "dup",
			Description: "duplicate rule",
			Matches:     func(types.ProposedAction) bool { return true },
		})
	}

	decision := engine.Evaluate(action("0x", types.OperationCall))
	require.True(t, decision.Denied)
	assert.Len(t, decision.Reasons, 2)

	// Remove drops every rule carrying the id.
	require.True(t, engine.Remove("dup"))
	assert.False(t, engine.Evaluate(action("0x", types.OperationCall)).Denied)
}

func TestBuiltinRuleOrder(t *testing.T) {
	engine := policy.NewEngine(nil)
	assert.Equal(t, []string{
		policy.RuleOwnershipTransfer,
		policy.RuleThresholdChange,
		policy.RuleModuleManagement,
		policy.RuleDelegateCallRestriction,
	}, engine.RuleIDs())
}
