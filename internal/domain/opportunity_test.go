package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNetExpectedProfit(t *testing.T) {
	o := &Opportunity{
		GrossProfitLamports:  1000,
		EstimatedGasLamports: 200,
		EstimatedTipLamports: 300,
	}
	assert.Equal(t, int64(500), o.NetExpectedProfit())
}

func TestNetExpectedProfit_CanGoNegative(t *testing.T) {
	o := &Opportunity{
		GrossProfitLamports:  100,
		EstimatedGasLamports: 50,
		EstimatedTipLamports: 200,
	}
	assert.Equal(t, int64(-150), o.NetExpectedProfit())
}

func TestConflictsWith(t *testing.T) {
	acctA := [32]byte{1}
	acctB := [32]byte{2}
	acctC := [32]byte{3}

	tests := []struct {
		name string
		a, b Opportunity
		want bool
	}{
		{
			name: "write-write overlap conflicts",
			a:    Opportunity{WriteAccounts: [][32]byte{acctA}},
			b:    Opportunity{WriteAccounts: [][32]byte{acctA}},
			want: true,
		},
		{
			name: "a writes what b reads",
			a:    Opportunity{WriteAccounts: [][32]byte{acctA}},
			b:    Opportunity{ReadAccounts: [][32]byte{acctA}},
			want: true,
		},
		{
			name: "a reads what b writes",
			a:    Opportunity{ReadAccounts: [][32]byte{acctA}},
			b:    Opportunity{WriteAccounts: [][32]byte{acctA}},
			want: true,
		},
		{
			name: "read-read overlap never conflicts",
			a:    Opportunity{ReadAccounts: [][32]byte{acctA}},
			b:    Opportunity{ReadAccounts: [][32]byte{acctA}},
			want: false,
		},
		{
			name: "disjoint accounts never conflict",
			a:    Opportunity{WriteAccounts: [][32]byte{acctA}, ReadAccounts: [][32]byte{acctB}},
			b:    Opportunity{WriteAccounts: [][32]byte{acctC}},
			want: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.a.ConflictsWith(&tc.b))
		})
	}
}

func TestOpportunityKind_String(t *testing.T) {
	assert.Equal(t, "arbitrage", OpportunityArbitrage.String())
	assert.Equal(t, "liquidation", OpportunityLiquidation.String())
	assert.Equal(t, "sandwich", OpportunitySandwich.String())
	assert.Equal(t, "unknown", OpportunityKind(99).String())
}
