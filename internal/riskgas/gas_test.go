package riskgas

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aristath/mevengine/internal/domain"
)

func TestEstimateComputeUnits_PerKind(t *testing.T) {
	tests := []struct {
		name string
		o    *domain.Opportunity
		want uint64
	}{
		{
			name: "arbitrage scales with hop count",
			o: &domain.Opportunity{
				Kind:          domain.OpportunityArbitrage,
				ArbitrageData: &domain.ArbitrageInputs{Path: make([]domain.PoolID, 3)},
			},
			want: baseComputeArbitrageHop * 3,
		},
		{
			name: "arbitrage with empty path defaults to one hop",
			o: &domain.Opportunity{
				Kind:          domain.OpportunityArbitrage,
				ArbitrageData: &domain.ArbitrageInputs{},
			},
			want: baseComputeArbitrageHop,
		},
		{
			name: "arbitrage with nil data defaults to one hop",
			o:    &domain.Opportunity{Kind: domain.OpportunityArbitrage},
			want: baseComputeArbitrageHop,
		},
		{
			name: "liquidation uses flat baseline",
			o:    &domain.Opportunity{Kind: domain.OpportunityLiquidation},
			want: baseComputeLiquidation,
		},
		{
			name: "sandwich charges for both legs",
			o:    &domain.Opportunity{Kind: domain.OpportunitySandwich},
			want: baseComputeSandwichLeg * 2,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, EstimateComputeUnits(tc.o))
		})
	}
}

func TestEstimateGasLamports_MatchesComputeUnits(t *testing.T) {
	o := &domain.Opportunity{Kind: domain.OpportunityLiquidation}
	assert.Equal(t, int64(EstimateComputeUnits(o)*lamportsPerComputeUnit), EstimateGasLamports(o))
}

func TestWithSafetyMargin(t *testing.T) {
	tests := []struct {
		name      string
		units     uint64
		marginBps int
		want      uint64
	}{
		{name: "zero margin is a no-op", units: 1000, marginBps: 0, want: 1000},
		{name: "negative margin is a no-op", units: 1000, marginBps: -5, want: 1000},
		{name: "10% margin", units: 1000, marginBps: 1000, want: 1100},
		{name: "100% margin doubles", units: 500, marginBps: 10000, want: 1000},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, WithSafetyMargin(tc.units, tc.marginBps))
		})
	}
}
