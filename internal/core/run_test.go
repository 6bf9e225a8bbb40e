package core

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aristath/mevengine/internal/domain"
)

func TestVenueFor(t *testing.T) {
	tests := []struct {
		name string
		opp  domain.Opportunity
		want string
	}{
		{
			name: "arbitrage uses first hop's venue",
			opp: domain.Opportunity{
				Kind: domain.OpportunityArbitrage,
				ArbitrageData: &domain.ArbitrageInputs{
					Path: []domain.PoolID{{Venue: domain.VenueAMMConcentrated}, {Venue: domain.VenueAMMConstantProduct}},
				},
			},
			want: "AMM_CONCENTRATED",
		},
		{
			name: "arbitrage with empty path falls back to unknown",
			opp: domain.Opportunity{
				Kind:          domain.OpportunityArbitrage,
				ArbitrageData: &domain.ArbitrageInputs{},
			},
			want: "unknown",
		},
		{
			name: "sandwich uses target pool's venue",
			opp: domain.Opportunity{
				Kind: domain.OpportunitySandwich,
				SandwichData: &domain.SandwichInputs{
					TargetPool: domain.PoolID{Venue: domain.VenueOrderbook},
				},
			},
			want: "ORDERBOOK",
		},
		{
			name: "liquidation always keys on the lending protocol venue",
			opp: domain.Opportunity{
				Kind:            domain.OpportunityLiquidation,
				LiquidationData: &domain.LiquidationInputs{},
			},
			want: "LENDING_PROTOCOL",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, venueFor(tc.opp))
		})
	}
}

func TestTipToProfitRatio(t *testing.T) {
	t.Run("no tip transaction yields zero", func(t *testing.T) {
		b := &domain.Bundle{
			Transactions:              []domain.Transaction{{IsTip: false}},
			ExpectedNetProfitLamports: 1000,
		}
		assert.Equal(t, 0.0, tipToProfitRatio(b))
	})

	t.Run("non-positive expected profit yields zero", func(t *testing.T) {
		b := &domain.Bundle{
			Transactions:              []domain.Transaction{{IsTip: true}},
			ExpectedNetProfitLamports: 0,
		}
		assert.Equal(t, 0.0, tipToProfitRatio(b))
	})

	t.Run("ratio of aggregate gas to expected profit", func(t *testing.T) {
		b := &domain.Bundle{
			Transactions:              []domain.Transaction{{IsTip: true}},
			AggregateGasLamports:      250,
			ExpectedNetProfitLamports: 1000,
		}
		assert.Equal(t, 0.25, tipToProfitRatio(b))
	})
}

func TestLatencyOf(t *testing.T) {
	t.Run("nil observed latency yields zero", func(t *testing.T) {
		rec := domain.SubmissionRecord{}
		assert.Equal(t, int64(0), latencyOf(rec))
	})

	t.Run("returns the observed latency", func(t *testing.T) {
		latency := int64(123456)
		rec := domain.SubmissionRecord{ObservedLatencyNs: &latency}
		assert.Equal(t, latency, latencyOf(rec))
	})
}
