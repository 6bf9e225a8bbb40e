package submission

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSuccessModel_CompetitionEstimate_DefaultsToModerate(t *testing.T) {
	m := NewSuccessModel(0.1)
	assert.Equal(t, 0.5, m.CompetitionEstimate("AMM_CONSTANT_PRODUCT"))
}

func TestSuccessModel_CompetitionEstimate_TracksObservedLandingRate(t *testing.T) {
	m := NewSuccessModel(1.0) // alpha=1 makes the EWMA snap to the latest observation
	f := Features{BundleSize: 1, TipToProfitRatio: 0.1, VenueLandingRate: 0.5}

	m.Record("AMM_CONSTANT_PRODUCT", f, true, 1000)
	// A reliably-landing venue implies lower competition.
	assert.InDelta(t, 0, m.CompetitionEstimate("AMM_CONSTANT_PRODUCT"), 1e-9)

	m.Record("ORDERBOOK", f, false, 1000)
	assert.InDelta(t, 1, m.CompetitionEstimate("ORDERBOOK"), 1e-9)
}

func TestSuccessModel_PredictLandingProbability_InUnitRange(t *testing.T) {
	m := NewSuccessModel(0.1)
	f := Features{BundleSize: 3, TipToProfitRatio: 0.2, VenueLandingRate: 0.7, TimeOfSlotFraction: 0.3, BuilderInclusionRate: 0.9}

	p := m.PredictLandingProbability(f)
	assert.GreaterOrEqual(t, p, 0.0)
	assert.LessOrEqual(t, p, 1.0)
}

func TestSuccessModel_Record_TipRatioCoefficientStaysNonNegative(t *testing.T) {
	m := NewSuccessModel(0.5)

	// Repeatedly record failures at a high tip ratio, which would push the
	// tip-ratio coefficient negative under an unclamped update.
	f := Features{TipToProfitRatio: 10}
	for i := 0; i < 50; i++ {
		m.Record("AMM_CONSTANT_PRODUCT", f, false, 1000)
	}

	assert.GreaterOrEqual(t, m.weights[1], 0.0)
}

func TestMeanLatency(t *testing.T) {
	assert.Equal(t, 0.0, meanLatency(nil))
	assert.Equal(t, 2.0, meanLatency([]float64{1, 2, 3}))
}
