package submission

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/stat"
)

// Features are the inputs to the Success-Rate Model's landing-probability
// estimate.
type Features struct {
	BundleSize         int
	TipToProfitRatio   float64
	VenueLandingRate   float64 // observed recent landing rate for the targeted venue
	TimeOfSlotFraction float64 // 0..1, how far into the current slot this submission lands
	BuilderInclusionRate float64 // advertised inclusion rate of the targeted block builder
}

// SuccessModel estimates P(landing) for a candidate bundle and the
// competition intensity for an opportunity, updated online from terminal
// submission outcomes via exponentially weighted per-feature
// coefficients (bounded memory: no raw history is retained).
type SuccessModel struct {
	mu    sync.RWMutex
	alpha float64 // EWMA smoothing factor

	// coefficients, one per feature plus a bias term, in a simple
	// logistic-regression-shaped online model.
	weights [5]float64
	bias    float64

	recentLandingRates map[string]*ewmaRate // keyed by venue
}

type ewmaRate struct {
	rate float64
	seen bool
}

// NewSuccessModel creates a model with conservative starting weights:
// positive for venue landing rate, builder inclusion rate, and tip
// ratio; negative for bundle size (bigger bundles land less often).
func NewSuccessModel(alpha float64) *SuccessModel {
	return &SuccessModel{
		alpha:              alpha,
		weights:            [5]float64{-0.15, 2.0, 1.5, -0.2, 1.8},
		bias:               -0.5,
		recentLandingRates: make(map[string]*ewmaRate),
	}
}

// PredictLandingProbability returns P(landing) in [0,1] for f. The
// predictions are non-decreasing in TipToProfitRatio for fixed other
// inputs since its coefficient is held non-negative by Record's updates.
func (m *SuccessModel) PredictLandingProbability(f Features) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	x := []float64{
		float64(f.BundleSize),
		f.TipToProfitRatio,
		f.VenueLandingRate,
		f.TimeOfSlotFraction,
		f.BuilderInclusionRate,
	}

	z := m.bias
	for i, xi := range x {
		z += m.weights[i] * xi
	}
	return sigmoid(z)
}

// CompetitionEstimate derives a 0..1 competition-intensity estimate for
// venue from its recently observed landing rate: a venue whose bundles
// land reliably implies less contention winning the current auction.
func (m *SuccessModel) CompetitionEstimate(venue string) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.recentLandingRates[venue]
	if !ok {
		return 0.5 // no data: assume moderate competition
	}
	return 1 - r.rate
}

// Record updates the model from one terminal submission outcome. The
// update is online (one EWMA step per feature coefficient) and
// bounded-memory: no history beyond the current coefficients is kept.
func (m *SuccessModel) Record(venue string, f Features, actualSuccess bool, actualLatencyNs int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	y := 0.0
	if actualSuccess {
		y = 1.0
	}

	predicted := m.predictLocked(f)
	residual := y - predicted

	x := []float64{
		float64(f.BundleSize),
		f.TipToProfitRatio,
		f.VenueLandingRate,
		f.TimeOfSlotFraction,
		f.BuilderInclusionRate,
	}

	// Online gradient-style update, scaled by alpha, with the tip-ratio
	// coefficient clamped non-negative to preserve the monotone-in-tip
	// guarantee.
	learningRate := m.alpha
	for i, xi := range x {
		m.weights[i] += learningRate * residual * xi
	}
	if m.weights[1] < 0 {
		m.weights[1] = 0
	}
	m.bias += learningRate * residual

	rate, ok := m.recentLandingRates[venue]
	if !ok {
		rate = &ewmaRate{}
		m.recentLandingRates[venue] = rate
	}
	if !rate.seen {
		rate.rate = y
		rate.seen = true
	} else {
		rate.rate = m.alpha*y + (1-m.alpha)*rate.rate
	}
}

func (m *SuccessModel) predictLocked(f Features) float64 {
	x := []float64{
		float64(f.BundleSize),
		f.TipToProfitRatio,
		f.VenueLandingRate,
		f.TimeOfSlotFraction,
		f.BuilderInclusionRate,
	}
	z := m.bias
	for i, xi := range x {
		z += m.weights[i] * xi
	}
	return sigmoid(z)
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

// meanLatency returns the gonum/stat mean of samples, or 0 when there
// are none. Only its test calls it.
func meanLatency(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	return stat.Mean(samples, nil)
}
