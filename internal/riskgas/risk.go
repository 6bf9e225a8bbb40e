package riskgas

import "github.com/aristath/mevengine/internal/domain"

// Weights tunes how the Risk Assessor blends an Opportunity's own
// reported risk score with the network-context signals below. Static
// configuration loaded once at startup — no hot-reload (§9's open
// question decision: if ever added, it must be an atomic pointer swap).
type Weights struct {
	OwnRiskScore         float64
	CompetitionPressure  float64
	NetworkCongestion    float64
}

// DefaultWeights mirrors a conservative 60/30/10 split between an
// opportunity's self-reported risk, observed competition pressure, and
// current network congestion.
var DefaultWeights = Weights{
	OwnRiskScore:        0.6,
	CompetitionPressure: 0.3,
	NetworkCongestion:   0.1,
}

// NetworkContext carries the network-wide signals the Risk Assessor
// blends with an Opportunity's own estimate.
type NetworkContext struct {
	CompetitionPressure float64 // 0..1, recent landing-rate volatility per venue
	CongestionLevel     float64 // 0..1, recent slot fill ratio
}

// AssessRisk blends o's own risk score with current network context into
// a single 0..10 score, the aggregate the composer sums across a
// candidate bundle.
func AssessRisk(o *domain.Opportunity, ctx NetworkContext, w Weights) float64 {
	own := o.RiskScore
	blended := own*w.OwnRiskScore +
		ctx.CompetitionPressure*10*w.CompetitionPressure +
		ctx.CongestionLevel*10*w.NetworkCongestion

	if blended < 0 {
		blended = 0
	}
	if blended > 10 {
		blended = 10
	}
	return blended
}
