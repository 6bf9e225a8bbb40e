package core

import "github.com/aristath/mevengine/internal/domain"

// graphPriceReader is the subset of *marketgraph.Graph the price oracle
// needs.
type graphPriceReader interface {
	PoolsForToken(token [32]byte) []domain.PoolID
	Get(id domain.PoolID) (domain.PoolState, bool)
}

// graphPriceOracle derives a USD price for a token from the Market
// Graph by finding a pool pairing it directly against the configured
// quote mint (a stablecoin), per the decision to source sandwich and
// liquidation pricing from the in-process graph rather than an
// external oracle.
type graphPriceOracle struct {
	graph    graphPriceReader
	quoteMint [32]byte
	quoteUSD  float64 // price of one unit of the quote mint, e.g. 1.0 for a USD stablecoin
}

func newGraphPriceOracle(graph graphPriceReader, quoteMint [32]byte, quoteUSD float64) *graphPriceOracle {
	return &graphPriceOracle{graph: graph, quoteMint: quoteMint, quoteUSD: quoteUSD}
}

// PriceUSD satisfies liquidation.PriceFeed and the sandwich detector's
// priceUSDFn.
func (o *graphPriceOracle) PriceUSD(token domain.Token) (float64, bool) {
	if token.Mint == o.quoteMint {
		return o.quoteUSD, true
	}

	for _, id := range o.graph.PoolsForToken(token.Mint) {
		state, ok := o.graph.Get(id)
		if !ok {
			continue
		}
		if state.TokenA.Mint != o.quoteMint && state.TokenB.Mint != o.quoteMint {
			continue
		}
		price := state.Price()
		if price == 0 {
			continue
		}
		if state.TokenA.Mint == token.Mint {
			// Price() is TokenB per TokenA; token is TokenA, quote is TokenB.
			return price * o.quoteUSD, true
		}
		return (1 / price) * o.quoteUSD, true
	}

	return 0, false
}
