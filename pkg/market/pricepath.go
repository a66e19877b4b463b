package market

import "math"

const (
	// PriceFloor is the lowest price the path may take.
	PriceFloor = 100.0

	momentumDecay  = 0.7
	momentumSigma  = 0.3
	momentumWeight = 0.5
	reversionRate  = 0.02
)

// PriceState is carried from one tick to the next.
type PriceState struct {
	Price    float64
	Momentum float64
}

// NewPriceState starts a path at base with no momentum.
func NewPriceState(base float64) PriceState {
	return PriceState{Price: base}
}

// PathParams configures the price path.
type PathParams struct {
	Trend      Trend
	Base       float64 // mean-reversion anchor for sideways
	Spread     float64 // noise scale
	TrendRate  float64 // drift per tick for up/downtrend
	Volatility float64 // divides Spread in the drifting and sideways modes
}

func gauss(rng Rand, mu, sigma float64) float64 {
	return mu + sigma*rng.NormFloat64()
}

// Step advances the path by one tick and returns the new state together
// with the order price (the new price rounded to cents). The state keeps
// the unrounded price. The momentum draw, when there is one, always
// comes before the noise draw.
func Step(s PriceState, p PathParams, rng Rand) (PriceState, float64) {
	price := s.Price
	momentum := s.Momentum

	switch p.Trend {
	case Uptrend:
		momentum = momentum*momentumDecay + gauss(rng, 0, momentumSigma)
		trend := p.TrendRate + momentum*momentumWeight
		noise := gauss(rng, 0, p.Spread/p.Volatility)
		price = price + trend + noise
	case Downtrend:
		momentum = momentum*momentumDecay + gauss(rng, 0, momentumSigma)
		trend := -p.TrendRate + momentum*momentumWeight
		noise := gauss(rng, 0, p.Spread/p.Volatility)
		price = price + trend + noise
	case Sideways:
		deviation := price - p.Base
		reversion := -deviation * reversionRate
		noise := gauss(rng, 0, p.Spread/p.Volatility)
		price = price + reversion + noise
	case Volatile:
		noise := gauss(rng, 0, p.Spread)
		price = price + noise
	}

	price = math.Max(PriceFloor, price)

	next := PriceState{Price: price, Momentum: momentum}
	return next, RoundPrice(price)
}

// Path runs Step n times from a fresh state and returns the order prices.
func Path(p PathParams, rng Rand, n int) []float64 {
	out := make([]float64, 0, n)
	s := NewPriceState(p.Base)
	for i := 0; i < n; i++ {
		var px float64
		s, px = Step(s, p, rng)
		out = append(out, px)
	}
	return out
}
