package market

import "math"

// DefaultWaveBias is the probability of trading with the current wave.
const DefaultWaveBias = 0.65

const (
	qtyMean  = 3.0
	qtySigma = 2.0
)

// FlowParams configures organic order flow.
type FlowParams struct {
	Symbol     string
	MinQty     int
	MaxQty     int
	WavePeriod int
	WaveBias   float64
	Path       PathParams
}

// WaveIndex returns which wave tick n belongs to.
func WaveIndex(tick, period int) int {
	return tick / period
}

// BuyWave reports whether tick n falls in a buy-biased wave.
func BuyWave(tick, period int) bool {
	return WaveIndex(tick, period)%2 == 0
}

// SideForTick picks the order side with a single uniform draw: in even
// waves BUY wins with probability bias, in odd waves SELL does.
func SideForTick(tick, period int, bias float64, rng Rand) Side {
	u := rng.Float64()
	if BuyWave(tick, period) {
		if u < bias {
			return Buy
		}
		return Sell
	}
	if u < bias {
		return Sell
	}
	return Buy
}

// PickParticipant draws a sender for side. Sellers come from the funded
// subset when there is one; buyers come from everyone.
func PickParticipant(side Side, all, sellers []Participant, rng Rand) Participant {
	pool := all
	if side == Sell && len(sellers) > 0 {
		pool = sellers
	}
	return pool[rng.Intn(len(pool))]
}

// ClampQuantity applies the quantity rule to a raw normal draw:
// |round(x)|, with 0 coerced to 1, clamped to [minQty, maxQty].
func ClampQuantity(x float64, minQty, maxQty int) int {
	q := int(math.Abs(math.Round(x)))
	if q == 0 {
		q = 1
	}
	return max(minQty, min(maxQty, q))
}

// SampleQuantity draws N(3, 2) and clamps it.
func SampleQuantity(minQty, maxQty int, rng Rand) int {
	return ClampQuantity(gauss(rng, qtyMean, qtySigma), minQty, maxQty)
}

// FlowGenerator produces organic order intents one tick at a time. It
// owns the price state and draws everything from one Rand, so a fixed
// seed reproduces the whole sequence.
type FlowGenerator struct {
	params  FlowParams
	all     []Participant
	sellers []Participant
	rng     Rand
	state   PriceState
	tick    int
}

func NewFlowGenerator(p FlowParams, all, sellers []Participant, rng Rand) *FlowGenerator {
	if p.WaveBias == 0 {
		p.WaveBias = DefaultWaveBias
	}
	return &FlowGenerator{
		params:  p,
		all:     all,
		sellers: sellers,
		rng:     rng,
		state:   NewPriceState(p.Path.Base),
	}
}

// Next returns the intent for the current tick and advances.
func (g *FlowGenerator) Next() OrderIntent {
	side := SideForTick(g.tick, g.params.WavePeriod, g.params.WaveBias, g.rng)
	who := PickParticipant(side, g.all, g.sellers, g.rng)
	qty := SampleQuantity(g.params.MinQty, g.params.MaxQty, g.rng)

	var price float64
	g.state, price = Step(g.state, g.params.Path, g.rng)
	g.tick++

	return OrderIntent{
		UserID:   who.ID,
		Side:     side,
		Quantity: qty,
		Price:    price,
		Symbol:   g.params.Symbol,
	}
}

// Tick is the index of the next intent Next will produce.
func (g *FlowGenerator) Tick() int { return g.tick }

// State is the current price state.
func (g *FlowGenerator) State() PriceState { return g.state }
