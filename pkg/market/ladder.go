package market

// LadderParams describes the resting depth placed before organic flow.
type LadderParams struct {
	Symbol string
	Base   float64
	Step   float64
	Levels int
	MinQty int
	MaxQty int
}

// BuildLadder returns Levels bids at Base - i*Step followed by Levels
// asks at Base + i*Step, i = 1..Levels. Bids come from anyone, asks from
// the seller subset (or anyone if it is empty). Quantities are uniform
// in [MinQty, MaxQty].
func BuildLadder(p LadderParams, all, sellers []Participant, rng Rand) []OrderIntent {
	if p.Levels <= 0 || len(all) == 0 {
		return nil
	}
	out := make([]OrderIntent, 0, 2*p.Levels)

	for i := 1; i <= p.Levels; i++ {
		who := all[rng.Intn(len(all))]
		out = append(out, OrderIntent{
			UserID:   who.ID,
			Side:     Buy,
			Quantity: uniformQty(p.MinQty, p.MaxQty, rng),
			Price:    RoundPrice(p.Base - float64(i)*p.Step),
			Symbol:   p.Symbol,
		})
	}

	askers := sellers
	if len(askers) == 0 {
		askers = all
	}
	for i := 1; i <= p.Levels; i++ {
		who := askers[rng.Intn(len(askers))]
		out = append(out, OrderIntent{
			UserID:   who.ID,
			Side:     Sell,
			Quantity: uniformQty(p.MinQty, p.MaxQty, rng),
			Price:    RoundPrice(p.Base + float64(i)*p.Step),
			Symbol:   p.Symbol,
		})
	}
	return out
}

func uniformQty(lo, hi int, rng Rand) int {
	if hi <= lo {
		return lo
	}
	return lo + rng.Intn(hi-lo+1)
}
