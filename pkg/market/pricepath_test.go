package market

import (
	"math"
	"math/rand"
	"testing"
)

// scriptedRand replays fixed draws so single branches can be checked by hand.
type scriptedRand struct {
	norms  []float64
	floats []float64
	ints   []int
}

func (r *scriptedRand) NormFloat64() float64 {
	v := r.norms[0]
	r.norms = r.norms[1:]
	return v
}

func (r *scriptedRand) Float64() float64 {
	v := r.floats[0]
	r.floats = r.floats[1:]
	return v
}

func (r *scriptedRand) Intn(n int) int {
	v := r.ints[0]
	r.ints = r.ints[1:]
	return v % n
}

func defaultPath(trend Trend) PathParams {
	return PathParams{
		Trend:      trend,
		Base:       30000,
		Spread:     1200,
		TrendRate:  0.5,
		Volatility: 1.5,
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// Pinned against math/rand seeded with 42. Any change to the update
// rules or to the order of draws breaks this.
func TestStep_SeededRegression(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	_, first := Step(NewPriceState(30000), defaultPath(Uptrend), rng)
	if first != 30100.94 {
		t.Fatalf("first uptrend price = %.2f, want 30100.94", first)
	}

	got := Path(defaultPath(Uptrend), rand.New(rand.NewSource(42)), 5)
	want := []float64{30100.94, 31096.74, 32062.42, 32566.57, 31899.87}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("price[%d] = %.2f, want %.2f", i, got[i], want[i])
		}
	}
}

func TestStep_Branches(t *testing.T) {
	tests := []struct {
		name         string
		trend        Trend
		start        PriceState
		norms        []float64
		wantPrice    float64
		wantMomentum float64
	}{
		{
			name:         "uptrend adds drift, momentum and noise",
			trend:        Uptrend,
			start:        PriceState{Price: 30000, Momentum: 0},
			norms:        []float64{1.0, 0.25},
			wantMomentum: 0.3,
			wantPrice:    30000 + 0.5 + 0.15 + 200,
		},
		{
			name:         "downtrend subtracts drift",
			trend:        Downtrend,
			start:        PriceState{Price: 30000, Momentum: 1},
			norms:        []float64{0, -0.5},
			wantMomentum: 0.7,
			wantPrice:    30000 - 0.5 + 0.35 - 400,
		},
		{
			name:         "sideways pulls toward base",
			trend:        Sideways,
			start:        PriceState{Price: 31000, Momentum: 2},
			norms:        []float64{0},
			wantMomentum: 2,
			wantPrice:    31000 - 20,
		},
		{
			name:         "volatile uses the full spread",
			trend:        Volatile,
			start:        PriceState{Price: 30000, Momentum: 5},
			norms:        []float64{-1},
			wantMomentum: 5,
			wantPrice:    28800,
		},
		{
			name:         "clamped at the floor",
			trend:        Volatile,
			start:        PriceState{Price: 500},
			norms:        []float64{-10},
			wantMomentum: 0,
			wantPrice:    PriceFloor,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rng := &scriptedRand{norms: tt.norms}
			next, px := Step(tt.start, defaultPath(tt.trend), rng)
			if !almostEqual(next.Price, tt.wantPrice) {
				t.Errorf("price = %v, want %v", next.Price, tt.wantPrice)
			}
			if !almostEqual(next.Momentum, tt.wantMomentum) {
				t.Errorf("momentum = %v, want %v", next.Momentum, tt.wantMomentum)
			}
			if px != RoundPrice(tt.wantPrice) {
				t.Errorf("order price = %v, want %v", px, RoundPrice(tt.wantPrice))
			}
			if len(rng.norms) != 0 {
				t.Errorf("%d normal draws left unused", len(rng.norms))
			}
		})
	}
}

func TestStep_NeverBelowFloor(t *testing.T) {
	for _, trend := range Trends() {
		t.Run(string(trend), func(t *testing.T) {
			p := defaultPath(trend)
			p.Spread = 50000
			p.Volatility = 1
			rng := rand.New(rand.NewSource(3))
			s := NewPriceState(p.Base)
			for i := 0; i < 5000; i++ {
				var px float64
				s, px = Step(s, p, rng)
				if s.Price < PriceFloor || px < PriceFloor {
					t.Fatalf("tick %d: price %v below floor", i, s.Price)
				}
			}
		})
	}
}

func meanTerminal(trend Trend, seeds int) float64 {
	p := defaultPath(trend)
	p.Spread = 10
	p.Volatility = 10
	var sum float64
	for seed := 1; seed <= seeds; seed++ {
		prices := Path(p, rand.New(rand.NewSource(int64(seed))), 500)
		sum += prices[len(prices)-1]
	}
	return sum / float64(seeds)
}

func TestStep_TrendDirection(t *testing.T) {
	if up := meanTerminal(Uptrend, 20); up <= 30000 {
		t.Errorf("uptrend mean terminal = %.2f, want > 30000", up)
	}
	if down := meanTerminal(Downtrend, 20); down >= 30000 {
		t.Errorf("downtrend mean terminal = %.2f, want < 30000", down)
	}
}

func mean(xs []float64) float64 {
	var s float64
	for _, x := range xs {
		s += x
	}
	return s / float64(len(xs))
}

func variance(xs []float64) float64 {
	m := mean(xs)
	var s float64
	for _, x := range xs {
		s += (x - m) * (x - m)
	}
	return s / float64(len(xs))
}

func TestStep_SidewaysRevertsToBase(t *testing.T) {
	p := defaultPath(Sideways)
	for seed := int64(1); seed <= 5; seed++ {
		prices := Path(p, rand.New(rand.NewSource(seed)), 20000)
		if dev := math.Abs(mean(prices) - p.Base); dev > 2000 {
			t.Errorf("seed %d: mean deviates from base by %.2f", seed, dev)
		}
	}
}

func TestStep_VolatileDispersesMoreThanSideways(t *testing.T) {
	vol := Path(defaultPath(Volatile), rand.New(rand.NewSource(7)), 1000)
	side := Path(defaultPath(Sideways), rand.New(rand.NewSource(7)), 1000)
	if variance(vol) <= variance(side) {
		t.Errorf("volatile variance %.0f <= sideways variance %.0f", variance(vol), variance(side))
	}
}

func TestParseTrend(t *testing.T) {
	for _, s := range []string{"uptrend", "Downtrend", " sideways ", "VOLATILE"} {
		if _, err := ParseTrend(s); err != nil {
			t.Errorf("ParseTrend(%q): %v", s, err)
		}
	}
	if _, err := ParseTrend("crash"); err == nil {
		t.Error("expected error for unknown trend")
	}
}

func TestRoundPrice(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{29950, 29950},
		{30100.937914045408, 30100.94},
		{100.004, 100},
		{1.005, 1.01},
	}
	for _, tt := range tests {
		if got := RoundPrice(tt.in); got != tt.want {
			t.Errorf("RoundPrice(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
