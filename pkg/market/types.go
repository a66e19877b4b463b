package market

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Side is the wire value of an order's position: 0 = BUY, 1 = SELL.
type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return fmt.Sprintf("Side(%d)", int(s))
	}
}

// Participant is a synthetic account registered on the remote service.
// Balances are held remotely; Seller marks accounts funded with the
// tradable asset.
type Participant struct {
	ID     string
	Seller bool
}

// OrderIntent is one order about to be submitted.
type OrderIntent struct {
	UserID   string
	Side     Side
	Quantity int
	Price    float64
	Symbol   string
}

// Trend selects the branch of the price-path update.
type Trend string

const (
	Uptrend   Trend = "uptrend"
	Downtrend Trend = "downtrend"
	Sideways  Trend = "sideways"
	Volatile  Trend = "volatile"
)

var ErrUnknownTrend = errors.New("unknown trend mode")

// Trends lists the accepted modes in display order.
func Trends() []Trend {
	return []Trend{Uptrend, Downtrend, Sideways, Volatile}
}

// ParseTrend accepts the four literal mode names, case-insensitively.
func ParseTrend(s string) (Trend, error) {
	t := Trend(strings.ToLower(strings.TrimSpace(s)))
	switch t {
	case Uptrend, Downtrend, Sideways, Volatile:
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTrend, s)
}

// Rand is the subset of *rand.Rand the generator draws from.
type Rand interface {
	Float64() float64
	NormFloat64() float64
	Intn(n int) int
}

// RoundPrice rounds to cents, half away from zero.
func RoundPrice(p float64) float64 {
	return decimal.NewFromFloat(p).Round(2).InexactFloat64()
}
