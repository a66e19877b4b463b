// Package report observes the book while a run is in progress and
// presents what it saw afterwards.
package report

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/uhyunpark/flowgen/pkg/client"
)

// Sample is one top-of-book observation.
type Sample struct {
	Tick     int     `json:"tick"`
	BestBuy  float64 `json:"best_buy"`
	BestSell float64 `json:"best_sell"`
}

// Spread is best buy minus best sell. It is negative on a healthy book.
func (s Sample) Spread() float64 { return s.BestBuy - s.BestSell }

// TopSource is satisfied by *client.API.
type TopSource interface {
	TopOfBook(ctx context.Context) (client.Top, error)
}

// Sink receives each sample as it is recorded.
type Sink interface {
	Publish(runID string, s Sample) error
}

// Recorder collects samples for one run.
type Recorder struct {
	src    TopSource
	runID  string
	sinks  []Sink
	logger *zap.SugaredLogger

	mu      sync.Mutex
	samples []Sample
}

func NewRecorder(src TopSource, runID string, logger *zap.SugaredLogger, sinks ...Sink) *Recorder {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Recorder{src: src, runID: runID, sinks: sinks, logger: logger}
}

// Observe queries the top of book and records it. Incomplete or
// unreadable answers are dropped without retry.
func (r *Recorder) Observe(ctx context.Context, tick int) {
	top, err := r.src.TopOfBook(ctx)
	if err != nil {
		return
	}
	s := Sample{Tick: tick, BestBuy: top.Buy, BestSell: top.Sell}
	r.Record(s)
	r.logger.Infow("top_of_book",
		"tick", tick,
		"buy", s.BestBuy,
		"sell", s.BestSell,
		"spread", s.Spread(),
	)
}

// Record appends s and forwards it to the sinks. Sink failures are
// logged; the sample stays recorded.
func (r *Recorder) Record(s Sample) {
	r.mu.Lock()
	r.samples = append(r.samples, s)
	r.mu.Unlock()

	for _, sink := range r.sinks {
		if err := sink.Publish(r.runID, s); err != nil {
			r.logger.Warnw("sample_sink_failed", "run_id", r.runID, "tick", s.Tick, "err", err)
		}
	}
}

func (r *Recorder) RunID() string { return r.runID }

// Samples returns a copy of what has been recorded so far.
func (r *Recorder) Samples() []Sample {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Sample, len(r.samples))
	copy(out, r.samples)
	return out
}
