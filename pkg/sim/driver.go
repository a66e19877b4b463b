package sim

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/uhyunpark/flowgen/pkg/client"
	"github.com/uhyunpark/flowgen/pkg/market"
	"github.com/uhyunpark/flowgen/pkg/util"
)

// Observer is handed control every SampleEvery ticks, after that tick's
// order was submitted.
type Observer interface {
	Observe(ctx context.Context, tick int)
}

type DriverConfig struct {
	Orders      int
	SampleEvery int
	TickDelay   time.Duration
	Seed        int64
	Flow        market.FlowParams
}

// DriverStats summarises one pass of the flow loop.
type DriverStats struct {
	Ticks       int
	Accepted    int
	Rejected    int
	Interrupted bool
	Final       market.PriceState
}

// Driver is the organic order-flow loop. One goroutine, one order per
// tick, strictly in generation order.
type Driver struct {
	api      *client.API
	cfg      DriverConfig
	observer Observer
	logger   *zap.SugaredLogger

	Clock util.Clock
}

func NewDriver(api *client.API, cfg DriverConfig, observer Observer, logger *zap.SugaredLogger) *Driver {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if cfg.SampleEvery <= 0 {
		cfg.SampleEvery = 100
	}
	return &Driver{
		api:      api,
		cfg:      cfg,
		observer: observer,
		logger:   logger,
		Clock:    util.RealClock{},
	}
}

// Run issues cfg.Orders orders. The RNG is seeded here, after bootstrap
// and seeding, so the price path depends only on the seed. Cancelling
// ctx stops the loop between ticks; a call already in flight finishes.
func (d *Driver) Run(ctx context.Context, all, sellers []market.Participant) (DriverStats, error) {
	var stats DriverStats
	if len(all) == 0 || d.cfg.Orders == 0 {
		return stats, nil
	}

	rng := rand.New(rand.NewSource(d.cfg.Seed))
	gen := market.NewFlowGenerator(d.cfg.Flow, all, sellers, rng)
	callCtx := context.WithoutCancel(ctx)

	d.logger.Infow("flow_started",
		"orders", d.cfg.Orders,
		"trend", d.cfg.Flow.Path.Trend,
		"seed", d.cfg.Seed,
	)

	for n := 0; n < d.cfg.Orders; n++ {
		if ctx.Err() != nil {
			stats.Interrupted = true
			d.logger.Warnw("flow_interrupted", "tick", n, "orders", d.cfg.Orders)
			break
		}

		o := gen.Next()
		res, err := d.api.PlaceOrder(callCtx, o)
		if err != nil {
			stats.Final = gen.State()
			return stats, err
		}
		stats.Ticks++
		if res.OK() {
			stats.Accepted++
		} else {
			stats.Rejected++
			logRejected(d.logger, o, res)
		}

		if n%d.cfg.SampleEvery == 0 {
			d.logger.Infow("flow_progress",
				"tick", n,
				"orders", d.cfg.Orders,
				"user", shortID(o.UserID),
				"side", o.Side,
				"qty", o.Quantity,
				"price", o.Price,
				"status", res.Status,
			)
			if d.observer != nil {
				d.observer.Observe(callCtx, n)
			}
		}

		d.Clock.Sleep(d.cfg.TickDelay)
	}

	stats.Final = gen.State()
	d.logger.Infow("flow_complete",
		"ticks", stats.Ticks,
		"accepted", stats.Accepted,
		"rejected", stats.Rejected,
		"final_price", market.RoundPrice(stats.Final.Price),
	)
	return stats, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
