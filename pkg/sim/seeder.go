package sim

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/uhyunpark/flowgen/pkg/client"
	"github.com/uhyunpark/flowgen/pkg/market"
)

// SeedResult counts the ladder orders the service took and refused.
type SeedResult struct {
	Placed   int
	Rejected int
}

// Seeder places the initial bid/ask ladder.
type Seeder struct {
	api    *client.API
	params market.LadderParams
	rng    market.Rand
	logger *zap.SugaredLogger
}

// NewSeeder draws from a time-seeded source of its own, so the seeded
// order flow that follows does not depend on the ladder.
func NewSeeder(api *client.API, p market.LadderParams, logger *zap.SugaredLogger) *Seeder {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Seeder{
		api:    api,
		params: p,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		logger: logger,
	}
}

// Seed submits every bid, then every ask. Rejections are logged and
// seeding carries on.
func (s *Seeder) Seed(ctx context.Context, all, sellers []market.Participant) (SeedResult, error) {
	s.logger.Infow("seeding_ladder",
		"levels", s.params.Levels,
		"step", s.params.Step,
		"min_qty", s.params.MinQty,
		"max_qty", s.params.MaxQty,
	)

	var out SeedResult
	for _, o := range market.BuildLadder(s.params, all, sellers, s.rng) {
		res, err := s.api.PlaceOrder(ctx, o)
		if err != nil {
			return out, err
		}
		if !res.OK() {
			out.Rejected++
			logRejected(s.logger, o, res)
			continue
		}
		out.Placed++
	}

	s.logger.Infow("ladder_seeded", "placed", out.Placed, "rejected", out.Rejected)
	return out, nil
}

func logRejected(logger *zap.SugaredLogger, o market.OrderIntent, res client.Result) {
	logger.Warnw("order_rejected",
		"user_id", o.UserID,
		"side", o.Side,
		"qty", o.Quantity,
		"price", o.Price,
		"status", res.Status,
		"body", string(res.Body),
	)
}
