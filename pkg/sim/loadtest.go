package sim

import (
	"context"

	"go.uber.org/zap"

	"github.com/uhyunpark/flowgen/pkg/client"
	"github.com/uhyunpark/flowgen/pkg/market"
	"github.com/uhyunpark/flowgen/pkg/util"
)

type LoadTestConfig struct {
	Bootstrap BootstrapConfig
	Ladder    market.LadderParams
	Driver    DriverConfig
}

// LoadTestResult is what a finished (or interrupted) run reports.
type LoadTestResult struct {
	Participants int
	Sellers      int
	Seed         SeedResult
	Flow         DriverStats
	// Users is the service's user count after the run, -1 if unknown.
	Users int
}

// LoadTest runs bootstrap, seeding and organic flow in that order.
type LoadTest struct {
	api      *client.API
	cfg      LoadTestConfig
	observer Observer
	logger   *zap.SugaredLogger

	Clock util.Clock
}

func NewLoadTest(api *client.API, cfg LoadTestConfig, observer Observer, logger *zap.SugaredLogger) *LoadTest {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &LoadTest{
		api:      api,
		cfg:      cfg,
		observer: observer,
		logger:   logger,
		Clock:    util.RealClock{},
	}
}

func (lt *LoadTest) Run(ctx context.Context) (LoadTestResult, error) {
	out := LoadTestResult{Users: -1}

	all, sellers, err := NewBootstrapper(lt.api, lt.cfg.Bootstrap, lt.logger).Run(ctx)
	if err != nil {
		return out, err
	}
	out.Participants, out.Sellers = len(all), len(sellers)

	out.Seed, err = NewSeeder(lt.api, lt.cfg.Ladder, lt.logger).Seed(ctx, all, sellers)
	if err != nil {
		return out, err
	}

	d := NewDriver(lt.api, lt.cfg.Driver, lt.observer, lt.logger)
	d.Clock = lt.Clock
	out.Flow, err = d.Run(ctx, all, sellers)
	if err != nil {
		return out, err
	}

	res, n, err := lt.api.Users(context.WithoutCancel(ctx))
	switch {
	case err != nil:
		lt.logger.Warnw("users_query_failed", "err", err)
	case !res.OK():
		lt.logger.Warnw("users_query_failed", "status", res.Status, "body", string(res.Body))
	default:
		out.Users = n
		lt.logger.Infow("total_users", "count", n)
	}
	return out, nil
}
