// Package sim drives scenarios against the matching service: account
// bootstrap, ladder seeding, the organic order-flow loop and the fixed
// two-party demo. Every call goes through one client.API, sequentially.
package sim

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/uhyunpark/flowgen/pkg/client"
	"github.com/uhyunpark/flowgen/pkg/market"
)

// FundingPolicy decides what a rejected balance credit does to the run.
type FundingPolicy string

const (
	// BestEffort logs the rejection and keeps going.
	BestEffort FundingPolicy = "best_effort"
	// Strict aborts the run.
	Strict FundingPolicy = "strict"
)

var (
	ErrRegistration         = errors.New("participant registration failed")
	ErrFunding              = errors.New("balance funding failed")
	ErrUnknownFundingPolicy = errors.New("unknown funding policy")
)

func ParseFundingPolicy(s string) (FundingPolicy, error) {
	p := FundingPolicy(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case BestEffort, Strict:
		return p, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFundingPolicy, s)
}

// Grant is an amount of one asset credited to an account.
type Grant struct {
	Asset  string
	Amount float64
}

type BootstrapConfig struct {
	Users int
	// Quote is credited to every participant.
	Quote Grant
	// Tradable is credited to even-indexed participants, who become sellers.
	Tradable Grant
	Policy   FundingPolicy
}

// funder is the single place balances are credited, so every scenario
// posts to the same configured add-balance path.
type funder struct {
	api    *client.API
	policy FundingPolicy
	logger *zap.SugaredLogger
}

func (f funder) fund(ctx context.Context, userID string, g Grant) error {
	res, err := f.api.AddBalance(ctx, userID, g.Asset, g.Amount)
	if err != nil {
		return err
	}
	if res.OK() {
		return nil
	}
	if f.policy == Strict {
		return fmt.Errorf("%w: %s %v for %s: %d %s", ErrFunding, g.Asset, g.Amount, userID, res.Status, res.Body)
	}
	f.logger.Warnw("funding_rejected",
		"user_id", userID,
		"asset", g.Asset,
		"amount", g.Amount,
		"status", res.Status,
		"body", string(res.Body),
	)
	return nil
}

// Bootstrapper registers and funds the synthetic participants.
type Bootstrapper struct {
	api    *client.API
	cfg    BootstrapConfig
	logger *zap.SugaredLogger
}

func NewBootstrapper(api *client.API, cfg BootstrapConfig, logger *zap.SugaredLogger) *Bootstrapper {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Bootstrapper{api: api, cfg: cfg, logger: logger}
}

// Run registers cfg.Users participants, then funds them. Registration
// failures always abort; funding failures follow cfg.Policy. Every
// participant at an even index is funded with the tradable asset and
// returned in sellers as well as all.
func (b *Bootstrapper) Run(ctx context.Context) (all, sellers []market.Participant, err error) {
	all = make([]market.Participant, 0, b.cfg.Users)
	for i := 0; i < b.cfg.Users; i++ {
		id, err := b.api.RegisterUser(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: participant %d: %w", ErrRegistration, i, err)
		}
		all = append(all, market.Participant{ID: id, Seller: i%2 == 0})
	}
	b.logger.Infow("participants_registered", "count", len(all))

	f := funder{api: b.api, policy: b.cfg.Policy, logger: b.logger}
	for _, p := range all {
		if err := f.fund(ctx, p.ID, b.cfg.Quote); err != nil {
			return nil, nil, err
		}
		if p.Seller {
			if err := f.fund(ctx, p.ID, b.cfg.Tradable); err != nil {
				return nil, nil, err
			}
			sellers = append(sellers, p)
		}
	}
	b.logger.Infow("participants_funded",
		"quote_asset", b.cfg.Quote.Asset,
		"tradable_asset", b.cfg.Tradable.Asset,
		"sellers", len(sellers),
		"total", len(all),
		"policy", b.cfg.Policy,
	)
	return all, sellers, nil
}
