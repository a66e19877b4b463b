package sim

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"

	"github.com/uhyunpark/flowgen/pkg/client"
	"github.com/uhyunpark/flowgen/pkg/market"
)

func loadTestFunding(users int, policy FundingPolicy) BootstrapConfig {
	return BootstrapConfig{
		Users:    users,
		Quote:    Grant{Asset: "USD", Amount: 2.5e9},
		Tradable: Grant{Asset: "BTC", Amount: 10000},
		Policy:   policy,
	}
}

func TestBootstrap_EvenIndexesBecomeSellers(t *testing.T) {
	api, book := newStubAPI(t)

	all, sellers, err := NewBootstrapper(api, loadTestFunding(5, BestEffort), nil).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(all) != 5 || len(sellers) != 3 {
		t.Fatalf("got %d participants, %d sellers; want 5, 3", len(all), len(sellers))
	}

	for i, p := range all {
		id := uuid.MustParse(p.ID)
		if usd, _ := book.Balance(id, "USD"); usd != 2.5e9 {
			t.Errorf("participant %d USD = %v", i, usd)
		}
		btc, _ := book.Balance(id, "BTC")
		if wantSeller := i%2 == 0; p.Seller != wantSeller || (btc == 10000) != wantSeller {
			t.Errorf("participant %d seller=%v btc=%v", i, p.Seller, btc)
		}
	}
	for _, s := range sellers {
		if !s.Seller {
			t.Errorf("non-seller %s in sellers", s.ID)
		}
	}
}

func TestBootstrap_FundingPolicy(t *testing.T) {
	// The stub does not route the misspelled path, so every credit is refused.
	ep := client.DefaultEndpoints()
	ep.AddBalance = client.MisspelledAddBalancePath

	t.Run("best effort logs each refusal", func(t *testing.T) {
		api, _ := newStubAPIWith(t, ep)
		logger, logs := observedLogger()

		all, sellers, err := NewBootstrapper(api, loadTestFunding(4, BestEffort), logger).Run(context.Background())
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if len(all) != 4 || len(sellers) != 2 {
			t.Errorf("got %d/%d", len(all), len(sellers))
		}
		if got := logs.FilterMessage("funding_rejected").Len(); got != 6 {
			t.Errorf("funding_rejected logged %d times, want 6", got)
		}
	})

	t.Run("strict aborts", func(t *testing.T) {
		api, _ := newStubAPIWith(t, ep)
		_, _, err := NewBootstrapper(api, loadTestFunding(4, Strict), nil).Run(context.Background())
		if !errors.Is(err, ErrFunding) {
			t.Fatalf("err = %v, want ErrFunding", err)
		}
	})
}

func TestBootstrap_RegistrationFailureAlwaysAborts(t *testing.T) {
	for _, policy := range []FundingPolicy{BestEffort, Strict} {
		t.Run(string(policy), func(t *testing.T) {
			fake := &fakeService{regStatus: http.StatusInternalServerError}
			api := newAPI(t, fake, client.DefaultEndpoints())

			_, _, err := NewBootstrapper(api, loadTestFunding(3, policy), nil).Run(context.Background())
			var se *client.StatusError
			if !errors.Is(err, ErrRegistration) || !errors.As(err, &se) || se.Status != http.StatusInternalServerError {
				t.Fatalf("err = %v", err)
			}
			if n := fake.pathCount("/registerUser"); n != 1 {
				t.Errorf("registration attempted %d times, want 1", n)
			}
		})
	}
}

func TestParseFundingPolicy(t *testing.T) {
	tests := []struct {
		in   string
		want FundingPolicy
		ok   bool
	}{
		{"best_effort", BestEffort, true},
		{" STRICT ", Strict, true},
		{"lenient", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, err := ParseFundingPolicy(tt.in)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("ParseFundingPolicy(%q) = %q, %v", tt.in, got, err)
		}
		if err != nil && !errors.Is(err, ErrUnknownFundingPolicy) {
			t.Errorf("err = %v, want ErrUnknownFundingPolicy", err)
		}
	}
}

func TestSeeder_PlacesBidsThenAsks(t *testing.T) {
	fake := &fakeService{}
	api := newAPI(t, fake, client.DefaultEndpoints())
	all := participants(6)
	p := market.LadderParams{Symbol: "BTC", Base: 30000, Step: 50, Levels: 12, MinQty: 2, MaxQty: 10}

	res, err := NewSeeder(api, p, nil).Seed(context.Background(), all, sellersOf(all))
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if res.Placed != 24 || res.Rejected != 0 {
		t.Fatalf("result = %+v", res)
	}
	for i, o := range fake.orders {
		wantSide := int(market.Buy)
		if i >= 12 {
			wantSide = int(market.Sell)
		}
		if o.Req.Position != wantSide {
			t.Errorf("order %d position = %d, want %d", i, o.Req.Position, wantSide)
		}
		if o.Req.Quantity < 2 || o.Req.Quantity > 10 {
			t.Errorf("order %d quantity = %d", i, o.Req.Quantity)
		}
	}
	if first, last := fake.orders[0].Req.Price, fake.orders[23].Req.Price; first != 29950 || last != 30600 {
		t.Errorf("ladder edges = %v, %v", first, last)
	}
}

func TestSeeder_RejectionsAreLoggedNotFatal(t *testing.T) {
	fake := &fakeService{orderStatus: http.StatusBadRequest}
	api := newAPI(t, fake, client.DefaultEndpoints())
	logger, logs := observedLogger()
	p := market.LadderParams{Symbol: "BTC", Base: 100, Step: 1, Levels: 3, MinQty: 1, MaxQty: 1}

	res, err := NewSeeder(api, p, logger).Seed(context.Background(), participants(2), nil)
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if res.Placed != 0 || res.Rejected != 6 {
		t.Errorf("result = %+v", res)
	}
	if got := logs.FilterMessage("order_rejected").Len(); got != 6 {
		t.Errorf("order_rejected logged %d times", got)
	}
}
