package sim

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/uhyunpark/flowgen/pkg/client"
	"github.com/uhyunpark/flowgen/pkg/market"
	"github.com/uhyunpark/flowgen/pkg/util"
)

func smallLoadTest(users, orders int, policy FundingPolicy) LoadTestConfig {
	return LoadTestConfig{
		Bootstrap: loadTestFunding(users, policy),
		Ladder:    market.LadderParams{Symbol: "BTC", Base: 30000, Step: 50, Levels: 4, MinQty: 2, MaxQty: 10},
		Driver:    defaultDriverConfig(orders),
	}
}

func TestLoadTest_AgainstStub(t *testing.T) {
	api, book := newStubAPI(t)
	obs := &tickRecorder{}

	lt := NewLoadTest(api, smallLoadTest(6, 150, BestEffort), obs, nil)
	lt.Clock = &util.ManualClock{}
	res, err := lt.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.Participants != 6 || res.Sellers != 3 || res.Users != 6 {
		t.Errorf("result = %+v", res)
	}
	if res.Seed.Placed != 8 {
		t.Errorf("seed = %+v", res.Seed)
	}
	// Everyone is funded far beyond what these orders need.
	if res.Flow.Accepted != 150 || res.Flow.Rejected != 0 {
		t.Errorf("flow = %+v", res.Flow)
	}
	if accepted, _ := book.Counts(); accepted != 158 {
		t.Errorf("book accepted %d orders, want 158", accepted)
	}
	if len(obs.ticks) != 2 {
		t.Errorf("observed %v", obs.ticks)
	}
}

func TestDemo_AgainstStub(t *testing.T) {
	api, book := newStubAPI(t)
	var out bytes.Buffer

	if err := NewDemo(api, DefaultDemoScenario("AAPL", "USD"), &out, nil).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	text := out.String()
	if n := strings.Count(text, "Order recieved"); n != 4 {
		t.Errorf("%d order acknowledgements in output:\n%s", n, text)
	}
	for _, want := range []string{"User1: ", "User2: ", "Balances updated.", "Order book:", `"price": 150.25`, "Users:", `"AAPL": 200`} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}

	snap := book.Snapshot()
	if len(snap.Bids) != 2 || len(snap.Asks) != 2 || snap.Bids[0].Price != 150.25 || snap.Asks[0].Price != 150 {
		t.Errorf("book = %+v", snap)
	}
}

func TestDemo_StrictFundingAborts(t *testing.T) {
	ep := client.DefaultEndpoints()
	ep.AddBalance = client.MisspelledAddBalancePath
	api, book := newStubAPIWith(t, ep)

	err := NewDemo(api, DefaultDemoScenario("AAPL", "USD"), &bytes.Buffer{}, nil).Run(context.Background())
	if !errors.Is(err, ErrFunding) {
		t.Fatalf("err = %v, want ErrFunding", err)
	}
	if accepted, rejected := book.Counts(); accepted+rejected != 0 {
		t.Error("orders placed after funding failed")
	}
}

func TestDemo_RejectedOrderIsFatal(t *testing.T) {
	api, _ := newStubAPI(t)
	sc := DefaultDemoScenario("AAPL", "USD")
	sc.Orders = append(sc.Orders, DemoOrder{Account: 1, Side: market.Sell, Quantity: 1000, Price: 150})

	err := NewDemo(api, sc, &bytes.Buffer{}, nil).Run(context.Background())
	var se *client.StatusError
	if !errors.As(err, &se) || se.Status != 400 {
		t.Fatalf("err = %v, want 400 StatusError", err)
	}
}

// Both scenarios credit balances through the configured path, whatever
// it is set to.
func TestFundingCallSitesShareConfiguredPath(t *testing.T) {
	ep := client.DefaultEndpoints()
	ep.AddBalance = "/v2/credit"
	ctx := context.Background()

	loadFake := &fakeService{}
	lt := NewLoadTest(newAPI(t, loadFake, ep), smallLoadTest(4, 0, Strict), nil, nil)
	if _, err := lt.Run(ctx); err != nil {
		t.Fatalf("load test: %v", err)
	}

	demoFake := &fakeService{}
	if err := NewDemo(newAPI(t, demoFake, ep), DefaultDemoScenario("AAPL", "USD"), &bytes.Buffer{}, nil).Run(ctx); err != nil {
		t.Fatalf("demo: %v", err)
	}

	for name, fake := range map[string]*fakeService{"load test": loadFake, "demo": demoFake} {
		for _, wrong := range []string{"/addBalance", client.MisspelledAddBalancePath} {
			if n := fake.pathCount(wrong); n != 0 {
				t.Errorf("%s posted %d credits to %s", name, n, wrong)
			}
		}
	}
	if n := loadFake.pathCount("/v2/credit"); n != 6 {
		t.Errorf("load test credits = %d, want 6", n)
	}
	if n := demoFake.pathCount("/v2/credit"); n != 4 {
		t.Errorf("demo credits = %d, want 4", n)
	}
}
