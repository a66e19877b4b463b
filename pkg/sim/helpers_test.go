package sim

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/uhyunpark/flowgen/pkg/client"
	"github.com/uhyunpark/flowgen/pkg/market"
	"github.com/uhyunpark/flowgen/pkg/stub"
)

type orderCall struct {
	UserID string
	Req    client.OrderRequest
}

// fakeService accepts everything and records what it was sent.
type fakeService struct {
	mu          sync.Mutex
	registered  int
	paths       []string
	orders      []orderCall
	orderStatus int
	regStatus   int
}

func (f *fakeService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths = append(f.paths, r.URL.Path)

	switch r.URL.Path {
	case "/registerUser":
		if f.regStatus != 0 {
			http.Error(w, "registration closed", f.regStatus)
			return
		}
		fmt.Fprintf(w, `{"userId":"user-%d"}`, f.registered)
		f.registered++
	case "/order":
		var req client.OrderRequest
		json.NewDecoder(r.Body).Decode(&req)
		f.orders = append(f.orders, orderCall{UserID: r.URL.Query().Get("userId"), Req: req})
		if f.orderStatus != 0 {
			http.Error(w, "rejected", f.orderStatus)
			return
		}
		fmt.Fprint(w, "Order recieved")
	case "/topOfBook":
		fmt.Fprint(w, `{"buy":{"price":29950},"sell":{"price":30050}}`)
	case "/getUsers", "/getOrderBook":
		fmt.Fprint(w, `[]`)
	}
}

func (f *fakeService) pathCount(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, p := range f.paths {
		if p == path {
			n++
		}
	}
	return n
}

func newAPI(t *testing.T, h http.Handler, ep client.Endpoints) *client.API {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	c := client.New(ts.URL, 5*time.Second, nil)
	c.Fatal = func(err error) { t.Fatalf("transport failure: %v", err) }
	return client.NewAPI(c, ep)
}

func newStubAPI(t *testing.T) (*client.API, *stub.Book) {
	t.Helper()
	return newStubAPIWith(t, client.DefaultEndpoints())
}

func newStubAPIWith(t *testing.T, ep client.Endpoints) (*client.API, *stub.Book) {
	t.Helper()
	book := stub.NewBook()
	return newAPI(t, stub.NewServer(book, nil).Handler(), ep), book
}

func observedLogger() (*zap.SugaredLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.InfoLevel)
	return zap.New(core).Sugar(), logs
}

func participants(n int) []market.Participant {
	out := make([]market.Participant, n)
	for i := range out {
		out[i] = market.Participant{ID: fmt.Sprintf("u%d", i), Seller: i%2 == 0}
	}
	return out
}

func sellersOf(all []market.Participant) []market.Participant {
	var out []market.Participant
	for _, p := range all {
		if p.Seller {
			out = append(out, p)
		}
	}
	return out
}

func defaultDriverConfig(orders int) DriverConfig {
	return DriverConfig{
		Orders:      orders,
		SampleEvery: 100,
		TickDelay:   5 * time.Millisecond,
		Seed:        42,
		Flow: market.FlowParams{
			Symbol:     "BTC",
			MinQty:     2,
			MaxQty:     8,
			WavePeriod: 60,
			WaveBias:   0.65,
			Path: market.PathParams{
				Trend:      market.Uptrend,
				Base:       30000,
				Spread:     1200,
				TrendRate:  0.5,
				Volatility: 1.5,
			},
		},
	}
}

type tickRecorder struct {
	ticks  []int
	onTick func(tick int)
}

func (r *tickRecorder) Observe(_ context.Context, tick int) {
	r.ticks = append(r.ticks, tick)
	if r.onTick != nil {
		r.onTick(tick)
	}
}
