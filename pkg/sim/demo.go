package sim

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/uhyunpark/flowgen/pkg/client"
	"github.com/uhyunpark/flowgen/pkg/market"
)

// DemoAccount is one demo participant's starting balances.
type DemoAccount struct {
	Quote    float64
	Tradable float64
}

// DemoOrder is a fixed order placed by Accounts[Account].
type DemoOrder struct {
	Account  int
	Side     market.Side
	Quantity int
	Price    float64
}

type DemoScenario struct {
	Symbol     string
	QuoteAsset string
	Policy     FundingPolicy
	Accounts   []DemoAccount
	Orders     []DemoOrder
}

// DefaultDemoScenario is two accounts crossing a handful of orders
// around 150.
func DefaultDemoScenario(symbol, quote string) DemoScenario {
	return DemoScenario{
		Symbol:     symbol,
		QuoteAsset: quote,
		Policy:     Strict,
		Accounts: []DemoAccount{
			{Quote: 50000, Tradable: 200},
			{Quote: 25000, Tradable: 100},
		},
		Orders: []DemoOrder{
			{Account: 0, Side: market.Buy, Quantity: 50, Price: 150.25},
			{Account: 0, Side: market.Buy, Quantity: 30, Price: 149.80},
			{Account: 1, Side: market.Sell, Quantity: 40, Price: 150.00},
			{Account: 1, Side: market.Sell, Quantity: 20, Price: 151.00},
		},
	}
}

// Demo walks the scenario step by step, printing each response to out.
// Any refused call ends the demo with an error.
type Demo struct {
	api    *client.API
	sc     DemoScenario
	out    io.Writer
	logger *zap.SugaredLogger
}

func NewDemo(api *client.API, sc DemoScenario, out io.Writer, logger *zap.SugaredLogger) *Demo {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Demo{api: api, sc: sc, out: out, logger: logger}
}

func (d *Demo) Run(ctx context.Context) error {
	fmt.Fprintln(d.out, "Registering users...")
	ids := make([]string, len(d.sc.Accounts))
	for i := range d.sc.Accounts {
		id, err := d.api.RegisterUser(ctx)
		if err != nil {
			return fmt.Errorf("%w: demo user %d: %w", ErrRegistration, i+1, err)
		}
		ids[i] = id
		fmt.Fprintf(d.out, "User%d: %s\n", i+1, id)
	}

	fmt.Fprintln(d.out, "Funding users...")
	f := funder{api: d.api, policy: d.sc.Policy, logger: d.logger}
	for i, acc := range d.sc.Accounts {
		if err := f.fund(ctx, ids[i], Grant{Asset: d.sc.QuoteAsset, Amount: acc.Quote}); err != nil {
			return err
		}
	}
	for i, acc := range d.sc.Accounts {
		if err := f.fund(ctx, ids[i], Grant{Asset: d.sc.Symbol, Amount: acc.Tradable}); err != nil {
			return err
		}
	}
	fmt.Fprintln(d.out, "Balances updated.")

	fmt.Fprintln(d.out, "Placing orders...")
	for _, o := range d.sc.Orders {
		if o.Account < 0 || o.Account >= len(ids) {
			return fmt.Errorf("demo order references account %d of %d", o.Account, len(ids))
		}
		uid := ids[o.Account]
		res, err := d.api.PlaceOrder(ctx, market.OrderIntent{
			UserID:   uid,
			Side:     o.Side,
			Quantity: o.Quantity,
			Price:    o.Price,
			Symbol:   d.sc.Symbol,
		})
		if err != nil {
			return err
		}
		if !res.OK() {
			return &client.StatusError{Op: "order for " + uid, Status: res.Status, Body: string(res.Body)}
		}
		fmt.Fprintf(d.out, "Order for %s: %s\n", uid, res.Body)
	}

	fmt.Fprintln(d.out, "\nOrder book:")
	res, err := d.api.OrderBook(ctx)
	if err != nil {
		return err
	}
	if !res.OK() {
		return &client.StatusError{Op: "getOrderBook", Status: res.Status, Body: string(res.Body)}
	}
	printJSON(d.out, res.Body)

	fmt.Fprintln(d.out, "\nUsers:")
	res, _, err = d.api.Users(ctx)
	if err != nil && res.Status == 0 {
		return err
	}
	if !res.OK() {
		return &client.StatusError{Op: "getUsers", Status: res.Status, Body: string(res.Body)}
	}
	printJSON(d.out, res.Body)
	return nil
}

// printJSON indents body when it parses and prints it verbatim otherwise.
func printJSON(w io.Writer, body []byte) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, body, "", "  "); err != nil {
		fmt.Fprintln(w, string(body))
		return
	}
	fmt.Fprintln(w, buf.String())
}
