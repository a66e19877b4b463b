package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/uhyunpark/flowgen/pkg/market"
)

// MisspelledAddBalancePath is the transposed-letter funding path the
// two-party demo historically posted to. Kept addressable so a
// deployment that still routes it can opt in via configuration.
const MisspelledAddBalancePath = "/addBalcne"

// Endpoints are the request paths of the matching service.
type Endpoints struct {
	RegisterUser string `mapstructure:"register_user"`
	AddBalance   string `mapstructure:"add_balance"`
	Order        string `mapstructure:"order"`
	TopOfBook    string `mapstructure:"top_of_book"`
	OrderBook    string `mapstructure:"order_book"`
	Users        string `mapstructure:"users"`
}

func DefaultEndpoints() Endpoints {
	return Endpoints{
		RegisterUser: "/registerUser",
		AddBalance:   "/addBalance",
		Order:        "/order",
		TopOfBook:    "/topOfBook",
		OrderBook:    "/getOrderBook",
		Users:        "/getUsers",
	}
}

// Result is a completed HTTP exchange.
type Result struct {
	Status int
	Body   []byte
}

func (r Result) OK() bool { return r.Status == http.StatusOK }

// StatusError reports a call that completed with an unexpected status.
type StatusError struct {
	Op     string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s failed: %d %s", e.Op, e.Status, e.Body)
}

// ErrIncompleteTop is returned when the book has no price on one side or
// the response cannot be read.
var ErrIncompleteTop = errors.New("top of book incomplete")

// Caller is satisfied by *Client.
type Caller interface {
	Call(ctx context.Context, method, path string, payload any) (int, []byte, error)
}

// API wraps a Caller with the service's typed operations.
type API struct {
	c         Caller
	endpoints Endpoints
}

func NewAPI(c Caller, endpoints Endpoints) *API {
	return &API{c: c, endpoints: endpoints}
}

func (a *API) Endpoints() Endpoints { return a.endpoints }

func (a *API) call(ctx context.Context, method, path string, payload any) (Result, error) {
	status, body, err := a.c.Call(ctx, method, path, payload)
	if err != nil {
		return Result{}, err
	}
	return Result{Status: status, Body: body}, nil
}

func withUser(path, userID string) string {
	return path + "?userId=" + url.QueryEscape(userID)
}

type registerResponse struct {
	UserID string `json:"userId"`
}

// RegisterUser creates a participant and returns its ID.
func (a *API) RegisterUser(ctx context.Context) (string, error) {
	res, err := a.call(ctx, http.MethodPost, a.endpoints.RegisterUser, nil)
	if err != nil {
		return "", err
	}
	if !res.OK() {
		return "", &StatusError{Op: "registerUser", Status: res.Status, Body: string(res.Body)}
	}
	var out registerResponse
	if err := json.Unmarshal(res.Body, &out); err != nil {
		return "", fmt.Errorf("decode registerUser response: %w", err)
	}
	if out.UserID == "" {
		return "", fmt.Errorf("registerUser response has no userId: %s", res.Body)
	}
	return out.UserID, nil
}

type balanceRequest struct {
	Asset  string  `json:"asset"`
	Amount float64 `json:"amount"`
}

// AddBalance credits amount of asset to userID.
func (a *API) AddBalance(ctx context.Context, userID, asset string, amount float64) (Result, error) {
	return a.call(ctx, http.MethodPost, withUser(a.endpoints.AddBalance, userID), balanceRequest{Asset: asset, Amount: amount})
}

// OrderRequest is the /order body. Position is 0 for BUY, 1 for SELL.
type OrderRequest struct {
	Position int     `json:"position"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
	Ticker   string  `json:"ticker"`
}

func NewOrderRequest(o market.OrderIntent) OrderRequest {
	return OrderRequest{
		Position: int(o.Side),
		Quantity: o.Quantity,
		Price:    o.Price,
		Ticker:   o.Symbol,
	}
}

// PlaceOrder submits o on behalf of o.UserID.
func (a *API) PlaceOrder(ctx context.Context, o market.OrderIntent) (Result, error) {
	return a.call(ctx, http.MethodPost, withUser(a.endpoints.Order, o.UserID), NewOrderRequest(o))
}

type priceLevel struct {
	Price *float64 `json:"price"`
}

type topResponse struct {
	Buy  *priceLevel `json:"buy"`
	Sell *priceLevel `json:"sell"`
}

// Top is the best price on each side.
type Top struct {
	Buy  float64
	Sell float64
}

// TopOfBook fetches the best prices. Anything short of a 200 with both
// sides priced yields ErrIncompleteTop; transport failures pass through.
func (a *API) TopOfBook(ctx context.Context) (Top, error) {
	res, err := a.call(ctx, http.MethodGet, a.endpoints.TopOfBook, nil)
	if err != nil {
		return Top{}, err
	}
	if !res.OK() {
		return Top{}, fmt.Errorf("%w: status %d", ErrIncompleteTop, res.Status)
	}
	return ParseTop(res.Body)
}

// ParseTop decodes a top-of-book body.
func ParseTop(body []byte) (Top, error) {
	var out topResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return Top{}, fmt.Errorf("%w: %v", ErrIncompleteTop, err)
	}
	if out.Buy == nil || out.Buy.Price == nil || out.Sell == nil || out.Sell.Price == nil {
		return Top{}, ErrIncompleteTop
	}
	return Top{Buy: *out.Buy.Price, Sell: *out.Sell.Price}, nil
}

// OrderBook fetches the raw book snapshot.
func (a *API) OrderBook(ctx context.Context) (Result, error) {
	return a.call(ctx, http.MethodGet, a.endpoints.OrderBook, nil)
}

// Users fetches the registered users and, when the body is a JSON array
// or object, how many there are.
func (a *API) Users(ctx context.Context) (Result, int, error) {
	res, err := a.call(ctx, http.MethodGet, a.endpoints.Users, nil)
	if err != nil || !res.OK() {
		return res, 0, err
	}
	n, err := CountCollection(res.Body)
	return res, n, err
}

// CountCollection returns the length of a JSON array or object.
func CountCollection(body []byte) (int, error) {
	var list []json.RawMessage
	if err := json.Unmarshal(body, &list); err == nil {
		return len(list), nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return 0, fmt.Errorf("users response is not a collection: %w", err)
	}
	return len(obj), nil
}
