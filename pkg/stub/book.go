package stub

import (
	"container/heap"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Level is the resting quantity at one price.
type Level struct {
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// Snapshot is the full book, bids high to low and asks low to high.
type Snapshot struct {
	Bids []Level `json:"bids"`
	Asks []Level `json:"asks"`
}

// TopOfBook mirrors the service's response: a side is null when empty.
type TopOfBook struct {
	Buy  *Level `json:"buy"`
	Sell *Level `json:"sell"`
}

// User is a registered account and its balances.
type User struct {
	UserID  uuid.UUID          `json:"userId"`
	Balance map[string]float64 `json:"balance"`
}

// Book keeps users and resting orders. Orders are aggregated per price
// and never matched, so the top of book can cross.
type Book struct {
	mu sync.RWMutex

	users map[uuid.UUID]*User
	order []uuid.UUID // registration order

	bidHeap *maxPriceHeap
	askHeap *minPriceHeap
	bids    map[float64]int
	asks    map[float64]int

	accepted int
	rejected int
}

func NewBook() *Book {
	bidHeap := &maxPriceHeap{}
	askHeap := &minPriceHeap{}
	heap.Init(bidHeap)
	heap.Init(askHeap)

	return &Book{
		users:   make(map[uuid.UUID]*User),
		bidHeap: bidHeap,
		askHeap: askHeap,
		bids:    make(map[float64]int),
		asks:    make(map[float64]int),
	}
}

func (b *Book) Register() User {
	b.mu.Lock()
	defer b.mu.Unlock()

	u := &User{UserID: uuid.New(), Balance: make(map[string]float64)}
	b.users[u.UserID] = u
	b.order = append(b.order, u.UserID)
	return *u
}

func (b *Book) AddBalance(id uuid.UUID, asset string, amount float64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	u, ok := b.users[id]
	if !ok {
		return false
	}
	u.Balance[asset] += amount
	return true
}

func (b *Book) Balance(id uuid.UUID, asset string) (float64, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	u, ok := b.users[id]
	if !ok {
		return 0, false
	}
	return u.Balance[asset], true
}

func (b *Book) Users() []User {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]User, 0, len(b.order))
	for _, id := range b.order {
		u := b.users[id]
		bal := make(map[string]float64, len(u.Balance))
		for k, v := range u.Balance {
			bal[k] = v
		}
		out = append(out, User{UserID: u.UserID, Balance: bal})
	}
	return out
}

func (b *Book) rest(position int, price float64, qty int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.accepted++
	if position == positionBuy {
		if b.bids[price] == 0 {
			heap.Push(b.bidHeap, price)
		}
		b.bids[price] += qty
		return
	}
	if b.asks[price] == 0 {
		heap.Push(b.askHeap, price)
	}
	b.asks[price] += qty
}

func (b *Book) reject() {
	b.mu.Lock()
	b.rejected++
	b.mu.Unlock()
}

// Counts returns how many orders were rested and how many were refused.
func (b *Book) Counts() (accepted, rejected int) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.accepted, b.rejected
}

func (b *Book) Top() TopOfBook {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var top TopOfBook
	if p, ok := b.bidHeap.peek(); ok {
		top.Buy = &Level{Price: p, Quantity: b.bids[p]}
	}
	if p, ok := b.askHeap.peek(); ok {
		top.Sell = &Level{Price: p, Quantity: b.asks[p]}
	}
	return top
}

func (b *Book) Snapshot() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	snap := Snapshot{Bids: levels(b.bids), Asks: levels(b.asks)}
	sort.Slice(snap.Bids, func(i, j int) bool { return snap.Bids[i].Price > snap.Bids[j].Price })
	sort.Slice(snap.Asks, func(i, j int) bool { return snap.Asks[i].Price < snap.Asks[j].Price })
	return snap
}

func levels(m map[float64]int) []Level {
	out := make([]Level, 0, len(m))
	for p, q := range m {
		out = append(out, Level{Price: p, Quantity: q})
	}
	return out
}
