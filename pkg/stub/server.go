// Package stub is an in-process stand-in for the matching service. It
// validates requests the way the real service does and rests accepted
// orders by price level, but performs no matching. Tests and dry runs
// point the generator at it.
package stub

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

const (
	positionBuy  = 0
	positionSell = 1

	quoteAsset = "USD"
)

// Server routes the service's REST paths onto a Book.
type Server struct {
	book   *Book
	router *mux.Router
	logger *zap.SugaredLogger
}

func NewServer(book *Book, logger *zap.SugaredLogger) *Server {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	s := &Server{
		book:   book,
		router: mux.NewRouter(),
		logger: logger,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/registerUser", s.handleRegister).Methods(http.MethodPost)
	s.router.HandleFunc("/addBalance", s.handleAddBalance).Methods(http.MethodPost)
	s.router.HandleFunc("/order", s.handleOrder).Methods(http.MethodPost)
	s.router.HandleFunc("/topOfBook", s.handleTopOfBook).Methods(http.MethodGet)
	s.router.HandleFunc("/getOrderBook", s.handleOrderBook).Methods(http.MethodGet)
	s.router.HandleFunc("/getUsers", s.handleUsers).Methods(http.MethodGet)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
}

// Book is the state behind the handlers.
func (s *Server) Book() *Book { return s.book }

// Handler is the router wrapped in a permissive CORS policy.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(s.router)
}

func (s *Server) Start(addr string) error {
	s.logger.Infow("stub_server_starting", "addr", addr)
	return http.ListenAndServe(addr, s.Handler())
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	u := s.book.Register()
	s.logger.Debugw("user_registered", "user_id", u.UserID)
	respondJSON(w, u)
}

type balanceRequest struct {
	Asset  string  `json:"asset"`
	Amount float64 `json:"amount"`
}

func (s *Server) handleAddBalance(w http.ResponseWriter, r *http.Request) {
	var req balanceRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	id, ok := userFromQuery(w, r)
	if !ok {
		return
	}
	if !s.book.AddBalance(id, req.Asset, req.Amount) {
		http.Error(w, "user not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}

type orderRequest struct {
	Position int     `json:"position"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
	Ticker   string  `json:"ticker"`
}

func (s *Server) handleOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.refuse(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		s.refuse(w, "body must contain a single JSON object", http.StatusBadRequest)
		return
	}

	switch {
	case req.Position != positionBuy && req.Position != positionSell:
		s.refuse(w, "invalid position", http.StatusBadRequest)
		return
	case req.Quantity <= 0:
		s.refuse(w, "quantity must be > 0", http.StatusBadRequest)
		return
	case req.Price <= 0:
		s.refuse(w, "price must be > 0", http.StatusBadRequest)
		return
	}

	id, ok := userFromQuery(w, r)
	if !ok {
		s.book.reject()
		return
	}

	if req.Position == positionBuy {
		usd, found := s.book.Balance(id, quoteAsset)
		if !found {
			s.refuse(w, "user must be registered before placing an order. Use /registerUser endpoint first", http.StatusNotFound)
			return
		}
		if usd < req.Price*float64(req.Quantity) {
			s.refuse(w, "insufficient balance USD", http.StatusBadRequest)
			return
		}
	} else {
		held, found := s.book.Balance(id, req.Ticker)
		if !found {
			s.refuse(w, "user must be registered before placing an order. Use /registerUser endpoint first", http.StatusNotFound)
			return
		}
		if held < float64(req.Quantity) {
			s.refuse(w, "insufficient balance don't have ticker in your portfolio", http.StatusBadRequest)
			return
		}
	}

	s.book.rest(req.Position, req.Price, req.Quantity)
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "Order recieved")
}

func (s *Server) refuse(w http.ResponseWriter, msg string, status int) {
	s.book.reject()
	http.Error(w, msg, status)
}

func (s *Server) handleTopOfBook(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, s.book.Top())
}

func (s *Server) handleOrderBook(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, s.book.Snapshot())
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, s.book.Users())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

func userFromQuery(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := r.URL.Query().Get("userId")
	if raw == "" {
		http.Error(w, "cannot find userId", http.StatusBadRequest)
		return uuid.UUID{}, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		http.Error(w, "invalid userId format", http.StatusBadRequest)
		return uuid.UUID{}, false
	}
	return id, true
}

func respondJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}
