// Package httpapi is the thin HTTP shell spec.md §6 describes: request
// routing, JSON framing and status-code mapping over internal/ledger. It
// holds no chain logic of its own -- every handler is a deserialize, call
// into the ledger, serialize round trip.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"goledger.dev/chainledger/internal/keyring"
	"goledger.dev/chainledger/internal/ledger"
	"goledger.dev/chainledger/internal/logging"
	"goledger.dev/chainledger/internal/payload"
)

// Server wires a *ledger.Ledger to the three routes spec.md §6 names.
type Server struct {
	ledger *ledger.Ledger
	log    *logrus.Entry
}

// NewServer builds a Server over led.
func NewServer(led *ledger.Ledger) *Server {
	return &Server{ledger: led, log: logging.For("httpapi")}
}

// Router builds the mux.Router exposing GET /latest_block, POST /append
// and POST /since_last_billing. Every request is logged once at Debug with a
// fresh request-id field; the handlers' own log lines (writeError) do not
// carry that id.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.requestIDMiddleware)
	r.HandleFunc("/latest_block", s.handleLatestBlock).Methods(http.MethodGet)
	r.HandleFunc("/append", s.handleAppend).Methods(http.MethodPost)
	r.HandleFunc("/since_last_billing", s.handleSinceLastBilling).Methods(http.MethodPost)
	return r
}

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.New()
		s.log.WithFields(logrus.Fields{"request_id": id, "method": r.Method, "path": r.URL.Path}).Debug("request received")
		next.ServeHTTP(w, r)
	})
}

// handleLatestBlock implements GET /latest_block: returns the chain head
// as JSON, or 409 if the chain is empty, or 500 on lock failure.
func (s *Server) handleLatestBlock(w http.ResponseWriter, r *http.Request) {
	blk, err := s.ledger.LatestBlock()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, blockToWire(blk))
}

// handleAppend implements POST /append: validates and inserts the posted
// block, returning an empty 202 on success, 406 if the block is invalid,
// or 500 on lock failure.
func (s *Server) handleAppend(w http.ResponseWriter, r *http.Request) {
	var wb wireBlock
	if err := json.NewDecoder(r.Body).Decode(&wb); err != nil {
		http.Error(w, "malformed block", http.StatusBadRequest)
		return
	}
	blk, err := wireToBlock(wb)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotAcceptable)
		return
	}
	if err := s.ledger.Append(blk); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// handleSinceLastBilling implements POST /since_last_billing: returns the
// billing-suffix sub-chain for the queried user, or a JSON null if no
// billing has ever been recorded for them.
func (s *Server) handleSinceLastBilling(w http.ResponseWriter, r *http.Request) {
	var wq wireBillingQuery
	if err := json.NewDecoder(r.Body).Decode(&wq); err != nil {
		http.Error(w, "malformed billing query", http.StatusBadRequest)
		return
	}
	query := ledger.BillingQuery{Signee: wq.Signee[:], User: wq.User}
	verify := func(pub []byte, sg payload.Signed) bool { return keyring.Verify(pub, sg) }
	sub, err := s.ledger.LastBilling(query, verify)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if sub == nil {
		s.writeJSON(w, http.StatusOK, nil)
		return
	}
	s.writeJSON(w, http.StatusOK, chainToWire(sub))
}

// writeError maps a ledger error to the HTTP status code spec.md §6
// requires: 406 for an invalid block, 409 for an empty chain, 500 for
// everything else (lock failures, persistence-layer failures).
func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrInvalidBlock):
		http.Error(w, err.Error(), http.StatusNotAcceptable)
	case errors.Is(err, ledger.ErrEmptyChain):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		s.log.WithError(err).Error("request failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(body)
}
