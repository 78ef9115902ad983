// Package stub serves fake subgraphs over HTTP for tests.
package stub

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"time"

	"dex-swaps-lab/internal/domain"
)

// Token is a token as a subgraph serializes it.
type Token struct {
	ID       string `json:"id"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

// Pool is a liquidity pool as a subgraph serializes it.
type Pool struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
}

// Swap is one swap entity. BigInt and BigDecimal values are strings, as on the wire.
type Swap struct {
	Timestamp    string `json:"timestamp"`
	To           string `json:"to"`
	From         string `json:"from"`
	TokenIn      Token  `json:"tokenIn"`
	AmountIn     string `json:"amountIn"`
	AmountInUSD  string `json:"amountInUSD"`
	TokenOut     Token  `json:"tokenOut"`
	AmountOut    string `json:"amountOut"`
	AmountOutUSD string `json:"amountOutUSD"`
	Pool         Pool   `json:"pool"`
	Hash         string `json:"hash"`
	LogIndex     int    `json:"logIndex"`
}

// Source configures the behaviour of one fake subgraph.
type Source struct {
	Swaps         []Swap
	LoadError     bool          // introspection answers 500
	FetchError    bool          // swaps query answers with a GraphQL error
	MissingFields []string      // Swap fields hidden from introspection
	Delay         time.Duration // applied to swaps queries
}

// swapFields is the Swap field list advertised by introspection.
var swapFields = []string{
	"id", "hash", "logIndex", "protocol", "to", "from", "blockNumber", "timestamp",
	"tokenIn", "amountIn", "amountInUSD", "tokenOut", "amountOut", "amountOutUSD", "pool",
}

// Server is an httptest server hosting one fake subgraph per path "/{id}".
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	sources   map[domain.SourceID]*Source
	requests  map[domain.SourceID]int
	lastWhere map[domain.SourceID][]string
	lastFirst map[domain.SourceID]int
}

// NewServer starts a server for the given sources.
func NewServer(sources map[domain.SourceID]*Source) *Server {
	s := &Server{
		sources:   sources,
		requests:  make(map[domain.SourceID]int),
		lastWhere: make(map[domain.SourceID][]string),
		lastFirst: make(map[domain.SourceID]int),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// Template returns an endpoint template for registry.WithTemplate.
func (s *Server) Template() string {
	return s.URL + "/{id}"
}

// Descriptor returns the descriptor of id served by s.
func (s *Server) Descriptor(id domain.SourceID) domain.SourceDescriptor {
	return domain.SourceDescriptor{ID: id, Endpoint: s.URL + "/" + string(id)}
}

// Descriptors returns descriptors for every configured source, sorted by id.
func (s *Server) Descriptors() []domain.SourceDescriptor {
	ids := make([]string, 0, len(s.sources))
	for id := range s.sources {
		ids = append(ids, string(id))
	}
	sort.Strings(ids)

	out := make([]domain.SourceDescriptor, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.Descriptor(domain.SourceID(id)))
	}
	return out
}

// Requests returns how many requests source id received.
func (s *Server) Requests(id domain.SourceID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[id]
}

// LastWhere returns the to_in filter of the last swaps query sent to id.
func (s *Server) LastWhere(id domain.SourceID) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastWhere[id]
}

// LastFirst returns the row cap of the last swaps query sent to id.
func (s *Server) LastFirst(id domain.SourceID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastFirst[id]
}

type request struct {
	Query         string `json:"query"`
	OperationName string `json:"operationName"`
	Variables     struct {
		First int `json:"first"`
		Where struct {
			ToIn []string `json:"to_in"`
		} `json:"where"`
	} `json:"variables"`
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	id := domain.SourceID(strings.Trim(r.URL.Path, "/"))
	src, ok := s.sources[id]
	if !ok {
		http.NotFound(w, r)
		return
	}

	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.requests[id]++
	s.mu.Unlock()

	switch req.OperationName {
	case "SwapSchema":
		s.introspect(w, src)
	case "Swaps":
		s.mu.Lock()
		s.lastWhere[id] = req.Variables.Where.ToIn
		s.lastFirst[id] = req.Variables.First
		s.mu.Unlock()
		s.swaps(w, r, src, req)
	default:
		writeJSON(w, map[string]interface{}{
			"errors": []map[string]string{{"message": "unknown operation " + req.OperationName}},
		})
	}
}

func (s *Server) introspect(w http.ResponseWriter, src *Source) {
	if src.LoadError {
		http.Error(w, "indexer unavailable", http.StatusInternalServerError)
		return
	}

	hidden := make(map[string]bool, len(src.MissingFields))
	for _, f := range src.MissingFields {
		hidden[f] = true
	}
	var fields []map[string]string
	for _, f := range swapFields {
		if !hidden[f] {
			fields = append(fields, map[string]string{"name": f})
		}
	}

	writeJSON(w, map[string]interface{}{
		"data": map[string]interface{}{
			"__schema": map[string]interface{}{
				"queryType": map[string]interface{}{
					"fields": []map[string]string{{"name": "swaps"}, {"name": "swap"}, {"name": "tokens"}},
				},
			},
			"__type": map[string]interface{}{"fields": fields},
		},
	})
}

func (s *Server) swaps(w http.ResponseWriter, r *http.Request, src *Source, req request) {
	if src.Delay > 0 {
		select {
		case <-time.After(src.Delay):
		case <-r.Context().Done():
			return
		}
	}

	if src.FetchError {
		writeJSON(w, map[string]interface{}{
			"errors": []map[string]string{{"message": "indexing_error"}},
		})
		return
	}

	recipients := make(map[string]bool, len(req.Variables.Where.ToIn))
	for _, to := range req.Variables.Where.ToIn {
		recipients[to] = true
	}

	out := []Swap{}
	for _, sw := range src.Swaps {
		if !recipients[sw.To] {
			continue
		}
		if req.Variables.First > 0 && len(out) >= req.Variables.First {
			break
		}
		out = append(out, sw)
	}

	writeJSON(w, map[string]interface{}{
		"data": map[string]interface{}{"swaps": out},
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
