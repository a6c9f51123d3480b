package api

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/kjannette/trahn-planner/internal/models"
)

type priceResponse struct {
	Symbol string         `json:"symbol"`
	Quotes []models.Quote `json:"quotes"`
	Errors []string       `json:"errors,omitempty"`
}

func (s *Server) handleMarketSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.deps.Feed == nil {
		writeError(w, http.StatusServiceUnavailable, "market feed disabled")
		return
	}
	symbol := strings.ToUpper(mux.Vars(r)["symbol"])

	snap, err := s.deps.Feed.Snapshot(r.Context(), symbol)
	if err != nil {
		s.log.Errorf("Error fetching snapshot for %s: %v", symbol, err)
		writeError(w, http.StatusBadGateway, "failed to fetch market snapshot")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleMarketPrice returns every available quote for a symbol: the spot
// price and, for ETH, the on-chain router price.
func (s *Server) handleMarketPrice(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(mux.Vars(r)["symbol"])
	onChain := symbol == "ETH" && s.deps.OnChain != nil
	if s.deps.Prices == nil && !onChain {
		writeError(w, http.StatusServiceUnavailable, "price sources disabled")
		return
	}

	resp := priceResponse{Symbol: symbol, Quotes: []models.Quote{}}
	if s.deps.Prices != nil {
		q, err := s.deps.Prices.GetPrice(r.Context(), symbol)
		if err != nil {
			resp.Errors = append(resp.Errors, err.Error())
		} else {
			resp.Quotes = append(resp.Quotes, q)
		}
	}
	if onChain {
		q, err := s.deps.OnChain.ETHPrice(r.Context())
		if err != nil {
			resp.Errors = append(resp.Errors, err.Error())
		} else {
			resp.Quotes = append(resp.Quotes, q)
		}
	}

	if len(resp.Quotes) == 0 {
		s.log.Errorf("No price for %s: %s", symbol, strings.Join(resp.Errors, "; "))
		writeError(w, http.StatusBadGateway, "failed to fetch price")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
