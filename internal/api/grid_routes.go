package api

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/kjannette/trahn-planner/internal/export"
	"github.com/kjannette/trahn-planner/internal/models"
	"github.com/kjannette/trahn-planner/internal/repository"
	"github.com/kjannette/trahn-planner/internal/strategy"
)

type planRequest struct {
	Market  *models.MarketSnapshot  `json:"market"`
	Account *models.AccountSettings `json:"account"`
	Notify  bool                    `json:"notify"`
}

type planResponse struct {
	PlanID   string                 `json:"planId,omitempty"`
	Market   models.MarketSnapshot  `json:"market"`
	Account  models.AccountSettings `json:"account"`
	Grids    []models.TradeGrid     `json:"grids"`
	Summary  models.GridSummary     `json:"summary"`
	Warnings []string               `json:"warnings"`
}

type defaultsResponse struct {
	Market  models.MarketSnapshot  `json:"market"`
	Account models.AccountSettings `json:"account"`
}

func (s *Server) handleGridDefaults(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, defaultsResponse{
		Market:  s.deps.DefaultMarket,
		Account: s.deps.DefaultAccount,
	})
}

// plan decodes a plan request and computes grids. An empty body or omitted
// sections fall back to the configured defaults. It writes the error response itself.
func (s *Server) plan(w http.ResponseWriter, r *http.Request) (planRequest, *planResponse, bool) {
	var req planRequest
	if err := decodeBody(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return req, nil, false
	}

	m, a := s.deps.DefaultMarket, s.deps.DefaultAccount
	if req.Market != nil {
		m = *req.Market
	}
	if req.Account != nil {
		a = *req.Account
	}

	grids, err := strategy.CalculateTradeGrids(m, a)
	if err != nil {
		if errors.Is(err, strategy.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, err.Error())
		} else {
			writeError(w, http.StatusInternalServerError, "failed to calculate grids")
		}
		return req, nil, false
	}

	warnings := s.deps.Guardian.ReviewPlan(grids, a)
	if warnings == nil {
		warnings = []string{}
	}

	return req, &planResponse{
		Market:   m,
		Account:  a,
		Grids:    grids,
		Summary:  strategy.Summarize(grids),
		Warnings: warnings,
	}, true
}

func (s *Server) handleGridCalculate(w http.ResponseWriter, r *http.Request) {
	req, resp, ok := s.plan(w, r)
	if !ok {
		return
	}

	if s.deps.Plans != nil {
		run, err := s.deps.Plans.Record(r.Context(), &models.PlanRun{
			Market:   resp.Market,
			Account:  resp.Account,
			Grids:    resp.Grids,
			Summary:  resp.Summary,
			Warnings: resp.Warnings,
		})
		if err != nil {
			s.log.Errorf("Error recording plan run: %v", err)
		} else {
			resp.PlanID = run.ID.String()
		}
	}

	if req.Notify && s.deps.Notifier != nil {
		table := strategy.FormatGridDisplay(resp.Market, resp.Grids)
		go s.deps.Notifier.SendPlan(resp.Market, table, resp.Warnings)
	}

	s.log.Infof("Calculated grids for %s %s (long entry $%.2f, short entry $%.2f)",
		resp.Market.Symbol, resp.Market.ContractExpiry, resp.Grids[0].EntryPrice, resp.Grids[1].EntryPrice)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGridExport(w http.ResponseWriter, r *http.Request) {
	_, resp, ok := s.plan(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := export.WriteTradeGrids(&buf, resp.Market, resp.Grids, resp.Summary); err != nil {
		s.log.Errorf("Error exporting grids: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to export grids")
		return
	}
	writeAttachment(w, export.GridFileName(resp.Market.Symbol, time.Now()), buf.Bytes())
}

func (s *Server) handleGridHistory(w http.ResponseWriter, r *http.Request) {
	if s.deps.Plans == nil {
		writeError(w, http.StatusServiceUnavailable, "persistence disabled")
		return
	}
	runs, err := s.deps.Plans.GetRecent(r.Context(), parseLimit(r, 20))
	if err != nil {
		s.log.Errorf("Error fetching plan history: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch plan history")
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGridsByDay(w http.ResponseWriter, r *http.Request) {
	if s.deps.Plans == nil {
		writeError(w, http.StatusServiceUnavailable, "persistence disabled")
		return
	}
	date := mux.Vars(r)["date"]
	if !validateDate(date) {
		writeError(w, http.StatusBadRequest, "invalid date format, expected YYYY-MM-DD")
		return
	}

	runs, err := s.deps.Plans.GetByDay(r.Context(), date)
	if err != nil {
		s.log.Errorf("Error fetching plans for %s: %v", date, err)
		writeError(w, http.StatusInternalServerError, "failed to fetch plans")
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGridGet(w http.ResponseWriter, r *http.Request) {
	if s.deps.Plans == nil {
		writeError(w, http.StatusServiceUnavailable, "persistence disabled")
		return
	}
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	run, err := s.deps.Plans.Get(r.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "plan not found")
		return
	}
	if err != nil {
		s.log.Errorf("Error fetching plan %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "failed to fetch plan")
		return
	}
	writeJSON(w, http.StatusOK, run)
}
