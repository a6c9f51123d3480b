package api

import (
	"bytes"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/kjannette/trahn-planner/internal/export"
	"github.com/kjannette/trahn-planner/internal/models"
	"github.com/kjannette/trahn-planner/internal/repository"
	"github.com/kjannette/trahn-planner/internal/results"
)

type recommendRequest struct {
	CoinData string `json:"coin_data"`
	Prompt   string `json:"prompt"`
}

type recommendResponse struct {
	RunID           string        `json:"runId,omitempty"`
	Recommendations []results.Row `json:"recommendations"`
	DemoMode        bool          `json:"demoMode"`
	Failure         string        `json:"failure,omitempty"`
	Source          string        `json:"source"`
}

type sortRequest struct {
	Rows      []results.Row `json:"rows"`
	Field     string        `json:"field"`
	Direction string        `json:"direction"`
}

type sortResponse struct {
	Recommendations []results.Row     `json:"recommendations"`
	Field           string            `json:"field"`
	Direction       results.Direction `json:"direction"`
}

type exportRequest struct {
	Rows []results.Row `json:"rows"`
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	if s.deps.Recommender == nil {
		writeError(w, http.StatusServiceUnavailable, "recommendations disabled")
		return
	}

	var req recommendRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		req.Prompt = s.deps.DefaultPrompt
	}

	res := s.deps.Recommender.Recommend(r.Context(), req.CoinData, req.Prompt)
	resp := recommendResponse{
		Recommendations: res.Rows,
		DemoMode:        res.DemoMode,
		Failure:         res.Failure,
		Source:          res.Source,
	}
	if resp.Recommendations == nil {
		resp.Recommendations = []results.Row{}
	}

	if s.deps.Recommendations != nil {
		run := &models.RecommendationRun{
			CoinData: req.CoinData,
			Prompt:   req.Prompt,
			Rows:     res.Rows,
			DemoMode: res.DemoMode,
		}
		if res.Failure != "" {
			failure := res.Failure
			run.Failure = &failure
		}
		stored, err := s.deps.Recommendations.Record(r.Context(), run)
		if err != nil {
			s.log.Errorf("Error recording recommendation run: %v", err)
		} else {
			resp.RunID = stored.ID.String()
		}
	}

	if res.DemoMode && s.deps.Notifier != nil {
		go s.deps.Notifier.SendDemoNotice(res.Failure)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRecommendationSort(w http.ResponseWriter, r *http.Request) {
	var req sortRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if req.Field == "" {
		writeError(w, http.StatusBadRequest, "field is required")
		return
	}
	dir, err := results.ParseDirection(req.Direction)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sorted := results.Sort(req.Rows, req.Field, dir)
	writeJSON(w, http.StatusOK, sortResponse{Recommendations: sorted, Field: req.Field, Direction: dir})
}

func (s *Server) handleRecommendationExport(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	s.writeRecommendationsXLSX(w, req.Rows)
}

func (s *Server) handleRecommendationHistory(w http.ResponseWriter, r *http.Request) {
	if s.deps.Recommendations == nil {
		writeError(w, http.StatusServiceUnavailable, "persistence disabled")
		return
	}
	runs, err := s.deps.Recommendations.GetRecent(r.Context(), parseLimit(r, 20))
	if err != nil {
		s.log.Errorf("Error fetching recommendation history: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch recommendation history")
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleRecommendationGet(w http.ResponseWriter, r *http.Request) {
	run, ok := s.loadRecommendationRun(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	if field := q.Get("sort"); field != "" {
		dir, err := results.ParseDirection(q.Get("dir"))
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		run.Rows = results.Sort(run.Rows, field, dir)
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleRecommendationGetExport(w http.ResponseWriter, r *http.Request) {
	run, ok := s.loadRecommendationRun(w, r)
	if !ok {
		return
	}
	s.writeRecommendationsXLSX(w, run.Rows)
}

func (s *Server) loadRecommendationRun(w http.ResponseWriter, r *http.Request) (*models.RecommendationRun, bool) {
	if s.deps.Recommendations == nil {
		writeError(w, http.StatusServiceUnavailable, "persistence disabled")
		return nil, false
	}
	id, ok := parseID(w, r)
	if !ok {
		return nil, false
	}

	run, err := s.deps.Recommendations.Get(r.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "recommendation run not found")
		return nil, false
	}
	if err != nil {
		s.log.Errorf("Error fetching recommendation run %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "failed to fetch recommendation run")
		return nil, false
	}
	return run, true
}

func (s *Server) writeRecommendationsXLSX(w http.ResponseWriter, rows []results.Row) {
	var buf bytes.Buffer
	if err := export.WriteRecommendations(&buf, rows); err != nil {
		s.log.Errorf("Error exporting recommendations: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to export recommendations")
		return
	}
	writeAttachment(w, export.FileName(time.Now()), buf.Bytes())
}
