package api

import (
	"net/http"
	"time"
)

type healthResponse struct {
	Status    string         `json:"status"`
	Timestamp string         `json:"timestamp"`
	Services  healthServices `json:"services"`
}

type healthServices struct {
	Database string `json:"database"`
	Feed     string `json:"feed"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbStatus := "disabled"
	if s.deps.DB != nil {
		dbStatus = "connected"
		if err := s.deps.DB.Ping(r.Context()); err != nil {
			dbStatus = "disconnected"
		}
	}

	feedStatus := "disabled"
	if s.deps.Feed != nil {
		feedStatus = "enabled"
	}

	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Services:  healthServices{Database: dbStatus, Feed: feedStatus},
	})
}
