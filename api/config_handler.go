package api

import (
	"net/http"

	"github.com/seenimoa/marketmap/internal/config"
)

// ConfigResponse is the JSON body returned by GET /api/config.
type ConfigResponse struct {
	Config *config.Config     `json:"config"`
	Keys   []config.KeyStatus `json:"keys"`
}

// handleGetConfig returns the running configuration. Secrets are excluded
// from Config and reported masked in Keys.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ConfigResponse{
		Config: s.cfg,
		Keys:   config.CheckKeys(s.cfg),
	})
}
