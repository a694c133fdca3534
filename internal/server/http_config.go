package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/alfredjeanlab/cooprules/internal/model"
)

// setConfigRequest is the JSON body for PUT /v1/configs/{key}.
type setConfigRequest struct {
	Value any    `json:"value"`
	Actor string `json:"actor"`
}

// handleListConfigs handles GET /v1/configs?category=...
func (s *Server) handleListConfigs(w http.ResponseWriter, r *http.Request) {
	entries, err := s.config.Entries(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	category := r.URL.Query().Get("category")
	configs := make([]*model.ConfigEntry, 0, len(entries))
	for _, e := range entries {
		if category == "" || e.Category == category {
			configs = append(configs, e)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"configs": configs})
}

// handleGetConfig handles GET /v1/configs/{key}.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.findEntry(w, r, r.PathValue("key"))
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// handleSetConfig handles PUT /v1/configs/{key}.
func (s *Server) handleSetConfig(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	var req setConfigRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Value == nil {
		writeError(w, http.StatusBadRequest, "value is required")
		return
	}

	actor := strings.TrimSpace(req.Actor)
	if actor == "" {
		actor = "api"
	}

	if err := s.config.Set(r.Context(), key, req.Value, actor); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	entry, ok := s.findEntry(w, r, key)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// handleConfigHistory handles GET /v1/configs/{key}/history?limit=N.
func (s *Server) handleConfigHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	changes, err := s.config.History(r.Context(), r.PathValue("key"), limit)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if changes == nil {
		changes = []*model.ConfigChange{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"changes": changes})
}

func (s *Server) findEntry(w http.ResponseWriter, r *http.Request, key string) (*model.ConfigEntry, bool) {
	entries, err := s.config.Entries(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return nil, false
	}
	for _, e := range entries {
		if e.Key == key {
			return e, true
		}
	}
	writeError(w, http.StatusNotFound, "config not found")
	return nil, false
}
