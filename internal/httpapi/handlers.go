package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/MimeLyc/subtitle-bot/internal/jobs"
	"github.com/MimeLyc/subtitle-bot/internal/users"
)

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	list := s.queue.List()
	if status := r.URL.Query().Get("status"); status != "" {
		list = filterByStatus(list, jobs.Status(status))
	}
	writeJSON(w, http.StatusOK, list)
}

func filterByStatus(list []*jobs.Job, status jobs.Status) []*jobs.Job {
	ret := make([]*jobs.Job, 0, len(list))
	for _, job := range list {
		if job != nil && job.Status == status {
			ret = append(ret, job)
		}
	}
	return ret
}

type userResponse struct {
	users.Usage
	Language string      `json:"language,omitempty"`
	Jobs     []*jobs.Job `json:"jobs"`
}

// handleUser serves /api/users/{id}.
func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	raw := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/users/"), "/")
	if raw == "" || strings.Contains(raw, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	resp := userResponse{
		Usage: s.quota.Usage(userID),
		Jobs:  s.queue.ListByUser(userID),
	}
	if resp.Jobs == nil {
		resp.Jobs = []*jobs.Job{}
	}
	if s.languages != nil {
		resp.Language = s.languages.Get(userID)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}
