package httpapi

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MimeLyc/subtitle-bot/internal/jobs"
)

type jobDetailResponse struct {
	Job      *jobs.Job `json:"job"`
	Terminal bool      `json:"terminal"`
	Elapsed  string    `json:"elapsed"`
}

// handleJobDetail serves /api/jobs/{id}.
func (s *Server) handleJobDetail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	jobID, ok := parseJobRoute(r.URL.Path)
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	job, found := s.queue.Get(jobID)
	if !found {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}

	end := time.Now()
	if job.Status.Terminal() {
		end = job.UpdatedAt
	}
	writeJSON(w, http.StatusOK, jobDetailResponse{
		Job:      job,
		Terminal: job.Status.Terminal(),
		Elapsed:  end.Sub(job.CreatedAt).Round(time.Millisecond).String(),
	})
}

func parseJobRoute(path string) (string, bool) {
	trimmed := strings.Trim(strings.TrimPrefix(path, "/api/jobs/"), "/")
	if trimmed == "" || strings.Contains(trimmed, "/") {
		return "", false
	}
	id, err := url.PathUnescape(trimmed)
	if err != nil || strings.TrimSpace(id) == "" {
		return "", false
	}
	return id, true
}
