package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	chi "github.com/go-chi/chi/v5"

	"chatops-admin/internal/domain"
	"chatops-admin/internal/usecase/broadcast"
)

type broadcastRequest struct {
	Title        string                   `json:"title"`
	Text         string                   `json:"text"`
	ImageURL     string                   `json:"imageUrl"`
	Platforms    []string                 `json:"platforms"`
	Filters      *domain.BroadcastFilters `json:"filters"`
	TestMode     *bool                    `json:"testMode"`
	Mode         string                   `json:"mode"`
	Limit        json.RawMessage          `json:"limit"`
	RecipientIDs []json.RawMessage        `json:"recipientIds"`
}

type broadcastResponse struct {
	Title     string                 `json:"title,omitempty"`
	TestMode  bool                   `json:"testMode"`
	Total     int                    `json:"total"`
	Sent      int                    `json:"sent"`
	Failed    int                    `json:"failed"`
	LogFailed int                    `json:"logFailed"`
	Items     []domain.BroadcastItem `json:"items"`
	Mode      string                 `json:"mode"`
	Error     string                 `json:"error,omitempty"`
}

type previewRequest struct {
	Platforms []string                 `json:"platforms"`
	Filters   *domain.BroadcastFilters `json:"filters"`
	Limit     json.RawMessage          `json:"limit"`
}

type jobAcceptedResponse struct {
	JobID  string                    `json:"jobId"`
	Status domain.BroadcastJobStatus `json:"status"`
}

// toDomain собирает запрос рассылки. Тестовый режим включён, если клиент явно не выключил его.
func (req broadcastRequest) toDomain() domain.BroadcastRequest {
	out := domain.BroadcastRequest{
		Payload: domain.BroadcastPayload{
			Title:    strings.TrimSpace(req.Title),
			Text:     strings.TrimSpace(req.Text),
			ImageURL: strings.TrimSpace(req.ImageURL),
		},
		Platforms: req.Platforms,
		TestMode:  req.TestMode == nil || *req.TestMode,
		Limit:     parseLimit(req.Limit),
	}
	if req.Filters != nil {
		out.Filters = *req.Filters
	}
	if mode, ok := domain.ParseBroadcastMode(req.Mode); ok {
		out.Mode = mode
	} else {
		out.Mode = domain.BroadcastMode(req.Mode)
	}
	for _, raw := range req.RecipientIDs {
		if id, ok := parseID(raw); ok {
			out.RecipientIDs = append(out.RecipientIDs, id)
		}
	}
	return out
}

// parseLimit принимает число или строку с числом; всё остальное считается отсутствием лимита.
func parseLimit(raw json.RawMessage) int {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0
		}
		n = json.Number(strings.TrimSpace(s))
	}
	f, err := n.Float64()
	if err != nil || f < 1 || f > 1_000_000 {
		return 0
	}
	return int(f)
}

// parseID принимает id чата числом или строкой.
func parseID(raw json.RawMessage) (int64, bool) {
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, false
		}
		n = json.Number(strings.TrimSpace(s))
	}
	id, err := strconv.ParseInt(n.String(), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (s *Server) handleBroadcast(w http.ResponseWriter, r *http.Request) {
	var body broadcastRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	req := body.toDomain()
	if err := broadcast.Validate(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	if async, _ := strconv.ParseBool(r.URL.Query().Get("async")); async && !req.TestMode {
		if s.jobs == nil || !s.jobs.Enabled() {
			s.writeServiceError(w, r, broadcast.ErrQueueDisabled)
			return
		}
		state, err := s.jobs.Submit(r.Context(), req)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusAccepted, jobAcceptedResponse{JobID: state.ID, Status: state.Status})
		return
	}

	if !req.TestMode {
		// Живая рассылка идёт дольше WriteTimeout сервера.
		_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})
	}

	result, err := s.broadcasts.Run(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, broadcastResponse{
		Title:     req.Payload.Title,
		TestMode:  req.TestMode,
		Total:     result.Total,
		Sent:      result.Sent,
		Failed:    result.Failed,
		LogFailed: result.LogFailed,
		Items:     result.Items,
		Mode:      string(req.Mode),
		Error:     result.Error,
	})
}

func (s *Server) handleBroadcastPreview(w http.ResponseWriter, r *http.Request) {
	var body previewRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
			return
		}
	}
	var filters domain.BroadcastFilters
	if body.Filters != nil {
		filters = *body.Filters
	}
	preview, err := s.broadcasts.Preview(r.Context(), body.Platforms, filters, parseLimit(body.Limit))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

func (s *Server) handleBroadcastJob(w http.ResponseWriter, r *http.Request) {
	if s.jobs == nil {
		writeError(w, http.StatusNotFound, "not_found", "not found")
		return
	}
	state, err := s.jobs.Status(chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}
