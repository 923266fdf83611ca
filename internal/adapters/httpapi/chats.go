package httpapi

import (
	"net/http"
	"strconv"

	"chatops-admin/internal/domain"
)

type updateChatRequest struct {
	Title    *string `json:"title"`
	Archived *bool   `json:"archived"`
}

type replyRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleListChats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := domain.ChatFilter{
		Query:  q.Get("q"),
		Limit:  queryInt(r, "limit"),
		Offset: queryInt(r, "offset"),
	}
	if raw := q.Get("platform"); raw != "" {
		if p, ok := domain.NormalizePlatform(raw); ok {
			f.Platform = p
		}
	}
	f.IncludeArchived, _ = strconv.ParseBool(q.Get("archived"))

	list, err := s.chats.ListChats(r.Context(), f)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetChat(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid chat id")
		return
	}
	chat, err := s.chats.GetChat(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chat)
}

func (s *Server) handleUpdateChat(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid chat id")
		return
	}
	var req updateChatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	chat, err := s.chats.UpdateChat(r.Context(), id, domain.ChatPatch{Title: req.Title, Archived: req.Archived})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chat)
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid chat id")
		return
	}
	list, err := s.chats.ListMessages(r.Context(), id, queryInt(r, "limit"), queryInt64(r, "before"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleReply(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid chat id")
		return
	}
	var req replyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	msg, err := s.chats.Reply(r.Context(), id, req.Text)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}
