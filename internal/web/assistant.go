package web

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"bridgecal/internal/assistant"
	"bridgecal/internal/log"
	"bridgecal/internal/model"
)

// statusClientClosedRequest is returned when a parse was canceled before it
// finished. Same code nginx uses.
const statusClientClosedRequest = 499

type assistantRequest struct {
	MemberID string `json:"member_id"`
	Text     string `json:"text"`
}

type assistantResponse struct {
	Draft assistant.Draft     `json:"draft"`
	Event model.CalendarEvent `json:"event"`
}

type assistantError struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func kindStatus(k assistant.Kind) int {
	switch k {
	case assistant.KindUnavailable:
		return http.StatusServiceUnavailable
	case assistant.KindEmpty:
		return http.StatusBadRequest
	case assistant.KindTransport:
		return http.StatusBadGateway
	case assistant.KindNotUnderstood:
		return http.StatusUnprocessableEntity
	case assistant.KindCanceled:
		return statusClientClosedRequest
	}
	return http.StatusInternalServerError
}

// handleAssistant parses free text into a draft and adds it to the
// member's calendar. Only one request per member runs at a time.
func (s *Server) handleAssistant(w http.ResponseWriter, r *http.Request) {
	var req assistantRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if _, err := s.board.Member(req.MemberID); err != nil {
		writeBoardError(w, err)
		return
	}

	ctx, done, err := s.subs.Begin(r.Context(), req.MemberID)
	if err != nil {
		if errors.Is(err, assistant.ErrInFlight) {
			writeError(w, http.StatusConflict, "a request is already being processed")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	defer done()

	draft, err := s.parser.Parse(ctx, req.Text, s.today())
	if err != nil {
		k := assistant.KindOf(err)
		if k != assistant.KindEmpty {
			log.Warn("assistant parse failed", "member", req.MemberID, "kind", k.String(), "err", err)
		}
		writeJSON(w, kindStatus(k), assistantError{Error: k.Message(), Kind: k.String()})
		return
	}

	if !done() {
		k := assistant.KindCanceled
		writeJSON(w, kindStatus(k), assistantError{Error: k.Message(), Kind: k.String()})
		return
	}

	e, err := s.board.AddDraft(draft, req.MemberID)
	if err != nil {
		writeBoardError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, assistantResponse{Draft: draft, Event: e})
}

type assistantStatus struct {
	Available bool `json:"available"`
	InFlight  bool `json:"in_flight"`
}

// handleAssistantStatus tells the panel whether to enable submit.
func (s *Server) handleAssistantStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, assistantStatus{
		Available: s.parser.Available(),
		InFlight:  s.subs.InFlight(chi.URLParam(r, "memberID")),
	})
}

// handleAssistantCancel aborts the member's in-flight request, if any.
func (s *Server) handleAssistantCancel(w http.ResponseWriter, r *http.Request) {
	if !s.subs.Cancel(chi.URLParam(r, "memberID")) {
		writeError(w, http.StatusNotFound, "no request in flight")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
