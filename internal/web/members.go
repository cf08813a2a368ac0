package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"bridgecal/internal/model"
)

type memberView struct {
	model.UserProfile
	LocationsToday []model.BaseLocation `json:"locations_today"`
}

type illustrationView struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

type inviteRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

type avatarRequest struct {
	Illustration string `json:"illustration"`
}

func (s *Server) handleMembers(w http.ResponseWriter, _ *http.Request) {
	today := s.today()
	members := s.board.Members()
	out := make([]memberView, len(members))
	for i, m := range members {
		locs := m.LocationsOn(today)
		if locs == nil {
			locs = []model.BaseLocation{}
		}
		out[i] = memberView{UserProfile: m, LocationsToday: locs}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleIllustrations(w http.ResponseWriter, _ *http.Request) {
	keys := model.IllustrationKeys()
	out := make([]illustrationView, len(keys))
	for i, k := range keys {
		out[i] = illustrationView{Key: k, URL: model.Illustrations[k]}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleInvite(w http.ResponseWriter, r *http.Request) {
	var req inviteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p, err := s.board.Invite(r.Header.Get(actorHeader), req.FullName, req.Email)
	if err != nil {
		writeBoardError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	if err := s.board.Remove(r.Header.Get(actorHeader), chi.URLParam(r, "id")); err != nil {
		writeBoardError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSetAvatar lets a member change their own avatar.
func (s *Server) handleSetAvatar(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if r.Header.Get(actorHeader) != id {
		writeError(w, http.StatusForbidden, "members can only change their own avatar")
		return
	}
	var req avatarRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p, err := s.board.SetAvatar(id, req.Illustration)
	if err != nil {
		writeBoardError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
