package http

import (
	"net/http"
	"time"
)

type SessionHandler struct {
	reg       *Registry
	bodyLimit int64
}

func NewSessionHandler(reg *Registry, bodyLimit int64) *SessionHandler {
	return &SessionHandler{reg: reg, bodyLimit: bodyLimit}
}

// CreateSessionRequestDTO carries the credentials obtained at sign-in. Both
// are optional; an anonymous session can browse but not check out.
type CreateSessionRequestDTO struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type SessionResponseDTO struct {
	SessionID string `json:"session_id"`
}

const refreshCookieName = "refresh_token"

// POST /api/v1/session
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequestDTO
	if r.ContentLength != 0 {
		if !decodeJSON(w, r, h.bodyLimit, &req) {
			return
		}
	}

	s, err := h.reg.Create(r.Context())
	if err != nil {
		handleFlowError(w, nil, err)
		return
	}
	if req.AccessToken != "" {
		if err := s.Tokens.SetAccessToken(r.Context(), req.AccessToken); err != nil {
			h.reg.Delete(s.ID)
			handleFlowError(w, nil, err)
			return
		}
	}
	if req.RefreshToken != "" {
		s.API.SetCookies([]*http.Cookie{{
			Name:     refreshCookieName,
			Value:    req.RefreshToken,
			Path:     "/",
			HttpOnly: true,
			Expires:  time.Now().Add(7 * 24 * time.Hour),
		}})
	}
	w.Header().Set(SessionHeader, s.ID)
	respondJSON(w, http.StatusCreated, SessionResponseDTO{SessionID: s.ID})
}

// DELETE /api/v1/session
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r.Context())
	if err := s.Tokens.Clear(r.Context()); err != nil {
		s.log.WarnContext(r.Context(), "clear access token failed", "error", err)
	}
	h.reg.Delete(s.ID)
	w.WriteHeader(http.StatusNoContent)
}
