package api

import (
	"net/http"
	"time"

	"example.com/bjjpoints/internal/auth"
	"example.com/bjjpoints/internal/domain"
)

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	profile, err := h.service.Register(r.Context(), domain.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Belt:     req.Belt,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProfileView(*profile))
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	session, profile, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	token, expiresAt, err := auth.Issue(h.auth, profile.ID, session.ID, auth.ScopesFor(profile.IsTrainer), time.Now())
	if err != nil {
		_ = h.service.Logout(session.ID)
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		Profile:   toProfileView(*profile),
	})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	session, _, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := h.service.Logout(session.ID); err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
