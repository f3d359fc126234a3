package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	authsvc "github.com/uniserve/uniserve/svc/auth"
)

type handlers struct {
	svc *authsvc.Service
	log *slog.Logger
}

func decode(r *http.Request, dst any) bool {
	return json.NewDecoder(r.Body).Decode(dst) == nil
}

func badRequest(w http.ResponseWriter) {
	respondJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body"})
}

type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

func (h *handlers) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decode(r, &req) {
		badRequest(w)
		return
	}
	userID, err := h.svc.Register(r.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"user_id": userID.String()})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decode(r, &req) {
		badRequest(w)
		return
	}
	pair, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *handlers) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decode(r, &req) {
		badRequest(w)
		return
	}
	access, err := h.svc.RefreshAccessToken(r.Context(), req.RefreshToken)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"access_token": access})
}

func (h *handlers) logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decode(r, &req) {
		badRequest(w)
		return
	}
	if err := h.svc.Logout(r.Context(), req.RefreshToken); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) federatedStart(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	url, err := h.svc.FederatedAuthURL(r.Context(), provider)
	if err != nil {
		respondError(w, err)
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

func (h *handlers) federatedCallback(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")

	res, err := h.svc.FederatedCallback(r.Context(), provider, code, state)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"user_id":          res.UserID.String(),
		"access_token":     res.Tokens.AccessToken,
		"refresh_token":    res.Tokens.RefreshToken,
		"profile_complete": res.ProfileComplete,
	})
}

type emailRequest struct {
	Email string `json:"email"`
}

func (h *handlers) requestVerification(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !decode(r, &req) {
		badRequest(w)
		return
	}
	if err := h.svc.RequestEmailVerification(r.Context(), req.Email); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

type confirmVerificationRequest struct {
	Token string `json:"token"`
}

func (h *handlers) confirmVerification(w http.ResponseWriter, r *http.Request) {
	var req confirmVerificationRequest
	if !decode(r, &req) {
		badRequest(w)
		return
	}
	if err := h.svc.ConfirmEmailVerification(r.Context(), req.Token); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) requestReset(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !decode(r, &req) {
		badRequest(w)
		return
	}
	if err := h.svc.RequestPasswordReset(r.Context(), req.Email); err != nil {
		respondError(w, err)
		return
	}
	// Always accepted, even for unknown addresses.
	w.WriteHeader(http.StatusAccepted)
}

type confirmResetRequest struct {
	Code            string `json:"code"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

func (h *handlers) confirmReset(w http.ResponseWriter, r *http.Request) {
	var req confirmResetRequest
	if !decode(r, &req) {
		badRequest(w)
		return
	}
	if err := h.svc.ConfirmPasswordReset(r.Context(), req.Code, req.NewPassword, req.ConfirmPassword); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) me(w http.ResponseWriter, r *http.Request) {
	principal := authsvc.PrincipalFromContext(r.Context())
	if principal == nil {
		respondError(w, authsvc.ErrUnauthenticated)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"user_id": principal.UserID.String(),
		"roles":   principal.Roles,
	})
}
