package server

import (
	"errors"
	"log/slog"
	"net/http"
	"time"
)

// GateLoginRequest is the request body for POST /api/gate/login.
type GateLoginRequest struct {
	Password string `json:"password"`
}

// GateLoginResponse carries the session token for non-browser clients.
type GateLoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt,omitzero"`
}

// GateStatusResponse is the response for GET /api/gate/me.
type GateStatusResponse struct {
	Enabled       bool `json:"enabled"`
	Authenticated bool `json:"authenticated"`
}

func handleGateLogin(logger *slog.Logger, gate *Gate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !gate.Enabled() {
			writeJSON(w, http.StatusOK, GateLoginResponse{})
			return
		}

		var req GateLoginRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Password == "" {
			writeError(w, http.StatusBadRequest, "password is required")
			return
		}

		token, expires, err := gate.Login(r.Context(), req.Password)
		if errors.Is(err, errBadPassword) {
			writeError(w, http.StatusUnauthorized, "invalid password")
			return
		}
		if err != nil {
			logger.Error("gate login", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookieName,
			Value:    token,
			Path:     "/",
			MaxAge:   int(sessionTTL / time.Second),
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
		writeJSON(w, http.StatusOK, GateLoginResponse{Token: token, ExpiresAt: expires})
	}
}

func handleGateLogout(gate *Gate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if token := sessionToken(r); token != "" {
			gate.Logout(r.Context(), token)
		}

		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func handleGateMe(gate *Gate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !gate.Enabled() {
			writeJSON(w, http.StatusOK, GateStatusResponse{Authenticated: true})
			return
		}
		writeJSON(w, http.StatusOK, GateStatusResponse{
			Enabled:       true,
			Authenticated: gate.fromRequest(r) == nil,
		})
	}
}
