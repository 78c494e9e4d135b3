// Package handler contains the HTTP layer: request decoding, session
// cookies, and the mapping from domain errors to status codes. Business
// rules stay in the service layer.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/xid"

	"github.com/ohaline/ohaline/internal/auth"
	"github.com/ohaline/ohaline/internal/service"
)

const (
	stateCookie   = "oauth_state"
	sessionMaxAge = 24 * time.Hour
	stateMaxAge   = 600 // seconds; long enough to approve on the LINE page
)

// AuthHandler runs the LINE Login flow and session endpoints.
type AuthHandler struct {
	line        *auth.LineProvider
	auths       *service.AuthService
	frontendURL string
	logger      *slog.Logger
}

func NewAuthHandler(line *auth.LineProvider, auths *service.AuthService, frontendURL string, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		line:        line,
		auths:       auths,
		frontendURL: frontendURL,
		logger:      logger,
	}
}

// HandleLineLogin redirects the browser to the LINE authorization page.
//
// GET /auth/line/login
//
// The random state round-trips through a short-lived HttpOnly cookie so
// the callback can prove this server initiated the flow.
func (h *AuthHandler) HandleLineLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   stateMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.line.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleLineCallback completes the login: state check, code exchange,
// user upsert, session issue, then redirect back to the frontend with
// the session token.
//
// GET /auth/line/callback?code=xxx&state=yyy
func (h *AuthHandler) HandleLineCallback(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" {
		h.logger.Warn("auth callback: missing state cookie")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}
	if r.URL.Query().Get("state") != cookie.Value {
		h.logger.Warn("auth callback: state mismatch")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}

	// The state cookie is single-use.
	http.SetCookie(w, &http.Cookie{
		Name:   stateCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("auth callback: authorization denied", slog.String("error", errParam))
		http.Redirect(w, r, h.frontendURL+"/?auth=denied", http.StatusSeeOther)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing OAuth code", http.StatusBadRequest)
		return
	}

	profile, err := h.line.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: LINE exchange failed", slog.String("error", err.Error()))
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	result, err := h.auths.LoginOrRegisterLine(r.Context(), profile)
	if err != nil {
		h.logger.Error("auth callback: login failed", slog.String("error", err.Error()))
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    result.Token,
		Path:     "/",
		MaxAge:   int(sessionMaxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	// The SPA also reads the token from the redirect so it can send it
	// as a Bearer header on API calls.
	http.Redirect(w, r, h.frontendURL+"/auth/callback?token="+result.Token, http.StatusSeeOther)
}

// HandleLogout clears the session cookie.
//
// POST /auth/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// HandleMe returns the authenticated user's profile.
//
// GET /api/me (auth required)
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	user, err := h.auths.GetUserByID(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleNotificationTime updates the user's daily delivery slot.
//
// PATCH /api/me/notification-time  {"notificationTime": "HH:MM"}
func (h *AuthHandler) HandleNotificationTime(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	var req struct {
		NotificationTime string `json:"notificationTime"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "invalid JSON body",
		})
		return
	}

	if err := h.auths.UpdateNotificationTime(r.Context(), userID, req.NotificationTime); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"notificationTime": req.NotificationTime})
}
