package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
)

const oauthStateCookie = "oauth_state"

type authGateway interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) error
}

// oauthHandler runs the one-time consent flow that delegates the calendar
// account to the service.
type oauthHandler struct {
	auth authGateway
	log  *slog.Logger
}

func newOAuthHandler(auth authGateway, log *slog.Logger) *oauthHandler {
	if log == nil {
		log = slog.Default()
	}
	return &oauthHandler{
		auth: auth,
		log:  log.With(slog.String("component", "http.oauth")),
	}
}

// GET /google/auth
func (h *oauthHandler) begin(w http.ResponseWriter, r *http.Request) {
	state, err := randomState()
	if err != nil {
		h.log.Error("oauth state generation failed", slog.Any("err", err))
		writeJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}

	// State round-trips through a cookie so the callback can reject forged
	// redirects.
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.auth.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// GET /oauth2/callback?code=...&state=...
func (h *oauthHandler) callback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value == "" || r.URL.Query().Get("state") != stateCookie.Value {
		h.log.Warn("oauth callback with bad state")
		writeHTML(w, http.StatusBadRequest, "Authorization failed", "The authorization state did not match. Start over from /google/auth.")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	code := r.URL.Query().Get("code")
	if code == "" {
		h.log.Warn("oauth callback without code", slog.String("error", r.URL.Query().Get("error")))
		writeHTML(w, http.StatusBadRequest, "Authorization failed", "Google did not return an authorization code.")
		return
	}

	if err := h.auth.Exchange(r.Context(), code); err != nil {
		h.log.Error("oauth exchange failed", slog.Any("err", err))
		writeHTML(w, http.StatusBadGateway, "Authorization failed", "Could not exchange the authorization code. Try again.")
		return
	}

	h.log.Info("calendar account authorized")
	writeHTML(w, http.StatusOK, "Account authorized", "The calendar account is connected. You can close this window.")
}

func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
