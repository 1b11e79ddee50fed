package v1

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/apu-code-collab/apcc-api/internal/domain"
	"github.com/apu-code-collab/apcc-api/internal/service"
	"github.com/apu-code-collab/apcc-api/internal/utils"
)

const (
	oauthStateCookie = "gh_oauth_state"
	oauthStateMaxAge = 600
)

func (rt *Router) githubAuthRoutes(r chi.Router) {
	r.Get("/login", rt.handleGitHubLogin)
	r.Get("/callback", rt.handleGitHubCallback)

	r.Group(func(r chi.Router) {
		r.Use(rt.authenticated()...)
		r.Post("/disconnect", rt.handleGitHubDisconnect)
		r.Get("/status", rt.handleGitHubStatus)
	})
}

// handleGitHubLogin starts the OAuth flow. The state is kept in a short
// lived cookie and compared on callback.
func (rt *Router) handleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		writeError(w, r, err)
		return
	}
	state := hex.EncodeToString(buf)

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/api/v1/auth/github",
		MaxAge:   oauthStateMaxAge,
		HttpOnly: true,
		Secure:   rt.cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, rt.services.GitHubAuth.LoginURL(state), http.StatusTemporaryRedirect)
}

// handleGitHubCallback completes the flow and always answers with a redirect
// to the frontend. Transport and upstream failures still render JSON errors.
func (rt *Router) handleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	cookie, err := r.Cookie(oauthStateCookie)
	if err != nil || state == "" || subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(state)) != 1 {
		utils.Warn("github oauth state mismatch", "remote_addr", r.RemoteAddr)
		rt.redirectFrontend(w, r, "/login?error=github_state_mismatch")
		return
	}
	rt.clearStateCookie(w)

	if oauthErr := r.URL.Query().Get("error"); oauthErr != "" {
		rt.redirectFrontend(w, r, "/login?error="+url.QueryEscape(oauthErr))
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, r, domain.NewBadRequestError("", "Missing authorization code"))
		return
	}

	res, err := rt.services.GitHubAuth.Callback(r.Context(), code)
	if err != nil {
		writeError(w, r, err)
		return
	}

	switch res.Failure {
	case "":
	case service.CallbackNoAccount:
		rt.redirectFrontend(w, r, "/register?error=no_account&email="+url.QueryEscape(res.Email))
		return
	default:
		rt.redirectFrontend(w, r, "/login?error="+url.QueryEscape(res.Failure))
		return
	}

	rt.setRefreshCookie(w, res.Tokens)
	rt.setAccessCookie(w, res.Tokens)
	rt.redirectFrontend(w, r, "/auth/callback")
}

func (rt *Router) handleGitHubDisconnect(w http.ResponseWriter, r *http.Request) {
	if err := rt.services.GitHubAuth.Disconnect(r.Context(), currentUser(r)); err != nil {
		writeError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, service.GitHubStatus{}, "GitHub account disconnected")
}

func (rt *Router) handleGitHubStatus(w http.ResponseWriter, r *http.Request) {
	respondOK(w, r, rt.services.GitHubAuth.Status(currentUser(r)))
}

func (rt *Router) redirectFrontend(w http.ResponseWriter, r *http.Request, path string) {
	http.Redirect(w, r, strings.TrimRight(rt.cfg.FrontendURL, "/")+path, http.StatusTemporaryRedirect)
}

func (rt *Router) clearStateCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    "",
		Path:     "/api/v1/auth/github",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   rt.cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
}
