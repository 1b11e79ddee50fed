package v1

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/apu-code-collab/apcc-api/internal/api/middleware"
	"github.com/apu-code-collab/apcc-api/internal/domain"
	"github.com/apu-code-collab/apcc-api/internal/service"
	"github.com/apu-code-collab/apcc-api/internal/utils"
)

const (
	refreshCookie     = "refresh_token"
	refreshCookiePath = "/api/v1/auth"
	accessCookie      = "access_token"
)

func (rt *Router) authRoutes(r chi.Router) {
	r.With(rt.limiter.Limit(limitRegister)).Post("/register", rt.handleRegister)
	r.With(rt.limiter.Limit(limitToken)).Post("/token", rt.handleToken)
	r.With(rt.limiter.Limit(limitRefresh)).Post("/refresh", rt.handleRefresh)
	r.With(rt.limiter.Limit(limitLogout)).Post("/logout", rt.handleLogout)
	r.With(rt.authenticated()...).Get("/me", rt.handleMe)
}

// handleRegister handles user registration.
func (rt *Router) handleRegister(w http.ResponseWriter, r *http.Request) {
	middleware.ValidateJSON(func(w http.ResponseWriter, r *http.Request, body *domain.RegisterRequest) {
		user, err := rt.services.Auth.Register(r.Context(), body)
		if err != nil {
			writeError(w, r, err)
			return
		}
		respond(w, r, http.StatusCreated, user, "User registered successfully")
	}).ServeHTTP(w, r)
}

// handleToken implements the OAuth2 password grant. The form fields are
// username (the APU ID) and password; a JSON body with the same fields is
// also accepted.
func (rt *Router) handleToken(w http.ResponseWriter, r *http.Request) {
	var creds *domain.LoginRequest
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		body, err := middleware.DecodeJSON[*domain.LoginRequest](r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		creds = body
	} else {
		if err := r.ParseForm(); err != nil {
			writeError(w, r, domain.NewBadRequestError("", "Invalid form body"))
			return
		}
		creds = &domain.LoginRequest{Username: r.PostForm.Get("username"), Password: r.PostForm.Get("password")}
		if err := creds.Validate(); err != nil {
			writeError(w, r, err)
			return
		}
	}

	res, err := rt.services.Auth.Login(r.Context(), creds.Username, creds.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	rt.setRefreshCookie(w, res)
	render.JSON(w, r, res.TokenResponse())
}

func (rt *Router) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var token string
	if c, err := r.Cookie(refreshCookie); err == nil {
		token = c.Value
	}

	res, err := rt.services.Auth.Refresh(r.Context(), token)
	if err != nil {
		writeError(w, r, err)
		return
	}

	rt.setRefreshCookie(w, res)
	render.JSON(w, r, res.TokenResponse())
}

// handleLogout revokes the refresh cookie's token. Logging out without a
// cookie succeeds.
func (rt *Router) handleLogout(w http.ResponseWriter, r *http.Request) {
	var token string
	if c, err := r.Cookie(refreshCookie); err == nil {
		token = c.Value
	}

	if err := rt.services.Auth.Logout(r.Context(), token); err != nil {
		writeError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookie,
		Value:    "",
		Path:     refreshCookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   rt.cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
	respond(w, r, http.StatusOK, nil, "Logged out successfully")
}

func (rt *Router) handleMe(w http.ResponseWriter, r *http.Request) {
	respondOK(w, r, currentUser(r).ToResponse())
}

func (rt *Router) setRefreshCookie(w http.ResponseWriter, res *service.LoginResult) {
	maxAge := int(time.Until(res.RefreshExpiresAt).Seconds())
	if maxAge <= 0 {
		maxAge = int(rt.cfg.RefreshTokenTTL().Seconds())
	}
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookie,
		Value:    res.RefreshToken,
		Path:     refreshCookiePath,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   rt.cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
	utils.Debug("refresh cookie set", "user_id", res.User.ID.String())
}

// setAccessCookie hands the access token to the frontend after a redirect.
func (rt *Router) setAccessCookie(w http.ResponseWriter, res *service.LoginResult) {
	http.SetCookie(w, &http.Cookie{
		Name:     accessCookie,
		Value:    res.AccessToken,
		Path:     "/",
		MaxAge:   res.ExpiresIn,
		Secure:   rt.cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
}
