package adapthttp

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net"
	"net/http"
	"time"

	"healthreport/internal/app"
)

const stateCookie = "oauth_state"

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := parseJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	user, err := s.auth.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		s.fail(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"message": "user created", "user_id": user.ID})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := parseJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	res, err := s.auth.Login(r.Context(), req.Username, req.Password, r.UserAgent(), clientIP(r))
	if err != nil {
		s.fail(w, err, http.StatusInternalServerError)
		return
	}

	s.setSessionCookie(w, res)
	writeJSON(w, http.StatusOK, map[string]any{
		"message":  "login successful",
		"user_id":  res.User.ID,
		"username": res.User.Name(),
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookie); err == nil {
		if err := s.auth.Logout(r.Context(), cookie.Value); err != nil {
			s.log.Warn("logout failed", "error", err)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.opts.CookieSecure,
		SameSite: s.opts.CookieSameSite,
		MaxAge:   -1,
	})
	writeJSON(w, http.StatusOK, map[string]any{"message": "logout successful"})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	var value string
	if cookie, err := r.Cookie(sessionCookie); err == nil {
		value = cookie.Value
	}
	writeJSON(w, http.StatusOK, s.auth.Status(r.Context(), value, r.UserAgent()))
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"sso_enabled": s.sso != nil,
	})
}

func (s *Server) handleSSOLogin(w http.ResponseWriter, r *http.Request) {
	if s.sso == nil {
		writeError(w, http.StatusNotFound, errors.New("sso disabled"))
		return
	}
	state := generateState()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode, // the issuer redirects back cross-site
		MaxAge:   300,
	})
	http.Redirect(w, r, s.sso.AuthCodeURL(state), http.StatusFound)
}

func (s *Server) handleSSOCallback(w http.ResponseWriter, r *http.Request) {
	if s.sso == nil {
		writeError(w, http.StatusNotFound, errors.New("sso disabled"))
		return
	}

	state, err := r.Cookie(stateCookie)
	if err != nil || state.Value == "" || r.URL.Query().Get("state") != state.Value {
		writeError(w, http.StatusBadRequest, errors.New("invalid state"))
		return
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Path: "/", MaxAge: -1})

	profile, err := s.sso.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		s.log.Error("federated exchange failed", "error", err)
		writeError(w, http.StatusUnauthorized, errors.New("federated sign-in failed"))
		return
	}

	res, err := s.auth.LoginFederated(r.Context(), profile, r.UserAgent(), clientIP(r))
	if err != nil {
		s.fail(w, err, http.StatusInternalServerError)
		return
	}

	s.setSessionCookie(w, res)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) setSessionCookie(w http.ResponseWriter, res *app.LoginResult) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    res.Cookie,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.opts.CookieSecure,
		SameSite: s.opts.CookieSameSite,
		MaxAge:   int(time.Until(res.ExpiresAt).Seconds()),
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func generateState() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return base64.URLEncoding.EncodeToString(b)
}
