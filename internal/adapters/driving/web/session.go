package web

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// Cookie names.
const (
	SessionCookie = "bidwright_session"
	AccessCookie  = "bidwright_access"
)

// sessionID returns the session named by the request cookie, issuing a new
// one when the cookie is missing or malformed.
func (s *Server) sessionID(c echo.Context) string {
	if cookie, err := c.Cookie(SessionCookie); err == nil {
		if id, err := uuid.Parse(cookie.Value); err == nil {
			return id.String()
		}
	}
	id := uuid.NewString()
	c.SetCookie(s.cookie(SessionCookie, id))
	// Later reads in the same request see the new session.
	c.Request().AddCookie(&http.Cookie{Name: SessionCookie, Value: id})
	return id
}

func (s *Server) cookie(name, value string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(s.cfg.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   s.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	}
}

// accessToken binds a session to the access password. The password never
// leaves the server.
func (s *Server) accessToken(sessionID string) string {
	mac := hmac.New(sha256.New, []byte(s.cfg.AccessPassword))
	mac.Write([]byte(sessionID))
	return hex.EncodeToString(mac.Sum(nil))
}

// hasAccess reports whether the request may use the UI.
func (s *Server) hasAccess(c echo.Context) bool {
	if s.cfg.AccessPassword == "" {
		return true
	}
	cookie, err := c.Cookie(AccessCookie)
	if err != nil {
		return false
	}
	want := s.accessToken(s.sessionID(c))
	return hmac.Equal([]byte(cookie.Value), []byte(want))
}

// checkPassword compares in constant time.
func (s *Server) checkPassword(password string) bool {
	return subtle.ConstantTimeCompare([]byte(password), []byte(s.cfg.AccessPassword)) == 1
}

// requireAccess sends visitors without access to the login page.
func (s *Server) requireAccess(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !s.hasAccess(c) {
			return c.Redirect(http.StatusSeeOther, "/login")
		}
		return next(c)
	}
}

func (s *Server) loginPage(c echo.Context) error {
	if s.hasAccess(c) {
		return c.Redirect(http.StatusSeeOther, "/")
	}
	return s.render(c, http.StatusOK, "login", loginData{})
}

func (s *Server) login(c echo.Context) error {
	if s.cfg.AccessPassword == "" {
		return c.Redirect(http.StatusSeeOther, "/")
	}
	if !s.checkPassword(c.FormValue("password")) {
		s.log.Warnw("login rejected", "remote", c.RealIP())
		return s.render(c, http.StatusUnauthorized, "login", loginData{Error: "Incorrect password."})
	}
	c.SetCookie(s.cookie(AccessCookie, s.accessToken(s.sessionID(c))))
	return c.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) logout(c echo.Context) error {
	cookie := s.cookie(AccessCookie, "")
	cookie.MaxAge = -1
	c.SetCookie(cookie)
	return c.Redirect(http.StatusSeeOther, "/login")
}
