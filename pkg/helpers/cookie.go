package helpers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	AccessCookie  = "access_token"
	RefreshCookie = "refresh_token"
)

// Manager writes the session cookie pair. Both cookies are always HttpOnly and Secure.
type Manager struct {
	Domain string
	Path   string
}

func NewCookie(domain string) *Manager {
	return &Manager{Domain: domain, Path: "/"}
}

func (m *Manager) SetPair(c *gin.Context, access string, aexp time.Time, refresh string, rexp time.Time) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(AccessCookie, access, maxAgeFrom(aexp), m.Path, m.Domain, true, true)
	c.SetCookie(RefreshCookie, refresh, maxAgeFrom(rexp), m.Path, m.Domain, true, true)
}

func (m *Manager) Clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(AccessCookie, "", -1, m.Path, m.Domain, true, true)
	c.SetCookie(RefreshCookie, "", -1, m.Path, m.Domain, true, true)
}

func maxAgeFrom(exp time.Time) int {
	sec := int(time.Until(exp).Seconds())
	if sec < 0 {
		return 0
	}
	return sec
}
