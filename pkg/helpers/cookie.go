package helpers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// CookieManager writes the accessToken/refreshToken pair. The refresh
// cookie is path-scoped to the refresh endpoint so it is never sent on
// ordinary API calls.
type CookieManager struct {
	Domain      string
	Secure      bool
	RefreshPath string
}

func NewCookie(domain string, secure bool, refreshPath string) *CookieManager {
	if refreshPath == "" {
		refreshPath = "/"
	}
	return &CookieManager{Domain: domain, Secure: secure, RefreshPath: refreshPath}
}

func (m *CookieManager) SetPair(c *gin.Context, access string, aexp time.Time, refresh string, rexp time.Time) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie("accessToken", access, maxAgeFrom(aexp), "/", m.Domain, m.Secure, true)
	c.SetCookie("refreshToken", refresh, maxAgeFrom(rexp), m.RefreshPath, m.Domain, m.Secure, true)
}

// Clear expires both cookies (empty value, epoch expiry).
func (m *CookieManager) Clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie("accessToken", "", -1, "/", m.Domain, m.Secure, true)
	c.SetCookie("refreshToken", "", -1, m.RefreshPath, m.Domain, m.Secure, true)
}

func maxAgeFrom(exp time.Time) int {
	sec := int(time.Until(exp).Seconds())
	if sec < 0 {
		return 0
	}
	return sec
}
