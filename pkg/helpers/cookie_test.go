package helpers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cookiesByName(rec *httptest.ResponseRecorder) map[string]*http.Cookie {
	out := map[string]*http.Cookie{}
	for _, ck := range rec.Result().Cookies() {
		out[ck.Name] = ck
	}
	return out
}

func TestManager_SetPair(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	m := NewCookie("example.com")
	m.SetPair(c, "A1", time.Now().Add(15*time.Minute), "R1", time.Now().Add(24*time.Hour))

	got := cookiesByName(rec)
	require.Contains(t, got, AccessCookie)
	require.Contains(t, got, RefreshCookie)
	for _, name := range []string{AccessCookie, RefreshCookie} {
		assert.True(t, got[name].HttpOnly, name)
		assert.True(t, got[name].Secure, name)
	}
	assert.Equal(t, "A1", got[AccessCookie].Value)
	assert.Equal(t, "R1", got[RefreshCookie].Value)
	assert.Greater(t, got[RefreshCookie].MaxAge, got[AccessCookie].MaxAge)
}

func TestManager_Clear(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	NewCookie("example.com").Clear(c)

	got := cookiesByName(rec)
	for _, name := range []string{AccessCookie, RefreshCookie} {
		require.Contains(t, got, name)
		assert.Empty(t, got[name].Value)
		assert.Less(t, got[name].MaxAge, 0)
		assert.True(t, got[name].HttpOnly)
		assert.True(t, got[name].Secure)
	}
}
