package cookies

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wego-server/internal/shared/config"
)

func TestSetAndClearAuthCookie(t *testing.T) {
	jar := NewJar(
		config.AuthConfig{TokenExpiration: 2 * time.Hour, CookieSecure: true, CookieSameSite: "strict"},
		config.FrontendConfig{URL: "https://play.example.com:8443"},
	)

	rec := httptest.NewRecorder()
	jar.SetAuthCookie(rec, "token-value")
	set := rec.Result().Cookies()
	require.Len(t, set, 1)
	assert.Equal(t, AuthCookieName, set[0].Name)
	assert.Equal(t, "token-value", set[0].Value)
	assert.Equal(t, "play.example.com", set[0].Domain)
	assert.Equal(t, 7200, set[0].MaxAge)
	assert.True(t, set[0].HttpOnly)
	assert.True(t, set[0].Secure)
	assert.Equal(t, http.SameSiteStrictMode, set[0].SameSite)

	rec = httptest.NewRecorder()
	jar.ClearAuthCookie(rec)
	cleared := rec.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Empty(t, cleared[0].Value)
	assert.Negative(t, cleared[0].MaxAge)
}

func TestExtractDomain(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"http://localhost:3000", ""},
		{"http://127.0.0.1:5173", ""},
		{"https://wego.example.com", "wego.example.com"},
		{"not a url", ""},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, extractDomain(tt.url))
		})
	}
}

func TestParseSameSite(t *testing.T) {
	assert.Equal(t, http.SameSiteStrictMode, parseSameSite("Strict"))
	assert.Equal(t, http.SameSiteNoneMode, parseSameSite("none"))
	assert.Equal(t, http.SameSiteLaxMode, parseSameSite("lax"))
	assert.Equal(t, http.SameSiteLaxMode, parseSameSite(""))
}
