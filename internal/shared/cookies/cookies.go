package cookies

import (
	"net/http"
	"net/url"
	"strings"

	"wego-server/internal/shared/config"
)

const AuthCookieName = "auth_token"

// Jar writes the auth cookie with the attributes the deployment needs.
type Jar struct {
	domain   string
	secure   bool
	sameSite http.SameSite
	maxAge   int
}

func NewJar(authConfig config.AuthConfig, frontendConfig config.FrontendConfig) *Jar {
	return &Jar{
		domain:   extractDomain(frontendConfig.URL),
		secure:   authConfig.CookieSecure,
		sameSite: parseSameSite(authConfig.CookieSameSite),
		maxAge:   int(authConfig.TokenExpiration.Seconds()),
	}
}

func (j *Jar) SetAuthCookie(w http.ResponseWriter, token string) {
	cookie := j.authCookie()
	cookie.Value = token
	cookie.MaxAge = j.maxAge

	http.SetCookie(w, cookie)
}

func (j *Jar) ClearAuthCookie(w http.ResponseWriter) {
	cookie := j.authCookie()
	cookie.Value = ""
	cookie.MaxAge = -1

	http.SetCookie(w, cookie)
}

func (j *Jar) authCookie() *http.Cookie {
	return &http.Cookie{
		Name:     AuthCookieName,
		Path:     "/",
		Domain:   j.domain,
		HttpOnly: true,
		Secure:   j.secure,
		SameSite: j.sameSite,
	}
}

// Local frontends get a host-only cookie.
func extractDomain(frontendURL string) string {
	parsedURL, err := url.Parse(frontendURL)
	if err != nil || parsedURL.Host == "" {
		return ""
	}

	host := parsedURL.Hostname()
	if host == "localhost" || host == "127.0.0.1" {
		return ""
	}

	return host
}

func parseSameSite(sameSite string) http.SameSite {
	switch strings.ToLower(sameSite) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
