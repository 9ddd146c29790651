package httpx

import (
	"net/url"
	"strings"

	domainauth "github.com/ohsansi/olympiad-console/internal/domain/auth"
)

// safeRedirectPath ensures the provided redirect is a same-origin relative path
// starting with "/" and not an absolute URL. Returns "/" when invalid.
func safeRedirectPath(candidate string) string {
	if candidate == "" {
		return "/"
	}
	u, err := url.Parse(candidate)
	if err != nil || u.IsAbs() || u.Host != "" || !strings.HasPrefix(u.Path, "/") {
		return "/"
	}
	// "//host" and "/\host" are treated as network paths by browsers.
	if strings.HasPrefix(candidate, "//") || strings.HasPrefix(candidate, "/\\") {
		return "/"
	}
	return candidate
}

// landingPath is where a freshly authenticated principal goes when no
// redirect was requested.
func landingPath(kind domainauth.Kind) string {
	switch kind {
	case domainauth.KindResponsable:
		return PathResponsable
	case domainauth.KindEvaluador:
		return PathEvaluador
	case domainauth.KindAdmin:
		return PathAdmin
	default:
		return PathHome
	}
}

// loginURL builds the login location that returns to redirect afterwards.
func loginURL(redirect string) string {
	u := url.URL{Path: PathLogin}
	if redirect = safeRedirectPath(redirect); redirect != "/" {
		q := url.Values{}
		q.Set("redirect_uri", redirect)
		u.RawQuery = q.Encode()
	}
	return u.String()
}
