package server

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/conneroisu/syllabus/internal/config"
	"github.com/conneroisu/syllabus/internal/errors"
	"github.com/conneroisu/syllabus/internal/logging"
	"github.com/conneroisu/syllabus/internal/validation"
)

// SecurityConfig holds the response headers and origin policy.
type SecurityConfig struct {
	CSP            *CSPConfig
	HSTS           *HSTSConfig
	XFrameOptions  string
	ReferrerPolicy string
	AllowedOrigins []string
	Logger         logging.Logger
}

// CSPConfig holds Content Security Policy configuration.
type CSPConfig struct {
	DefaultSrc              []string
	ScriptSrc               []string
	StyleSrc                []string
	ImgSrc                  []string
	ConnectSrc              []string
	FrameSrc                []string
	ObjectSrc               []string
	FrameAncestors          []string
	BaseURI                 []string
	FormAction              []string
	UpgradeInsecureRequests bool
}

// HSTSConfig holds HTTP Strict Transport Security configuration.
type HSTSConfig struct {
	MaxAge            int
	IncludeSubDomains bool
}

// DefaultSecurityConfig allows the inline stylesheet, the live reload
// script and embedded video players.
func DefaultSecurityConfig() *SecurityConfig {
	return &SecurityConfig{
		CSP: &CSPConfig{
			DefaultSrc:     []string{"'self'"},
			ScriptSrc:      []string{"'self'", "'unsafe-inline'"},
			StyleSrc:       []string{"'self'", "'unsafe-inline'"},
			ImgSrc:         []string{"'self'", "data:", "https:"},
			ConnectSrc:     []string{"'self'", "ws:", "wss:"},
			FrameSrc:       []string{"https://www.youtube.com", "https://www.youtube-nocookie.com"},
			ObjectSrc:      []string{"'none'"},
			FrameAncestors: []string{"'none'"},
			BaseURI:        []string{"'self'"},
			FormAction:     []string{"'self'"},
		},
		HSTS:           &HSTSConfig{MaxAge: 31536000, IncludeSubDomains: true},
		XFrameOptions:  "DENY",
		ReferrerPolicy: "strict-origin-when-cross-origin",
	}
}

// SecurityConfigFromAppConfig derives the policy from the server config.
func SecurityConfigFromAppConfig(cfg *config.Config) *SecurityConfig {
	sc := DefaultSecurityConfig()
	sc.AllowedOrigins = append(sc.AllowedOrigins, cfg.Server.AllowedOrigins...)
	if cfg.IsDevelopment() {
		sc.HSTS = nil
		return sc
	}
	sc.CSP.UpgradeInsecureRequests = true
	return sc
}

// SecurityMiddleware sets the security headers and rejects cross-site
// state-changing requests.
func SecurityMiddleware(sc *SecurityConfig) func(http.Handler) http.Handler {
	if sc == nil {
		sc = DefaultSecurityConfig()
	}
	logger := sc.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			applySecurityHeaders(w, r, sc)

			if r.Method != http.MethodGet && r.Method != http.MethodHead && r.Method != http.MethodOptions {
				if !isSameSite(r, sc.AllowedOrigins) {
					logger.Warn(r.Context(),
						errors.ErrInvalidOriginValue(r.Header.Get("Origin")),
						"Security: cross-site request rejected",
						"origin", r.Header.Get("Origin"),
						"referer", r.Header.Get("Referer"),
						"ip", clientIP(r))
					http.Error(w, "Forbidden", http.StatusForbidden)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func applySecurityHeaders(w http.ResponseWriter, r *http.Request, sc *SecurityConfig) {
	h := w.Header()
	if sc.CSP != nil {
		h.Set("Content-Security-Policy", buildCSPHeader(sc.CSP))
	}
	if sc.HSTS != nil && r.TLS != nil {
		hsts := fmt.Sprintf("max-age=%d", sc.HSTS.MaxAge)
		if sc.HSTS.IncludeSubDomains {
			hsts += "; includeSubDomains"
		}
		h.Set("Strict-Transport-Security", hsts)
	}
	if sc.XFrameOptions != "" {
		h.Set("X-Frame-Options", sc.XFrameOptions)
	}
	if sc.ReferrerPolicy != "" {
		h.Set("Referrer-Policy", sc.ReferrerPolicy)
	}
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("Cross-Origin-Opener-Policy", "same-origin")
}

func buildCSPHeader(csp *CSPConfig) string {
	var directives []string
	add := func(name string, values []string) {
		if len(values) > 0 {
			directives = append(directives, name+" "+strings.Join(values, " "))
		}
	}

	add("default-src", csp.DefaultSrc)
	add("script-src", csp.ScriptSrc)
	add("style-src", csp.StyleSrc)
	add("img-src", csp.ImgSrc)
	add("connect-src", csp.ConnectSrc)
	add("frame-src", csp.FrameSrc)
	add("object-src", csp.ObjectSrc)
	add("frame-ancestors", csp.FrameAncestors)
	add("base-uri", csp.BaseURI)
	add("form-action", csp.FormAction)
	if csp.UpgradeInsecureRequests {
		directives = append(directives, "upgrade-insecure-requests")
	}
	return strings.Join(directives, "; ")
}

// isSameSite accepts a request whose Origin, or failing that Referer,
// matches the request host or an allowed origin. Requests carrying neither
// header do not come from a browser form and are let through.
func isSameSite(r *http.Request, allowed []string) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		if ref := r.Header.Get("Referer"); ref != "" {
			if u, err := url.Parse(ref); err == nil {
				origin = u.Scheme + "://" + u.Host
			}
		}
	}
	if origin == "" {
		return true
	}
	return validation.ValidateOrigin(origin, append([]string{r.Host}, allowed...)) == nil
}

// clientIP extracts the client address for logging.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	ip := r.RemoteAddr
	if i := strings.LastIndex(ip, ":"); i != -1 {
		ip = ip[:i]
	}
	return ip
}
