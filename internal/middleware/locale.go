package middleware

import (
	"context"
	"net/http"
	"strings"

	"photoflow/internal/domain"
)

type localeContextKey struct{}

// LocaleKey is the context key under which the request locale is stored.
var LocaleKey = localeContextKey{}

// Locale stores a normalized base language on the request context. The
// X-Locale header wins over Accept-Language; anything unparseable falls
// back to defaultLocale.
func Locale(defaultLocale string) func(http.Handler) http.Handler {
	if defaultLocale == "" {
		defaultLocale = domain.DefaultLocale
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			locale := detectLocale(r, defaultLocale)
			ctx := context.WithValue(r.Context(), LocaleKey, locale)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// LocaleFromContext returns the locale stored by Locale, or the default.
func LocaleFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(LocaleKey).(string); ok && v != "" {
		return v
	}
	return domain.DefaultLocale
}

func detectLocale(r *http.Request, fallback string) string {
	if v := strings.TrimSpace(r.Header.Get("X-Locale")); v != "" {
		return domain.NormalizeLocale(v)
	}
	if v := firstAcceptLanguage(r.Header.Get("Accept-Language")); v != "" {
		return domain.NormalizeLocale(v)
	}
	return domain.NormalizeLocale(fallback)
}

func firstAcceptLanguage(header string) string {
	for _, part := range strings.Split(header, ",") {
		token := strings.TrimSpace(strings.Split(part, ";")[0])
		if token != "" && token != "*" {
			return token
		}
	}
	return ""
}
