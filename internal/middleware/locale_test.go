package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLocaleMiddleware(t *testing.T) {
	cases := []struct {
		name           string
		xLocale        string
		acceptLanguage string
		want           string
	}{
		{name: "x-locale wins", xLocale: "id-ID", acceptLanguage: "pt-BR", want: "id"},
		{name: "accept-language region stripped", acceptLanguage: "pt-BR,pt;q=0.9", want: "pt"},
		{name: "wildcard skipped", acceptLanguage: "*", want: "en"},
		{name: "garbage falls back", xLocale: "???", want: "en"},
		{name: "nothing falls back", want: "en"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got string
			h := Locale("en")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = LocaleFromContext(r.Context())
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.xLocale != "" {
				req.Header.Set("X-Locale", tc.xLocale)
			}
			if tc.acceptLanguage != "" {
				req.Header.Set("Accept-Language", tc.acceptLanguage)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)
			if got != tc.want {
				t.Fatalf("locale = %q, want %q", got, tc.want)
			}
		})
	}
}
