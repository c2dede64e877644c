package middleware

import (
	"net/http"
	"time"

	"finitefield.org/fansite/internal/i18n"
)

const LangCookieName = "hl"

// Locale resolves the active language and stores it on the request context.
// Order: ?hl= query, hl cookie, session, Accept-Language. Explicit choices are
// remembered in the session and cookie.
func Locale(bundle *i18n.Bundle) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s := GetSession(r)
			var lang string
			if q := r.URL.Query().Get("hl"); q != "" {
				lang = bundle.Normalize(q)
				SetLangCookie(w, lang)
			} else if c, err := r.Cookie(LangCookieName); err == nil && c.Value != "" {
				lang = bundle.Normalize(c.Value)
			} else if s.Locale != "" {
				lang = bundle.Normalize(s.Locale)
			} else {
				lang = bundle.Resolve(r.Header.Get("Accept-Language"))
			}
			if s.Locale != lang {
				s.Locale = lang
				s.MarkDirty()
			}
			w.Header().Set("Content-Language", lang)
			next.ServeHTTP(w, r.WithContext(i18n.WithLang(r.Context(), lang)))
		})
	}
}

// SetLangCookie remembers lang for a year.
func SetLangCookie(w http.ResponseWriter, lang string) {
	http.SetCookie(w, &http.Cookie{
		Name:     LangCookieName,
		Value:    lang,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(365 * 24 * time.Hour),
	})
}

// Lang returns the language resolved for r, or "en" outside the Locale middleware.
func Lang(r *http.Request) string {
	if l := i18n.FromContext(r.Context()); l != "" {
		return l
	}
	return "en"
}

// VaryLocale sets Vary header for Accept-Language on dynamic responses
func VaryLocale(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Vary", "Accept-Language")
		next.ServeHTTP(w, r)
	})
}
