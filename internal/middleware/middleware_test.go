package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"finitefield.org/fansite/internal/i18n"
)

func cookieValue(rec *httptest.ResponseRecorder, name string) string {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

func TestSessionMiddlewareSetsCookie(t *testing.T) {
	sessions := NewSessions("test-key", false, nil)
	h := sessions.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "ok")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, cookieValue(rec, SessionCookieName))
}

func TestSessionRoundTripAndTamper(t *testing.T) {
	sessions := NewSessions("test-key", false, nil)
	var seen *SessionData
	h := sessions.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetSession(r)
		if r.URL.Query().Get("set") != "" {
			seen.UserID = "anon-7"
			seen.MarkDirty()
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?set=1", nil))
	cookie := cookieValue(rec, SessionCookieName)
	require.NotEmpty(t, cookie)
	firstID := seen.ID

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: cookie})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, firstID, seen.ID)
	require.Equal(t, "anon-7", seen.UserID)
	require.Empty(t, cookieValue(rec, SessionCookieName), "clean sessions are not rewritten")

	other := NewSessions("other-key", false, nil)
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: other.Encode(&SessionData{ID: "forged", UserID: "admin"})})
	h.ServeHTTP(httptest.NewRecorder(), req)
	require.NotEqual(t, "forged", seen.ID)
	require.Empty(t, seen.UserID)
}

func newCSRFRouter() http.Handler {
	sessions := NewSessions("test-key", false, nil)
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "ok")
	})
	return sessions.Middleware(HTMX(CSRF(false)(inner)))
}

func TestCSRFRejectsMissingToken(t *testing.T) {
	h := newCSRFRouter()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	token := cookieValue(rec, CSRFCookieName)
	sess := cookieValue(rec, SessionCookieName)
	require.NotEmpty(t, token)
	require.NotEmpty(t, sess)

	req := httptest.NewRequest(http.MethodPost, "/connect", nil)
	req.Header.Set("HX-Request", "true")
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: sess})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	req = httptest.NewRequest(http.MethodPost, "/connect", nil)
	req.Header.Set("HX-Request", "true")
	req.Header.Set(CSRFHeader, token)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: sess})
	req.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: token})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())
}

func TestCSRFAcceptsFormField(t *testing.T) {
	h := newCSRFRouter()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	token := cookieValue(rec, CSRFCookieName)
	sess := cookieValue(rec, SessionCookieName)

	req := httptest.NewRequest(http.MethodPost, "/connect", strings.NewReader("csrf_token="+token))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: sess})
	req.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: token})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func loadBundle(t *testing.T) *i18n.Bundle {
	t.Helper()
	b, err := i18n.Load("../../locales", "en", []string{"en", "hi"})
	require.NoError(t, err)
	return b
}

func TestLocaleResolutionOrder(t *testing.T) {
	bundle := loadBundle(t)
	sessions := NewSessions("test-key", false, nil)
	var got string
	h := sessions.Middleware(Locale(bundle)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = Lang(r)
	})))

	serve := func(mod func(*http.Request)) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		mod(req)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	rec := serve(func(r *http.Request) { r.Header.Set("Accept-Language", "hi-IN,hi;q=0.9") })
	require.Equal(t, "hi", got)
	require.Equal(t, "hi", rec.Header().Get("Content-Language"))

	serve(func(r *http.Request) {
		r.Header.Set("Accept-Language", "hi")
		r.AddCookie(&http.Cookie{Name: LangCookieName, Value: "en"})
	})
	require.Equal(t, "en", got, "cookie beats Accept-Language")

	rec = serve(func(r *http.Request) {
		r.URL.RawQuery = "hl=hi"
		r.AddCookie(&http.Cookie{Name: LangCookieName, Value: "en"})
	})
	require.Equal(t, "hi", got, "query beats cookie")
	require.Equal(t, "hi", cookieValue(rec, LangCookieName))

	serve(func(r *http.Request) { r.URL.RawQuery = "hl=fr" })
	require.Equal(t, "en", got, "unsupported codes fall back")

	sessionCookie := sessions.Encode(&SessionData{ID: "s1", Locale: "hi"})
	serve(func(r *http.Request) {
		r.Header.Set("Accept-Language", "en")
		r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: sessionCookie})
	})
	require.Equal(t, "hi", got, "session beats Accept-Language")
}

func TestLangOutsideMiddleware(t *testing.T) {
	require.Equal(t, "en", Lang(httptest.NewRequest(http.MethodGet, "/", nil)))
}

func TestAssetsWithCacheETag(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.css"), []byte("body{}"), 0o600))
	h := http.StripPrefix("/assets", AssetsWithCache(dir))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/assets/app.css", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)
	require.Contains(t, rec.Header().Get("Cache-Control"), "max-age")

	req := httptest.NewRequest(http.MethodGet, "/assets/app.css", nil)
	req.Header.Set("If-None-Match", `"nope", `+etag)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotModified, rec.Code)
}

type stubProvider struct {
	uid   string
	err   error
	calls int
}

func (p *stubProvider) SignInAnonymously(context.Context) (string, error) {
	p.calls++
	return p.uid, p.err
}

func TestAnonymousSignIn(t *testing.T) {
	sessions := NewSessions("test-key", false, nil)
	provider := &stubProvider{uid: "anon-42"}
	var uid string
	h := sessions.Middleware(AnonymousSignIn(provider)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid = UserID(r)
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, "anon-42", uid)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: cookieValue(rec, SessionCookieName)})
	h.ServeHTTP(httptest.NewRecorder(), req)
	require.Equal(t, "anon-42", uid)
	require.Equal(t, 1, provider.calls, "signed-in sessions are not signed in again")

	failing := &stubProvider{err: errors.New("identity down")}
	h = sessions.Middleware(AnonymousSignIn(failing)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid = UserID(r)
	})))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Empty(t, uid)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.9:5123"
	require.Equal(t, "203.0.113.9", ClientIP(req))
	req.RemoteAddr = "203.0.113.9"
	require.Equal(t, "203.0.113.9", ClientIP(req))
}
