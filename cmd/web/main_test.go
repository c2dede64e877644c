package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"finitefield.org/fansite/internal/assets"
	"finitefield.org/fansite/internal/content"
	"finitefield.org/fansite/internal/fanmail"
	"finitefield.org/fansite/internal/gallery"
	"finitefield.org/fansite/internal/handlers"
	"finitefield.org/fansite/internal/i18n"
	"finitefield.org/fansite/internal/identity"
	mw "finitefield.org/fansite/internal/middleware"
	"finitefield.org/fansite/internal/platform/ratelimit"
	"finitefield.org/fansite/internal/stats"
)

// newTestServer builds the server main() would, with local identity and no store.
func newTestServer(t *testing.T, opts ...func(*server)) *server {
	t.Helper()
	// ensure templates reparse each request and set correct paths
	devMode = true
	templatesDir = "../../templates"
	publicDir = "../../public"
	if _, err := parseTemplates(); err != nil {
		t.Fatalf("parseTemplates failed: %v", err)
	}
	store := content.Default()
	var err error
	i18nBundle, err = i18n.Load("../../locales", "en", store.Languages())
	if err != nil {
		t.Fatalf("load i18n: %v", err)
	}
	images, err := assets.Embedded()
	if err != nil {
		t.Fatalf("load images: %v", err)
	}
	s := &server{
		site: &handlers.Site{
			Content: store,
			Bundle:  i18nBundle,
			Images:  images,
			Map:     handlers.MapSettings{TileURL: "https://tiles.example/{z}/{x}/{y}.png", Attribution: "tiles"},
		},
		mail:     fanmail.NewService(),
		sessions: mw.NewSessions("test-signing-key", false, zap.NewNop()),
		identity: identity.NewLocal(),
		logger:   zap.NewNop(),
		origins:  []string{"*"},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func newTestRouter(t *testing.T, opts ...func(*server)) http.Handler {
	t.Helper()
	return newTestServer(t, opts...).routes()
}

type memStore struct {
	mu   sync.Mutex
	msgs []fanmail.FanMessage
}

func (m *memStore) Add(_ context.Context, msg fanmail.FanMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs = append(m.msgs, msg)
	return nil
}

func (m *memStore) all() []fanmail.FanMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]fanmail.FanMessage(nil), m.msgs...)
}

// browser keeps cookies between requests like a real client would.
type browser struct {
	t       *testing.T
	h       http.Handler
	cookies map[string]*http.Cookie
}

func newBrowser(t *testing.T, h http.Handler) *browser {
	return &browser{t: t, h: h, cookies: map[string]*http.Cookie{}}
}

func (b *browser) do(req *http.Request) *httptest.ResponseRecorder {
	for _, c := range b.cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	b.h.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		b.cookies[c.Name] = c
	}
	return rec
}

func (b *browser) get(path string) *httptest.ResponseRecorder {
	return b.do(httptest.NewRequest(http.MethodGet, path, nil))
}

// token loads the home page and returns the CSRF token it embeds.
func (b *browser) token() string {
	rec := b.get("/")
	require.Equal(b.t, http.StatusOK, rec.Code)
	doc := parseDoc(b.t, rec)
	token, _ := doc.Find(`meta[name="csrf-token"]`).Attr("content")
	require.NotEmpty(b.t, token)
	return token
}

func (b *browser) htmxPost(path, token string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("HX-Request", "true")
	req.Header.Set(mw.CSRFHeader, token)
	return b.do(req)
}

func parseDoc(t *testing.T, rec *httptest.ResponseRecorder) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rec.Body.String()))
	require.NoError(t, err)
	return doc
}

func validForm() url.Values {
	return url.Values{
		"name":    {"Asha Rao"},
		"email":   {"asha@example.com"},
		"message": {"Thank you for the memories at Eden Gardens!"},
	}
}

func TestHealthzOK(t *testing.T) {
	srv := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d; body=%s", rec.Code, rec.Body.String())
	}
	if got := strings.TrimSpace(rec.Body.String()); got != "ok" {
		t.Fatalf("expected body 'ok', got %q", got)
	}
}

func TestHomeLocalizedNav(t *testing.T) {
	s := newTestServer(t)
	srv := s.routes()
	for _, lang := range []string{"en", "hi"} {
		t.Run(lang, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Accept-Language", lang)
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, req)
			require.Equal(t, http.StatusOK, rec.Code)
			require.Equal(t, lang, rec.Header().Get("Content-Language"))

			doc := parseDoc(t, rec)
			htmlLang, _ := doc.Find("html").Attr("lang")
			require.Equal(t, lang, htmlLang)

			var got []string
			doc.Find(".site-header .nav-links .nav-link").Each(func(_ int, sel *goquery.Selection) {
				got = append(got, strings.TrimSpace(sel.Text()))
			})
			var want []string
			for _, l := range s.site.Content.NavLinks(lang) {
				want = append(want, l.Label)
			}
			require.Equal(t, want, got)
			require.Equal(t, 1, doc.Find(".site-header .nav-links .nav-link.is-active").Length())
		})
	}
}

func TestHomeRendersSections(t *testing.T) {
	s := newTestServer(t)
	rec := newBrowser(t, s.routes()).get("/?hl=en")
	require.Equal(t, http.StatusOK, rec.Code)
	doc := parseDoc(t, rec)

	for _, id := range []string{"home", "career", "stats", "gallery", "connect"} {
		require.Equal(t, 1, doc.Find("section#"+id).Length(), "section %s", id)
	}
	hero := s.site.Content.Hero("en")
	require.Equal(t, len(hero.Stats), doc.Find(".hero-stats [data-counter]").Length())
	require.Equal(t, len(s.site.Content.Timeline("en")), doc.Find(".timeline .timeline-event").Length())
	require.Equal(t, 1, doc.Find(`#connect-card[data-state="idle"]`).Length())
	require.Equal(t, 2, doc.Find(`script[type="application/ld+json"]`).Length())

	markers, ok := doc.Find("#career-map").Attr("data-markers-url")
	require.True(t, ok)
	require.Equal(t, "/api/v1/timeline/markers?hl=en", markers)
}

func TestHomeHonoursSortAndFilterQuery(t *testing.T) {
	s := newTestServer(t)
	rec := newBrowser(t, s.routes()).get("/?sort=format&dir=asc&filter=batting")
	require.Equal(t, http.StatusOK, rec.Code)
	doc := parseDoc(t, rec)

	aria, _ := doc.Find(`#stats-table th[data-column="format"]`).Attr("aria-sort")
	require.Equal(t, "ascending", aria)
	pressed, _ := doc.Find(`#gallery-grid .filter[data-filter="Batting"]`).Attr("aria-pressed")
	require.Equal(t, "true", pressed)
	doc.Find("#gallery-grid .gallery-tile").Each(func(_ int, sel *goquery.Selection) {
		cat, _ := sel.Attr("data-category")
		require.Equal(t, "Batting", cat)
	})
}

func TestLangSwitchSetsCookieAndRedirects(t *testing.T) {
	srv := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/lang/hi", nil)
	req.Header.Set("Referer", "http://example.com/?hl=en&filter=Batting")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/?filter=Batting", rec.Header().Get("Location"))
	var lang string
	for _, c := range rec.Result().Cookies() {
		if c.Name == mw.LangCookieName {
			lang = c.Value
		}
	}
	require.Equal(t, "hi", lang)
}

func TestLangSwitchIgnoresForeignReferer(t *testing.T) {
	srv := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/lang/xx", nil)
	req.Header.Set("Referer", "https://evil.example/phish")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/", rec.Header().Get("Location"))
}

func TestLanguageStickToBrowser(t *testing.T) {
	b := newBrowser(t, newTestRouter(t))
	rec := b.get("/lang/hi")
	require.Equal(t, http.StatusSeeOther, rec.Code)

	rec = b.get("/")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "hi", rec.Header().Get("Content-Language"))
}

func TestStatsFragmentSortsByColumn(t *testing.T) {
	s := newTestServer(t)
	srv := s.routes()
	req := httptest.NewRequest(http.MethodGet, "/fragments/stats?sort=matches&dir=asc&hl=en", nil)
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "/?dir=asc&sort=matches", rec.Header().Get("HX-Push-Url"))

	doc := parseDoc(t, rec)
	var got []string
	doc.Find("#stats-table tbody th").Each(func(_ int, sel *goquery.Selection) {
		got = append(got, strings.TrimSpace(sel.Text()))
	})
	var want []string
	state := stats.SortState{Key: stats.ColMatches, Dir: stats.Asc}
	for _, r := range stats.Sort(s.site.Content.Stats("en").Summary, state, "en") {
		want = append(want, r.Format)
	}
	require.Equal(t, want, got)

	aria, _ := doc.Find(`th[data-column="matches"]`).Attr("aria-sort")
	require.Equal(t, "ascending", aria)
	next, _ := doc.Find(`th[data-column="matches"] a`).Attr("hx-get")
	require.Contains(t, next, "dir=desc")
	require.Contains(t, next, "sort=matches")
}

func TestGalleryFragmentFilters(t *testing.T) {
	s := newTestServer(t)
	srv := s.routes()
	req := httptest.NewRequest(http.MethodGet, "/fragments/gallery?filter=Batting&hl=en", nil)
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	doc := parseDoc(t, rec)
	want := gallery.Tiles(gallery.Filter(s.site.Content.Media("en").Items, content.CategoryBatting), s.site.Images)
	require.Equal(t, len(want), doc.Find(".gallery-tile").Length())
	require.Equal(t, 1, doc.Find(`.filter[aria-pressed="true"]`).Length())
}

func TestGalleryModal(t *testing.T) {
	srv := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/fragments/gallery/gallery-1?hl=en", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	doc := parseDoc(t, rec)
	require.Equal(t, 1, doc.Find("[data-modal] img").Length())

	req = httptest.NewRequest(http.MethodGet, "/fragments/gallery/unknown", nil)
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Empty(t, rec.Body.String())
}

func TestGalleryModalNoContentForMissingAsset(t *testing.T) {
	images, err := assets.Parse(strings.NewReader(`{"placeholderImages":[{"id":"hero","description":"hero","imageUrl":"https://img.example/hero.jpg","imageHint":"cricket"}]}`))
	require.NoError(t, err)
	srv := newTestRouter(t, func(s *server) { s.site.Images = images })

	req := httptest.NewRequest(http.MethodGet, "/fragments/gallery/gallery-1", nil)
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestTimelineEventFragment(t *testing.T) {
	s := newTestServer(t)
	srv := s.routes()
	events := s.site.Content.Timeline("en")

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fragments/timeline/0?hl=en", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	doc := parseDoc(t, rec)
	require.Equal(t, events[0].Title, strings.TrimSpace(doc.Find(".timeline-title").Text()))
	require.Equal(t, 1, doc.Find("img.timeline-image").Length())

	// the last milestone has no registered image and renders without one
	last := len(events) - 1
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fragments/timeline/"+strconv.Itoa(last)+"?hl=en", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 0, parseDoc(t, rec).Find("img.timeline-image").Length())

	for _, bad := range []string{"99", "-1", "x"} {
		rec = httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fragments/timeline/"+bad, nil))
		require.Equal(t, http.StatusNotFound, rec.Code, bad)
	}
}

func TestSocialFragmentCompactsCounts(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fragments/social?hl=en", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	doc := parseDoc(t, rec)
	require.Equal(t, len(s.site.Content.SocialFeed("en")), doc.Find("#social-feed .post").Length())
	require.Equal(t, 0, doc.Find("[hx-trigger]").Length())
}

func TestConnectRequiresCSRF(t *testing.T) {
	b := newBrowser(t, newTestRouter(t))
	_ = b.token()

	rec := b.htmxPost("/connect", "", validForm())
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = b.htmxPost("/connect", "not-the-token", validForm())
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestConnectShowsFieldErrors(t *testing.T) {
	store := &memStore{}
	b := newBrowser(t, newTestRouter(t, func(s *server) {
		s.mail = fanmail.NewService(fanmail.WithStore(store))
	}))
	token := b.token()

	rec := b.htmxPost("/connect", token, url.Values{
		"name":    {"A"},
		"email":   {"not-an-email"},
		"message": {"short"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	doc := parseDoc(t, rec)
	require.Equal(t, 3, doc.Find("#connect-card .field-error").Length())
	require.Equal(t, "A", doc.Find("#field-name").AttrOr("value", ""))
	require.Equal(t, 0, doc.Find("#toast-region [data-toast]").Length())
	require.Empty(t, store.all())
}

func TestConnectWithoutStoreShowsErrorToast(t *testing.T) {
	b := newBrowser(t, newTestRouter(t))
	token := b.token()

	rec := b.htmxPost("/connect", token, validForm())
	require.Equal(t, http.StatusOK, rec.Code)
	doc := parseDoc(t, rec)
	region := doc.Find("#toast-region")
	require.Equal(t, 1, region.Length())
	oob, _ := region.Attr("hx-swap-oob")
	require.Equal(t, "true", oob)
	require.Equal(t, i18nBundle.T("en", "toast.error.title"), strings.TrimSpace(region.Find(".toast-title").Text()))
	require.Equal(t, i18nBundle.T("en", "toast.error.no_database"), strings.TrimSpace(region.Find(".toast-message").Text()))
	require.Equal(t, 1, doc.Find(`#connect-card[data-state="idle"]`).Length())
}

func TestConnectSubmitAndReset(t *testing.T) {
	store := &memStore{}
	b := newBrowser(t, newTestRouter(t, func(s *server) {
		s.mail = fanmail.NewService(fanmail.WithStore(store))
	}))
	token := b.token()

	rec := b.htmxPost("/connect", token, validForm())
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("HX-Trigger"), "connect:submitted")
	doc := parseDoc(t, rec)
	require.Equal(t, 1, doc.Find(`#connect-card[data-state="submitted"]`).Length())
	require.Equal(t, 0, doc.Find("#toast-region [data-toast]").Length())

	msgs := store.all()
	require.Len(t, msgs, 1)
	require.Equal(t, "Asha Rao", msgs[0].Name)
	require.True(t, strings.HasPrefix(msgs[0].UserID, "anon-"))
	submitted, err := time.Parse(fanmail.DateLayout, msgs[0].SubmissionDate)
	require.NoError(t, err)
	require.False(t, submitted.IsZero())

	// the submitted state survives a reload
	rec = b.get("/")
	require.Equal(t, 1, parseDoc(t, rec).Find(`#connect-card[data-state="submitted"]`).Length())

	rec = b.htmxPost("/connect/reset", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, parseDoc(t, rec).Find(`#connect-card[data-state="idle"]`).Length())

	rec = b.get("/")
	require.Equal(t, 1, parseDoc(t, rec).Find(`#connect-card[data-state="idle"]`).Length())

	// the page token stays valid after a submit and reset
	require.Equal(t, token, b.token())
	rec = b.htmxPost("/connect", token, validForm())
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, store.all(), 2)
}

func TestConnectPlainFormPostRedirects(t *testing.T) {
	store := &memStore{}
	b := newBrowser(t, newTestRouter(t, func(s *server) {
		s.mail = fanmail.NewService(fanmail.WithStore(store))
	}))
	token := b.token()

	form := validForm()
	form.Set(mw.CSRFFormField, token)
	req := httptest.NewRequest(http.MethodPost, "/connect", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := b.do(req)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/#connect", rec.Header().Get("Location"))
	require.Len(t, store.all(), 1)
}

func TestConnectRateLimitedShowsToast(t *testing.T) {
	store := &memStore{}
	b := newBrowser(t, newTestRouter(t, func(s *server) {
		s.mail = fanmail.NewService(
			fanmail.WithStore(store),
			fanmail.WithLimiter(ratelimit.NewMemory(1, time.Minute, time.Now)),
		)
	}))
	token := b.token()

	rec := b.htmxPost("/connect", token, validForm())
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, store.all(), 1)

	rec = b.htmxPost("/connect", token, validForm())
	require.Equal(t, http.StatusOK, rec.Code)
	doc := parseDoc(t, rec)
	require.Equal(t, i18nBundle.T("en", "toast.failed.title"), strings.TrimSpace(doc.Find("#toast-region .toast-title").Text()))
	require.Len(t, store.all(), 1)
}

func TestAPINavJSONWithCORS(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/nav?hl=hi", nil)
	req.Header.Set("Origin", "https://fans.example")
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	var body struct {
		Items []content.NavLink `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, s.site.Content.NavLinks("hi"), body.Items)
}

func TestAPIMarkers(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/timeline/markers?hl=en", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var view handlers.MapView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.Len(t, view.Markers, len(s.site.Content.Timeline("en")))
	require.Equal(t, "https://tiles.example/{z}/{x}/{y}.png", view.TileURL)
	require.Equal(t, 2, view.Zoom)
}

func TestAPIStatsAndMedia(t *testing.T) {
	s := newTestServer(t)
	srv := s.routes()
	for _, path := range []string{"/api/v1/hero", "/api/v1/timeline", "/api/v1/stats", "/api/v1/media", "/api/v1/social"} {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path+"?hl=hi", nil))
		require.Equal(t, http.StatusOK, rec.Code, path)
		require.True(t, json.Valid(rec.Body.Bytes()), path)
	}
}

func TestAssetsServedWithETag(t *testing.T) {
	srv := newTestRouter(t)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/assets/app.css", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)

	req := httptest.NewRequest(http.MethodGet, "/assets/app.css", nil)
	req.Header.Set("If-None-Match", etag)
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotModified, rec.Code)
}
