package main

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"finitefield.org/fansite/internal/fanmail"
	"finitefield.org/fansite/internal/gallery"
	"finitefield.org/fansite/internal/handlers"
	mw "finitefield.org/fansite/internal/middleware"
	"finitefield.org/fansite/internal/observability"
	"finitefield.org/fansite/internal/stats"
)

// connectFragment is the connect card plus the out-of-band toast region.
type connectFragment struct {
	Connect handlers.ConnectView
	Toast   *handlers.ToastView
}

// home renders the single page. Sort and filter come from the query so the
// page works without htmx.
func (s *server) home(w http.ResponseWriter, r *http.Request) {
	req := s.pageRequest(r)
	render(w, r, s.site.BuildPage(req))
}

func (s *server) pageRequest(r *http.Request) handlers.PageRequest {
	q := r.URL.Query()
	return handlers.PageRequest{
		Lang:      mw.Lang(r),
		URL:       pageURL(r),
		CSRFToken: mw.CSRFToken(r),
		Sort:      stats.ParseSort(q.Get("sort"), q.Get("dir")),
		Filter:    gallery.ParseFilter(q.Get("filter")),
		Connect:   connectState(r),
	}
}

func connectState(r *http.Request) handlers.ConnectState {
	if mw.GetSession(r).Connect.Submitted {
		return handlers.ConnectState{State: fanmail.StateSubmitted}
	}
	return handlers.ConnectState{State: fanmail.StateIdle}
}

func pageURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host + "/"
}

// switchLang remembers the chosen language and sends the visitor back.
func (s *server) switchLang(w http.ResponseWriter, r *http.Request) {
	lang := s.site.Bundle.Normalize(chi.URLParam(r, "code"))
	mw.SetLangCookie(w, lang)
	sess := mw.GetSession(r)
	if sess.Locale != lang {
		sess.Locale = lang
		sess.MarkDirty()
	}
	http.Redirect(w, r, backTo(r), http.StatusSeeOther)
}

// backTo returns the same-origin referrer without its hl parameter, or "/".
func backTo(r *http.Request) string {
	ref := r.Header.Get("Referer")
	if ref == "" {
		return "/"
	}
	u, err := url.Parse(ref)
	if err != nil || (u.Host != "" && u.Host != r.Host) {
		return "/"
	}
	q := u.Query()
	q.Del("hl")
	out := u.Path
	if out == "" {
		out = "/"
	}
	if enc := q.Encode(); enc != "" {
		out += "?" + enc
	}
	return out
}

func (s *server) statsFrag(w http.ResponseWriter, r *http.Request) {
	lang := mw.Lang(r)
	q := r.URL.Query()
	state := stats.ParseSort(q.Get("sort"), q.Get("dir"))
	if mw.IsHTMX(r.Context()) {
		push := url.Values{}
		push.Set("sort", string(state.Key))
		push.Set("dir", string(state.Dir))
		w.Header().Set("HX-Push-Url", "/?"+push.Encode())
	}
	renderTemplate(w, r, "frag_stats_table", s.site.BuildStats(lang, state))
}

func (s *server) galleryFrag(w http.ResponseWriter, r *http.Request) {
	lang := mw.Lang(r)
	key := gallery.ParseFilter(r.URL.Query().Get("filter"))
	renderTemplate(w, r, "frag_gallery_grid", s.site.BuildGallery(lang, key))
}

// galleryModalFrag answers 204 when the item or its image is unknown so htmx
// leaves the page untouched.
func (s *server) galleryModalFrag(w http.ResponseWriter, r *http.Request) {
	view, ok := s.site.BuildModal(mw.Lang(r), chi.URLParam(r, "id"))
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	renderTemplate(w, r, "frag_gallery_modal", view)
}

func (s *server) timelineEventFrag(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	ev, ok := s.site.BuildEvent(mw.Lang(r), index)
	if !ok {
		http.NotFound(w, r)
		return
	}
	renderTemplate(w, r, "frag_timeline_event", ev)
}

func (s *server) socialFrag(w http.ResponseWriter, r *http.Request) {
	renderTemplate(w, r, "frag_social_feed", s.site.BuildConnect(mw.Lang(r), handlers.ConnectState{}))
}

// connectSubmit validates and stores a fan message. htmx callers get the card
// back (plus a toast on failure); plain form posts get the full page or a redirect.
func (s *server) connectSubmit(w http.ResponseWriter, r *http.Request) {
	lang := mw.Lang(r)
	form := fanmail.Form{
		Name:    r.PostFormValue(fanmail.FieldName),
		Email:   r.PostFormValue(fanmail.FieldEmail),
		Message: r.PostFormValue(fanmail.FieldMessage),
	}

	msg, err := s.mail.Submit(r.Context(), fanmail.Submission{
		Form:      form,
		UserID:    mw.UserID(r),
		ClientKey: mw.ClientIP(r),
	})

	st := handlers.ConnectState{State: fanmail.Outcome(err), Form: form}
	if err == nil {
		sess := mw.GetSession(r)
		sess.Connect = mw.ConnectState{Submitted: true, MessageID: msg.ID}
		sess.MarkDirty()
		st.Form = fanmail.Form{}
	} else if fields, ok := fanmail.AsValidation(err); ok {
		st.Errors = fields
	} else {
		st.Toast = s.site.SubmissionToast(lang, err)
		observability.FromContext(r.Context()).Warn("fan message submission failed", zap.Error(err))
	}

	if !mw.IsHTMX(r.Context()) {
		if err == nil {
			http.Redirect(w, r, "/#connect", http.StatusSeeOther)
			return
		}
		req := s.pageRequest(r)
		req.Connect = st
		render(w, r, s.site.BuildPage(req))
		return
	}

	if err == nil {
		mw.Trigger(w, "connect:submitted", map[string]string{"id": msg.ID})
	}
	s.renderConnect(w, r, st)
}

// connectReset returns the form to idle after a successful submission.
func (s *server) connectReset(w http.ResponseWriter, r *http.Request) {
	sess := mw.GetSession(r)
	if sess.Connect.Submitted {
		sess.Connect = mw.ConnectState{}
		sess.MarkDirty()
	}
	if !mw.IsHTMX(r.Context()) {
		http.Redirect(w, r, "/#connect", http.StatusSeeOther)
		return
	}
	s.renderConnect(w, r, handlers.ConnectState{State: fanmail.StateIdle})
}

func (s *server) renderConnect(w http.ResponseWriter, r *http.Request, st handlers.ConnectState) {
	view := s.site.BuildConnect(mw.Lang(r), st)
	view.CSRFToken = mw.CSRFToken(r)
	renderTemplate(w, r, "frag_connect", connectFragment{Connect: view, Toast: st.Toast})
}
