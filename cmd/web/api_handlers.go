package main

import (
	"net/http"

	"finitefield.org/fansite/internal/httpx"
	mw "finitefield.org/fansite/internal/middleware"
)

// The content API exposes the same accessors the page is built from, in the
// language resolved for the request (?hl= wins).

func (s *server) apiNav(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"items": s.site.Content.NavLinks(mw.Lang(r))})
}

func (s *server) apiHero(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, s.site.Content.Hero(mw.Lang(r)))
}

func (s *server) apiTimeline(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"events": s.site.Content.Timeline(mw.Lang(r))})
}

func (s *server) apiMarkers(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, s.site.BuildMap(mw.Lang(r)))
}

func (s *server) apiStats(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, s.site.Content.Stats(mw.Lang(r)))
}

func (s *server) apiMedia(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, s.site.Content.Media(mw.Lang(r)))
}

func (s *server) apiSocial(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"posts": s.site.Content.SocialFeed(mw.Lang(r)),
		"links": s.site.Content.SocialLinks(),
	})
}
