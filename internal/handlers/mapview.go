package handlers

import (
	"html"

	"finitefield.org/fansite/internal/content"
)

// MapSettings configures the slippy map.
type MapSettings struct {
	TileURL     string
	Attribution string
}

// Marker is one timeline event on the map.
type Marker struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Tooltip string  `json:"tooltip"`
	Popup   string  `json:"popup"`
}

// MapView is the JSON payload behind the event map.
type MapView struct {
	Center      [2]float64 `json:"center"`
	Zoom        int        `json:"zoom"`
	TileURL     string     `json:"tileUrl"`
	Attribution string     `json:"attribution"`
	Markers     []Marker   `json:"markers"`
}

// Markers places every event; the popup is pre-escaped HTML.
func Markers(events []content.TimelineEvent) []Marker {
	out := make([]Marker, 0, len(events))
	for _, e := range events {
		out = append(out, Marker{
			Lat:     e.Coords.Lat,
			Lng:     e.Coords.Lng,
			Tooltip: e.Year,
			Popup: "<strong>" + html.EscapeString(e.Title) + "</strong> (" + html.EscapeString(e.Year) + ")<br/>" +
				html.EscapeString(e.Location),
		})
	}
	return out
}

func (s *Site) BuildMap(lang string) MapView {
	return MapView{
		Center:      [2]float64{20, 0},
		Zoom:        2,
		TileURL:     s.Map.TileURL,
		Attribution: s.Map.Attribution,
		Markers:     Markers(s.Content.Timeline(lang)),
	}
}
