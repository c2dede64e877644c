package seo

import (
	"encoding/json"
)

// JSON marshals v to a compact JSON string. It returns an empty string on error.
func JSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// Person returns a schema.org Person with social profiles as sameAs.
func Person(name, description, url, imageURL string, sameAs []string) map[string]any {
	m := map[string]any{
		"@context": "https://schema.org",
		"@type":    "Person",
		"name":     name,
	}
	if description != "" {
		m["description"] = description
	}
	if url != "" {
		m["url"] = url
	}
	if imageURL != "" {
		m["image"] = imageURL
	}
	if len(sameAs) > 0 {
		m["sameAs"] = sameAs
	}
	return m
}

// WebSite returns a minimal WebSite schema.
func WebSite(name, url, lang string) map[string]any {
	m := map[string]any{
		"@context": "https://schema.org",
		"@type":    "WebSite",
		"name":     name,
	}
	if url != "" {
		m["url"] = url
	}
	if lang != "" {
		m["inLanguage"] = lang
	}
	return m
}

// ImageGallery lists media images for search engines.
func ImageGallery(name string, images []string) map[string]any {
	items := make([]map[string]any, 0, len(images))
	for _, img := range images {
		items = append(items, map[string]any{"@type": "ImageObject", "contentUrl": img})
	}
	return map[string]any{
		"@context":        "https://schema.org",
		"@type":           "ImageGallery",
		"name":            name,
		"associatedMedia": items,
	}
}
