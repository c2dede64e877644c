// Package assets resolves image ids to placeholder image metadata.
package assets

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

//go:embed data/placeholder-images.json
var embedded []byte

// Image describes one registered image.
type Image struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	ImageURL    string `json:"imageUrl"`
	ImageHint   string `json:"imageHint"`
}

type manifest struct {
	Images []Image `json:"placeholderImages"`
}

// Registry is a read-only id → Image index. The zero value is empty.
type Registry struct {
	byID  map[string]Image
	order []string
}

// Lookup returns the image registered for id.
func (r *Registry) Lookup(id string) (Image, bool) {
	if r == nil {
		return Image{}, false
	}
	img, ok := r.byID[id]
	return img, ok
}

// Len returns the number of registered images.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.order)
}

// IDs returns registered ids in manifest order.
func (r *Registry) IDs() []string {
	if r == nil {
		return nil
	}
	return append([]string(nil), r.order...)
}

// Parse reads a manifest of the form {"placeholderImages":[...]}.
func Parse(rd io.Reader) (*Registry, error) {
	var m manifest
	dec := json.NewDecoder(rd)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("assets: decode manifest: %w", err)
	}
	reg := &Registry{byID: make(map[string]Image, len(m.Images))}
	for i, img := range m.Images {
		img.ID = strings.TrimSpace(img.ID)
		if img.ID == "" {
			return nil, fmt.Errorf("assets: image %d has no id", i)
		}
		if _, dup := reg.byID[img.ID]; dup {
			return nil, fmt.Errorf("assets: duplicate image id %q", img.ID)
		}
		reg.byID[img.ID] = img
		reg.order = append(reg.order, img.ID)
	}
	return reg, nil
}

// Embedded returns the registry compiled into the binary.
func Embedded() (*Registry, error) {
	return Parse(bytes.NewReader(embedded))
}

var errInvalidURI = errors.New("assets: source must look like gs://bucket/object")

// Load builds the registry from source: the embedded manifest when source is empty,
// otherwise a gs:// object.
func Load(ctx context.Context, source string, opts ...option.ClientOption) (*Registry, error) {
	if strings.TrimSpace(source) == "" {
		return Embedded()
	}
	return LoadGCS(ctx, source, opts...)
}

// LoadGCS reads the manifest from a Cloud Storage object.
func LoadGCS(ctx context.Context, uri string, opts ...option.ClientOption) (*Registry, error) {
	bucket, object, err := parseGCSURI(uri)
	if err != nil {
		return nil, err
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("assets: storage client: %w", err)
	}
	defer client.Close()

	rd, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("assets: open %s: %w", uri, err)
	}
	defer rd.Close()
	return Parse(rd)
}

func parseGCSURI(uri string) (bucket, object string, err error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(uri), "gs://")
	if !ok {
		return "", "", errInvalidURI
	}
	bucket, object, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || strings.TrimLeft(object, "/") == "" {
		return "", "", errInvalidURI
	}
	return bucket, strings.TrimLeft(object, "/"), nil
}
