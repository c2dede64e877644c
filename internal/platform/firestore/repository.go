package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Encoder serialises the strongly typed entity prior to persistence.
type Encoder[T any] func(ctx context.Context, value T) (any, error)

// Collection provides typed append access to one Firestore collection.
type Collection[T any] struct {
	provider *Provider
	name     string
	encode   Encoder[T]
}

// NewCollection binds a typed collection. A nil encoder writes the value as-is.
func NewCollection[T any](provider *Provider, name string, encode Encoder[T]) *Collection[T] {
	if encode == nil {
		encode = func(_ context.Context, value T) (any, error) { return value, nil }
	}
	return &Collection[T]{provider: provider, name: strings.TrimSpace(name), encode: encode}
}

// Name returns the collection name.
func (c *Collection[T]) Name() string { return c.name }

// Create writes value under id and fails when the document already exists.
func (c *Collection[T]) Create(ctx context.Context, id string, value T) (time.Time, error) {
	if c == nil || c.provider == nil {
		return time.Time{}, errors.New("firestore: collection not initialised")
	}
	if strings.TrimSpace(id) == "" {
		return time.Time{}, errors.New("firestore: document id is required")
	}
	client, err := c.provider.Client(ctx)
	if err != nil {
		return time.Time{}, err
	}
	payload, err := c.encode(ctx, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("firestore: encode %s/%s: %w", c.name, id, err)
	}
	res, err := client.Collection(c.name).Doc(id).Create(ctx, payload)
	if err != nil {
		return time.Time{}, WrapError(c.name+".create", err)
	}
	return res.UpdateTime, nil
}
