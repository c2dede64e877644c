// Package ratelimit provides fixed-window limiters keyed by client.
package ratelimit

import (
	"context"
	"strings"
)

// Limiter decides whether another event for key fits in the current window.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Unlimited allows every event.
type Unlimited struct{}

// Allow always reports true.
func (Unlimited) Allow(context.Context, string) (bool, error) { return true, nil }

func normaliseKey(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return "anonymous"
	}
	return key
}
