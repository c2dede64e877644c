package firestore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"finitefield.org/fansite/internal/config"
)

func TestWrapErrorClassifiesStatusCodes(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name        string
		code        codes.Code
		notFound    bool
		conflict    bool
		unavailable bool
	}{
		{name: "not found", code: codes.NotFound, notFound: true},
		{name: "already exists", code: codes.AlreadyExists, conflict: true},
		{name: "aborted", code: codes.Aborted, conflict: true},
		{name: "unavailable", code: codes.Unavailable, unavailable: true},
		{name: "exhausted", code: codes.ResourceExhausted, unavailable: true},
		{name: "permission", code: codes.PermissionDenied},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := WrapError("fan_messages.create", status.Error(tc.code, "x"))
			var storeErr *Error
			require.True(t, errors.As(err, &storeErr))
			require.Equal(t, tc.notFound, storeErr.IsNotFound())
			require.Equal(t, tc.conflict, storeErr.IsConflict())
			require.Equal(t, tc.unavailable, storeErr.IsUnavailable())
			require.Contains(t, err.Error(), "fan_messages.create")
		})
	}
}

func TestWrapErrorPassesContextErrors(t *testing.T) {
	t.Parallel()

	require.Nil(t, WrapError("op", nil))
	require.ErrorIs(t, WrapError("op", context.Canceled), context.Canceled)
	require.ErrorIs(t, WrapError("op", status.Error(codes.DeadlineExceeded, "slow")), context.DeadlineExceeded)
}

func TestProviderRequiresProject(t *testing.T) {
	t.Setenv(envGoogleProjectID, "")
	p := NewProvider(config.FirestoreConfig{})
	_, err := p.Client(context.Background())
	require.ErrorContains(t, err, "project id is required")

	require.NoError(t, p.Close())
	_, err = p.Client(context.Background())
	require.ErrorIs(t, err, ErrProviderClosed)
}
