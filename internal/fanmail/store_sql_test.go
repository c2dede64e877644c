package fanmail

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSQLiteStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := OpenSQL(ctx, "sqlite", filepath.Join(t.TempDir(), "fan.db"), "fan_messages")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Ping(ctx))

	first := FanMessage{ID: "01A", Name: "Asha", Email: "asha@example.com", Message: "Great innings yesterday", SubmissionDate: "2024-03-09T14:05:07.123Z", UserID: "anon-1"}
	second := FanMessage{ID: "01B", Name: "Ravi", Email: "ravi@example.com", Message: "नमस्ते, शानदार पारी!", SubmissionDate: "2024-03-10T08:00:00.000Z", UserID: "anon-2"}
	require.NoError(t, store.Add(ctx, first))
	require.NoError(t, store.Add(ctx, second))

	got, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, []FanMessage{second, first}, got)

	require.Error(t, store.Add(ctx, first), "ids are unique")
}

func TestSQLiteStoreThroughService(t *testing.T) {
	ctx := context.Background()
	store, err := OpenSQL(ctx, "sqlite", filepath.Join(t.TempDir(), "fan.db"), "fan_messages")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	svc := NewService(WithStore(store))
	msg, err := svc.Submit(ctx, Submission{Form: validForm(), UserID: "anon-9"})
	require.NoError(t, err)

	got, err := store.Recent(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, []FanMessage{msg}, got)
}

func TestOpenSQLRejectsBadInput(t *testing.T) {
	ctx := context.Background()

	_, err := OpenSQL(ctx, "sqlite", "x.db", "fan messages; drop")
	require.ErrorContains(t, err, "table name")

	_, err = OpenSQL(ctx, "mysql", "dsn", "fan_messages")
	require.ErrorContains(t, err, "unsupported")

	_, err = OpenSQL(ctx, "sqlite", " ", "fan_messages")
	require.ErrorContains(t, err, "dsn")
}

func TestPlaceholders(t *testing.T) {
	require.Equal(t, "?, ?, ?", (&SQLStore{dialect: "sqlite"}).placeholders(3))
	require.Equal(t, "$1, $2, $3", (&SQLStore{dialect: "postgres"}).placeholders(3))
	require.Equal(t, "db.sqlite?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", sqliteDSN("db.sqlite"))
	require.Equal(t, "file:x?mode=memory&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", sqliteDSN("file:x?mode=memory"))
}
