package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/avelez/graphmail/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func strPtr(s string) *string { return &s }

func int64Ptr(n int64) *int64 { return &n }

// testEmail builds a message with a deterministic received time derived
// from the id suffix, so ordering assertions stay readable.
func testEmail(id string, receivedAt time.Time) model.Email {
	return model.Email{
		ID:          id,
		Subject:     strPtr("subject " + id),
		SenderEmail: "sender@example.com",
		ReceivedAt:  receivedAt,
		BodyPreview: "preview",
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.runMigrations())
}
