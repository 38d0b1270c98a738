package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelez/graphmail/internal/model"
)

func sampleStatusEmails() []model.Email {
	receivedAt := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	return []model.Email{
		{ID: "msg-1", SenderEmail: "a@example.com", ReceivedAt: receivedAt},
		{ID: "msg-2", SenderEmail: "b@example.com", ReceivedAt: receivedAt},
	}
}

func runStatus(t *testing.T) string {
	t.Helper()

	statusCmd := newStatusCmd()
	var out bytes.Buffer
	statusCmd.SetOut(&out)
	statusCmd.SetErr(&out)
	statusCmd.SetContext(context.Background())
	require.NoError(t, statusCmd.RunE(statusCmd, nil))
	return out.String()
}

func TestStatusWithoutToken(t *testing.T) {
	setTestConfig(t)

	out := runStatus(t)

	assert.Contains(t, out, "none")
	assert.Contains(t, out, cfg.Database.Path)
	assert.Contains(t, out, cfg.Storage.AttachmentsDir)
	assert.Contains(t, out, "0")
}

func TestStatusReportsTokenExpiringSoon(t *testing.T) {
	setTestConfig(t)

	// Valid (outside the 5-minute buffer) but inside the renewal notice
	// window.
	cache := newTokenCache()
	require.NoError(t, cache.Save("token-abc", time.Now().Unix()+600, nil))

	out := runStatus(t)

	assert.Contains(t, out, "valid")
	assert.Contains(t, out, "expires soon")
}

func TestStatusCountsCacheContents(t *testing.T) {
	setTestConfig(t)

	cache := newTokenCache()
	require.NoError(t, cache.Save("token-abc", time.Now().Unix()+7200, nil))

	db, err := openStore()
	require.NoError(t, err)
	_, err = db.SaveEmails(context.Background(), sampleStatusEmails())
	require.NoError(t, err)
	require.NoError(t, db.Close())

	attachmentDir := filepath.Join(cfg.Storage.AttachmentsDir, "msg-1")
	require.NoError(t, os.MkdirAll(attachmentDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(attachmentDir, "payslip.pdf"), make([]byte, 2048), 0o644))

	out := runStatus(t)

	assert.Contains(t, out, "2")
	assert.Contains(t, out, "1 (2.0 KiB)")
	assert.NotContains(t, out, "expires soon")
}
