package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelez/graphmail/internal/model"
)

func saveParentEmail(t *testing.T, s *Store, id string) {
	t.Helper()
	_, err := s.SaveEmail(context.Background(), testEmail(id, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
}

func TestSaveAttachmentMetadata(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	saveParentEmail(t, s, "msg-1")

	saved, err := s.SaveAttachmentMetadata(ctx, "msg-1", []model.Attachment{
		{ID: "att-1", Name: "payslip.pdf", ContentType: strPtr("application/pdf"), Size: int64Ptr(2048)},
		{ID: "att-2", Name: "notes.txt"},
	})
	require.NoError(t, err)
	require.Len(t, saved, 2)

	assert.Equal(t, "msg-1", saved[0].EmailID)
	assert.Equal(t, "payslip.pdf", saved[0].Name)
	assert.Equal(t, "application/pdf", *saved[0].ContentType)
	assert.Equal(t, int64(2048), *saved[0].Size)
	assert.False(t, saved[0].Downloaded())

	assert.Nil(t, saved[1].ContentType)
	assert.Nil(t, saved[1].Size)
}

func TestSaveAttachmentMetadataPreservesDownloadState(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	saveParentEmail(t, s, "msg-1")

	_, err := s.SaveAttachmentMetadata(ctx, "msg-1", []model.Attachment{
		{ID: "att-1", Name: "payslip.pdf"},
	})
	require.NoError(t, err)

	downloadedAt := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	_, err = s.MarkDownloaded(ctx, "att-1", "/tmp/payslip.pdf", downloadedAt)
	require.NoError(t, err)

	// A metadata refresh must not reset local_path or downloaded_at.
	saved, err := s.SaveAttachmentMetadata(ctx, "msg-1", []model.Attachment{
		{ID: "att-1", Name: "payslip-renamed.pdf"},
	})
	require.NoError(t, err)
	require.Len(t, saved, 1)

	assert.Equal(t, "payslip-renamed.pdf", saved[0].Name)
	require.True(t, saved[0].Downloaded())
	assert.Equal(t, "/tmp/payslip.pdf", *saved[0].LocalPath)
	assert.Equal(t, downloadedAt, *saved[0].DownloadedAt)
}

func TestMarkDownloadedUnknownAttachment(t *testing.T) {
	s := newTestStore(t)

	_, err := s.MarkDownloaded(context.Background(), "missing", "/tmp/x", time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetAttachmentByIDNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetAttachmentByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteEmailCascadesAttachments(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	saveParentEmail(t, s, "msg-1")

	_, err := s.SaveAttachmentMetadata(ctx, "msg-1", []model.Attachment{
		{ID: "att-1", Name: "payslip.pdf"},
	})
	require.NoError(t, err)

	require.NoError(t, s.DeleteEmail(ctx, "msg-1"))

	_, err = s.GetAttachmentByID(ctx, "att-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveAttachmentMetadataRequiresParent(t *testing.T) {
	s := newTestStore(t)

	_, err := s.SaveAttachmentMetadata(context.Background(), "no-such-email", []model.Attachment{
		{ID: "att-1", Name: "orphan.pdf"},
	})
	assert.Error(t, err)
}
