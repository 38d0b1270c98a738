package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/avelez/graphmail/internal/model"
)

const upsertAttachmentSQL = `
INSERT INTO attachments (id, email_id, name, content_type, size, created_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	email_id = excluded.email_id,
	name = excluded.name,
	content_type = excluded.content_type,
	size = excluded.size`

// SaveAttachmentMetadata upserts attachment rows for a parent message.
// Download state (local_path, downloaded_at) is never touched here; it
// belongs to MarkDownloaded.
func (s *Store) SaveAttachmentMetadata(ctx context.Context, emailID string, attachments []model.Attachment) ([]model.Attachment, error) {
	if len(attachments) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, upsertAttachmentSQL)
	if err != nil {
		return nil, fmt.Errorf("preparing attachment upsert: %w", err)
	}
	defer stmt.Close()

	now := s.now().UTC()
	for _, attachment := range attachments {
		_, err := stmt.ExecContext(ctx,
			attachment.ID, emailID, attachment.Name,
			attachment.ContentType, attachment.Size, now.Unix(),
		)
		if err != nil {
			return nil, fmt.Errorf("upserting attachment %s: %w", attachment.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing attachment batch: %w", err)
	}

	return s.ListAttachmentsForEmail(ctx, emailID)
}

// MarkDownloaded records a successful download on an existing attachment
// row and returns the updated record, or ErrNotFound when the attachment
// is unknown.
func (s *Store) MarkDownloaded(ctx context.Context, attachmentID, localPath string, downloadedAt time.Time) (*model.Attachment, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE attachments SET local_path = ?, downloaded_at = ? WHERE id = ?",
		localPath, downloadedAt.UTC().Unix(), attachmentID,
	)
	if err != nil {
		return nil, fmt.Errorf("marking attachment %s downloaded: %w", attachmentID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("marking attachment %s downloaded: %w", attachmentID, err)
	}
	if affected == 0 {
		return nil, ErrNotFound
	}

	return s.GetAttachmentByID(ctx, attachmentID)
}

// GetAttachmentByID returns the stored attachment, or ErrNotFound when
// absent.
func (s *Store) GetAttachmentByID(ctx context.Context, id string) (*model.Attachment, error) {
	row := s.db.QueryRowxContext(ctx,
		"SELECT "+attachmentSelectColumns+" FROM attachments WHERE id = ?", id)

	attachment, err := scanAttachment(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting attachment %s: %w", id, err)
	}
	return &attachment, nil
}

// ListAttachmentsForEmail returns all attachment rows for a parent
// message, in storage order.
func (s *Store) ListAttachmentsForEmail(ctx context.Context, emailID string) ([]model.Attachment, error) {
	rows, err := s.db.QueryxContext(ctx,
		"SELECT "+attachmentSelectColumns+" FROM attachments WHERE email_id = ?", emailID)
	if err != nil {
		return nil, fmt.Errorf("listing attachments for %s: %w", emailID, err)
	}
	defer rows.Close()

	var attachments []model.Attachment
	for rows.Next() {
		attachment, err := scanAttachment(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning attachment row: %w", err)
		}
		attachments = append(attachments, attachment)
	}
	return attachments, rows.Err()
}

const attachmentSelectColumns = `id, email_id, name, content_type, size,
	local_path, downloaded_at, created_at`

func scanAttachment(row rowScanner) (model.Attachment, error) {
	var (
		attachment   model.Attachment
		contentType  sql.NullString
		size         sql.NullInt64
		localPath    sql.NullString
		downloadedAt sql.NullInt64
		createdAt    int64
	)

	err := row.Scan(
		&attachment.ID, &attachment.EmailID, &attachment.Name,
		&contentType, &size, &localPath, &downloadedAt, &createdAt,
	)
	if err != nil {
		return model.Attachment{}, err
	}

	if contentType.Valid {
		attachment.ContentType = &contentType.String
	}
	if size.Valid {
		attachment.Size = &size.Int64
	}
	if localPath.Valid {
		attachment.LocalPath = &localPath.String
	}
	if downloadedAt.Valid {
		at := time.Unix(downloadedAt.Int64, 0).UTC()
		attachment.DownloadedAt = &at
	}
	attachment.CreatedAt = time.Unix(createdAt, 0).UTC()

	return attachment, nil
}
