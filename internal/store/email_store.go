package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/avelez/graphmail/internal/model"
)

// emailColumns lists the columns of the emails table that are legal as
// ordering keys.
var emailColumns = map[string]bool{
	"id":              true,
	"subject":         true,
	"sender_email":    true,
	"sender_name":     true,
	"received_at":     true,
	"body_preview":    true,
	"body_content":    true,
	"is_read":         true,
	"has_attachments": true,
	"folder_id":       true,
	"created_at":      true,
	"updated_at":      true,
}

// SearchFilter holds the optional, conjunctive filters for SearchEmails.
// Sender and Subject are case-sensitive substring matches.
type SearchFilter struct {
	Sender         *string
	Subject        *string
	DateFrom       *time.Time
	DateTo         *time.Time
	IsRead         *bool
	HasAttachments *bool
}

const upsertEmailSQL = `
INSERT INTO emails (
	id, subject, sender_email, sender_name, received_at,
	body_preview, body_content, is_read, has_attachments, folder_id,
	created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	subject = excluded.subject,
	sender_email = excluded.sender_email,
	sender_name = excluded.sender_name,
	received_at = excluded.received_at,
	body_preview = excluded.body_preview,
	body_content = excluded.body_content,
	is_read = excluded.is_read,
	has_attachments = excluded.has_attachments,
	folder_id = excluded.folder_id,
	updated_at = excluded.updated_at`

// SaveEmail inserts the message, or overwrites all mutable fields when a
// row with the same ID already exists. It returns the stored record.
func (s *Store) SaveEmail(ctx context.Context, email model.Email) (*model.Email, error) {
	now := s.now().UTC()
	_, err := s.db.ExecContext(ctx, upsertEmailSQL,
		email.ID, email.Subject, email.SenderEmail, email.SenderName,
		email.ReceivedAt.UTC().Unix(), email.BodyPreview, email.BodyContent,
		boolToInt(email.IsRead), boolToInt(email.HasAttachments), email.FolderID,
		now.Unix(), now.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("saving email %s: %w", email.ID, err)
	}
	return s.GetEmailByID(ctx, email.ID)
}

// SaveEmails bulk-upserts messages within a single transaction. The
// input is deduplicated by ID before the database round trip; when the
// same ID appears more than once, the last occurrence in input order
// wins. Returns the full set of resulting stored records.
func (s *Store) SaveEmails(ctx context.Context, emails []model.Email) ([]model.Email, error) {
	if len(emails) == 0 {
		return nil, nil
	}

	// Iterate the input in order and let later entries overwrite earlier
	// ones for the same key; the key order preserves first occurrence.
	var ids []string
	unique := make(map[string]model.Email, len(emails))
	for _, email := range emails {
		if _, seen := unique[email.ID]; !seen {
			ids = append(ids, email.ID)
		}
		unique[email.ID] = email
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	existing, err := existingEmailIDs(ctx, tx, ids)
	if err != nil {
		return nil, err
	}

	insertStmt, err := tx.PreparexContext(ctx, `
		INSERT INTO emails (
			id, subject, sender_email, sender_name, received_at,
			body_preview, body_content, is_read, has_attachments, folder_id,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("preparing insert statement: %w", err)
	}
	defer insertStmt.Close()

	updateStmt, err := tx.PreparexContext(ctx, `
		UPDATE emails SET
			subject = ?, sender_email = ?, sender_name = ?, received_at = ?,
			body_preview = ?, body_content = ?, is_read = ?, has_attachments = ?,
			folder_id = ?, updated_at = ?
		WHERE id = ?`)
	if err != nil {
		return nil, fmt.Errorf("preparing update statement: %w", err)
	}
	defer updateStmt.Close()

	now := s.now().UTC()
	for _, id := range ids {
		email := unique[id]
		if existing[id] {
			_, err = updateStmt.ExecContext(ctx,
				email.Subject, email.SenderEmail, email.SenderName,
				email.ReceivedAt.UTC().Unix(), email.BodyPreview, email.BodyContent,
				boolToInt(email.IsRead), boolToInt(email.HasAttachments), email.FolderID,
				now.Unix(), email.ID,
			)
		} else {
			_, err = insertStmt.ExecContext(ctx,
				email.ID, email.Subject, email.SenderEmail, email.SenderName,
				email.ReceivedAt.UTC().Unix(), email.BodyPreview, email.BodyContent,
				boolToInt(email.IsRead), boolToInt(email.HasAttachments), email.FolderID,
				now.Unix(), now.Unix(),
			)
		}
		if err != nil {
			return nil, fmt.Errorf("upserting email %s: %w", email.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing email batch: %w", err)
	}

	return s.emailsByIDs(ctx, ids)
}

// GetEmailByID returns the stored message, or ErrNotFound when absent.
func (s *Store) GetEmailByID(ctx context.Context, id string) (*model.Email, error) {
	row := s.db.QueryRowxContext(ctx,
		"SELECT "+emailSelectColumns+" FROM emails WHERE id = ?", id)

	email, err := scanEmail(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting email %s: %w", id, err)
	}
	return &email, nil
}

// ListEmails returns a page of stored messages. orderBy must name a
// column of the emails table; an unknown column is rejected with
// ErrInvalidColumn before any query runs. The default ordering is
// ascending received_at.
func (s *Store) ListEmails(ctx context.Context, limit, offset int, orderBy string) ([]model.Email, error) {
	if orderBy == "" {
		orderBy = "received_at"
	}
	if !emailColumns[orderBy] {
		return nil, fmt.Errorf("%w: %s", ErrInvalidColumn, orderBy)
	}
	if limit <= 0 {
		limit = 100
	}

	query := fmt.Sprintf(
		"SELECT %s FROM emails ORDER BY %s, id LIMIT ? OFFSET ?",
		emailSelectColumns, orderBy,
	)

	rows, err := s.db.QueryxContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing emails: %w", err)
	}
	defer rows.Close()

	return collectEmails(rows)
}

// SearchEmails returns all stored messages matching the filter, ordered
// by ascending received_at. Filters are optional and combined with AND;
// zero filters returns every row. Sender and subject match by
// case-sensitive substring, and a NULL subject never matches a subject
// filter.
func (s *Store) SearchEmails(ctx context.Context, filter SearchFilter) ([]model.Email, error) {
	var conditions []string
	var args []interface{}

	if filter.Sender != nil {
		conditions = append(conditions, "instr(sender_email, ?) > 0")
		args = append(args, *filter.Sender)
	}
	if filter.Subject != nil {
		conditions = append(conditions, "subject IS NOT NULL AND instr(subject, ?) > 0")
		args = append(args, *filter.Subject)
	}
	if filter.DateFrom != nil {
		conditions = append(conditions, "received_at >= ?")
		args = append(args, filter.DateFrom.UTC().Unix())
	}
	if filter.DateTo != nil {
		conditions = append(conditions, "received_at <= ?")
		args = append(args, filter.DateTo.UTC().Unix())
	}
	if filter.IsRead != nil {
		conditions = append(conditions, "is_read = ?")
		args = append(args, boolToInt(*filter.IsRead))
	}
	if filter.HasAttachments != nil {
		conditions = append(conditions, "has_attachments = ?")
		args = append(args, boolToInt(*filter.HasAttachments))
	}

	query := "SELECT " + emailSelectColumns + " FROM emails"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY received_at, id"

	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("searching emails: %w", err)
	}
	defer rows.Close()

	return collectEmails(rows)
}

// CountEmails returns the number of cached messages.
func (s *Store) CountEmails(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM emails"); err != nil {
		return 0, fmt.Errorf("counting emails: %w", err)
	}
	return count, nil
}

// DeleteEmail removes a stored message; its attachment rows go with it
// via the cascading foreign key.
func (s *Store) DeleteEmail(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM emails WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting email %s: %w", id, err)
	}
	return nil
}

func (s *Store) emailsByIDs(ctx context.Context, ids []string) ([]model.Email, error) {
	query, args, err := sqlx.In(
		"SELECT "+emailSelectColumns+" FROM emails WHERE id IN (?)", ids)
	if err != nil {
		return nil, fmt.Errorf("building id query: %w", err)
	}

	rows, err := s.db.QueryxContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("querying emails by id: %w", err)
	}
	defer rows.Close()

	return collectEmails(rows)
}

func existingEmailIDs(ctx context.Context, tx *sqlx.Tx, ids []string) (map[string]bool, error) {
	query, args, err := sqlx.In("SELECT id FROM emails WHERE id IN (?)", ids)
	if err != nil {
		return nil, fmt.Errorf("building existence query: %w", err)
	}

	rows, err := tx.QueryxContext(ctx, tx.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("querying existing ids: %w", err)
	}
	defer rows.Close()

	existing := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning existing id: %w", err)
		}
		existing[id] = true
	}
	return existing, rows.Err()
}

const emailSelectColumns = `id, subject, sender_email, sender_name, received_at,
	body_preview, body_content, is_read, has_attachments, folder_id,
	created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanEmail reads one emails row, converting Unix timestamps and
// nullable columns into the model shape.
func scanEmail(row rowScanner) (model.Email, error) {
	var (
		email          model.Email
		subject        sql.NullString
		senderName     sql.NullString
		bodyContent    sql.NullString
		folderID       sql.NullString
		receivedAt     int64
		isRead         int
		hasAttachments int
		createdAt      int64
		updatedAt      int64
	)

	err := row.Scan(
		&email.ID, &subject, &email.SenderEmail, &senderName, &receivedAt,
		&email.BodyPreview, &bodyContent, &isRead, &hasAttachments, &folderID,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return model.Email{}, err
	}

	if subject.Valid {
		email.Subject = &subject.String
	}
	if senderName.Valid {
		email.SenderName = &senderName.String
	}
	if bodyContent.Valid {
		email.BodyContent = &bodyContent.String
	}
	if folderID.Valid {
		email.FolderID = &folderID.String
	}
	email.ReceivedAt = time.Unix(receivedAt, 0).UTC()
	email.IsRead = isRead != 0
	email.HasAttachments = hasAttachments != 0
	email.CreatedAt = time.Unix(createdAt, 0).UTC()
	email.UpdatedAt = time.Unix(updatedAt, 0).UTC()

	return email, nil
}

func collectEmails(rows *sqlx.Rows) ([]model.Email, error) {
	var emails []model.Email
	for rows.Next() {
		email, err := scanEmail(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning email row: %w", err)
		}
		emails = append(emails, email)
	}
	return emails, rows.Err()
}
