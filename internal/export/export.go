// Package export writes stored emails to JSON or CSV files.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/avelez/graphmail/internal/model"
)

// Formats supported by Emails.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// csvHeader is the fixed column order for CSV output.
var csvHeader = []string{
	"id", "subject", "sender_email", "sender_name", "received_at",
	"body_preview", "body_content", "is_read", "has_attachments", "folder_id",
}

// NormalizeFormat validates a user-supplied format string, returning the
// canonical lower-case form.
func NormalizeFormat(format string) (string, error) {
	switch strings.ToLower(format) {
	case FormatJSON:
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unsupported export format: %s (expected json or csv)", format)
	}
}

// Emails writes the given emails to path in the given format, creating
// parent directories as needed. An empty set still produces a valid
// file (an empty JSON array, or a header-only CSV).
func Emails(emails []model.Email, path, format string) error {
	format, err := NormalizeFormat(format)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating export directory: %w", err)
		}
	}

	switch format {
	case FormatJSON:
		return writeJSON(emails, path)
	default:
		return writeCSV(emails, path)
	}
}

type emailRecord struct {
	ID             string  `json:"id"`
	Subject        *string `json:"subject"`
	SenderEmail    string  `json:"sender_email"`
	SenderName     *string `json:"sender_name"`
	ReceivedAt     string  `json:"received_at"`
	BodyPreview    string  `json:"body_preview"`
	BodyContent    *string `json:"body_content"`
	IsRead         bool    `json:"is_read"`
	HasAttachments bool    `json:"has_attachments"`
	FolderID       *string `json:"folder_id"`
}

func toRecord(email model.Email) emailRecord {
	return emailRecord{
		ID:             email.ID,
		Subject:        email.Subject,
		SenderEmail:    email.SenderEmail,
		SenderName:     email.SenderName,
		ReceivedAt:     email.ReceivedAt.UTC().Format(time.RFC3339),
		BodyPreview:    email.BodyPreview,
		BodyContent:    email.BodyContent,
		IsRead:         email.IsRead,
		HasAttachments: email.HasAttachments,
		FolderID:       email.FolderID,
	}
}

func writeJSON(emails []model.Email, path string) error {
	records := make([]emailRecord, 0, len(emails))
	for _, email := range emails {
		records = append(records, toRecord(email))
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding export: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing export %s: %w", path, err)
	}
	return nil
}

func writeCSV(emails []model.Email, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("writing export %s: %w", path, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("writing export header: %w", err)
	}

	for _, email := range emails {
		record := toRecord(email)
		row := []string{
			record.ID,
			derefOrEmpty(record.Subject),
			record.SenderEmail,
			derefOrEmpty(record.SenderName),
			record.ReceivedAt,
			record.BodyPreview,
			derefOrEmpty(record.BodyContent),
			strconv.FormatBool(record.IsRead),
			strconv.FormatBool(record.HasAttachments),
			derefOrEmpty(record.FolderID),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("writing export row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flushing export %s: %w", path, err)
	}
	return nil
}

func derefOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
