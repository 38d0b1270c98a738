// Package render formats command output for the terminal.
package render

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/avelez/graphmail/internal/auth"
	"github.com/avelez/graphmail/internal/model"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	panelStyle  = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)
	titleStyle = lipgloss.NewStyle().Bold(true).Underline(true)
)

const maxSubjectWidth = 48

// EmailTable renders stored emails as a table.
func EmailTable(emails []model.Email) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return lipgloss.NewStyle()
		}).
		Headers("ID", "From", "Subject", "Received", "Read", "Att")

	for _, email := range emails {
		t.Row(
			shorten(email.ID, 12),
			email.SenderEmail,
			truncate(email.SubjectOrDefault("(no subject)"), maxSubjectWidth),
			email.ReceivedAt.Local().Format("2006-01-02 15:04"),
			yesNo(email.IsRead),
			yesNo(email.HasAttachments),
		)
	}
	return t.String()
}

// AttachmentTable renders attachment rows for a single email.
func AttachmentTable(attachments []model.Attachment) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return lipgloss.NewStyle()
		}).
		Headers("ID", "Name", "Type", "Size", "Downloaded")

	for _, attachment := range attachments {
		contentType := ""
		if attachment.ContentType != nil {
			contentType = *attachment.ContentType
		}
		size := ""
		if attachment.Size != nil {
			size = strconv.FormatInt(*attachment.Size, 10)
		}
		downloaded := "no"
		if attachment.Downloaded() {
			downloaded = *attachment.LocalPath
		}
		t.Row(shorten(attachment.ID, 12), attachment.Name, contentType, size, downloaded)
	}
	return t.String()
}

// EmailIDs writes full message IDs one per line, for piping into other
// commands.
func EmailIDs(w io.Writer, emails []model.Email) {
	for _, email := range emails {
		fmt.Fprintln(w, email.ID)
	}
}

// Panel renders a titled box around body text.
func Panel(title, body string) string {
	return panelStyle.Render(titleStyle.Render(title) + "\n" + body)
}

// TokenStatus renders the token cache view plus the persisted account
// record, if any. When expiringSoon is set for a still-valid token, a
// renewal hint is appended.
func TokenStatus(info *auth.TokenInfo, account *auth.AccountRecord, expiringSoon bool) string {
	var b strings.Builder

	if account != nil {
		fmt.Fprintf(&b, "Account:    %s\n", account.Username)
		fmt.Fprintf(&b, "Signed in:  %s\n", account.AuthenticatedAt)
	}

	if info == nil {
		b.WriteString("Token:      none (run 'graphmail login')")
		return Panel("Status", b.String())
	}

	state := "expired"
	if info.Valid {
		state = "valid"
	}
	fmt.Fprintf(&b, "Token:      %s\n", state)
	fmt.Fprintf(&b, "Expires at: %s\n", info.ExpiresAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Expires in: %ds\n", info.SecondsUntilExpiry)
	fmt.Fprintf(&b, "Scopes:     %s", strings.Join(info.Scopes, ", "))
	if expiringSoon && info.Valid {
		b.WriteString("\nNote:       token expires soon, run 'graphmail login' to renew")
	}
	return Panel("Status", b.String())
}

// StorageStatus summarizes the local cache footprint for the status
// command.
type StorageStatus struct {
	DatabasePath    string
	EmailCount      int64
	AttachmentsDir  string
	AttachmentFiles int
	AttachmentBytes int64
}

// StoragePanel renders database and attachment storage statistics.
func StoragePanel(s StorageStatus) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Database:    %s\n", s.DatabasePath)
	fmt.Fprintf(&b, "Emails:      %d\n", s.EmailCount)
	fmt.Fprintf(&b, "Attachments: %s\n", s.AttachmentsDir)
	fmt.Fprintf(&b, "Files:       %d (%s)", s.AttachmentFiles, formatBytes(s.AttachmentBytes))
	return Panel("Storage", b.String())
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// truncate shortens s to at most max runes, never splitting a
// multi-byte character.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}

func shorten(id string, max int) string {
	if len(id) <= max {
		return id
	}
	return id[:max]
}
