package model

import "time"

// EmailAddress identifies a mail participant.
type EmailAddress struct {
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
}

// Email is the local representation of a remote mail message.
// ID and ReceivedAt are remote-assigned and always populated; CreatedAt
// and UpdatedAt are maintained by the store and are zero until persisted.
type Email struct {
	ID             string     `db:"id" json:"id"`
	Subject        *string    `db:"subject" json:"subject"`
	SenderEmail    string     `db:"sender_email" json:"sender_email"`
	SenderName     *string    `db:"sender_name" json:"sender_name"`
	ReceivedAt     time.Time  `db:"received_at" json:"received_at"`
	BodyPreview    string     `db:"body_preview" json:"body_preview"`
	BodyContent    *string    `db:"body_content" json:"body_content"`
	IsRead         bool       `db:"is_read" json:"is_read"`
	HasAttachments bool       `db:"has_attachments" json:"has_attachments"`
	FolderID       *string    `db:"folder_id" json:"folder_id"`
	CreatedAt      time.Time  `db:"created_at" json:"-"`
	UpdatedAt      time.Time  `db:"updated_at" json:"-"`
}

// SubjectOrDefault returns the subject, or placeholder when the message
// has none.
func (e *Email) SubjectOrDefault(placeholder string) string {
	if e.Subject == nil || *e.Subject == "" {
		return placeholder
	}
	return *e.Subject
}

// Sender returns the sender as an EmailAddress.
func (e *Email) Sender() EmailAddress {
	addr := EmailAddress{Address: e.SenderEmail}
	if e.SenderName != nil {
		addr.Name = *e.SenderName
	}
	return addr
}

// Attachment is the local representation of one attachment's metadata
// and download state. LocalPath and DownloadedAt stay nil until the
// attachment content has been written to disk.
type Attachment struct {
	ID           string     `db:"id" json:"id"`
	EmailID      string     `db:"email_id" json:"email_id"`
	Name         string     `db:"name" json:"name"`
	ContentType  *string    `db:"content_type" json:"content_type"`
	Size         *int64     `db:"size" json:"size"`
	LocalPath    *string    `db:"local_path" json:"local_path"`
	DownloadedAt *time.Time `db:"downloaded_at" json:"downloaded_at"`
	CreatedAt    time.Time  `db:"created_at" json:"-"`
}

// Downloaded reports whether the attachment content has been stored
// locally.
func (a *Attachment) Downloaded() bool {
	return a.LocalPath != nil && a.DownloadedAt != nil
}

// Folder is a remote mail folder.
type Folder struct {
	ID               string `json:"id"`
	DisplayName      string `json:"display_name"`
	ParentFolderID   string `json:"parent_folder_id,omitempty"`
	ChildFolderCount int    `json:"child_folder_count"`
	TotalItemCount   int    `json:"total_item_count"`
	UnreadItemCount  int    `json:"unread_item_count"`
}
