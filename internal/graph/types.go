package graph

import (
	"errors"
	"time"

	"github.com/avelez/graphmail/internal/model"
)

// Wire shapes for the Microsoft Graph REST payloads this client
// consumes. Field names follow the Graph JSON casing; mapping into the
// local model happens in one place per shape so fallback order is
// explicit.

type wireEmailAddress struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

type wireRecipient struct {
	EmailAddress wireEmailAddress `json:"emailAddress"`
}

type wireBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

type wireMessage struct {
	ID               string         `json:"id"`
	Subject          *string        `json:"subject"`
	Sender           *wireRecipient `json:"sender"`
	From             *wireRecipient `json:"from"`
	ReceivedDateTime *time.Time     `json:"receivedDateTime"`
	BodyPreview      string         `json:"bodyPreview"`
	Body             *wireBody      `json:"body"`
	IsRead           bool           `json:"isRead"`
	HasAttachments   bool           `json:"hasAttachments"`
	ParentFolderID   string         `json:"parentFolderId"`
}

type wireMessageList struct {
	Value []wireMessage `json:"value"`
}

type wireFolder struct {
	ID               string `json:"id"`
	DisplayName      string `json:"displayName"`
	ParentFolderID   string `json:"parentFolderId"`
	ChildFolderCount int    `json:"childFolderCount"`
	TotalItemCount   int    `json:"totalItemCount"`
	UnreadItemCount  int    `json:"unreadItemCount"`
}

type wireFolderList struct {
	Value []wireFolder `json:"value"`
}

type wireAttachment struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	ContentType  *string `json:"contentType"`
	Size         *int64  `json:"size"`
	ContentBytes string  `json:"contentBytes"`
}

type wireAttachmentList struct {
	Value []wireAttachment `json:"value"`
}

type wireUser struct {
	ID                string `json:"id"`
	DisplayName       string `json:"displayName"`
	UserPrincipalName string `json:"userPrincipalName"`
}

// User is the signed-in Graph account.
type User struct {
	ID                string
	DisplayName       string
	UserPrincipalName string
}

var (
	errMissingMessageID  = errors.New("message has no id")
	errMissingReceivedAt = errors.New("message has no receivedDateTime")
	errMissingFolderID   = errors.New("message has no parentFolderId")
	errMissingAttachment = errors.New("attachment has no id or name")
)

// toEmail maps a wire message into the local model. The sender is read
// from "sender" first and "from" second; a message carrying neither maps
// to the placeholder address "unknown". Missing id, receivedDateTime, or
// folder (after applying defaultFolderID) is a mapping error and the
// message must be skipped, never stored.
func (m *wireMessage) toEmail(defaultFolderID string) (model.Email, error) {
	if m.ID == "" {
		return model.Email{}, errMissingMessageID
	}
	if m.ReceivedDateTime == nil {
		return model.Email{}, errMissingReceivedAt
	}

	senderEmail := "unknown"
	var senderName *string
	if recipient := m.sender(); recipient != nil && recipient.EmailAddress.Address != "" {
		senderEmail = recipient.EmailAddress.Address
		if recipient.EmailAddress.Name != "" {
			name := recipient.EmailAddress.Name
			senderName = &name
		}
	}

	folderID := m.ParentFolderID
	if folderID == "" {
		folderID = defaultFolderID
	}
	if folderID == "" {
		return model.Email{}, errMissingFolderID
	}

	email := model.Email{
		ID:             m.ID,
		Subject:        m.Subject,
		SenderEmail:    senderEmail,
		SenderName:     senderName,
		ReceivedAt:     m.ReceivedDateTime.UTC(),
		BodyPreview:    m.BodyPreview,
		IsRead:         m.IsRead,
		HasAttachments: m.HasAttachments,
		FolderID:       &folderID,
	}
	if m.Body != nil && m.Body.Content != "" {
		content := m.Body.Content
		email.BodyContent = &content
	}
	return email, nil
}

// sender returns the first populated recipient, trying "sender" then
// "from".
func (m *wireMessage) sender() *wireRecipient {
	if m.Sender != nil {
		return m.Sender
	}
	return m.From
}

func (f *wireFolder) toFolder() model.Folder {
	return model.Folder{
		ID:               f.ID,
		DisplayName:      f.DisplayName,
		ParentFolderID:   f.ParentFolderID,
		ChildFolderCount: f.ChildFolderCount,
		TotalItemCount:   f.TotalItemCount,
		UnreadItemCount:  f.UnreadItemCount,
	}
}

// toAttachment maps a wire attachment into the local model. Missing id
// or name is a mapping error.
func (a *wireAttachment) toAttachment(emailID string) (model.Attachment, error) {
	if a.ID == "" || a.Name == "" {
		return model.Attachment{}, errMissingAttachment
	}
	return model.Attachment{
		ID:          a.ID,
		EmailID:     emailID,
		Name:        a.Name,
		ContentType: a.ContentType,
		Size:        a.Size,
	}, nil
}
