package graph

import (
	"errors"
	"testing"
	"time"
)

func timePtr(t time.Time) *time.Time { return &t }

func strPtr(s string) *string { return &s }

func TestWireMessageToEmail(t *testing.T) {
	received := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

	t.Run("full message", func(t *testing.T) {
		m := wireMessage{
			ID:      "msg-1",
			Subject: strPtr("Quarterly report"),
			Sender: &wireRecipient{EmailAddress: wireEmailAddress{
				Name: "Alice", Address: "alice@example.com",
			}},
			ReceivedDateTime: timePtr(received),
			BodyPreview:      "Please find attached",
			Body:             &wireBody{ContentType: "html", Content: "<p>hi</p>"},
			IsRead:           true,
			HasAttachments:   true,
			ParentFolderID:   "folder-1",
		}

		email, err := m.toEmail("")
		if err != nil {
			t.Fatalf("toEmail() error = %v", err)
		}
		if email.SenderEmail != "alice@example.com" {
			t.Errorf("SenderEmail = %q", email.SenderEmail)
		}
		if email.SenderName == nil || *email.SenderName != "Alice" {
			t.Errorf("SenderName = %v", email.SenderName)
		}
		if !email.ReceivedAt.Equal(received) {
			t.Errorf("ReceivedAt = %v", email.ReceivedAt)
		}
		if email.BodyContent == nil || *email.BodyContent != "<p>hi</p>" {
			t.Errorf("BodyContent = %v", email.BodyContent)
		}
		if email.FolderID == nil || *email.FolderID != "folder-1" {
			t.Errorf("FolderID = %v", email.FolderID)
		}
	})

	t.Run("missing id", func(t *testing.T) {
		m := wireMessage{ReceivedDateTime: timePtr(received)}
		if _, err := m.toEmail("inbox"); !errors.Is(err, errMissingMessageID) {
			t.Errorf("err = %v, want errMissingMessageID", err)
		}
	})

	t.Run("missing received time", func(t *testing.T) {
		m := wireMessage{ID: "msg-1"}
		if _, err := m.toEmail("inbox"); !errors.Is(err, errMissingReceivedAt) {
			t.Errorf("err = %v, want errMissingReceivedAt", err)
		}
	})

	t.Run("sender falls back to from", func(t *testing.T) {
		m := wireMessage{
			ID:               "msg-1",
			From:             &wireRecipient{EmailAddress: wireEmailAddress{Address: "from@example.com"}},
			ReceivedDateTime: timePtr(received),
			ParentFolderID:   "folder-1",
		}
		email, err := m.toEmail("")
		if err != nil {
			t.Fatalf("toEmail() error = %v", err)
		}
		if email.SenderEmail != "from@example.com" {
			t.Errorf("SenderEmail = %q, want from@example.com", email.SenderEmail)
		}
	})

	t.Run("sender preferred over from", func(t *testing.T) {
		m := wireMessage{
			ID:               "msg-1",
			Sender:           &wireRecipient{EmailAddress: wireEmailAddress{Address: "sender@example.com"}},
			From:             &wireRecipient{EmailAddress: wireEmailAddress{Address: "from@example.com"}},
			ReceivedDateTime: timePtr(received),
			ParentFolderID:   "folder-1",
		}
		email, err := m.toEmail("")
		if err != nil {
			t.Fatalf("toEmail() error = %v", err)
		}
		if email.SenderEmail != "sender@example.com" {
			t.Errorf("SenderEmail = %q, want sender@example.com", email.SenderEmail)
		}
	})

	t.Run("no sender at all maps to unknown", func(t *testing.T) {
		m := wireMessage{
			ID:               "msg-1",
			ReceivedDateTime: timePtr(received),
			ParentFolderID:   "folder-1",
		}
		email, err := m.toEmail("")
		if err != nil {
			t.Fatalf("toEmail() error = %v", err)
		}
		if email.SenderEmail != "unknown" {
			t.Errorf("SenderEmail = %q, want unknown", email.SenderEmail)
		}
	})

	t.Run("default folder applied", func(t *testing.T) {
		m := wireMessage{ID: "msg-1", ReceivedDateTime: timePtr(received)}
		email, err := m.toEmail("inbox")
		if err != nil {
			t.Fatalf("toEmail() error = %v", err)
		}
		if email.FolderID == nil || *email.FolderID != "inbox" {
			t.Errorf("FolderID = %v, want inbox", email.FolderID)
		}
	})

	t.Run("no folder anywhere", func(t *testing.T) {
		m := wireMessage{ID: "msg-1", ReceivedDateTime: timePtr(received)}
		if _, err := m.toEmail(""); !errors.Is(err, errMissingFolderID) {
			t.Errorf("err = %v, want errMissingFolderID", err)
		}
	})
}

func TestWireAttachmentToAttachment(t *testing.T) {
	size := int64(2048)
	a := wireAttachment{
		ID:          "att-1",
		Name:        "payslip.pdf",
		ContentType: strPtr("application/pdf"),
		Size:        &size,
	}

	attachment, err := a.toAttachment("msg-1")
	if err != nil {
		t.Fatalf("toAttachment() error = %v", err)
	}
	if attachment.EmailID != "msg-1" {
		t.Errorf("EmailID = %q", attachment.EmailID)
	}
	if attachment.Name != "payslip.pdf" {
		t.Errorf("Name = %q", attachment.Name)
	}

	for _, bad := range []wireAttachment{
		{Name: "payslip.pdf"},
		{ID: "att-1"},
	} {
		if _, err := bad.toAttachment("msg-1"); !errors.Is(err, errMissingAttachment) {
			t.Errorf("toAttachment(%+v) err = %v, want errMissingAttachment", bad, err)
		}
	}
}
