// Package graph is a thin client for the Microsoft Graph mail API,
// translating REST payloads into the local model shapes.
package graph

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/avelez/graphmail/internal/logging"
	"github.com/avelez/graphmail/internal/model"
)

const defaultBaseURL = "https://graph.microsoft.com/v1.0"

// messageSelect lists the message fields requested from Graph.
var messageSelect = strings.Join([]string{
	"id", "subject", "sender", "from", "receivedDateTime",
	"bodyPreview", "body", "isRead", "hasAttachments", "parentFolderId",
}, ",")

var folderSelect = strings.Join([]string{
	"id", "displayName", "parentFolderId",
	"childFolderCount", "totalItemCount", "unreadItemCount",
}, ",")

// wellKnownFolders maps common folder spellings to Graph well-known
// folder names, resolved without a network round trip.
var wellKnownFolders = map[string]string{
	"inbox":        "inbox",
	"sent":         "sentitems",
	"sentitems":    "sentitems",
	"drafts":       "drafts",
	"archive":      "archive",
	"deleted":      "deleteditems",
	"deleteditems": "deleteditems",
	"junk":         "junkemail",
	"junkemail":    "junkemail",
	"outbox":       "outbox",
}

// Client wraps an authenticated HTTP client for Graph mail operations.
type Client struct {
	http    *http.Client
	baseURL string
	log     *slog.Logger
}

// NewClient builds a Graph client on top of an authenticated HTTP
// client.
func NewClient(httpClient *http.Client, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		http:    httpClient,
		baseURL: defaultBaseURL,
		log:     logger,
	}
}

// Me returns the signed-in user.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var wire wireUser
	if err := c.getJSON(ctx, "/me", nil, &wire); err != nil {
		return nil, err
	}
	return &User{
		ID:                wire.ID,
		DisplayName:       wire.DisplayName,
		UserPrincipalName: wire.UserPrincipalName,
	}, nil
}

// ListMessages fetches messages from a folder with pagination and an
// optional server-side filter. Messages that fail to map are skipped
// with a warning.
func (c *Client) ListMessages(ctx context.Context, folder string, limit, skip int, filter *Filter) ([]model.Email, error) {
	folderID, err := c.ResolveFolderID(ctx, folder)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("$top", strconv.Itoa(limit))
	query.Set("$skip", strconv.Itoa(skip))
	query.Set("$select", messageSelect)
	query.Set("$orderby", "receivedDateTime desc")
	if filter != nil && !filter.Empty() {
		query.Set("$filter", filter.Build())
	}

	var wire wireMessageList
	path := "/me/mailFolders/" + url.PathEscape(folderID) + "/messages"
	if err := c.getJSON(ctx, path, query, &wire); err != nil {
		return nil, err
	}

	emails := make([]model.Email, 0, len(wire.Value))
	for i := range wire.Value {
		email, err := wire.Value[i].toEmail(folderID)
		if err != nil {
			c.log.Warn("skipping message with mapping error", logging.Err(err))
			continue
		}
		emails = append(emails, email)
	}
	return emails, nil
}

// GetMessage fetches a single message by ID.
func (c *Client) GetMessage(ctx context.Context, messageID string) (*model.Email, error) {
	query := url.Values{}
	query.Set("$select", messageSelect)

	var wire wireMessage
	path := "/me/messages/" + url.PathEscape(messageID)
	if err := c.getJSON(ctx, path, query, &wire); err != nil {
		return nil, err
	}

	email, err := wire.toEmail("")
	if err != nil {
		return nil, fmt.Errorf("mapping message %s: %w", messageID, err)
	}
	return &email, nil
}

// ListFolders returns the account's mail folders.
func (c *Client) ListFolders(ctx context.Context) ([]model.Folder, error) {
	query := url.Values{}
	query.Set("$select", folderSelect)

	var wire wireFolderList
	if err := c.getJSON(ctx, "/me/mailFolders", query, &wire); err != nil {
		return nil, err
	}

	folders := make([]model.Folder, 0, len(wire.Value))
	for i := range wire.Value {
		folders = append(folders, wire.Value[i].toFolder())
	}
	return folders, nil
}

// ResolveFolderID turns a folder name into a Graph folder identifier:
// well-known aliases resolve locally, anything else is matched against
// folder display names, and an unmatched value is passed through as an
// ID.
func (c *Client) ResolveFolderID(ctx context.Context, folder string) (string, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(folder)), " ", "")
	if id, ok := wellKnownFolders[normalized]; ok {
		return id, nil
	}

	folders, err := c.ListFolders(ctx)
	if err != nil {
		return "", err
	}
	target := strings.ToLower(strings.TrimSpace(folder))
	for _, f := range folders {
		if strings.ToLower(strings.TrimSpace(f.DisplayName)) == target {
			return f.ID, nil
		}
	}
	return folder, nil
}

// ListAttachments returns attachment metadata for a message.
func (c *Client) ListAttachments(ctx context.Context, emailID string) ([]model.Attachment, error) {
	query := url.Values{}
	query.Set("$select", "id,name,contentType,size")

	var wire wireAttachmentList
	path := "/me/messages/" + url.PathEscape(emailID) + "/attachments"
	if err := c.getJSON(ctx, path, query, &wire); err != nil {
		return nil, err
	}

	attachments := make([]model.Attachment, 0, len(wire.Value))
	for i := range wire.Value {
		attachment, err := wire.Value[i].toAttachment(emailID)
		if err != nil {
			c.log.Warn("skipping attachment with mapping error",
				logging.EmailID(emailID), logging.Err(err))
			continue
		}
		attachments = append(attachments, attachment)
	}
	return attachments, nil
}

// GetAttachmentContent returns the raw bytes of an attachment. File
// attachments carry base64 content inline; when the payload has none,
// the $value endpoint is used as a fallback.
func (c *Client) GetAttachmentContent(ctx context.Context, emailID, attachmentID string) ([]byte, error) {
	var wire wireAttachment
	path := "/me/messages/" + url.PathEscape(emailID) +
		"/attachments/" + url.PathEscape(attachmentID)
	if err := c.getJSON(ctx, path, nil, &wire); err != nil {
		return nil, err
	}

	if wire.ContentBytes != "" {
		data, err := base64.StdEncoding.DecodeString(wire.ContentBytes)
		if err != nil {
			return nil, fmt.Errorf("decoding attachment %s content: %w", attachmentID, err)
		}
		return data, nil
	}

	c.log.Debug("attachment content missing inline, fetching raw value",
		logging.EmailID(emailID))
	return c.getRaw(ctx, path+"/$value")
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("building graph request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("graph request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("graph request %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding graph response %s: %w", path, err)
	}
	return nil
}

func (c *Client) getRaw(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("building graph request: %w", err)
	}
	req.Header.Set("Accept", "application/octet-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("graph request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("graph request %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return io.ReadAll(resp.Body)
}
