// Package attachments downloads attachment content to local disk and
// tracks download state in the store.
package attachments

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/avelez/graphmail/internal/logging"
	"github.com/avelez/graphmail/internal/model"
	"github.com/avelez/graphmail/internal/store"
)

// maxUniqueAttempts bounds the collision counter when resolving a free
// file name.
const maxUniqueAttempts = 1000

// Fetcher provides attachment metadata and content from the remote mail
// API. Satisfied by graph.Client.
type Fetcher interface {
	ListAttachments(ctx context.Context, emailID string) ([]model.Attachment, error)
	GetAttachmentContent(ctx context.Context, emailID, attachmentID string) ([]byte, error)
}

// Handler lists and downloads attachments for stored emails. Downloads
// run one at a time; nothing here is safe for concurrent use across
// goroutines, matching the invoke-run-exit CLI model.
type Handler struct {
	fetcher    Fetcher
	store      *store.Store
	storageDir string
	log        *slog.Logger
	now        func() time.Time
}

// NewHandler builds a handler writing content under storageDir, one
// subdirectory per email.
func NewHandler(fetcher Fetcher, st *store.Store, storageDir string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		fetcher:    fetcher,
		store:      st,
		storageDir: storageDir,
		log:        logger,
		now:        time.Now,
	}
}

// ListAttachments fetches attachment metadata for an email and persists
// it as a side effect. Returns the stored rows.
func (h *Handler) ListAttachments(ctx context.Context, emailID string) ([]model.Attachment, error) {
	attachments, err := h.fetcher.ListAttachments(ctx, emailID)
	if err != nil {
		return nil, err
	}
	if len(attachments) == 0 {
		return nil, nil
	}
	return h.store.SaveAttachmentMetadata(ctx, emailID, attachments)
}

// Download fetches one attachment and writes it under
// <storage>/<emailID>/, returning the local path. When the store already
// records a download whose file still exists on disk, that path is
// returned without any network request. An empty filename uses the
// remote attachment name.
func (h *Handler) Download(ctx context.Context, emailID, attachmentID, filename string) (string, error) {
	stored, err := h.store.GetAttachmentByID(ctx, attachmentID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return "", err
	}
	if stored != nil && stored.LocalPath != nil {
		if _, statErr := os.Stat(*stored.LocalPath); statErr == nil {
			h.log.Debug("attachment already downloaded",
				logging.EmailID(emailID), slog.String("path", *stored.LocalPath))
			return *stored.LocalPath, nil
		}
	}

	meta, err := h.findAttachment(ctx, emailID, attachmentID)
	if err != nil {
		return "", err
	}

	name := filename
	if name == "" {
		name = meta.Name
	}
	name = SanitizeFilename(name)

	targetDir := filepath.Join(h.storageDir, emailID)
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return "", fmt.Errorf("creating attachment directory: %w", err)
	}
	target, err := uniquePath(filepath.Join(targetDir, name))
	if err != nil {
		return "", err
	}

	content, err := h.fetcher.GetAttachmentContent(ctx, emailID, attachmentID)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(target, content, 0o644); err != nil {
		return "", fmt.Errorf("writing attachment %s: %w", meta.Name, err)
	}

	if _, err := h.store.SaveAttachmentMetadata(ctx, emailID, []model.Attachment{*meta}); err != nil {
		return "", err
	}
	if _, err := h.store.MarkDownloaded(ctx, meta.ID, target, h.now().UTC()); err != nil {
		return "", err
	}

	h.log.Info("attachment downloaded",
		logging.EmailID(emailID),
		slog.String("name", meta.Name),
		slog.String("path", target))
	return target, nil
}

// DownloadAllForEmail downloads every attachment of an email
// sequentially and returns the local paths.
func (h *Handler) DownloadAllForEmail(ctx context.Context, emailID string) ([]string, error) {
	attachments, err := h.ListAttachments(ctx, emailID)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, attachment := range attachments {
		path, err := h.Download(ctx, emailID, attachment.ID, attachment.Name)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func (h *Handler) findAttachment(ctx context.Context, emailID, attachmentID string) (*model.Attachment, error) {
	attachments, err := h.fetcher.ListAttachments(ctx, emailID)
	if err != nil {
		return nil, err
	}
	for i := range attachments {
		if attachments[i].ID == attachmentID {
			return &attachments[i], nil
		}
	}
	return nil, fmt.Errorf("attachment %s not found on email %s", attachmentID, emailID)
}

// DirStats reports how many files live under dir and their total size
// in bytes. A missing directory counts as empty.
func DirStats(dir string) (int, int64, error) {
	var count int
	var total int64
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		count++
		total += info.Size()
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return 0, 0, nil
		}
		return 0, 0, fmt.Errorf("scanning attachment storage %s: %w", dir, err)
	}
	return count, total, nil
}

// SanitizeFilename strips path separators and parent references so a
// remote-supplied name cannot escape the storage directory.
func SanitizeFilename(filename string) string {
	filename = strings.ReplaceAll(filename, "/", "_")
	filename = strings.ReplaceAll(filename, "\\", "_")
	filename = strings.ReplaceAll(filename, "..", "_")
	return filename
}

// uniquePath returns path if free, otherwise the first available
// name_1, name_2, ... sibling.
func uniquePath(path string) (string, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path, nil
	}

	suffix := filepath.Ext(path)
	stem := strings.TrimSuffix(filepath.Base(path), suffix)
	parent := filepath.Dir(path)
	for counter := 1; counter <= maxUniqueAttempts; counter++ {
		candidate := filepath.Join(parent, fmt.Sprintf("%s_%d%s", stem, counter, suffix))
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("unable to resolve unique path for %s after %d attempts", path, maxUniqueAttempts)
}

// RenameWithBase renames a downloaded file to <base><ext> in place,
// resolving name collisions with the usual _N counter. A file already
// carrying the base name is left alone.
func RenameWithBase(path, base string) (string, error) {
	suffix := filepath.Ext(path)
	stem := strings.TrimSuffix(filepath.Base(path), suffix)
	if strings.HasPrefix(stem, base) {
		return path, nil
	}

	target, err := uniquePath(filepath.Join(filepath.Dir(path), base+suffix))
	if err != nil {
		return "", err
	}
	if err := os.Rename(path, target); err != nil {
		return "", fmt.Errorf("renaming %s: %w", path, err)
	}
	return target, nil
}
