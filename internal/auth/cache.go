package auth

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// expiryBuffer is subtracted from a token's expiry when deciding whether
// it can still be used. A token inside the buffer is treated as expired
// so a request never goes out with a token about to die mid-flight.
const expiryBuffer = 5 * time.Minute

// CacheError indicates a token cache write or clear failure. Read
// failures never surface as errors; they degrade to a cache miss so the
// caller re-authenticates instead of crashing.
type CacheError struct {
	Op  string
	Err error
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("token cache %s: %v", e.Op, e.Err)
}

func (e *CacheError) Unwrap() error {
	return e.Err
}

// TokenRecord is the single cached OAuth grant, stored as a JSON file on
// disk.
type TokenRecord struct {
	AccessToken string   `json:"access_token"`
	ExpiresOn   int64    `json:"expires_on"`
	Scopes      []string `json:"scopes"`
	CachedAt    string   `json:"cached_at"`
}

// TokenInfo is a derived read-only view of the cached token for status
// reporting.
type TokenInfo struct {
	Valid              bool
	ExpiresOn          int64
	ExpiresAt          time.Time
	SecondsUntilExpiry int64
	Scopes             []string
	CachedAt           string
}

// TokenCache persists exactly one OAuth token record to a file and
// answers validity queries without network access. It performs no file
// locking; the CLI is single-process per invocation and the last writer
// wins.
type TokenCache struct {
	path string
	log  *slog.Logger
	now  func() time.Time
}

// NewTokenCache returns a cache backed by the file at path.
func NewTokenCache(path string, logger *slog.Logger) *TokenCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &TokenCache{
		path: path,
		log:  logger,
		now:  time.Now,
	}
}

// Path returns the backing file location.
func (c *TokenCache) Path() string {
	return c.path
}

// Save writes a fresh token record to the backing file and restricts it
// to owner read/write.
func (c *TokenCache) Save(accessToken string, expiresOn int64, scopes []string) error {
	record := TokenRecord{
		AccessToken: accessToken,
		ExpiresOn:   expiresOn,
		Scopes:      scopes,
		CachedAt:    c.now().UTC().Format(time.RFC3339),
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return &CacheError{Op: "save", Err: err}
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0o700); err != nil {
		return &CacheError{Op: "save", Err: err}
	}
	if err := os.WriteFile(c.path, data, 0o600); err != nil {
		return &CacheError{Op: "save", Err: err}
	}
	if err := os.Chmod(c.path, 0o600); err != nil {
		return &CacheError{Op: "save", Err: err}
	}

	c.log.Debug("token cached", slog.String("path", c.path))
	return nil
}

// Load reads the cached record. A missing or unparseable file is a cache
// miss, not an error: a corrupt cache must never crash the tool, it just
// forces re-authentication.
func (c *TokenCache) Load() (*TokenRecord, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if !os.IsNotExist(err) {
			c.log.Warn("token cache unreadable, treating as empty", slog.String("path", c.path))
		}
		return nil, nil
	}

	var record TokenRecord
	if err := json.Unmarshal(data, &record); err != nil {
		c.log.Warn("token cache corrupt, treating as empty", slog.String("path", c.path))
		return nil, nil
	}
	return &record, nil
}

// HasValidToken reports whether a cached token exists, has the required
// fields, and is not within the expiry buffer. Any read failure yields
// false so the caller re-authenticates rather than trusting a bad token.
func (c *TokenCache) HasValidToken() bool {
	record, _ := c.Load()
	if record == nil {
		return false
	}
	if record.AccessToken == "" || record.ExpiresOn == 0 {
		return false
	}
	return c.now().Unix() < record.ExpiresOn-int64(expiryBuffer.Seconds())
}

// IsExpiringSoon reports whether the cached token expires within
// threshold. A missing or unreadable cache counts as expiring, so the
// caller refreshes proactively.
func (c *TokenCache) IsExpiringSoon(threshold time.Duration) bool {
	record, _ := c.Load()
	if record == nil {
		return true
	}
	return c.now().Unix() >= record.ExpiresOn-int64(threshold.Seconds())
}

// Clear deletes the backing file. Clearing an absent cache is a no-op.
func (c *TokenCache) Clear() error {
	if err := os.Remove(c.path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return &CacheError{Op: "clear", Err: err}
	}
	c.log.Debug("token cache cleared", slog.String("path", c.path))
	return nil
}

// TokenInfo returns a read-only view of the cached token, or nil when no
// record exists. SecondsUntilExpiry may be negative for an expired
// record; callers should re-check Valid rather than trust the sign.
func (c *TokenCache) TokenInfo() *TokenInfo {
	record, _ := c.Load()
	if record == nil {
		return nil
	}

	now := c.now()
	return &TokenInfo{
		Valid:              c.HasValidToken(),
		ExpiresOn:          record.ExpiresOn,
		ExpiresAt:          time.Unix(record.ExpiresOn, 0).UTC(),
		SecondsUntilExpiry: record.ExpiresOn - now.Unix(),
		Scopes:             record.Scopes,
		CachedAt:           record.CachedAt,
	}
}
