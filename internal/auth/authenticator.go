package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"

	"github.com/avelez/graphmail/internal/config"
	"github.com/avelez/graphmail/internal/logging"
)

// Error is a typed authentication failure with a human-readable cause.
// The CLI maps it to a non-zero exit code and a hint to re-run login.
type Error struct {
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("authentication failed: %s", e.Reason)
	}
	return fmt.Sprintf("authentication failed: %s: %v", e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// AccountRecord is a non-secret marker of which account last completed
// interactive sign-in. It streamlines subsequent device-code flows but
// contains no token material.
type AccountRecord struct {
	Username        string `json:"username"`
	AuthenticatedAt string `json:"authenticated_at"`
}

// RefreshStore persists the OAuth refresh token outside the access-token
// cache, so expired access tokens can be renewed without user
// interaction. All operations are best-effort from the authenticator's
// point of view.
type RefreshStore interface {
	Save(token string) error
	Load() (string, error)
	Delete() error
}

// deviceFlowFunc runs the interactive device-code exchange. Swappable in
// tests.
type deviceFlowFunc func(ctx context.Context, conf *oauth2.Config, prompt io.Writer) (*oauth2.Token, error)

// Authenticator produces authenticated Graph HTTP clients, consulting
// the token cache before triggering an interactive device-code flow.
type Authenticator struct {
	cfg         config.AzureConfig
	cache       *TokenCache
	accountFile string
	refresh     RefreshStore
	log         *slog.Logger
	prompt      io.Writer
	flow        deviceFlowFunc
}

// NewAuthenticator builds an authenticator for the given Azure settings.
// Device-code instructions are written to stderr.
func NewAuthenticator(cfg config.AzureConfig, cache *TokenCache, accountFile string, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{
		cfg:         cfg,
		cache:       cache,
		accountFile: accountFile,
		refresh:     newKeyringStore(),
		log:         logger,
		prompt:      os.Stderr,
		flow:        runDeviceFlow,
	}
}

func (a *Authenticator) oauthConfig() (*oauth2.Config, error) {
	if a.cfg.ClientID == "" {
		return nil, &Error{Reason: "azure client_id not configured; set azure.client_id in the config file or GRAPHMAIL_AZURE_CLIENT_ID"}
	}
	tenant := a.cfg.Tenant
	if tenant == "" {
		tenant = "common"
	}
	return &oauth2.Config{
		ClientID: a.cfg.ClientID,
		Endpoint: microsoft.AzureADEndpoint(tenant),
		Scopes:   a.cfg.Scopes,
	}, nil
}

// Token returns a valid access token, in order of preference: the cached
// token (when valid and its scopes cover the configured ones), a silent
// renewal via the stored refresh token, and finally the interactive
// device-code flow. Newly obtained tokens are persisted before returning.
func (a *Authenticator) Token(ctx context.Context) (*oauth2.Token, error) {
	if a.cache.HasValidToken() {
		record, _ := a.cache.Load()
		if record != nil && scopesCover(record.Scopes, a.cfg.Scopes) {
			a.log.Debug("using cached access token",
				slog.String("token", logging.SanitizeToken(record.AccessToken)))
			return &oauth2.Token{
				AccessToken: record.AccessToken,
				TokenType:   "Bearer",
				Expiry:      time.Unix(record.ExpiresOn, 0),
			}, nil
		}
	}

	conf, err := a.oauthConfig()
	if err != nil {
		return nil, err
	}

	if refresh, err := a.refresh.Load(); err == nil && refresh != "" {
		src := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refresh})
		if token, err := src.Token(); err == nil {
			a.log.Debug("access token renewed from refresh token")
			a.persist(token)
			return token, nil
		}
		a.log.Debug("silent token renewal failed, falling back to device code flow")
	}

	token, err := a.flow(ctx, conf, a.prompt)
	if err != nil {
		return nil, &Error{Reason: "device code flow failed", Err: err}
	}

	a.persist(token)
	return token, nil
}

// Client returns an HTTP client that attaches the access token to every
// request, authenticating first if needed.
func (a *Authenticator) Client(ctx context.Context) (*http.Client, error) {
	token, err := a.Token(ctx)
	if err != nil {
		return nil, err
	}
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(token)), nil
}

// Reset discards the cached access token and the stored refresh token,
// forcing the next Token call through the interactive device-code flow.
// The account record is kept; it is rewritten after the new sign-in.
func (a *Authenticator) Reset() error {
	if err := a.cache.Clear(); err != nil {
		return err
	}
	if err := a.refresh.Delete(); err != nil {
		a.log.Debug("failed to remove refresh token from keyring", logging.Err(err))
	}
	return nil
}

// IsAuthenticated reports whether a valid cached token exists, without
// triggering any network activity.
func (a *Authenticator) IsAuthenticated() bool {
	return a.cache.HasValidToken()
}

// Logout clears the token cache, the account record, and the stored
// refresh token. Only a token cache failure is fatal; the rest is
// best-effort cleanup.
func (a *Authenticator) Logout() error {
	if err := a.cache.Clear(); err != nil {
		return err
	}
	if err := os.Remove(a.accountFile); err != nil && !os.IsNotExist(err) {
		a.log.Warn("failed to remove account record", logging.Err(err))
	}
	if err := a.refresh.Delete(); err != nil {
		a.log.Debug("failed to remove refresh token from keyring", logging.Err(err))
	}
	return nil
}

// SaveAccountRecord writes the non-secret authentication record for the
// signed-in account. Failures are logged, never fatal.
func (a *Authenticator) SaveAccountRecord(username string) {
	record := AccountRecord{
		Username:        username,
		AuthenticatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		a.log.Warn("failed to encode account record", logging.Err(err))
		return
	}
	if err := os.MkdirAll(filepath.Dir(a.accountFile), 0o700); err != nil {
		a.log.Warn("failed to write account record", logging.Err(err))
		return
	}
	if err := os.WriteFile(a.accountFile, data, 0o644); err != nil {
		a.log.Warn("failed to write account record", logging.Err(err))
	}
}

// AccountRecord returns the persisted account record, or nil when none
// exists or it cannot be parsed.
func (a *Authenticator) AccountRecord() *AccountRecord {
	data, err := os.ReadFile(a.accountFile)
	if err != nil {
		return nil
	}
	var record AccountRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil
	}
	return &record
}

// persist saves the token to the cache and the refresh token to the
// keyring. Neither failure aborts the authentication that just
// succeeded.
func (a *Authenticator) persist(token *oauth2.Token) {
	if err := a.cache.Save(token.AccessToken, token.Expiry.Unix(), a.cfg.Scopes); err != nil {
		a.log.Warn("failed to cache access token", logging.Err(err))
	}
	if token.RefreshToken != "" {
		if err := a.refresh.Save(token.RefreshToken); err != nil {
			a.log.Debug("failed to store refresh token in keyring", logging.Err(err))
		}
	}
}

// runDeviceFlow performs the interactive device-code exchange: it prints
// the verification URL and user code, then polls until the user
// completes sign-in out-of-band.
func runDeviceFlow(ctx context.Context, conf *oauth2.Config, prompt io.Writer) (*oauth2.Token, error) {
	response, err := conf.DeviceAuth(ctx)
	if err != nil {
		return nil, fmt.Errorf("requesting device code: %w", err)
	}

	fmt.Fprintf(prompt, "To sign in, open %s and enter the code %s\n",
		response.VerificationURI, response.UserCode)

	token, err := conf.DeviceAccessToken(ctx, response)
	if err != nil {
		return nil, fmt.Errorf("waiting for sign-in: %w", err)
	}
	return token, nil
}

// scopesCover reports whether the cached scope list is a superset of the
// requested one.
func scopesCover(cached, requested []string) bool {
	have := make(map[string]bool, len(cached))
	for _, s := range cached {
		have[s] = true
	}
	for _, s := range requested {
		if !have[s] {
			return false
		}
	}
	return true
}
