package cmd

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/avelez/graphmail/internal/auth"
	"github.com/avelez/graphmail/internal/graph"
	"github.com/avelez/graphmail/internal/model"
	"github.com/avelez/graphmail/internal/store"
)

// filterFlags are the sender/subject/date/state flags shared by fetch,
// list, and export.
type filterFlags struct {
	from           string
	subject        string
	after          string
	before         string
	unread         bool
	read           bool
	hasAttachments bool
}

func newAuthenticator() *auth.Authenticator {
	cache := auth.NewTokenCache(cfg.Storage.TokenFile, logger)
	return auth.NewAuthenticator(cfg.Azure, cache, cfg.Storage.AccountFile, logger)
}

func newTokenCache() *auth.TokenCache {
	return auth.NewTokenCache(cfg.Storage.TokenFile, logger)
}

// newOAuthHTTPClient wraps an already-obtained token, so commands that
// just authenticated can reuse it without a second cache round trip.
func newOAuthHTTPClient(ctx context.Context, token *oauth2.Token) *http.Client {
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))
}

func newGraphClient(ctx context.Context) (*graph.Client, error) {
	httpClient, err := newAuthenticator().Client(ctx)
	if err != nil {
		return nil, err
	}
	return graph.NewClient(httpClient, logger), nil
}

func openStore() (*store.Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	return store.Open(cfg.Database.Path)
}

// parseDate accepts YYYY-MM-DD or full RFC 3339 timestamps.
func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD or ISO-8601)", value)
}

// normalizeTextFilter rejects supplied-but-blank filter values before
// any I/O happens.
func normalizeTextFilter(value, label string) (string, error) {
	if value == "" {
		return "", nil
	}
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", fmt.Errorf("%s filter cannot be blank", label)
	}
	return trimmed, nil
}

// resolveReadFlag turns the --read/--unread pair into an optional bool,
// rejecting the conflicting combination.
func resolveReadFlag(read, unread bool) (*bool, error) {
	if read && unread {
		return nil, fmt.Errorf("choose only one of --read or --unread")
	}
	if read {
		value := true
		return &value, nil
	}
	if unread {
		value := false
		return &value, nil
	}
	return nil, nil
}

// parseDateRange validates the optional --after/--before pair.
func parseDateRange(after, before string) (*time.Time, *time.Time, error) {
	var from, to *time.Time
	if after != "" {
		t, err := parseDate(after)
		if err != nil {
			return nil, nil, err
		}
		from = &t
	}
	if before != "" {
		t, err := parseDate(before)
		if err != nil {
			return nil, nil, err
		}
		to = &t
	}
	if from != nil && to != nil && from.After(*to) {
		return nil, nil, fmt.Errorf("--after must not be later than --before")
	}
	return from, to, nil
}

// searchFilter builds the local store filter from CLI flags, validating
// everything before the database is touched.
func (f *filterFlags) searchFilter() (store.SearchFilter, error) {
	var filter store.SearchFilter

	from, err := normalizeTextFilter(f.from, "sender")
	if err != nil {
		return filter, err
	}
	if from != "" {
		filter.Sender = &from
	}

	subject, err := normalizeTextFilter(f.subject, "subject")
	if err != nil {
		return filter, err
	}
	if subject != "" {
		filter.Subject = &subject
	}

	filter.DateFrom, filter.DateTo, err = parseDateRange(f.after, f.before)
	if err != nil {
		return filter, err
	}

	filter.IsRead, err = resolveReadFlag(f.read, f.unread)
	if err != nil {
		return filter, err
	}

	if f.hasAttachments {
		value := true
		filter.HasAttachments = &value
	}

	return filter, nil
}

// remoteFilter builds the Graph OData filter from CLI flags.
func (f *filterFlags) remoteFilter() (*graph.Filter, error) {
	filter := graph.NewFilter()

	from, err := normalizeTextFilter(f.from, "sender")
	if err != nil {
		return nil, err
	}
	if from != "" {
		if err := filter.FromAddress(from); err != nil {
			return nil, err
		}
	}

	subject, err := normalizeTextFilter(f.subject, "subject")
	if err != nil {
		return nil, err
	}
	if subject != "" {
		if err := filter.SubjectContains(subject); err != nil {
			return nil, err
		}
	}

	dateFrom, dateTo, err := parseDateRange(f.after, f.before)
	if err != nil {
		return nil, err
	}
	if dateFrom != nil {
		filter.ReceivedAfter(*dateFrom)
	}
	if dateTo != nil {
		filter.ReceivedBefore(*dateTo)
	}

	read, err := resolveReadFlag(f.read, f.unread)
	if err != nil {
		return nil, err
	}
	if read != nil {
		filter.IsRead(*read)
	}

	if f.hasAttachments {
		filter.HasAttachments(true)
	}

	return filter, nil
}

// applyOffsetLimit slices search results client-side; limit <= 0 means
// no limit.
func applyOffsetLimit(emails []model.Email, offset, limit int) []model.Email {
	if offset >= len(emails) {
		return nil
	}
	if offset > 0 {
		emails = emails[offset:]
	}
	if limit > 0 && limit < len(emails) {
		emails = emails[:limit]
	}
	return emails
}

func addFilterFlags(cmd *cobra.Command, flags *filterFlags) {
	cmd.Flags().StringVar(&flags.from, "from", "", "Filter by sender address substring")
	cmd.Flags().StringVar(&flags.subject, "subject", "", "Filter by subject substring")
	cmd.Flags().StringVar(&flags.after, "after", "", "Only messages received on or after this date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&flags.before, "before", "", "Only messages received on or before this date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&flags.unread, "unread", false, "Only unread messages")
	cmd.Flags().BoolVar(&flags.read, "read", false, "Only read messages")
	cmd.Flags().BoolVar(&flags.hasAttachments, "has-attachments", false, "Only messages with attachments")
}
