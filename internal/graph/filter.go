package graph

import (
	"fmt"
	"strings"
	"time"
)

// Filter builds OData $filter expressions for Graph message queries.
type Filter struct {
	conditions []string
}

// NewFilter returns an empty filter.
func NewFilter() *Filter {
	return &Filter{}
}

// FromAddress filters by exact sender email address.
func (f *Filter) FromAddress(address string) error {
	address = strings.TrimSpace(address)
	if address == "" {
		return fmt.Errorf("sender address cannot be empty")
	}
	f.conditions = append(f.conditions,
		fmt.Sprintf("from/emailAddress/address eq '%s'", escapeODataString(address)))
	return nil
}

// SubjectContains filters by subject containing text.
func (f *Filter) SubjectContains(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("subject filter text cannot be empty")
	}
	f.conditions = append(f.conditions,
		fmt.Sprintf("contains(subject, '%s')", escapeODataString(text)))
	return nil
}

// ReceivedAfter filters messages received at or after t.
func (f *Filter) ReceivedAfter(t time.Time) {
	f.conditions = append(f.conditions,
		fmt.Sprintf("receivedDateTime ge %s", formatODataTime(t)))
}

// ReceivedBefore filters messages received at or before t.
func (f *Filter) ReceivedBefore(t time.Time) {
	f.conditions = append(f.conditions,
		fmt.Sprintf("receivedDateTime le %s", formatODataTime(t)))
}

// IsRead filters by read status.
func (f *Filter) IsRead(read bool) {
	f.conditions = append(f.conditions, fmt.Sprintf("isRead eq %t", read))
}

// HasAttachments filters by attachment presence.
func (f *Filter) HasAttachments(has bool) {
	f.conditions = append(f.conditions, fmt.Sprintf("hasAttachments eq %t", has))
}

// Empty reports whether no conditions have been added.
func (f *Filter) Empty() bool {
	return len(f.conditions) == 0
}

// Build joins all conditions with "and".
func (f *Filter) Build() string {
	return strings.Join(f.conditions, " and ")
}

// escapeODataString escapes single quotes for OData string literals.
func escapeODataString(value string) string {
	return strings.ReplaceAll(value, "'", "''")
}

// formatODataTime renders a timestamp in ISO 8601 with the UTC Z suffix.
func formatODataTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z")
}
