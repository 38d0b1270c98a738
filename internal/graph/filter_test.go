package graph

import (
	"testing"
	"time"
)

func TestFilterBuild(t *testing.T) {
	received := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name  string
		build func(f *Filter)
		want  string
	}{
		{
			name:  "empty",
			build: func(f *Filter) {},
			want:  "",
		},
		{
			name: "from address",
			build: func(f *Filter) {
				_ = f.FromAddress("noreply.laboral.bcn@bdo.es")
			},
			want: "from/emailAddress/address eq 'noreply.laboral.bcn@bdo.es'",
		},
		{
			name: "subject contains",
			build: func(f *Filter) {
				_ = f.SubjectContains("Hojas de Salario")
			},
			want: "contains(subject, 'Hojas de Salario')",
		},
		{
			name: "single quotes escaped",
			build: func(f *Filter) {
				_ = f.SubjectContains("O'Brien's report")
			},
			want: "contains(subject, 'O''Brien''s report')",
		},
		{
			name: "received range",
			build: func(f *Filter) {
				f.ReceivedAfter(received)
				f.ReceivedBefore(received.Add(24 * time.Hour))
			},
			want: "receivedDateTime ge 2026-03-14T09:30:00Z and receivedDateTime le 2026-03-15T09:30:00Z",
		},
		{
			name: "non-utc time normalized",
			build: func(f *Filter) {
				f.ReceivedAfter(received.In(time.FixedZone("CET", 3600)))
			},
			want: "receivedDateTime ge 2026-03-14T09:30:00Z",
		},
		{
			name: "boolean conditions",
			build: func(f *Filter) {
				f.IsRead(false)
				f.HasAttachments(true)
			},
			want: "isRead eq false and hasAttachments eq true",
		},
		{
			name: "all conditions joined with and",
			build: func(f *Filter) {
				_ = f.FromAddress("a@example.com")
				f.HasAttachments(true)
			},
			want: "from/emailAddress/address eq 'a@example.com' and hasAttachments eq true",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFilter()
			tt.build(f)
			if got := f.Build(); got != tt.want {
				t.Errorf("Build() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFilterRejectsBlankValues(t *testing.T) {
	f := NewFilter()

	if err := f.FromAddress("   "); err == nil {
		t.Error("FromAddress should reject a blank address")
	}
	if err := f.SubjectContains(""); err == nil {
		t.Error("SubjectContains should reject empty text")
	}
	if !f.Empty() {
		t.Error("rejected values must not be added to the filter")
	}
}

func TestFilterEmpty(t *testing.T) {
	f := NewFilter()
	if !f.Empty() {
		t.Error("new filter should be empty")
	}
	f.IsRead(true)
	if f.Empty() {
		t.Error("filter with a condition should not be empty")
	}
}
