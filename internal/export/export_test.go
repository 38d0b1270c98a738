package export

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelez/graphmail/internal/model"
)

func strPtr(s string) *string { return &s }

func sampleEmails() []model.Email {
	return []model.Email{
		{
			ID:             "msg-1",
			Subject:        strPtr("Quarterly report"),
			SenderEmail:    "alice@example.com",
			SenderName:     strPtr("Alice"),
			ReceivedAt:     time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
			BodyPreview:    "Please find attached",
			IsRead:         true,
			HasAttachments: true,
			FolderID:       strPtr("inbox"),
		},
		{
			ID:          "msg-2",
			SenderEmail: "bob@example.com",
			ReceivedAt:  time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC),
		},
	}
}

func TestNormalizeFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{input: "json", want: FormatJSON},
		{input: "JSON", want: FormatJSON},
		{input: "csv", want: FormatCSV},
		{input: "Csv", want: FormatCSV},
		{input: "xml", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := NormalizeFormat(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExportJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")

	require.NoError(t, Emails(sampleEmails(), path, "json"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var records []map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &records))
	require.Len(t, records, 2)

	assert.Equal(t, "msg-1", records[0]["id"])
	assert.Equal(t, "Quarterly report", records[0]["subject"])
	assert.Equal(t, "2026-03-14T09:30:00Z", records[0]["received_at"])
	assert.Equal(t, true, records[0]["is_read"])
	assert.Nil(t, records[1]["subject"])
}

func TestExportCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")

	require.NoError(t, Emails(sampleEmails(), path, "csv"))

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, "msg-1", rows[1][0])
	assert.Equal(t, "Quarterly report", rows[1][1])
	assert.Equal(t, "true", rows[1][7])
	// Nil fields render as empty cells.
	assert.Equal(t, "", rows[2][1])
	assert.Equal(t, "false", rows[2][7])
}

func TestExportEmptySet(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "empty.json")
	require.NoError(t, Emails(nil, jsonPath, "json"))
	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(data))

	csvPath := filepath.Join(dir, "empty.csv")
	require.NoError(t, Emails(nil, csvPath, "csv"))
	file, err := os.Open(csvPath)
	require.NoError(t, err)
	defer file.Close()
	rows, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, csvHeader, rows[0])
}

func TestExportCreatesParentDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "out.json")

	require.NoError(t, Emails(sampleEmails(), path, "json"))

	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xml")
	err := Emails(sampleEmails(), path, "xml")
	require.Error(t, err)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}
