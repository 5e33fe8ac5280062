package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileInfo_UploadedAt(t *testing.T) {
	f := FileInfo{UploadTime: "2026-05-20T09:30:00Z"}
	assert.Equal(t, time.Date(2026, 5, 20, 9, 30, 0, 0, time.UTC), f.UploadedAt())

	assert.True(t, FileInfo{UploadTime: "yesterday"}.UploadedAt().IsZero())
}

func TestUploadResult_FlatJSON(t *testing.T) {
	var r UploadResult
	require.NoError(t, json.Unmarshal([]byte(`{
		"message": "File uploaded and encrypted successfully",
		"file_id": "abc",
		"original_filename": "a.pdf",
		"file_size": 12
	}`), &r))

	assert.Equal(t, "abc", r.FileID)
	assert.Equal(t, int64(12), r.FileSize)
	assert.NotEmpty(t, r.Message)
}
