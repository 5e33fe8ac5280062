// Package models defines the wire types the CLI exchanges with the server.
package models

import "time"

// FileInfo describes a stored exam paper as listed by the server.
type FileInfo struct {
	FileID           string `json:"file_id"`
	OriginalFilename string `json:"original_filename"`
	Subject          string `json:"subject"`
	ExamDate         string `json:"exam_date"`
	UploadTime       string `json:"upload_time"`
	FileSize         int64  `json:"file_size"`
}

// UploadedAt parses UploadTime; the zero time is returned when it is absent
// or malformed.
func (f FileInfo) UploadedAt() time.Time {
	t, err := time.Parse(time.RFC3339, f.UploadTime)
	if err != nil {
		return time.Time{}
	}
	return t
}

type Health struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Message   string `json:"message"`
}

type UploadResult struct {
	Message string `json:"message"`
	FileInfo
}

type FileList struct {
	Files      []FileInfo `json:"files"`
	TotalFiles int        `json:"total_files"`
}

type VerifyResult struct {
	Valid    bool      `json:"valid"`
	Message  string    `json:"message"`
	FileInfo *FileInfo `json:"file_info,omitempty"`
}
