package services

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/dmitrijs2005/examvault/internal/common"
)

const maxFilenameLen = 255

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// UploadRequest carries one document and its attributes into Upload.
// Secret is borrowed: Upload never retains or wipes it.
type UploadRequest struct {
	Filename string
	Subject  string
	// ExamDate is YYYY-MM-DD; empty means the upload day.
	ExamDate string
	Secret   []byte
	Content  []byte
}

type validUpload struct {
	filename    string
	subject     string
	examDate    string
	contentType string
}

// validateUpload applies the server-side upload policy. now supplies the
// default exam date.
func validateUpload(req UploadRequest, now time.Time) (*validUpload, error) {
	if strings.TrimSpace(req.Filename) == "" {
		return nil, common.NewValidationError("file", "no file selected")
	}

	ext := strings.ToLower(path.Ext(baseName(req.Filename)))
	contentType, ok := common.AllowedExtensions[ext]
	if !ok {
		return nil, common.NewValidationError("file", "invalid file type, allowed: pdf, doc, docx, txt, rtf")
	}

	size := len(req.Content)
	if size == 0 {
		return nil, common.NewValidationError("file", "file is empty")
	}
	if size > common.MaxUploadSize {
		return nil, &common.ValidationError{
			Field:  "file",
			Reason: fmt.Sprintf("file size exceeds %d MB limit", common.MaxUploadSize/(1024*1024)),
			Cause:  common.ErrTooLarge,
		}
	}

	subject := strings.TrimSpace(req.Subject)
	if subject == "" {
		return nil, common.NewValidationError("subject", "subject is required")
	}

	if len(req.Secret) == 0 {
		return nil, common.NewValidationError("password", "password is required")
	}

	examDate := strings.TrimSpace(req.ExamDate)
	if examDate == "" {
		examDate = now.UTC().Format(common.ExamDateLayout)
	} else if _, err := time.Parse(common.ExamDateLayout, examDate); err != nil {
		return nil, common.NewValidationError("exam_date", "exam date must be YYYY-MM-DD")
	}

	return &validUpload{
		filename:    SanitizeFilename(req.Filename, now),
		subject:     subject,
		examDate:    examDate,
		contentType: contentType,
	}, nil
}

// baseName strips any directory part, whichever separator the client used.
func baseName(name string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// SanitizeFilename reduces a client supplied name to a safe display name:
// directory parts are dropped, spaces become underscores and anything outside
// [A-Za-z0-9._-] is removed. A name left without a stem, or longer than 255
// bytes, is replaced by file_<timestamp> with the original extension.
func SanitizeFilename(name string, now time.Time) string {
	name = baseName(name)
	name = strings.ReplaceAll(name, " ", "_")
	name = unsafeFilenameChars.ReplaceAllString(name, "")

	ext := strings.ToLower(path.Ext(name))
	stem := strings.TrimSuffix(name, path.Ext(name))
	if strings.Trim(stem, "._-") == "" || len(name) > maxFilenameLen {
		return "file_" + now.UTC().Format("20060102_150405") + ext
	}
	return name
}
