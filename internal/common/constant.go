// Package common contains shared constants, sentinel errors and small helpers
// used across examvault components.
package common

// Upload policy enforced by the server regardless of what the client checks.
const (
	// MaxUploadSize is the largest accepted plaintext document (50 MiB).
	MaxUploadSize = 50 * 1024 * 1024

	// KDFIterations is the PBKDF2 iteration count applied to new uploads.
	KDFIterations = 100_000

	// SaltSize is the length of the per-file KDF salt in bytes.
	SaltSize = 16

	// NonceSize is the length of the per-file AES-GCM nonce in bytes.
	NonceSize = 12

	// KeySize is the length of the derived AES-256 key in bytes.
	KeySize = 32

	// ExamDateLayout is the accepted exam_date format.
	ExamDateLayout = "2006-01-02"
)

// AllowedExtensions maps every accepted lower-case extension to its MIME type.
var AllowedExtensions = map[string]string{
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".txt":  "text/plain",
	".rtf":  "application/rtf",
}
