package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/dmitrijs2005/examvault/internal/common"
	"github.com/dmitrijs2005/examvault/internal/logging"
	"github.com/dmitrijs2005/examvault/internal/server/models"
	"github.com/dmitrijs2005/examvault/internal/server/services"
	"github.com/go-chi/chi/v5"
)

const (
	// maxFieldSize bounds the non-file multipart fields and JSON bodies.
	maxFieldSize = 4 * 1024
	// multipartOverhead leaves room for boundaries and small fields on top
	// of the largest accepted document.
	multipartOverhead = 1024 * 1024
)

// FileService is the part of services.FileService the handlers use.
type FileService interface {
	Upload(ctx context.Context, req services.UploadRequest) (*models.FileRecord, error)
	List(ctx context.Context) ([]*models.FileRecord, error)
	Verify(ctx context.Context, id string, secret []byte) (*models.FileRecord, error)
	Download(ctx context.Context, id string, secret []byte) (*models.FileRecord, []byte, error)
	Delete(ctx context.Context, id string) error
}

// Handler serves the exam paper API.
type Handler struct {
	files FileService
	log   logging.Logger
	now   func() time.Time
}

func NewHandler(files FileService, log logging.Logger) *Handler {
	return &Handler{files: files, log: log, now: time.Now}
}

// FileInfo is the public view of a record. Salt, nonce and KDF parameters
// stay server side.
type FileInfo struct {
	FileID           string `json:"file_id,omitempty"`
	OriginalFilename string `json:"original_filename"`
	Subject          string `json:"subject"`
	ExamDate         string `json:"exam_date"`
	UploadTime       string `json:"upload_time,omitempty"`
	FileSize         int64  `json:"file_size"`
}

func newFileInfo(rec *models.FileRecord) FileInfo {
	return FileInfo{
		FileID:           rec.ID,
		OriginalFilename: rec.OriginalFilename,
		Subject:          rec.Subject,
		ExamDate:         rec.ExamDate,
		UploadTime:       rec.UploadTime.UTC().Format(time.RFC3339),
		FileSize:         rec.FileSize,
	}
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Message   string `json:"message"`
}

type UploadResponse struct {
	Message string `json:"message"`
	FileInfo
}

type ListResponse struct {
	Files      []FileInfo `json:"files"`
	TotalFiles int        `json:"total_files"`
}

type VerifyResponse struct {
	Valid    bool      `json:"valid"`
	Message  string    `json:"message"`
	FileInfo *FileInfo `json:"file_info,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type secretRequest struct {
	Password string `json:"password"`
}

// HandleHealth reports liveness.
//
// URL format: GET /api/health
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: h.now().UTC().Format(time.RFC3339),
		Message:   "Secure Exam Distribution System is running",
	})
}

// HandleUpload accepts a multipart form with fields file, password, subject
// and exam_date. The body is consumed part by part; the document is held in
// memory only and never written to disk unencrypted.
//
// URL format: POST /api/upload
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, common.MaxUploadSize+multipartOverhead)

	req, err := readUploadForm(r)
	defer func() {
		common.WipeByteArray(req.Secret)
		common.WipeByteArray(req.Content)
	}()
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "file size exceeds limit"})
			return
		}
		if errors.Is(err, common.ErrValidation) {
			writeError(r.Context(), w, h.log, err)
			return
		}
		if r.Context().Err() != nil {
			writeError(r.Context(), w, h.log, common.ErrCancelled)
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed multipart form"})
		return
	}

	rec, err := h.files.Upload(r.Context(), req)
	if err != nil {
		writeError(r.Context(), w, h.log, err)
		return
	}

	writeJSON(w, http.StatusCreated, UploadResponse{
		Message:  "File uploaded and encrypted successfully",
		FileInfo: newFileInfo(rec),
	})
}

func readUploadForm(r *http.Request) (services.UploadRequest, error) {
	var req services.UploadRequest

	mr, err := r.MultipartReader()
	if err != nil {
		return req, common.NewValidationError("file", "multipart form expected")
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return req, err
		}

		switch part.FormName() {
		case "file":
			req.Filename = part.FileName()
			// one byte over the limit is enough for the service to reject it
			req.Content, err = io.ReadAll(io.LimitReader(part, common.MaxUploadSize+1))
		case "password":
			req.Secret, err = readField(part)
		case "subject":
			var b []byte
			b, err = readField(part)
			req.Subject = string(b)
		case "exam_date":
			var b []byte
			b, err = readField(part)
			req.ExamDate = string(b)
		}
		_ = part.Close()
		if err != nil {
			return req, err
		}
		if len(req.Content) > common.MaxUploadSize {
			break
		}
	}
	return req, nil
}

func readField(r io.Reader) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(r, maxFieldSize+1))
	if err != nil {
		return nil, err
	}
	if len(b) > maxFieldSize {
		return nil, common.NewValidationError("form", "field too long")
	}
	return b, nil
}

// HandleList returns all published files, newest first.
//
// URL format: GET /api/files
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	recs, err := h.files.List(r.Context())
	if err != nil {
		writeError(r.Context(), w, h.log, err)
		return
	}

	out := ListResponse{Files: make([]FileInfo, 0, len(recs)), TotalFiles: len(recs)}
	for _, rec := range recs {
		out.Files = append(out.Files, newFileInfo(rec))
	}
	writeJSON(w, http.StatusOK, out)
}

// readSecret decodes {"password": "..."} from the request body.
func readSecret(r *http.Request) ([]byte, error) {
	var body secretRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxFieldSize))
	if err := dec.Decode(&body); err != nil {
		return nil, common.NewValidationError("password", "password is required")
	}
	if body.Password == "" {
		return nil, common.NewValidationError("password", "password is required")
	}
	return []byte(body.Password), nil
}

// HandleVerify checks a password without releasing the document.
//
// URL format: POST /api/verify/{file_id}
// Request body: {"password": "..."}
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "file_id")

	secret, err := readSecret(r)
	if err != nil {
		writeError(r.Context(), w, h.log, err)
		return
	}
	defer common.WipeByteArray(secret)

	rec, err := h.files.Verify(r.Context(), id, secret)
	if err != nil {
		if errors.Is(err, common.ErrAccessDenied) {
			writeJSON(w, http.StatusUnauthorized, VerifyResponse{Valid: false, Message: "Invalid password"})
			return
		}
		writeError(r.Context(), w, h.log, err)
		return
	}

	info := newFileInfo(rec)
	info.FileID = ""
	info.UploadTime = ""
	writeJSON(w, http.StatusOK, VerifyResponse{
		Valid:    true,
		Message:  "Password is correct",
		FileInfo: &info,
	})
}

// HandleDownload decrypts the document and sends it as an attachment.
//
// URL format: POST /api/download/{file_id}
// Request body: {"password": "..."}
func (h *Handler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "file_id")

	secret, err := readSecret(r)
	if err != nil {
		writeError(r.Context(), w, h.log, err)
		return
	}
	defer common.WipeByteArray(secret)

	rec, plaintext, err := h.files.Download(r.Context(), id, secret)
	if err != nil {
		writeError(r.Context(), w, h.log, err)
		return
	}
	defer common.WipeByteArray(plaintext)

	contentType := rec.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": rec.OriginalFilename}))
	w.Header().Set("Content-Length", fmt.Sprint(len(plaintext)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(plaintext); err != nil {
		h.log.Warn(r.Context(), "download interrupted", "file_id", id, "err", err)
	}
}

// HandleDelete removes a file and its ciphertext.
//
// URL format: DELETE /api/delete/{file_id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "file_id")

	if err := h.files.Delete(r.Context(), id); err != nil {
		writeError(r.Context(), w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "File deleted successfully"})
}
