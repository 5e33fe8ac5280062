package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/examvault/internal/common"
	"github.com/dmitrijs2005/examvault/internal/logging"
	"github.com/dmitrijs2005/examvault/internal/server/models"
	"github.com/dmitrijs2005/examvault/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockFileService struct {
	mock.Mock
}

func (m *mockFileService) Upload(ctx context.Context, req services.UploadRequest) (*models.FileRecord, error) {
	args := m.Called(ctx, req)
	rec, _ := args.Get(0).(*models.FileRecord)
	return rec, args.Error(1)
}

func (m *mockFileService) List(ctx context.Context) ([]*models.FileRecord, error) {
	args := m.Called(ctx)
	recs, _ := args.Get(0).([]*models.FileRecord)
	return recs, args.Error(1)
}

func (m *mockFileService) Verify(ctx context.Context, id string, secret []byte) (*models.FileRecord, error) {
	args := m.Called(ctx, id, string(secret))
	rec, _ := args.Get(0).(*models.FileRecord)
	return rec, args.Error(1)
}

func (m *mockFileService) Download(ctx context.Context, id string, secret []byte) (*models.FileRecord, []byte, error) {
	args := m.Called(ctx, id, string(secret))
	rec, _ := args.Get(0).(*models.FileRecord)
	data, _ := args.Get(1).([]byte)
	// the handler wipes the plaintext after writing it
	return rec, append([]byte(nil), data...), args.Error(2)
}

func (m *mockFileService) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func testRecord() *models.FileRecord {
	return &models.FileRecord{
		ID:               "0f8fad5b-d9cb-469f-a165-70867728950e",
		OriginalFilename: "algebra_final.pdf",
		Subject:          "Mathematics",
		ExamDate:         "2026-06-01",
		UploadTime:       time.Date(2026, 5, 20, 9, 30, 0, 0, time.UTC),
		FileSize:         10240,
		ContentType:      "application/pdf",
		Status:           models.StatusCompleted,
	}
}

func newTestRouter(svc FileService) http.Handler {
	h := NewHandler(svc, logging.Nop())
	h.now = func() time.Time { return time.Date(2026, 5, 20, 10, 0, 0, 0, time.UTC) }
	srv := New(&ServerConfig{
		Log:             slog.New(slog.NewTextHandler(io.Discard, nil)),
		RequestTimeout:  5 * time.Second,
		UploadTimeout:   5 * time.Second,
		DownloadTimeout: 5 * time.Second,
		ShutdownTimeout: time.Second,
	}, h)
	return srv.Handler()
}

func uploadBody(t *testing.T, fields map[string]string, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func TestHandleHealth(t *testing.T) {
	router := newTestRouter(new(mockFileService))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	resp := decode[HealthResponse](t, rr)
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "2026-05-20T10:00:00Z", resp.Timestamp)
	assert.NotEmpty(t, resp.Message)
}

func TestHandleUpload_Success(t *testing.T) {
	svc := new(mockFileService)
	content := []byte("%PDF-1.4 exam")

	svc.On("Upload", mock.Anything, mock.MatchedBy(func(req services.UploadRequest) bool {
		return req.Filename == "algebra final.pdf" &&
			req.Subject == "Mathematics" &&
			req.ExamDate == "2026-06-01" &&
			string(req.Secret) == "Tr0ub4dor&3" &&
			bytes.Equal(req.Content, content)
	})).Return(testRecord(), nil)

	body, ct := uploadBody(t, map[string]string{
		"password":  "Tr0ub4dor&3",
		"subject":   "Mathematics",
		"exam_date": "2026-06-01",
	}, "algebra final.pdf", content)
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", ct)

	rr := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	resp := decode[UploadResponse](t, rr)
	assert.Equal(t, "File uploaded and encrypted successfully", resp.Message)
	assert.Equal(t, testRecord().ID, resp.FileID)
	assert.Equal(t, "algebra_final.pdf", resp.OriginalFilename)
	assert.Equal(t, "2026-05-20T09:30:00Z", resp.UploadTime)
	assert.Equal(t, int64(10240), resp.FileSize)
	assert.NotContains(t, rr.Body.String(), "Tr0ub4dor&3")
	svc.AssertExpectations(t)
}

func TestHandleUpload_NotMultipart(t *testing.T) {
	svc := new(mockFileService)
	req := httptest.NewRequest(http.MethodPost, "/api/upload", strings.NewReader(`{"password":"x"}`))
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	svc.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
}

func TestHandleUpload_FieldTooLong(t *testing.T) {
	svc := new(mockFileService)
	body, ct := uploadBody(t, map[string]string{
		"subject": strings.Repeat("s", maxFieldSize+1),
	}, "a.pdf", []byte("x"))
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", ct)

	rr := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	svc.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
}

func TestHandleUpload_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		code    int
		message string
	}{
		{"validation", common.NewValidationError("file", "extension .exe is not allowed"), http.StatusBadRequest, "extension .exe is not allowed"},
		{"too large", &common.ValidationError{Field: "file", Reason: "file size exceeds limit", Cause: common.ErrTooLarge}, http.StatusRequestEntityTooLarge, "file size exceeds limit"},
		{"cancelled", fmt.Errorf("upload: %w", common.ErrCancelled), http.StatusRequestTimeout, "Request cancelled"},
		{"storage", fmt.Errorf("put blob: %w: %w", common.ErrStorage, errors.New("/var/data/blobs: disk full")), http.StatusInternalServerError, "internal error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mockFileService)
			svc.On("Upload", mock.Anything, mock.Anything).Return(nil, tt.err)

			body, ct := uploadBody(t, map[string]string{"password": "pw", "subject": "s"}, "a.pdf", []byte("x"))
			req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
			req.Header.Set("Content-Type", ct)

			rr := httptest.NewRecorder()
			newTestRouter(svc).ServeHTTP(rr, req)

			assert.Equal(t, tt.code, rr.Code)
			assert.Equal(t, tt.message, decode[errorResponse](t, rr).Error)
			assert.NotContains(t, rr.Body.String(), "/var/data")
		})
	}
}

func TestHandleList(t *testing.T) {
	svc := new(mockFileService)
	older := testRecord()
	older.ID = "older"
	older.UploadTime = older.UploadTime.Add(-time.Hour)
	svc.On("List", mock.Anything).Return([]*models.FileRecord{testRecord(), older}, nil)

	rr := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/files", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	resp := decode[ListResponse](t, rr)
	assert.Equal(t, 2, resp.TotalFiles)
	require.Len(t, resp.Files, 2)
	assert.Equal(t, testRecord().ID, resp.Files[0].FileID)
	assert.Equal(t, "older", resp.Files[1].FileID)
	assert.NotContains(t, rr.Body.String(), "salt")
	assert.NotContains(t, rr.Body.String(), "nonce")
}

func TestHandleList_Empty(t *testing.T) {
	svc := new(mockFileService)
	svc.On("List", mock.Anything).Return([]*models.FileRecord{}, nil)

	rr := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/files", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"files":[],"total_files":0}`, rr.Body.String())
}

func TestHandleList_StorageError(t *testing.T) {
	svc := new(mockFileService)
	svc.On("List", mock.Anything).Return(nil, fmt.Errorf("list: %w", common.ErrStorage))

	rr := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/files", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func postJSON(router http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestHandleVerify(t *testing.T) {
	id := testRecord().ID

	t.Run("correct password", func(t *testing.T) {
		svc := new(mockFileService)
		svc.On("Verify", mock.Anything, id, "Tr0ub4dor&3").Return(testRecord(), nil)

		rr := postJSON(newTestRouter(svc), "/api/verify/"+id, `{"password":"Tr0ub4dor&3"}`)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{
			"valid": true,
			"message": "Password is correct",
			"file_info": {
				"original_filename": "algebra_final.pdf",
				"subject": "Mathematics",
				"exam_date": "2026-06-01",
				"file_size": 10240
			}
		}`, rr.Body.String())
	})

	t.Run("wrong password", func(t *testing.T) {
		svc := new(mockFileService)
		svc.On("Verify", mock.Anything, id, "nope").Return(nil, common.ErrAccessDenied)

		rr := postJSON(newTestRouter(svc), "/api/verify/"+id, `{"password":"nope"}`)

		require.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.JSONEq(t, `{"valid":false,"message":"Invalid password"}`, rr.Body.String())
	})

	t.Run("unknown id", func(t *testing.T) {
		svc := new(mockFileService)
		svc.On("Verify", mock.Anything, "missing", "pw").Return(nil, common.ErrNotFound)

		rr := postJSON(newTestRouter(svc), "/api/verify/missing", `{"password":"pw"}`)

		require.Equal(t, http.StatusNotFound, rr.Code)
		assert.JSONEq(t, `{"error":"File not found"}`, rr.Body.String())
	})

	for _, body := range []string{`{}`, `{"password":""}`, `not json`, ``} {
		t.Run("missing password "+body, func(t *testing.T) {
			svc := new(mockFileService)

			rr := postJSON(newTestRouter(svc), "/api/verify/"+id, body)

			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Equal(t, "password is required", decode[errorResponse](t, rr).Error)
			svc.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestHandleDownload(t *testing.T) {
	id := testRecord().ID
	content := []byte("%PDF-1.4 exam body")

	t.Run("success", func(t *testing.T) {
		svc := new(mockFileService)
		svc.On("Download", mock.Anything, id, "Tr0ub4dor&3").Return(testRecord(), content, nil)

		rr := postJSON(newTestRouter(svc), "/api/download/"+id, `{"password":"Tr0ub4dor&3"}`)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, content, rr.Body.Bytes())
		assert.Equal(t, "application/pdf", rr.Header().Get("Content-Type"))
		assert.Equal(t, `attachment; filename=algebra_final.pdf`, rr.Header().Get("Content-Disposition"))
		assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
	})

	t.Run("wrong password", func(t *testing.T) {
		svc := new(mockFileService)
		svc.On("Download", mock.Anything, id, "nope").Return(nil, nil, common.ErrAccessDenied)

		rr := postJSON(newTestRouter(svc), "/api/download/"+id, `{"password":"nope"}`)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Empty(t, rr.Header().Get("Content-Disposition"))
	})

	t.Run("storage failure", func(t *testing.T) {
		svc := new(mockFileService)
		svc.On("Download", mock.Anything, id, "pw").Return(nil, nil, fmt.Errorf("open blob: %w", common.ErrStorage))

		rr := postJSON(newTestRouter(svc), "/api/download/"+id, `{"password":"pw"}`)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.Equal(t, "internal error", decode[errorResponse](t, rr).Error)
	})
}

func TestHandleDelete(t *testing.T) {
	svc := new(mockFileService)
	svc.On("Delete", mock.Anything, "abc").Return(nil).Once()
	svc.On("Delete", mock.Anything, "abc").Return(common.ErrNotFound).Once()
	router := newTestRouter(svc)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/api/delete/abc", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"message":"File deleted successfully"}`, rr.Body.String())

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/api/delete/abc", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	svc.AssertExpectations(t)
}

func TestWithTimeout_SetsDeadline(t *testing.T) {
	var deadline time.Time
	var ok bool
	h := withTimeout(time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deadline, ok = r.Context().Deadline()
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, 5*time.Second)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusRequestTimeout, statusFor(context.DeadlineExceeded))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("boom")))
	assert.Equal(t, http.StatusNotFound, statusFor(fmt.Errorf("get: %w", common.ErrNotFound)))
}

func TestURLParamRouting(t *testing.T) {
	// ids are taken from the path, not the body
	svc := new(mockFileService)
	svc.On("Verify", mock.Anything, "from-path", "pw").Return(testRecord(), nil)

	rr := postJSON(newTestRouter(svc), "/api/verify/from-path", `{"password":"pw","file_id":"from-body"}`)

	assert.Equal(t, http.StatusOK, rr.Code)
	svc.AssertExpectations(t)
}
