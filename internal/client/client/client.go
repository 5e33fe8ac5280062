package client

import (
	"context"
	"io"

	"github.com/dmitrijs2005/examvault/internal/client/models"
)

// UploadRequest is one document to publish. Content is streamed to the
// server and is not buffered by the client.
type UploadRequest struct {
	Filename string
	Subject  string
	ExamDate string
	Password []byte
	Content  io.Reader
}

type Client interface {
	Health(ctx context.Context) (*models.Health, error)
	List(ctx context.Context) ([]models.FileInfo, error)
	Upload(ctx context.Context, req UploadRequest) (*models.UploadResult, error)
	Verify(ctx context.Context, id string, password []byte) (*models.FileInfo, error)
	// Download writes the decrypted document to w and returns the file name
	// the server suggests.
	Download(ctx context.Context, id string, password []byte, w io.Writer) (string, error)
	Delete(ctx context.Context, id string) error
}
