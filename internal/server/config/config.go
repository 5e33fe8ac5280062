// Package config handles configuration for the examvault server, including
// defaults, an optional JSON overlay and command-line flags.
package config

import (
	"fmt"
	"time"
)

// Metadata backends.
const (
	MetadataPostgres = "postgres"
	MetadataSQLite   = "sqlite"
	MetadataBolt     = "bolt"
	MetadataMemory   = "memory"
)

// Blob backends.
const (
	BlobS3         = "s3"
	BlobFilesystem = "fs"
	BlobMemory     = "memory"
)

// Config holds runtime settings for the server. It is built once at startup
// and passed explicitly to every component that needs it.
//
// Fields:
//   - HTTPAddr: bind address of the REST API.
//   - MetadataBackend / DatabaseDSN: where file records live. DatabaseDSN is a
//     PostgreSQL DSN for "postgres" and a file path for "sqlite" and "bolt".
//   - BlobBackend / BlobDir: where ciphertext lives; BlobDir is used by "fs".
//   - S3*: object storage settings for the "s3" blob backend. S3Prefix is
//     prepended to every object key so one bucket can serve several deployments.
//   - RequestTimeout / UploadTimeout / DownloadTimeout: per-request deadlines.
//   - ConcealMissing: answer unknown ids on verify/download with access denied.
//   - SweepInterval / SweepMaxAge: cleanup of interrupted uploads and deletes.
//     SweepMaxAge must exceed UploadTimeout so no upload still in flight is
//     considered abandoned.
type Config struct {
	HTTPAddr string
	LogLevel string

	MetadataBackend string
	DatabaseDSN     string

	BlobBackend    string
	BlobDir        string
	S3RootUser     string
	S3RootPassword string
	S3Bucket       string
	S3Region       string
	S3BaseEndpoint string
	S3Prefix       string

	RequestTimeout    time.Duration
	UploadTimeout     time.Duration
	DownloadTimeout   time.Duration
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration

	ConcealMissing bool
	CORSOrigins    []string

	SweepInterval time.Duration
	SweepMaxAge   time.Duration
}

// LoadDefaults populates Config with development defaults: a local SQLite
// metadata file and ciphertext on the local filesystem.
func (c *Config) LoadDefaults() {
	c.HTTPAddr = ":5000"
	c.LogLevel = "info"

	c.MetadataBackend = MetadataSQLite
	c.DatabaseDSN = "data/metadata.db"

	c.BlobBackend = BlobFilesystem
	c.BlobDir = "data/blobs"
	c.S3RootUser = "admin"
	c.S3RootPassword = "secretpassword"
	c.S3Bucket = "exams"
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000/"
	c.S3Prefix = ""

	c.RequestTimeout = 30 * time.Second
	c.UploadTimeout = 120 * time.Second
	c.DownloadTimeout = 60 * time.Second
	c.ReadHeaderTimeout = 10 * time.Second
	c.ShutdownTimeout = 15 * time.Second

	c.ConcealMissing = false
	c.CORSOrigins = []string{"http://localhost:3000", "http://127.0.0.1:3000"}

	c.SweepInterval = 6 * time.Hour
	c.SweepMaxAge = 24 * time.Hour
}

// Validate reports settings that would make the server unusable.
func (c *Config) Validate() error {
	switch c.MetadataBackend {
	case MetadataPostgres, MetadataSQLite, MetadataBolt:
		if c.DatabaseDSN == "" {
			return fmt.Errorf("metadata backend %q needs a database dsn", c.MetadataBackend)
		}
	case MetadataMemory:
	default:
		return fmt.Errorf("unknown metadata backend %q", c.MetadataBackend)
	}

	switch c.BlobBackend {
	case BlobFilesystem:
		if c.BlobDir == "" {
			return fmt.Errorf("blob backend %q needs a directory", c.BlobBackend)
		}
	case BlobS3:
		if c.S3Bucket == "" {
			return fmt.Errorf("blob backend %q needs a bucket", c.BlobBackend)
		}
	case BlobMemory:
	default:
		return fmt.Errorf("unknown blob backend %q", c.BlobBackend)
	}

	if c.RequestTimeout <= 0 || c.UploadTimeout <= 0 || c.DownloadTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	if c.SweepInterval > 0 && c.SweepMaxAge <= c.UploadTimeout {
		return fmt.Errorf("sweep max age %s must exceed upload timeout %s", c.SweepMaxAge, c.UploadTimeout)
	}
	return nil
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
