package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/examvault/internal/flagx"
	"github.com/dmitrijs2005/examvault/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Every field is a
// pointer so that keys absent from the file leave the defaults untouched.
// Durations use timex.Duration and accept "30s" as well as nanoseconds.
type JsonConfig struct {
	HTTPAddr          *string         `json:"http_addr"`
	LogLevel          *string         `json:"log_level"`
	MetadataBackend   *string         `json:"metadata_backend"`
	DatabaseDSN       *string         `json:"database_dsn"`
	BlobBackend       *string         `json:"blob_backend"`
	BlobDir           *string         `json:"blob_dir"`
	S3RootUser        *string         `json:"s3_root_user"`
	S3RootPassword    *string         `json:"s3_root_password"`
	S3Bucket          *string         `json:"s3_bucket"`
	S3Region          *string         `json:"s3_region"`
	S3BaseEndpoint    *string         `json:"s3_base_endpoint"`
	S3Prefix          *string         `json:"s3_prefix"`
	RequestTimeout    *timex.Duration `json:"request_timeout"`
	UploadTimeout     *timex.Duration `json:"upload_timeout"`
	DownloadTimeout   *timex.Duration `json:"download_timeout"`
	ReadHeaderTimeout *timex.Duration `json:"read_header_timeout"`
	ShutdownTimeout   *timex.Duration `json:"shutdown_timeout"`
	ConcealMissing    *bool           `json:"conceal_missing"`
	CORSOrigins       []string        `json:"cors_origins"`
	SweepInterval     *timex.Duration `json:"sweep_interval"`
	SweepMaxAge       *timex.Duration `json:"sweep_max_age"`
}

// parseJson overlays the file named by -c / -config onto config. Without the
// flag nothing happens. An unreadable or malformed file panics, as the server
// cannot start with a config the operator did not intend.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.MetadataBackend, c.MetadataBackend)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.BlobBackend, c.BlobBackend)
	setString(&config.BlobDir, c.BlobDir)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.S3Prefix, c.S3Prefix)

	setDuration(&config.RequestTimeout, c.RequestTimeout)
	setDuration(&config.UploadTimeout, c.UploadTimeout)
	setDuration(&config.DownloadTimeout, c.DownloadTimeout)
	setDuration(&config.ReadHeaderTimeout, c.ReadHeaderTimeout)
	setDuration(&config.ShutdownTimeout, c.ShutdownTimeout)
	setDuration(&config.SweepInterval, c.SweepInterval)
	setDuration(&config.SweepMaxAge, c.SweepMaxAge)

	if c.ConcealMissing != nil {
		config.ConcealMissing = *c.ConcealMissing
	}
	if c.CORSOrigins != nil {
		config.CORSOrigins = c.CORSOrigins
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *timex.Duration) {
	if v != nil {
		*dst = v.Duration
	}
}
