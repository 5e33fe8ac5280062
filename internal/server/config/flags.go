package config

import (
	"flag"
	"os"
	"strings"

	"github.com/dmitrijs2005/examvault/internal/flagx"
)

var serverFlags = []string{
	"-a", "-l", "-m", "-d", "-k", "-f",
	"-u", "-p", "-b", "-g", "-e", "-s3-prefix",
	"-request-timeout", "-upload-timeout", "-download-timeout",
	"-conceal-missing", "-cors",
}

// parseFlags populates Config fields from command-line flags.
//
// Supported flags:
//
//	-a string     HTTP bind address (e.g. ":5000")
//	-l string     log level: debug, info, warn, error
//	-m string     metadata backend: postgres, sqlite, bolt, memory
//	-d string     PostgreSQL DSN, or database file for sqlite/bolt
//	-k string     blob backend: s3, fs, memory
//	-f string     blob directory for the fs backend
//	-u string     S3 root user
//	-p string     S3 root password
//	-b string     S3 bucket name
//	-g string     S3 region
//	-e string     S3 base endpoint (e.g. "http://127.0.0.1:9000/")
//	-s3-prefix string  key prefix inside the bucket (e.g. "exams/2026/")
//	-request-timeout duration   deadline for list/verify/delete
//	-upload-timeout duration    deadline for uploads
//	-download-timeout duration  deadline for downloads
//	-conceal-missing            report unknown ids as access denied
//	-cors string  comma separated allowed origins
//
// Only these flags are taken from os.Args (see flagx.FilterArgs), so the
// -c/-config flag handled by parseJson does not collide.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], serverFlags, "-conceal-missing")

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run server")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.MetadataBackend, "m", config.MetadataBackend, "metadata backend")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN or file")
	fs.StringVar(&config.BlobBackend, "k", config.BlobBackend, "blob backend")
	fs.StringVar(&config.BlobDir, "f", config.BlobDir, "blob directory")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.S3Prefix, "s3-prefix", config.S3Prefix, "S3 object key prefix")

	fs.DurationVar(&config.RequestTimeout, "request-timeout", config.RequestTimeout, "request deadline")
	fs.DurationVar(&config.UploadTimeout, "upload-timeout", config.UploadTimeout, "upload deadline")
	fs.DurationVar(&config.DownloadTimeout, "download-timeout", config.DownloadTimeout, "download deadline")

	fs.BoolVar(&config.ConcealMissing, "conceal-missing", config.ConcealMissing, "report unknown ids as access denied")

	cors := fs.String("cors", strings.Join(config.CORSOrigins, ","), "allowed CORS origins")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.CORSOrigins = splitList(*cors)
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
