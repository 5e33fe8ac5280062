// Package client talks to the examvault REST API.
//
// # Overview
//
// Client is the transport-agnostic contract used by the CLI: Health, List,
// Upload, Verify, Download and Delete. HTTPClient implements it over
// net/http, streaming uploads as multipart and downloads straight into the
// caller's writer.
//
// # Error Handling
//
// HTTP statuses are mapped to sentinel errors that callers can match with
// errors.Is: ErrRejected (400/413), ErrUnauthorized (401), ErrNotFound (404),
// ErrServer (5xx) and ErrUnavailable (no response at all). The server's
// message is preserved in the wrapped *netx.StatusError.
//
// Concurrency & Contexts
//
// HTTPClient is safe for concurrent use. Every call takes a context; metadata
// calls are additionally bounded by the request timeout and transfers by the
// transfer timeout from config.
package client
