// Package logging is the structured logger the server and its services log
// through. SlogLogger is the production implementation; Nop is for tests.
package logging

import "context"

// Logger takes a message plus alternating keys and values:
//
//	log.Info(ctx, "file uploaded", "file_id", id, "size", n)
//
// The context is passed on to the handler so request-scoped attributes can
// be attached. Passwords, derived keys and plaintext never go in args.
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	// Warn is for failures the caller recovered from, e.g. a rollback step
	// that left something for the janitor.
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With binds args to every later record of the returned logger.
	With(args ...any) Logger
}
