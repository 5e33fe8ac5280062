// Package cli provides the interactive examvault command-line client.
//
// It wires configuration, the HTTP API client and an interactive REPL.
// A background watcher probes the server's health endpoint and shows
// whether it is reachable in the prompt.
//
// Commands:
//   - health: server status
//   - list: published exam papers with human-readable sizes
//   - upload: encrypt and publish a local document under a password
//   - verify: check a password without releasing the document
//   - download: decrypt and save a document
//   - delete: remove a document
//
// Passwords are read from the terminal without echo and wiped after use.
// The REPL is started via App.Root(ctx), which blocks until the user exits.
package cli
