package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
// args are the words following the command; handlers prompt for anything missing.
type execIface interface {
	Health(ctx context.Context, args []string) error
	List(ctx context.Context, args []string) error
	Upload(ctx context.Context, args []string) error
	Verify(ctx context.Context, args []string) error
	Download(ctx context.Context, args []string) error
	Delete(ctx context.Context, args []string) error
}

const helpText = `Available commands:
  health                 check the server
  (l)ist                 list exam papers
  upload [path]          encrypt and upload a document
  verify [file_id]       check a password without downloading
  download [file_id]     decrypt and save a document
  delete [file_id]       remove a document
  exit | quit            leave the program`

// runREPL starts a simple read–eval–print loop for the examvault CLI.
//
// It reads a line from reader, parses the first token as the command, and
// dispatches to methods on 'a'. Unknown commands are reported back to the
// user. The loop exits on EOF, when ctx is done, or when the user types
// "exit" or "quit".
//
// Errors returned by command handlers are ignored here; handlers report
// their own errors.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		if ctx.Err() != nil {
			return
		}
		printlnFn(fmt.Sprintf("ev %s> ", statusFn()))

		line, err := reader.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			printlnFn(helpText)

		case "health":
			_ = a.Health(ctx, args)

		case "l", "list":
			_ = a.List(ctx, args)

		case "upload":
			_ = a.Upload(ctx, args)

		case "verify":
			_ = a.Verify(ctx, args)

		case "download":
			_ = a.Download(ctx, args)

		case "delete":
			_ = a.Delete(ctx, args)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
