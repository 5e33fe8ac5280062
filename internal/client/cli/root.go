package cli

import (
	"context"
	"fmt"
	"log"
)

func (a *App) getStatus() string {
	if m := a.Mode(); m != "" {
		return fmt.Sprintf("(%s)", m)
	}
	return ""
}

// Root runs the interactive session until the user exits or input ends.
func (a *App) Root(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	log.Println("Welcome to examvault CLI (type 'help' for commands)")

	a.probe(ctx)
	go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)

	runREPL(ctx, a, a.getStatus, a.reader)
}
