// Command client is the interactive examvault shell.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/examvault/internal/buildinfo"
	"github.com/dmitrijs2005/examvault/internal/client/cli"
	"github.com/dmitrijs2005/examvault/internal/client/config"
)

func main() {
	buildinfo.PrintBuildData(os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := cli.NewApp(config.LoadConfig())
	if err != nil {
		log.Fatalf("client: %v", err)
	}

	app.Run(ctx)
}
