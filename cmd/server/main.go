// Command server runs the examvault HTTP API.
package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/examvault/internal/buildinfo"
	"github.com/dmitrijs2005/examvault/internal/server"
	"github.com/dmitrijs2005/examvault/internal/server/config"
)

func main() {
	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	app, err := server.NewApp(ctx, config.LoadConfig())
	if err != nil {
		log.Fatalf("startup: %v", err)
	}

	if err := app.Run(ctx); err != nil {
		log.Printf("server stopped with error: %v", err)
		os.Exit(1)
	}
}
