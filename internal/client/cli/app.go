package cli

import (
	"bufio"
	"context"
	"io"
	"log"
	"os"
	"time"

	"github.com/dmitrijs2005/examvault/internal/client/client"
	"github.com/dmitrijs2005/examvault/internal/client/config"
	"go.uber.org/atomic"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// healthProbeTimeout bounds a single background reachability probe.
const healthProbeTimeout = 3 * time.Second

type App struct {
	config *config.Config
	client client.Client
	reader *bufio.Reader
	out    io.Writer
	mode   atomic.String
}

func NewApp(c *config.Config) (*App, error) {
	apiClient, err := client.NewHTTPClient(c.ServerURL, c.RequestTimeout, c.TransferTimeout)
	if err != nil {
		return nil, err
	}

	return &App{config: c, client: apiClient, reader: bufio.NewReader(os.Stdin), out: os.Stdout}, nil
}

// Mode reports the last observed server reachability.
func (a *App) Mode() Mode {
	return Mode(a.mode.Load())
}

func (a *App) setMode(mode Mode) {
	if old := a.mode.Swap(string(mode)); old != string(mode) {
		log.Printf("Switched to %s mode\n", mode)
	}
}

func (a *App) Run(ctx context.Context) {
	a.Root(ctx)
}

func (a *App) probe(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, healthProbeTimeout)
	defer cancel()

	if _, err := a.client.Health(ctx); err != nil {
		a.setMode(ModeOffline)
		return
	}
	a.setMode(ModeOnline)
}

func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.probe(ctx)
		case <-ctx.Done():
			return
		}
	}
}
