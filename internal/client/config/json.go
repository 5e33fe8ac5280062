package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/examvault/internal/flagx"
	"github.com/dmitrijs2005/examvault/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// It relies on timex.Duration so JSON can specify timeouts either as
// strings like "30s" or as integer nanoseconds.
type JsonConfig struct {
	ServerURL           string         `json:"server_url"`
	RequestTimeout      timex.Duration `json:"request_timeout"`
	TransferTimeout     timex.Duration `json:"transfer_timeout"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval"`
}

// parseJson overlays Config with values loaded from the JSON file named by
// -c or -config. Keys missing from the file keep their current values.
// Panics on read or unmarshal errors.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	jc := JsonConfig{
		ServerURL:           cfg.ServerURL,
		RequestTimeout:      timex.Duration{Duration: cfg.RequestTimeout},
		TransferTimeout:     timex.Duration{Duration: cfg.TransferTimeout},
		OnlineCheckInterval: timex.Duration{Duration: cfg.OnlineCheckInterval},
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	cfg.ServerURL = jc.ServerURL
	cfg.RequestTimeout = jc.RequestTimeout.Duration
	cfg.TransferTimeout = jc.TransferTimeout.Duration
	cfg.OnlineCheckInterval = jc.OnlineCheckInterval.Duration
}
