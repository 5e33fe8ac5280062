// Package config loads runtime configuration for the examvault CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the server API
//	-t int      request timeout (seconds)
//	-T int      upload/download timeout (seconds)
//	-i int      online status check interval (seconds)
//
// # JSON schema
//
// Timeouts use timex.Duration, so values can be either strings like "30s" or
// integer nanoseconds:
//
//	{
//	  "server_url": "http://127.0.0.1:5000/api",
//	  "request_timeout": "30s",
//	  "transfer_timeout": "60s",
//	  "online_check_interval": "10s"
//	}
package config
