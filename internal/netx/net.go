// Package netx holds small HTTP helpers shared by the CLI client.
package netx

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxErrorBody bounds how much of a failed response is read for its message.
const maxErrorBody = 64 * 1024

// StatusError is a non-2xx response. Message is taken from the JSON "error"
// or "message" field when present, otherwise from the raw body.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server error: %d", e.StatusCode)
	}
	return fmt.Sprintf("server error: %d: %s", e.StatusCode, e.Message)
}

// CheckStatus returns nil for 2xx responses and a *StatusError otherwise.
// On error the body is consumed; the caller still closes it.
func CheckStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	msg := strings.TrimSpace(string(b))
	if err := json.Unmarshal(b, &body); err == nil {
		switch {
		case body.Error != "":
			msg = body.Error
		case body.Message != "":
			msg = body.Message
		}
	}
	return &StatusError{StatusCode: resp.StatusCode, Message: msg}
}

// DecodeJSON checks the status and decodes a successful body into v.
func DecodeJSON(resp *http.Response, v any) error {
	if err := CheckStatus(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
