package client

import "errors"

var (
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = errors.New("invalid password")
	ErrNotFound     = errors.New("file not found")
	ErrRejected     = errors.New("request rejected")
	ErrServer       = errors.New("server error")
)
