package api

import "errors"

// Server errors
var (
	ErrServerStarted    = errors.New("admin API server already started")
	ErrServerNotStarted = errors.New("admin API server not started")
)
