package server

import "codeberg.org/mutker/metricshub/internal/errors"

var errFactory = errors.New()

const (
	ErrServeFailed    = errors.ErrorCode("server_serve_failed")
	ErrShutdownFailed = errors.ErrorCode("server_shutdown_failed")
)
