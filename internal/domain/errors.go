package domain

import "errors"

var (
	// ErrServiceDidNotStart is the only fatal verification outcome.
	ErrServiceDidNotStart = errors.New("service did not start")

	ErrHealthCheckDegraded      = errors.New("health check degraded")
	ErrExternalCheckUnreachable = errors.New("external health check unreachable")
	ErrServiceUnstable          = errors.New("service stopped running during stability window")
)
