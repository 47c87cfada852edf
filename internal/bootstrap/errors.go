package bootstrap

import "errors"

var (
	// ErrMissingConfig indicates required environment variables are absent.
	// The remediation message has already been written when this is returned.
	ErrMissingConfig = errors.New("required configuration is missing")
)
