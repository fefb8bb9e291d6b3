package resource

import (
	"net/http"

	"github.com/xompass/remote-association/http_errors"
)

// Error codes for remote resources
const (
	RESOURCE_NOT_FOUND       = "RESOURCE_NOT_FOUND"
	RESOURCE_REQUEST_FAILED  = "RESOURCE_REQUEST_FAILED"
	RESOURCE_DECODE_FAILED   = "RESOURCE_DECODE_FAILED"
	RESOURCE_INVALID_OPTIONS = "RESOURCE_INVALID_OPTIONS"
	RESOURCE_NOT_REGISTERED  = "RESOURCE_NOT_REGISTERED"
)

// IsNotFound reports whether err is the remote not-found signal. Callers
// treat it as an empty result rather than a failure.
func IsNotFound(err error) bool {
	return http_errors.StatusCode(err) == http.StatusNotFound
}

func notFoundError(url string) error {
	return http_errors.NotFoundErrorWithCode(RESOURCE_NOT_FOUND, "remote resource not found", url)
}

func statusError(status int, url string, body []byte) error {
	message := http.StatusText(status)
	if message == "" {
		message = "unexpected status"
	}
	return http_errors.NewErrorResponseWithCode(status, RESOURCE_REQUEST_FAILED, "remote request failed: "+message, map[string]any{
		"url":  url,
		"body": truncate(string(body), 512),
	})
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
