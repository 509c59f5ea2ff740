package integration

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrConfigMissing   = errors.New("config_missing")
	ErrUnknownProvider = errors.New("unknown_provider")
)

// ConfigMissing wraps ErrConfigMissing with the provider that was looked up.
func ConfigMissing(provider Provider) error {
	return fmt.Errorf("%w: %s configuration not found", ErrConfigMissing, provider)
}

// AuthError reports that an upstream rejected the stored credentials. It is
// never retried automatically.
type AuthError struct {
	Provider Provider
	Message  string
	Err      error
}

func (e *AuthError) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = "credentials rejected"
	}
	return msg
}

func (e *AuthError) Unwrap() error { return e.Err }

// UpstreamError is a non-2xx response or transport failure. Message carries the
// upstream text verbatim when one was returned.
type UpstreamError struct {
	Provider   Provider
	StatusCode int
	Message    string
	Err        error
}

func (e *UpstreamError) Error() string {
	if msg := strings.TrimSpace(e.Message); msg != "" {
		return msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s request failed with status %d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s request failed", e.Provider)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Unauthorized reports whether the upstream refused the credentials.
func (e *UpstreamError) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// ClientError reports a 4xx response.
func (e *UpstreamError) ClientError() bool {
	return e.StatusCode >= http.StatusBadRequest && e.StatusCode < http.StatusInternalServerError
}

// PosRejectedError is a business rejection from the POS. Reason is the detail
// the POS returned and must reach the operator unchanged.
type PosRejectedError struct {
	StatusCode int
	Reason     string
}

func (e *PosRejectedError) Error() string {
	if reason := strings.TrimSpace(e.Reason); reason != "" {
		return reason
	}
	return "receipt rejected by POS"
}

// IsAuth reports whether err is, or wraps, an AuthError.
func IsAuth(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// IsUpstream reports whether err is, or wraps, an UpstreamError or a
// PosRejectedError.
func IsUpstream(err error) bool {
	var upstreamErr *UpstreamError
	if errors.As(err, &upstreamErr) {
		return true
	}
	var rejected *PosRejectedError
	return errors.As(err, &rejected)
}
