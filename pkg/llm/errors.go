package llm

import (
	"errors"
	"fmt"
	"io"
	"net/http"
)

// maxErrorBody bounds how much of an upstream error body is kept.
const maxErrorBody = 4096

// UpstreamError reports a failed call to an external provider: either a
// non-success HTTP status (StatusCode and Body set) or a transport failure
// (Err set, StatusCode zero).
type UpstreamError struct {
	Provider   string
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s failed: %d %s", e.Provider, e.Op, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s %s failed: %v", e.Provider, e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Retryable reports whether repeating the call may succeed.
func (e *UpstreamError) Retryable() bool {
	if e.StatusCode == 0 {
		return true
	}
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// NewStatusError builds an UpstreamError from a non-success response,
// consuming (part of) its body.
func NewStatusError(provider, op string, resp *http.Response) *UpstreamError {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	ue := &UpstreamError{Provider: provider, Op: op, StatusCode: resp.StatusCode, Body: string(body)}
	if err != nil {
		ue.Body = "failed to read response"
		ue.Err = err
	}
	return ue
}

// AsUpstream extracts an UpstreamError from err's chain.
func AsUpstream(err error) (*UpstreamError, bool) {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue, true
	}
	return nil, false
}
