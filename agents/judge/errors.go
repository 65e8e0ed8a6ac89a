/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package judge

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ServiceError reports a failed call to the judge model provider:
// rate limiting, timeouts, transport failures and server errors.
type ServiceError struct {
	// Provider names the backend, e.g. "openai".
	Provider string
	// StatusCode is the HTTP status returned by the provider, or 0 if none was received.
	StatusCode int
	// RateLimited is set when the provider rejected the call for quota or rate reasons.
	RateLimited bool
	Err         error
}

func (e *ServiceError) Error() string {
	switch {
	case e.RateLimited:
		return fmt.Sprintf("%s: rate limited: %v", e.Provider, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: status %d: %v", e.Provider, e.StatusCode, e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.Provider, e.Err)
	}
}

func (e *ServiceError) Unwrap() error { return e.Err }

// Timeout reports whether the call ran past its deadline.
func (e *ServiceError) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded) || e.StatusCode == http.StatusGatewayTimeout
}

// newServiceError wraps err from a provider SDK call.
func newServiceError(provider string, statusCode int, err error) *ServiceError {
	return &ServiceError{
		Provider:    provider,
		StatusCode:  statusCode,
		RateLimited: statusCode == http.StatusTooManyRequests,
		Err:         err,
	}
}

// ResponseError reports a judge reply that could not be turned into an Evaluation.
type ResponseError struct {
	// Response is the raw text returned by the judge.
	Response string
	Err      error
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("malformed judge response: %v", e.Err)
}

func (e *ResponseError) Unwrap() error { return e.Err }
