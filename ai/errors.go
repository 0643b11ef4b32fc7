// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
)

var (
	// ErrProviderUnavailable indicates an authentication, network or
	// configuration problem with the embedding backend.
	ErrProviderUnavailable = errors.New("embedding provider unavailable")

	// ErrProviderQuotaExceeded indicates the backend rejected the call for
	// rate or quota reasons.
	ErrProviderQuotaExceeded = errors.New("embedding provider quota exceeded")

	// ErrMalformedResponse indicates an unexpected payload shape, including a
	// vector whose length differs from the provider's dimension.
	ErrMalformedResponse = errors.New("malformed embedding response")

	// ErrUnknownProvider is returned when Config.Provider names no known strategy.
	ErrUnknownProvider = errors.New("unknown embedding provider")
)

// ProviderError is the error type returned by every Provider.
// Kind is one of the sentinel errors above; Err is the underlying cause.
type ProviderError struct {
	Provider  string
	Kind      error
	Retryable bool
	Err       error
}

func (e *ProviderError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Provider, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Provider, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *ProviderError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewError builds a ProviderError of the given kind.
func NewError(provider string, kind error, retryable bool, cause error) *ProviderError {
	return &ProviderError{Provider: provider, Kind: kind, Retryable: retryable, Err: cause}
}

// IsRetryable reports whether err is a provider error worth retrying.
// Errors that do not come from a provider are not retryable.
func IsRetryable(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return false
}

// StatusError is returned by providers that talk HTTP directly when the
// backend answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("unexpected status %d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Body)
}

// CheckResponse returns a *StatusError for non-2xx responses.
// The body is read (up to 4 KiB) but not closed.
func CheckResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}

// Classify maps a transport error from provider to a *ProviderError.
// Errors that already are provider errors are returned unchanged.
func Classify(provider string, err error) error {
	if err == nil {
		return nil
	}

	var pe *ProviderError
	if errors.As(err, &pe) {
		return err
	}

	if errors.Is(err, context.Canceled) {
		return NewError(provider, ErrProviderUnavailable, false, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewError(provider, ErrProviderUnavailable, true, err)
	}

	var se *StatusError
	if errors.As(err, &se) {
		return classifyStatus(provider, se.StatusCode, se.Body, err)
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return NewError(provider, ErrMalformedResponse, false, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return NewError(provider, ErrProviderUnavailable, true, err)
	}

	// Client libraries that do not expose typed errors embed the status in the message.
	msg := err.Error()
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(msg, "429") || strings.Contains(msg, "Too Many Requests") ||
		strings.Contains(lower, "rate limit") || strings.Contains(lower, "quota"):
		return NewError(provider, ErrProviderQuotaExceeded, !isHardQuota(lower), err)
	case strings.Contains(msg, "500") || strings.Contains(msg, "502") ||
		strings.Contains(msg, "503") || strings.Contains(msg, "504"):
		return NewError(provider, ErrProviderUnavailable, true, err)
	case strings.Contains(msg, "401") || strings.Contains(msg, "403") ||
		strings.Contains(msg, "404") || strings.Contains(lower, "api key"):
		return NewError(provider, ErrProviderUnavailable, false, err)
	case strings.Contains(msg, "400"):
		return NewError(provider, ErrMalformedResponse, false, err)
	case strings.Contains(lower, "connection refused") || strings.Contains(lower, "no such host"):
		return NewError(provider, ErrProviderUnavailable, true, err)
	case strings.Contains(lower, "unmarshal") || strings.Contains(lower, "decode"):
		return NewError(provider, ErrMalformedResponse, false, err)
	}

	return NewError(provider, ErrProviderUnavailable, true, err)
}

func classifyStatus(provider string, status int, body string, err error) error {
	switch {
	case status == http.StatusTooManyRequests:
		return NewError(provider, ErrProviderQuotaExceeded, !isHardQuota(strings.ToLower(body)), err)
	case status >= 500:
		return NewError(provider, ErrProviderUnavailable, true, err)
	case status == http.StatusBadRequest:
		return NewError(provider, ErrMalformedResponse, false, err)
	default:
		return NewError(provider, ErrProviderUnavailable, false, err)
	}
}

// isHardQuota detects quota errors that will not clear by waiting.
func isHardQuota(lower string) bool {
	return strings.Contains(lower, "insufficient_quota") ||
		strings.Contains(lower, "tokens per day") ||
		strings.Contains(lower, "per day")
}
