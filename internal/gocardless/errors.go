package gocardless

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

var (
	// ErrRateLimited is returned when a call would exceed the daily budget
	// or the API answered 429.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrNoClosingBalance is returned when an account has no closingBooked
	// balance.
	ErrNoClosingBalance = errors.New("no closingBooked balance")
)

// APIError is an error response from the API.
type APIError struct {
	StatusCode int    `json:"status_code"`
	Summary    string `json:"summary"`
	Detail     string `json:"detail"`
}

func (e *APIError) Error() string {
	switch {
	case e.Summary != "" && e.Detail != "":
		return fmt.Sprintf("%s: %s (status %d)", e.Summary, e.Detail, e.StatusCode)
	case e.Summary != "":
		return fmt.Sprintf("%s (status %d)", e.Summary, e.StatusCode)
	default:
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
}

// Unwrap lets errors.Is(err, ErrRateLimited) match a 429.
func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusTooManyRequests {
		return ErrRateLimited
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if len(body) > 0 {
		if err := json.Unmarshal(body, apiErr); err != nil {
			apiErr.Summary = strings.TrimSpace(string(body))
		}
	}
	// the body's status_code is not always present
	apiErr.StatusCode = resp.StatusCode
	return apiErr
}

func asAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
