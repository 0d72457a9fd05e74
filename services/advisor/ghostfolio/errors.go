// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ghostfolio

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Types
// =============================================================================

// TransportError indicates the backend could not be reached after all
// bounded retries (connection refused, DNS failure, timeout).
//
// # Fields
//
//   - Op: The request being attempted, e.g. "GET /api/v1/order".
//   - Attempts: Number of attempts made before giving up.
//   - Err: The last underlying transport error.
type TransportError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("ghostfolio unreachable: %s failed after %d attempts: %v",
		e.Op, e.Attempts, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// AuthError indicates the configured security token was rejected, or a
// refreshed token still produced 401.
type AuthError struct {
	Status  int
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("ghostfolio authentication failed (status %d): %s",
		e.Status, e.Message)
}

// APIError is any non-2xx response other than a recoverable 401.
//
// # Fields
//
//   - Status: HTTP status code.
//   - Op: The request that failed.
//   - Body: Response body, truncated for logging.
type APIError struct {
	Status int
	Op     string
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ghostfolio API error: %s returned %d: %s",
		e.Op, e.Status, e.Body)
}

// =============================================================================
// Classification Helpers
// =============================================================================

// IsTransport reports whether err is a backend-unreachable condition.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsAuth reports whether err is an authentication failure.
func IsAuth(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}
