/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package analytics

import "errors"

var (
	// ErrAuthUnavailable means no credential could be obtained after all renewal attempts.
	ErrAuthUnavailable = errors.New("analytics auth unavailable")
	// ErrUnauthorized is returned when the analytics service rejects the bearer token.
	ErrUnauthorized = errors.New("analytics request unauthorized")
	// ErrCircuitOpen is returned while the totals circuit breaker refuses requests.
	ErrCircuitOpen = errors.New("circuit breaker is open")

	errUnexpectedStatusCode = errors.New("unexpected status code")
	errMalformedToken       = errors.New("malformed token response")
	errMissingEndpoint      = errors.New("analytics endpoint is required")
	errMissingCredentials   = errors.New("analytics client_id and client_secret are required")
	errTooManyPages         = errors.New("totals pagination did not terminate")
)
