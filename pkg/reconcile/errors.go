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

package reconcile

import "errors"

var (
	// ErrAuthUnavailable fails a pass that could not obtain an analytics credential.
	ErrAuthUnavailable = errors.New("reconcile: auth unavailable")
	// ErrInventoryUnavailable fails a pass whose device listing could not be loaded.
	ErrInventoryUnavailable = errors.New("reconcile: inventory unavailable")
	// ErrInvalidRequest is returned for a request with an invalid scope or period.
	ErrInvalidRequest = errors.New("reconcile: invalid request")

	errMissingDependency = errors.New("reconcile: missing dependency")
)
