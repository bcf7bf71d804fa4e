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

package inventory

import "errors"

var (
	errUnexpectedStatusCode = errors.New("unexpected status code")
	errMissingEndpoint      = errors.New("inventory endpoint is required")
	errMissingDSN           = errors.New("postgres_dsn is required when attribute_source is postgres")
	errUnknownSource        = errors.New("unknown attribute_source")
	errPagingRunaway        = errors.New("device listing pagination did not terminate")
)
