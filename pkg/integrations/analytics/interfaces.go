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

import (
	"context"
	"net/http"
)

//go:generate mockgen -destination=mock_analytics.go -package=analytics github.com/carverauto/energyradar/pkg/integrations/analytics HTTPClient,CredentialSource,TokenSource

// HTTPClient defines the interface for making HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// CredentialSource issues fresh credentials from the auth endpoint.
type CredentialSource interface {
	RequestToken(ctx context.Context) (*Credential, error)
}

// TokenSource hands out a currently valid bearer token.
type TokenSource interface {
	GetToken(ctx context.Context) (string, error)
	Invalidate()
}
