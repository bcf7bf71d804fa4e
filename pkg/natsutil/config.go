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

package natsutil

import "errors"

const (
	// SubjectPeriodChanged carries requests to reconcile a new period for a scope.
	SubjectPeriodChanged = "reconcile.period.changed"
	// SubjectDataReady carries finished reconciliation results.
	SubjectDataReady = "reconcile.data.ready"

	DefaultStream = "RECONCILE"

	eventSource      = "energyradar/reconciler"
	eventTypePrefix  = "com.carverauto.energyradar."
	contentTypeJSON  = "application/json"
	cloudEventsSpec  = "1.0"
	defaultSubjectWC = "reconcile.>"
)

var errMissingURL = errors.New("nats: url is required")

// Config describes the NATS connection used for reconciliation events.
type Config struct {
	URL    string `json:"url" validate:"required"`
	Domain string `json:"domain,omitempty"`
	Stream string `json:"stream,omitempty"`
	// TLS enables mTLS when set.
	TLS *TLSFiles `json:"tls,omitempty"`
}

// TLSFiles are PEM paths for mTLS.
type TLSFiles struct {
	CAFile     string `json:"ca_file" validate:"required"`
	CertFile   string `json:"cert_file" validate:"required"`
	KeyFile    string `json:"key_file" validate:"required"`
	ServerName string `json:"server_name,omitempty"`
}

func (c *Config) streamName() string {
	if c.Stream == "" {
		return DefaultStream
	}

	return c.Stream
}
