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

package models

import "sync"

// DiagnosticKind is the error taxonomy for degraded data.
type DiagnosticKind string

const (
	DiagAuthFailure         DiagnosticKind = "auth_failure"
	DiagPartialFetchFailure DiagnosticKind = "partial_fetch_failure"
	DiagIdentityAmbiguity   DiagnosticKind = "identity_ambiguity"
	DiagParseFailure        DiagnosticKind = "parse_failure"
)

// Diagnostic records one degraded datum so operators can see what was papered over.
type Diagnostic struct {
	Kind    DiagnosticKind `json:"kind"`
	Stage   string         `json:"stage"`
	Subject string         `json:"subject,omitempty"`
	Detail  string         `json:"detail,omitempty"`
}

// Ambiguity is raised when two secondary key spaces point at different native ids.
type Ambiguity struct {
	ItemID          string `json:"item_id"`
	ByIngestionID   string `json:"by_ingestion_id"`
	ByIdentifier    string `json:"by_identifier"`
	ChosenNativeID  string `json:"chosen_native_id"`
	HumanIdentifier string `json:"human_identifier,omitempty"`
}

// Diagnostic converts the ambiguity into the shared diagnostic record.
func (a Ambiguity) Diagnostic() Diagnostic {
	return Diagnostic{
		Kind:    DiagIdentityAmbiguity,
		Stage:   "identity",
		Subject: a.ItemID,
		Detail:  "ingestion id resolves to " + a.ByIngestionID + ", identifier resolves to " + a.ByIdentifier,
	}
}

// DiagnosticLog collects diagnostics from concurrent stages.
type DiagnosticLog struct {
	mu      sync.Mutex
	entries []Diagnostic
}

func (d *DiagnosticLog) Add(diag Diagnostic) {
	if d == nil {
		return
	}

	d.mu.Lock()
	d.entries = append(d.entries, diag)
	d.mu.Unlock()
}

// Entries returns a copy of the collected diagnostics in insertion order.
func (d *DiagnosticLog) Entries() []Diagnostic {
	if d == nil {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]Diagnostic, len(d.entries))
	copy(out, d.entries)

	return out
}
