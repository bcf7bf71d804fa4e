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

package attributes

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/carverauto/energyradar/pkg/models"
)

var errEmptyDocument = errors.New("empty document")

//nolint:gochecknoglobals // validator caches struct metadata and is safe for concurrent use
var validate = validator.New()

type powerLimitsDoc struct {
	Version string `json:"version"`
	Limits  []struct {
		TelemetryType string `json:"telemetryType"`
		Items         []struct {
			DeviceType string `json:"deviceType"`
			ByStatus   []struct {
				Status string `json:"deviceStatusName"`
				Values struct {
					Base *float64 `json:"baseValue"`
					Top  *float64 `json:"topValue"`
				} `json:"limitsValues"`
			} `json:"limitsByDeviceStatus"`
		} `json:"itemsByDeviceType"`
	} `json:"limitsByInstantaneousPowerType"`
}

type annotationDoc struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Text      string `json:"text"`
	CreatedAt string `json:"createdAt"`
	CreatedBy any    `json:"createdBy"`
	Archived  bool   `json:"archived"`
}

func isNullDocument(doc []byte) bool {
	trimmed := bytes.TrimSpace(doc)

	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func parsePowerLimits(v any) (*models.PowerLimits, error) {
	doc, err := rawJSON(v)
	if err != nil {
		return nil, err
	}

	if isNullDocument(doc) {
		return nil, nil
	}

	var wire powerLimitsDoc
	if err := json.Unmarshal(doc, &wire); err != nil {
		return nil, fmt.Errorf("decode power limits: %w", err)
	}

	limits := &models.PowerLimits{Version: wire.Version}

	for _, byType := range wire.Limits {
		for _, item := range byType.Items {
			for _, status := range item.ByStatus {
				r := models.PowerLimitRange{
					TelemetryType: byType.TelemetryType,
					DeviceType:    item.DeviceType,
					Status:        status.Status,
				}

				if status.Values.Base != nil {
					r.Base = *status.Values.Base
				}

				if status.Values.Top != nil {
					r.Top = *status.Values.Top
				}

				limits.Ranges = append(limits.Ranges, r)
			}
		}
	}

	if len(limits.Ranges) == 0 {
		return nil, errEmptyDocument
	}

	if err := validate.Struct(limits); err != nil {
		return nil, fmt.Errorf("validate power limits: %w", err)
	}

	return limits, nil
}

func parseAnnotations(v any) ([]models.Annotation, error) {
	doc, err := rawJSON(v)
	if err != nil {
		return nil, err
	}

	if isNullDocument(doc) {
		return nil, nil
	}

	var wire []annotationDoc

	if err := json.Unmarshal(doc, &wire); err != nil {
		var wrapped struct {
			Annotations []annotationDoc `json:"annotations"`
		}

		if wrapErr := json.Unmarshal(doc, &wrapped); wrapErr != nil {
			return nil, fmt.Errorf("decode annotations: %w", err)
		}

		wire = wrapped.Annotations
	}

	out := make([]models.Annotation, 0, len(wire))

	for i := range wire {
		a := models.Annotation{
			ID:        wire[i].ID,
			Type:      models.AnnotationType(wire[i].Type),
			Text:      wire[i].Text,
			CreatedBy: authorName(wire[i].CreatedBy),
			Archived:  wire[i].Archived,
		}

		if wire[i].CreatedAt != "" {
			ts, err := time.Parse(time.RFC3339, wire[i].CreatedAt)
			if err != nil {
				return nil, fmt.Errorf("annotation %d: %w", i, err)
			}

			a.CreatedAt = ts.UTC()
		}

		if err := validate.Struct(a); err != nil {
			return nil, fmt.Errorf("annotation %d: %w", i, err)
		}

		out = append(out, a)
	}

	return out, nil
}

// authorName accepts either a bare name or a {"name": ...} author object.
func authorName(v any) string {
	if obj, ok := v.(map[string]any); ok {
		return stringValue(obj["name"])
	}

	return stringValue(v)
}
