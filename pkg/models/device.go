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

import (
	"strings"
	"time"
)

// ConnectionStatus is the last connectivity state reported by the inventory service.
type ConnectionStatus string

const (
	ConnectionOnline  ConnectionStatus = "online"
	ConnectionOffline ConnectionStatus = "offline"
	ConnectionUnknown ConnectionStatus = "unknown"
)

// ParseConnectionStatus maps free-form status strings onto the three known states.
func ParseConnectionStatus(raw string) ConnectionStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "online", "connected", "active":
		return ConnectionOnline
	case "offline", "disconnected", "inactive":
		return ConnectionOffline
	default:
		return ConnectionUnknown
	}
}

// AttributeRow is one (device, key, value) observation of the server-scope attribute feed.
type AttributeRow struct {
	DeviceID string `json:"device_id"`
	Key      string `json:"key"`
	Value    any    `json:"value"`
}

// PowerLimitRange bounds the expected instantaneous power of a device type in a given status.
type PowerLimitRange struct {
	TelemetryType string  `json:"telemetry_type" validate:"required"`
	DeviceType    string  `json:"device_type" validate:"required"`
	Status        string  `json:"status" validate:"required"`
	Base          float64 `json:"base" validate:"gte=0"`
	Top           float64 `json:"top" validate:"gtefield=Base"`
}

// PowerLimits is the device-specific override of the customer power limit table.
type PowerLimits struct {
	Version string            `json:"version"`
	Ranges  []PowerLimitRange `json:"ranges" validate:"dive"`
}

// AnnotationType classifies operator notes attached to a device.
type AnnotationType string

const (
	AnnotationObservation AnnotationType = "observation"
	AnnotationPending     AnnotationType = "pending"
	AnnotationMaintenance AnnotationType = "maintenance"
	AnnotationActivity    AnnotationType = "activity"
)

// Annotation is one operator note.
type Annotation struct {
	ID        string         `json:"id" validate:"required"`
	Type      AnnotationType `json:"type" validate:"oneof=observation pending maintenance activity"`
	Text      string         `json:"text" validate:"required"`
	CreatedAt time.Time      `json:"created_at"`
	CreatedBy string         `json:"created_by,omitempty"`
	Archived  bool           `json:"archived,omitempty"`
}

// DeviceAttributes is the typed view of a device's server-scope attributes.
// It is rebuilt from the latest attribute snapshot on every pass.
type DeviceAttributes struct {
	NativeID           string           `json:"native_id"`
	SlaveID            string           `json:"slave_id,omitempty"`
	CentralID          string           `json:"central_id,omitempty"`
	DeviceType         string           `json:"device_type,omitempty"`
	DeviceProfile      string           `json:"device_profile,omitempty"`
	CentralName        string           `json:"central_name,omitempty"`
	CustomerName       string           `json:"customer_name,omitempty"`
	ConnectionStatus   ConnectionStatus `json:"connection_status"`
	LastConnectTime    time.Time        `json:"last_connect_time,omitempty"`
	LastDisconnectTime time.Time        `json:"last_disconnect_time,omitempty"`
	LastActivityTime   time.Time        `json:"last_activity_time,omitempty"`
	PowerLimits        *PowerLimits     `json:"power_limits,omitempty"`
	Annotations        []Annotation     `json:"annotations,omitempty"`

	// Cross-system keys carried as attributes.
	IngestionID string `json:"ingestion_id,omitempty"`
	Identifier  string `json:"identifier,omitempty"`
	Label       string `json:"label,omitempty"`
}

// IdentityKeySet is every key known for one logical device. NativeID is the identity of record.
type IdentityKeySet struct {
	NativeID    string `json:"native_id"`
	IngestionID string `json:"ingestion_id,omitempty"`
	Identifier  string `json:"identifier,omitempty"`
}

// BaseItem is one entry of the raw device listing. ID may hold either a native id or an
// ingestion id depending on which system produced the listing.
type BaseItem struct {
	ID          string   `json:"id"`
	Label       string   `json:"label,omitempty"`
	Identifier  string   `json:"identifier,omitempty"`
	IngestionID string   `json:"ingestion_id,omitempty"`
	DeviceType  string   `json:"device_type,omitempty"`
	LocalValue  *float64 `json:"local_value,omitempty"`
}

// Resolution records which key space produced an item's native id.
type Resolution string

const (
	ResolvedDirect     Resolution = "direct"
	ResolvedIngestion  Resolution = "ingestion_id"
	ResolvedIdentifier Resolution = "identifier"
	Unresolved         Resolution = "unresolved"
)

// CanonicalItem is the de-duplicated device record used downstream of identity resolution.
type CanonicalItem struct {
	NativeID            string            `json:"native_id"`
	ExternalIngestionID string            `json:"external_ingestion_id,omitempty"`
	HumanIdentifier     string            `json:"human_identifier,omitempty"`
	Label               string            `json:"label"`
	DeviceType          string            `json:"device_type,omitempty"`
	Attributes          *DeviceAttributes `json:"attributes,omitempty"`
	Resolution          Resolution        `json:"resolution"`
	LocalValue          *float64          `json:"local_value,omitempty"`
	Parent              *AssetRef         `json:"parent,omitempty"`
	Grandparent         *AssetRef         `json:"grandparent,omitempty"`

	Category   string  `json:"category"`
	Value      float64 `json:"value"`
	Percentage float64 `json:"percentage"`
}

// DeviceTotal is one row of the analytics totals endpoint.
type DeviceTotal struct {
	ExternalID string  `json:"external_id"`
	TotalValue float64 `json:"total_value"`
}
