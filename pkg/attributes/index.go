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

// Package attributes turns the inventory service's flat attribute feed into typed,
// per-device records plus the secondary indexes used for cross-system identity lookup.
package attributes

import (
	"strings"
	"time"

	"github.com/carverauto/energyradar/pkg/identitymap"
	"github.com/carverauto/energyradar/pkg/logger"
	"github.com/carverauto/energyradar/pkg/models"
)

const stageAttributes = "attributes"

// Attribute keys, matched case-insensitively.
const (
	keySlaveID            = "slaveid"
	keyCentralID          = "centralid"
	keyDeviceType         = "devicetype"
	keyDeviceProfile      = "deviceprofile"
	keyCentralName        = "centralname"
	keyCustomerName       = "customername"
	keyConnectionStatus   = "connectionstatus"
	keyLastConnectTime    = "lastconnecttime"
	keyLastDisconnectTime = "lastdisconnecttime"
	keyLastActivityTime   = "lastactivitytime"
	keyPowerLimits        = "devicemapinstaneouspower"
	keyAnnotations        = "log_annotations"
	keyIngestionID        = "ingestionid"
	keyIngestionIDAlt     = "ingestion_id"
	keyIdentifier         = "identifier"
	keyLabel              = "label"
)

// Index is the result of one build: typed records keyed by native id and the two
// secondary lookups derived from the same rows.
type Index struct {
	devices      map[string]*models.DeviceAttributes
	order        []string
	byIngestion  map[string]string
	byIdentifier map[string]string
	diagnostics  []models.Diagnostic
}

// Get returns the attributes of a native id.
func (idx *Index) Get(nativeID string) (*models.DeviceAttributes, bool) {
	if idx == nil {
		return nil, false
	}

	attrs, ok := idx.devices[nativeID]

	return attrs, ok
}

// NativeByIngestionID maps an external ingestion id back to its native id.
func (idx *Index) NativeByIngestionID(ingestionID string) (string, bool) {
	if idx == nil || ingestionID == "" {
		return "", false
	}

	id, ok := idx.byIngestion[ingestionID]

	return id, ok
}

// NativeByIdentifier maps a human identifier back to its native id.
func (idx *Index) NativeByIdentifier(identifier string) (string, bool) {
	if idx == nil {
		return "", false
	}

	key := identitymap.NormalizeIdentifier(identifier)
	if key == "" {
		return "", false
	}

	id, ok := idx.byIdentifier[key]

	return id, ok
}

// Len is the number of devices in the index.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}

	return len(idx.devices)
}

// NativeIDs lists the indexed devices in the order they first appeared in the feed.
func (idx *Index) NativeIDs() []string {
	if idx == nil {
		return nil
	}

	return append([]string(nil), idx.order...)
}

// Diagnostics lists parse failures and secondary key collisions found during the build.
func (idx *Index) Diagnostics() []models.Diagnostic {
	if idx == nil {
		return nil
	}

	return append([]models.Diagnostic(nil), idx.diagnostics...)
}

// Builder builds indexes. It holds no state between builds.
type Builder struct {
	logger logger.Logger
}

func NewBuilder(log logger.Logger) *Builder {
	if log == nil {
		log = logger.NewTestLogger()
	}

	return &Builder{logger: log}
}

// Build groups rows by device and assigns recognised keys. Unknown keys are ignored and
// malformed structured values leave their field nil; the build itself never fails.
func (b *Builder) Build(rows []models.AttributeRow) *Index {
	idx := &Index{
		devices:      make(map[string]*models.DeviceAttributes),
		byIngestion:  make(map[string]string),
		byIdentifier: make(map[string]string),
	}

	for i := range rows {
		row := &rows[i]

		deviceID := strings.TrimSpace(row.DeviceID)
		if deviceID == "" {
			continue
		}

		attrs, ok := idx.devices[deviceID]
		if !ok {
			attrs = &models.DeviceAttributes{
				NativeID:         deviceID,
				ConnectionStatus: models.ConnectionUnknown,
			}
			idx.devices[deviceID] = attrs
			idx.order = append(idx.order, deviceID)
		}

		b.assign(idx, attrs, strings.ToLower(strings.TrimSpace(row.Key)), row.Value)
	}

	b.buildSecondary(idx)

	return idx
}

func (b *Builder) assign(idx *Index, attrs *models.DeviceAttributes, key string, value any) {
	switch key {
	case keySlaveID:
		attrs.SlaveID = stringValue(value)
	case keyCentralID:
		attrs.CentralID = stringValue(value)
	case keyDeviceType:
		attrs.DeviceType = strings.ToUpper(stringValue(value))
	case keyDeviceProfile:
		attrs.DeviceProfile = stringValue(value)
	case keyCentralName:
		attrs.CentralName = stringValue(value)
	case keyCustomerName:
		attrs.CustomerName = stringValue(value)
	case keyConnectionStatus:
		attrs.ConnectionStatus = models.ParseConnectionStatus(stringValue(value))
	case keyLastConnectTime:
		attrs.LastConnectTime = b.timestamp(idx, attrs.NativeID, key, value)
	case keyLastDisconnectTime:
		attrs.LastDisconnectTime = b.timestamp(idx, attrs.NativeID, key, value)
	case keyLastActivityTime:
		attrs.LastActivityTime = b.timestamp(idx, attrs.NativeID, key, value)
	case keyPowerLimits:
		limits, err := parsePowerLimits(value)
		if err != nil {
			b.parseFailure(idx, attrs.NativeID, key, err)
		}

		attrs.PowerLimits = limits
	case keyAnnotations:
		notes, err := parseAnnotations(value)
		if err != nil {
			b.parseFailure(idx, attrs.NativeID, key, err)
		}

		attrs.Annotations = notes
	case keyIngestionID, keyIngestionIDAlt:
		attrs.IngestionID = stringValue(value)
	case keyIdentifier:
		attrs.Identifier = stringValue(value)
	case keyLabel:
		attrs.Label = stringValue(value)
	}
}

func (b *Builder) timestamp(idx *Index, deviceID, key string, value any) time.Time {
	ts, err := timeValue(value)
	if err != nil {
		b.parseFailure(idx, deviceID, key, err)
	}

	return ts
}

func (b *Builder) parseFailure(idx *Index, deviceID, key string, err error) {
	b.logger.Warn().
		Err(err).
		Str("device_id", deviceID).
		Str("key", key).
		Msg("Failed to parse attribute, leaving field empty")

	idx.diagnostics = append(idx.diagnostics, models.Diagnostic{
		Kind:    models.DiagParseFailure,
		Stage:   stageAttributes,
		Subject: deviceID,
		Detail:  key + ": " + err.Error(),
	})
}

// buildSecondary fills the ingestion-id and identifier lookups in feed order; the first
// device to claim a key keeps it.
func (b *Builder) buildSecondary(idx *Index) {
	for _, nativeID := range idx.order {
		attrs := idx.devices[nativeID]

		if attrs.IngestionID != "" {
			b.claim(idx, idx.byIngestion, attrs.IngestionID, nativeID, keyIngestionID)
		}

		if key := identitymap.NormalizeIdentifier(attrs.Identifier); key != "" {
			b.claim(idx, idx.byIdentifier, key, nativeID, keyIdentifier)
		}
	}
}

func (b *Builder) claim(idx *Index, lookup map[string]string, key, nativeID, kind string) {
	owner, taken := lookup[key]
	if !taken {
		lookup[key] = nativeID

		return
	}

	if owner == nativeID {
		return
	}

	b.logger.Warn().
		Str("key_kind", kind).
		Str("key", key).
		Str("owner", owner).
		Str("device_id", nativeID).
		Msg("Secondary key claimed by more than one device")

	idx.diagnostics = append(idx.diagnostics, models.Diagnostic{
		Kind:    models.DiagIdentityAmbiguity,
		Stage:   stageAttributes,
		Subject: nativeID,
		Detail:  kind + " " + key + " already belongs to " + owner,
	})
}

// Build is a convenience for callers that do not need build-time logging.
func Build(rows []models.AttributeRow) *Index {
	return NewBuilder(nil).Build(rows)
}
