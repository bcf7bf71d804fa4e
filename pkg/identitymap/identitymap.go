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

// Package identitymap defines the key spaces a device is known by across the inventory
// and analytics systems, and the lookup metrics shared by identity resolution.
package identitymap

import (
	"strings"

	"github.com/carverauto/energyradar/pkg/models"
)

// Kind names a key space.
type Kind int

const (
	KindUnspecified Kind = iota
	KindNativeID
	KindIngestionID
	KindIdentifier
)

func (k Kind) String() string {
	switch k {
	case KindNativeID:
		return "native_id"
	case KindIngestionID:
		return "ingestion_id"
	case KindIdentifier:
		return "identifier"
	case KindUnspecified:
		return "unspecified"
	default:
		return "unspecified"
	}
}

// Resolution maps the key space a native id was found through to the item resolution tag.
func (k Kind) Resolution() models.Resolution {
	switch k {
	case KindNativeID:
		return models.ResolvedDirect
	case KindIngestionID:
		return models.ResolvedIngestion
	case KindIdentifier:
		return models.ResolvedIdentifier
	case KindUnspecified:
		return models.Unresolved
	default:
		return models.Unresolved
	}
}

// Key represents a lookup identity used to locate a native device id.
type Key struct {
	Kind  Kind
	Value string
}

// NormalizeIdentifier canonicalises a human identifier for lookup. Identifiers are typed
// by operators, so case and surrounding space carry no meaning.
func NormalizeIdentifier(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// BuildKeys derives the lookup keys of a key set in priority order, skipping empty and
// repeated values.
func BuildKeys(set models.IdentityKeySet) []Key {
	keys := make([]Key, 0, 3)
	seen := make(map[Key]struct{}, 3)

	add := func(kind Kind, raw string) {
		val := strings.TrimSpace(raw)
		if kind == KindIdentifier {
			val = NormalizeIdentifier(val)
		}

		if val == "" {
			return
		}

		key := Key{Kind: kind, Value: val}
		if _, ok := seen[key]; ok {
			return
		}

		seen[key] = struct{}{}
		keys = append(keys, key)
	}

	add(KindNativeID, set.NativeID)
	add(KindIngestionID, set.IngestionID)
	add(KindIdentifier, set.Identifier)

	return keys
}
