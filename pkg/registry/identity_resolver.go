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

// Package registry assigns every listed device one canonical identity across the inventory
// and analytics key spaces.
package registry

import (
	"context"
	"strings"
	"time"

	"github.com/carverauto/energyradar/pkg/attributes"
	"github.com/carverauto/energyradar/pkg/identitymap"
	"github.com/carverauto/energyradar/pkg/logger"
	"github.com/carverauto/energyradar/pkg/models"
)

// IdentityResolver maps raw listing entries onto native device ids.
type IdentityResolver struct {
	logger logger.Logger
}

func NewIdentityResolver(log logger.Logger) *IdentityResolver {
	return &IdentityResolver{logger: log}
}

// Resolve returns exactly one canonical item per input item, in input order, plus the
// ambiguities found on the way. Lookup order is native id, then ingestion id, then human
// identifier. Items that match nothing keep their raw id.
func (r *IdentityResolver) Resolve(
	ctx context.Context, items []models.BaseItem, idx *attributes.Index) ([]*models.CanonicalItem, []models.Ambiguity) {
	start := time.Now()

	out := make([]*models.CanonicalItem, 0, len(items))
	counts := make(map[identitymap.Kind]int, 4)

	var ambiguities []models.Ambiguity

	for i := range items {
		item := &items[i]

		nativeID, via, ambiguity := r.lookup(item, idx)
		if ambiguity != nil {
			ambiguities = append(ambiguities, *ambiguity)

			r.logger.Warn().
				Str("item_id", ambiguity.ItemID).
				Str("by_ingestion_id", ambiguity.ByIngestionID).
				Str("by_identifier", ambiguity.ByIdentifier).
				Str("identifier", ambiguity.HumanIdentifier).
				Msg("Ingestion id and identifier resolve to different devices, keeping ingestion match")
		}

		counts[via]++

		out = append(out, canonicalItem(item, nativeID, via, idx))
	}

	for via, n := range counts {
		identitymap.RecordResolutions(ctx, n, via)
	}

	identitymap.RecordAmbiguities(ctx, len(ambiguities))
	identitymap.RecordResolveLatency(ctx, time.Since(start), len(items))

	if unresolved := counts[identitymap.KindUnspecified]; unresolved > 0 {
		r.logger.Debug().
			Int("unresolved", unresolved).
			Int("items", len(items)).
			Msg("Some listed devices have no attribute record")
	}

	return out, ambiguities
}

// lookup walks the item's keys in priority order. A listing id that is not a native id may
// still be an ingestion id, so it is tried against the ingestion index before the item's own
// ingestion id.
func (*IdentityResolver) lookup(item *models.BaseItem, idx *attributes.Index) (string, identitymap.Kind, *models.Ambiguity) {
	raw := strings.TrimSpace(item.ID)

	keys := identitymap.BuildKeys(models.IdentityKeySet{
		NativeID:    raw,
		IngestionID: item.IngestionID,
		Identifier:  item.Identifier,
	})

	var byIngestion, byIdentifier string

	for _, key := range keys {
		switch key.Kind {
		case identitymap.KindNativeID:
			if _, ok := idx.Get(key.Value); ok {
				return key.Value, identitymap.KindNativeID, nil
			}

			byIngestion, _ = idx.NativeByIngestionID(key.Value)
		case identitymap.KindIngestionID:
			if byIngestion == "" {
				byIngestion, _ = idx.NativeByIngestionID(key.Value)
			}
		case identitymap.KindIdentifier:
			byIdentifier, _ = idx.NativeByIdentifier(key.Value)
		case identitymap.KindUnspecified:
		}
	}

	switch {
	case byIngestion != "":
		if byIdentifier != "" && byIdentifier != byIngestion {
			return byIngestion, identitymap.KindIngestionID, &models.Ambiguity{
				ItemID:          raw,
				ByIngestionID:   byIngestion,
				ByIdentifier:    byIdentifier,
				ChosenNativeID:  byIngestion,
				HumanIdentifier: item.Identifier,
			}
		}

		return byIngestion, identitymap.KindIngestionID, nil
	case byIdentifier != "":
		return byIdentifier, identitymap.KindIdentifier, nil
	default:
		return raw, identitymap.KindUnspecified, nil
	}
}

func canonicalItem(item *models.BaseItem, nativeID string, via identitymap.Kind, idx *attributes.Index) *models.CanonicalItem {
	attrs, _ := idx.Get(nativeID)

	c := &models.CanonicalItem{
		NativeID:   nativeID,
		Label:      strings.TrimSpace(item.Label),
		DeviceType: strings.ToUpper(strings.TrimSpace(item.DeviceType)),
		Attributes: attrs,
		Resolution: via.Resolution(),
		LocalValue: item.LocalValue,
	}

	// The analytics service keys totals by ingestion id; without one recorded anywhere
	// the listing id is the best remaining guess.
	c.ExternalIngestionID = firstNonEmpty(attrIngestionID(attrs), item.IngestionID, strings.TrimSpace(item.ID))
	c.HumanIdentifier = firstNonEmpty(attrIdentifier(attrs), strings.TrimSpace(item.Identifier))

	if attrs != nil {
		if attrs.DeviceType != "" {
			c.DeviceType = attrs.DeviceType
		}

		if c.Label == "" {
			c.Label = attrs.Label
		}
	}

	if c.Label == "" {
		c.Label = nativeID
	}

	return c
}

func attrIngestionID(attrs *models.DeviceAttributes) string {
	if attrs == nil {
		return ""
	}

	return attrs.IngestionID
}

func attrIdentifier(attrs *models.DeviceAttributes) string {
	if attrs == nil {
		return ""
	}

	return attrs.Identifier
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}

	return ""
}
