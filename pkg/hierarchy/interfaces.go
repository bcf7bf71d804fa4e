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

package hierarchy

import (
	"context"

	"github.com/carverauto/energyradar/pkg/models"
)

//go:generate mockgen -destination=mock_hierarchy.go -package=hierarchy github.com/carverauto/energyradar/pkg/hierarchy RelationQuerier,DetailFetcher

// RelationQuerier returns the container of an entity, or nil when it has none.
type RelationQuerier interface {
	ParentOf(ctx context.Context, child models.EntityRef) (*models.EntityRef, error)
}

// DetailFetcher resolves display fields for a bounded batch of asset ids.
type DetailFetcher interface {
	AssetDetails(ctx context.Context, ids []string) ([]models.AssetDetail, error)
}
