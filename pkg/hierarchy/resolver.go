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

// Package hierarchy resolves the parent and grandparent containers of devices in bulk.
package hierarchy

import (
	"context"
	"sync"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/carverauto/energyradar/pkg/logger"
	"github.com/carverauto/energyradar/pkg/models"
)

const (
	DefaultChunkSize   = 50
	DefaultConcurrency = 16

	stageParents      = "hierarchy.parents"
	stageGrandparents = "hierarchy.grandparents"
	stageDetails      = "hierarchy.details"
)

// Config tunes the fan-out of a resolution pass.
type Config struct {
	ChunkSize   int `json:"chunk_size,omitempty" validate:"gte=0"`
	Concurrency int `json:"concurrency,omitempty" validate:"gte=0"`
}

// Resolver builds parent/grandparent lineage for devices. It keeps no edge state between
// passes; every call starts from scratch.
type Resolver struct {
	relations   RelationQuerier
	details     DetailFetcher
	chunkSize   int
	concurrency int
	logger      logger.Logger
}

func NewResolver(relations RelationQuerier, details DetailFetcher, cfg Config, log logger.Logger) *Resolver {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}

	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}

	return &Resolver{
		relations:   relations,
		details:     details,
		chunkSize:   cfg.ChunkSize,
		concurrency: cfg.Concurrency,
		logger:      log,
	}
}

// ResolveBulk returns the lineage of every input device keyed by its id. Failed lookups
// degrade to an absent parent and are recorded in diags; the only error is a cancelled ctx.
func (r *Resolver) ResolveBulk(ctx context.Context, devices []models.EntityRef, diags *models.DiagnosticLog) (map[string]models.Lineage, error) {
	devices = lo.UniqBy(devices, func(ref models.EntityRef) string { return ref.ID })

	edges := models.HierarchyEdges{
		ChildToParent: r.fetchParents(ctx, devices, stageParents, diags),
	}

	parentIDs := orderedValues(devices, edges.ChildToParent)
	parents := lo.Map(parentIDs, func(id string, _ int) models.EntityRef {
		return models.EntityRef{ID: id, Type: models.EntityTypeAsset}
	})

	edges.ParentToGrandparent = r.fetchParents(ctx, parents, stageGrandparents, diags)

	grandparentIDs := orderedValues(parents, edges.ParentToGrandparent)
	edges.Details = r.fetchDetails(ctx, lo.Uniq(append(parentIDs, grandparentIDs...)), diags)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := assemble(devices, &edges)

	r.logger.Debug().
		Int("devices", len(devices)).
		Int("parents", len(parentIDs)).
		Int("grandparents", len(grandparentIDs)).
		Msg("Resolved device hierarchy")

	return out, nil
}

// fetchParents looks up the parent of every ref in parallel. Each lookup settles on its own;
// a failure or a missing parent leaves no edge.
func (r *Resolver) fetchParents(
	ctx context.Context, refs []models.EntityRef, stage string, diags *models.DiagnosticLog) map[string]string {
	found := make([]string, len(refs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for i, ref := range refs {
		g.Go(func() error {
			parent, err := r.relations.ParentOf(gctx, ref)
			if err != nil {
				r.logger.Warn().
					Err(err).
					Str("entity_id", ref.ID).
					Str("stage", stage).
					Msg("Parent lookup failed")

				diags.Add(models.Diagnostic{
					Kind:    models.DiagPartialFetchFailure,
					Stage:   stage,
					Subject: ref.ID,
					Detail:  err.Error(),
				})

				return nil
			}

			if parent != nil && parent.ID != "" && parent.ID != ref.ID {
				found[i] = parent.ID
			}

			return nil
		})
	}

	_ = g.Wait()

	edges := make(map[string]string, len(refs))

	for i, ref := range refs {
		if found[i] != "" {
			edges[ref.ID] = found[i]
		}
	}

	return edges
}

// fetchDetails resolves names in fixed-size chunks, one request per chunk in parallel.
// Ids of a failed chunk, or ids the collaborator did not return, resolve to "unknown".
func (r *Resolver) fetchDetails(ctx context.Context, ids []string, diags *models.DiagnosticLog) map[string]models.AssetDetail {
	details := make(map[string]models.AssetDetail, len(ids))
	if len(ids) == 0 {
		return details
	}

	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for _, chunk := range lo.Chunk(ids, r.chunkSize) {
		g.Go(func() error {
			rows, err := r.details.AssetDetails(gctx, chunk)
			if err != nil {
				r.logger.Warn().
					Err(err).
					Int("chunk_size", len(chunk)).
					Msg("Asset detail chunk failed, marking ids unknown")

				diags.Add(models.Diagnostic{
					Kind:    models.DiagPartialFetchFailure,
					Stage:   stageDetails,
					Subject: chunk[0],
					Detail:  err.Error(),
				})

				return nil
			}

			mu.Lock()
			defer mu.Unlock()

			for _, row := range rows {
				if lo.Contains(chunk, row.ID) {
					details[row.ID] = row
				}
			}

			return nil
		})
	}

	_ = g.Wait()

	for _, id := range ids {
		if _, ok := details[id]; !ok {
			details[id] = models.AssetDetail{ID: id, Name: models.UnknownAssetName}
		}
	}

	return details
}

func assemble(devices []models.EntityRef, edges *models.HierarchyEdges) map[string]models.Lineage {
	out := make(map[string]models.Lineage, len(devices))

	for _, dev := range devices {
		var lineage models.Lineage

		if parentID, ok := edges.ChildToParent[dev.ID]; ok {
			lineage.Parent = assetRef(parentID, edges.Details)

			if grandID, ok := edges.ParentToGrandparent[parentID]; ok {
				lineage.Grandparent = assetRef(grandID, edges.Details)
			}
		}

		out[dev.ID] = lineage
	}

	return out
}

func assetRef(id string, details map[string]models.AssetDetail) *models.AssetRef {
	d, ok := details[id]
	if !ok {
		return &models.AssetRef{ID: id, Name: models.UnknownAssetName}
	}

	return &models.AssetRef{ID: id, Name: d.Name, Label: d.Label}
}

// orderedValues returns the distinct edge targets in the order of refs.
func orderedValues(refs []models.EntityRef, edges map[string]string) []string {
	out := make([]string, 0, len(edges))

	for _, ref := range refs {
		if target, ok := edges[ref.ID]; ok {
			out = append(out, target)
		}
	}

	return lo.Uniq(out)
}
