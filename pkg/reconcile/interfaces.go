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

package reconcile

import (
	"context"

	"github.com/carverauto/energyradar/pkg/integrations/analytics"
	"github.com/carverauto/energyradar/pkg/models"
)

//go:generate mockgen -destination=mock_reconcile.go -package=reconcile github.com/carverauto/energyradar/pkg/reconcile DeviceLister,AttributeSource,HierarchySource,TotalsSource,SnapshotStore

// DeviceLister provides the raw device listing of a customer and local readings for devices
// whose telemetry never reaches the analytics service.
type DeviceLister interface {
	ListDevices(ctx context.Context, customerID string) ([]models.BaseItem, error)
	LocalValues(ctx context.Context, deviceIDs []string) (map[string]float64, error)
}

// AttributeSource returns the server-scope attribute feed. A non-nil error may still come
// with usable rows.
type AttributeSource interface {
	AttributeRows(ctx context.Context, deviceIDs []string) ([]models.AttributeRow, error)
}

// HierarchySource resolves parent and grandparent containers.
type HierarchySource interface {
	ResolveBulk(ctx context.Context, devices []models.EntityRef, diags *models.DiagnosticLog) (map[string]models.Lineage, error)
}

// TotalsSource returns every per-device total for a period.
type TotalsSource interface {
	FetchTotals(ctx context.Context, tokens analytics.TokenSource, req analytics.TotalsRequest) ([]models.DeviceTotal, error)
}

// SnapshotStore keeps the last successful result per scope.
type SnapshotStore interface {
	Save(ctx context.Context, result *models.ReconcileResult) error
	Load(ctx context.Context, scope models.Scope) (*models.ReconcileResult, error)
}
