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

const (
	EntityTypeDevice = "DEVICE"
	EntityTypeAsset  = "ASSET"

	// UnknownAssetName is reported for containers whose details could not be fetched.
	UnknownAssetName = "unknown"
)

// EntityRef identifies an entity in the inventory service.
type EntityRef struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// AssetRef is a resolved container (site, building, floor...) with display fields.
type AssetRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Label string `json:"label,omitempty"`
}

// AssetDetail is a row returned by the batch-detail collaborator.
type AssetDetail struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Label string `json:"label,omitempty"`
}

// Lineage is the resolved parent chain of one device; nil members are unresolved.
type Lineage struct {
	Parent      *AssetRef `json:"parent,omitempty"`
	Grandparent *AssetRef `json:"grandparent,omitempty"`
}

// HierarchyEdges is the flat edge set built during one hierarchy pass.
// An id with no edge has no known parent.
type HierarchyEdges struct {
	ChildToParent       map[string]string
	ParentToGrandparent map[string]string
	Details             map[string]AssetDetail
}
