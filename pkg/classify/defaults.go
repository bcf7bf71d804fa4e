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

package classify

// Category names of the built-in rule set.
const (
	CategoryClimate     = "climatizacao"
	CategoryElevators   = "elevadores"
	CategoryEscalators  = "escadas_rolantes"
	CategoryLighting    = "iluminacao"
	CategoryWaterSupply = "abastecimento"
)

// DefaultRules returns the built-in rules for building energy dashboards. Pumps are shared
// by chilled water loops and water supply, so they are only climate equipment when the
// identifier says so (CAG = central de agua gelada).
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:               CategoryClimate,
			Types:              []string{"CHILLER", "FANCOIL", "AR_CONDICIONADO", "HVAC", "COMPRESSOR", "TORRE_RESFRIAMENTO"},
			ConditionalTypes:   []string{"BOMBA"},
			Identifiers:        []string{"CAG", "AHU"},
			IdentifierPrefixes: []string{"CAG-", "CAG_", "FC-", "AHU-", "UTA-"},
		},
		{
			Name:               CategoryElevators,
			Types:              []string{"ELEVADOR"},
			ConditionalTypes:   []string{"MOTOR"},
			Identifiers:        []string{"ELV"},
			IdentifierPrefixes: []string{"ELV-", "ELEV-"},
		},
		{
			Name:               CategoryEscalators,
			Types:              []string{"ESCADA_ROLANTE"},
			ConditionalTypes:   []string{"MOTOR"},
			Identifiers:        []string{"ESC"},
			IdentifierPrefixes: []string{"ESC-", "ESCADA-"},
		},
		{
			Name:               CategoryLighting,
			Types:              []string{"ILUMINACAO", "LUMINARIA"},
			IdentifierPrefixes: []string{"ILUM-"},
		},
		{
			Name:               CategoryWaterSupply,
			Types:              []string{"CAIXA_DAGUA", "HIDROMETRO"},
			ConditionalTypes:   []string{"BOMBA"},
			IdentifierPrefixes: []string{"REC-", "CX-"},
		},
	}
}
