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

// Package classify assigns devices to operational categories. A device type alone is not
// always enough: the same type is reused for several kinds of equipment, so some type
// matches need the human identifier to agree before they count.
package classify

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/carverauto/energyradar/pkg/identitymap"
)

// DefaultCategory is assigned when no rule matches.
const DefaultCategory = "other"

var (
	errDuplicateRule = errors.New("duplicate rule name")
	errNoRules       = errors.New("rule set is empty")
)

// Rule is one named category.
type Rule struct {
	Name               string   `yaml:"name" json:"name" validate:"required"`
	Types              []string `yaml:"types,omitempty" json:"types,omitempty"`
	ConditionalTypes   []string `yaml:"conditional_types,omitempty" json:"conditional_types,omitempty"`
	Identifiers        []string `yaml:"identifiers,omitempty" json:"identifiers,omitempty"`
	IdentifierPrefixes []string `yaml:"identifier_prefixes,omitempty" json:"identifier_prefixes,omitempty"`
}

// File is the on-disk rules document.
type File struct {
	Fallback string `yaml:"fallback,omitempty"`
	Rules    []Rule `yaml:"rules" validate:"required,min=1,dive"`
}

type compiledRule struct {
	name        string
	types       map[string]struct{}
	conditional map[string]struct{}
	identifiers map[string]struct{}
	prefixes    []string
}

func (r *compiledRule) matchesIdentifier(identifier string) bool {
	if identifier == "" {
		return false
	}

	if _, ok := r.identifiers[identifier]; ok {
		return true
	}

	for _, p := range r.prefixes {
		if strings.HasPrefix(identifier, p) {
			return true
		}
	}

	return false
}

// RuleSet is an immutable, ordered set of rules. Earlier rules win ties.
type RuleSet struct {
	rules    []compiledRule
	names    []string
	fallback string
}

// NewRuleSet compiles rules in priority order.
func NewRuleSet(rules []Rule, fallback string) (*RuleSet, error) {
	if len(rules) == 0 {
		return nil, errNoRules
	}

	if fallback == "" {
		fallback = DefaultCategory
	}

	rs := &RuleSet{fallback: fallback}
	seen := make(map[string]struct{}, len(rules))

	for i := range rules {
		rule := &rules[i]

		if err := validate.Struct(rule); err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}

		if _, dup := seen[rule.Name]; dup {
			return nil, fmt.Errorf("%w: %s", errDuplicateRule, rule.Name)
		}

		seen[rule.Name] = struct{}{}

		rs.rules = append(rs.rules, compiledRule{
			name:        rule.Name,
			types:       toSet(rule.Types),
			conditional: toSet(rule.ConditionalTypes),
			identifiers: toSet(rule.Identifiers),
			prefixes:    normalizeAll(rule.IdentifierPrefixes),
		})
		rs.names = append(rs.names, rule.Name)
	}

	return rs, nil
}

// Classify returns the category of a device. Order: unconditional type match, then a
// conditional type match confirmed by the identifier, then the identifier alone, then the
// fallback category.
func (rs *RuleSet) Classify(deviceType, identifier string) string {
	deviceType = strings.ToUpper(strings.TrimSpace(deviceType))
	identifier = identitymap.NormalizeIdentifier(identifier)

	if deviceType != "" {
		for i := range rs.rules {
			if _, ok := rs.rules[i].types[deviceType]; ok {
				return rs.rules[i].name
			}
		}

		for i := range rs.rules {
			if _, ok := rs.rules[i].conditional[deviceType]; ok && rs.rules[i].matchesIdentifier(identifier) {
				return rs.rules[i].name
			}
		}
	}

	for i := range rs.rules {
		if rs.rules[i].matchesIdentifier(identifier) {
			return rs.rules[i].name
		}
	}

	return rs.fallback
}

// Categories lists the rule names in priority order followed by the fallback.
func (rs *RuleSet) Categories() []string {
	out := make([]string, 0, len(rs.names)+1)
	out = append(out, rs.names...)

	return append(out, rs.fallback)
}

// Fallback is the category used when nothing matches.
func (rs *RuleSet) Fallback() string {
	return rs.fallback
}

// ParseRules decodes a YAML rules document.
func ParseRules(data []byte) (*RuleSet, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode rules: %w", err)
	}

	if err := validate.Struct(&f); err != nil {
		return nil, fmt.Errorf("invalid rules: %w", err)
	}

	return NewRuleSet(f.Rules, f.Fallback)
}

// LoadRules reads a YAML rules file. An empty path yields the built-in rules.
func LoadRules(path string) (*RuleSet, error) {
	if path == "" {
		return NewRuleSet(DefaultRules(), DefaultCategory)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file %s: %w", path, err)
	}

	return ParseRules(data)
}

func toSet(values []string) map[string]struct{} {
	out := make(map[string]struct{}, len(values))

	for _, v := range normalizeAll(values) {
		out[v] = struct{}{}
	}

	return out
}

func normalizeAll(values []string) []string {
	out := make([]string, 0, len(values))

	for _, v := range values {
		if n := identitymap.NormalizeIdentifier(v); n != "" {
			out = append(out, n)
		}
	}

	return out
}

//nolint:gochecknoglobals // validator caches struct metadata and is safe for concurrent use
var validate = validator.New()
