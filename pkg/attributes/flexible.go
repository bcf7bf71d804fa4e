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

package attributes

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	errUnsupportedValue = errors.New("unsupported attribute value")
	errInvalidTimestamp = errors.New("invalid timestamp")
)

// stringValue renders a scalar attribute as a string. Numbers that are whole are printed
// without a fractional part so "12" and 12 index identically.
func stringValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case json.Number:
		return val.String()
	case float64:
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}

		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	case []byte:
		return strings.TrimSpace(string(val))
	case json.RawMessage:
		var s string
		if err := json.Unmarshal(val, &s); err == nil {
			return strings.TrimSpace(s)
		}

		return strings.TrimSpace(string(val))
	default:
		return fmt.Sprintf("%v", val)
	}
}

// timeValue accepts epoch milliseconds (number or numeric string) or RFC3339.
// Empty values yield the zero time without error.
func timeValue(v any) (time.Time, error) {
	switch val := v.(type) {
	case nil:
		return time.Time{}, nil
	case float64:
		return millis(int64(val)), nil
	case int64:
		return millis(val), nil
	case int:
		return millis(int64(val)), nil
	case json.Number:
		n, err := val.Int64()
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %s", errInvalidTimestamp, val)
		}

		return millis(n), nil
	}

	s := stringValue(v)
	if s == "" {
		return time.Time{}, nil
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return millis(n), nil
	}

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}

	return time.Time{}, fmt.Errorf("%w: %q", errInvalidTimestamp, s)
}

func millis(n int64) time.Time {
	if n <= 0 {
		return time.Time{}
	}

	return time.UnixMilli(n).UTC()
}

// rawJSON returns the JSON document carried by a structured attribute. The feed may
// deliver it as an encoded string or as an already-decoded object.
func rawJSON(v any) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		if strings.TrimSpace(val) == "" {
			return nil, nil
		}

		return []byte(val), nil
	case []byte:
		return val, nil
	case json.RawMessage:
		var s string
		if err := json.Unmarshal(val, &s); err == nil {
			return []byte(s), nil
		}

		return val, nil
	case map[string]any, []any:
		return json.Marshal(val)
	default:
		return nil, fmt.Errorf("%w: %T", errUnsupportedValue, v)
	}
}
