// Package validate compares two JSON documents and reports structural and
// value differences. Used to check API responses across system versions
// against a recorded baseline.
package validate

import (
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"sort"
)

// Validation statuses
const (
	StatusPass = "PASS"
	StatusFail = "FAIL"
)

// Result is the outcome of comparing two JSON documents
type Result struct {
	Status         string   `json:"status"`
	Differences    []string `json:"differences"`
	BaselineFile   string   `json:"baseline_file,omitempty"`
	ComparisonFile string   `json:"comparison_file,omitempty"`
}

// CompareFiles loads two JSON files and compares them. The result is FAIL
// when any difference is found.
func CompareFiles(baselinePath, comparisonPath string) (*Result, error) {
	baseline, err := loadJSONFile(baselinePath)
	if err != nil {
		return nil, err
	}
	comparison, err := loadJSONFile(comparisonPath)
	if err != nil {
		return nil, err
	}

	diffs := Compare(baseline, comparison)
	status := StatusPass
	if len(diffs) > 0 {
		status = StatusFail
	}
	return &Result{
		Status:         status,
		Differences:    diffs,
		BaselineFile:   baselinePath,
		ComparisonFile: comparisonPath,
	}, nil
}

// Compare walks both values and returns human-readable difference
// descriptions: added and removed keys, changed values, and type changes.
func Compare(baseline, comparison any) []string {
	var diffs []string
	diff("", baseline, comparison, &diffs)
	return diffs
}

func loadJSONFile(path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file not found: %s", path)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, fmt.Errorf("invalid JSON in %s: %w", path, err)
	}
	return value, nil
}

func diff(path string, baseline, comparison any, out *[]string) {
	if bt, ct := jsonType(baseline), jsonType(comparison); bt != ct {
		*out = append(*out, fmt.Sprintf("Type changed: %s from %s to %s", displayPath(path), bt, ct))
		return
	}

	switch b := baseline.(type) {
	case map[string]any:
		c := comparison.(map[string]any)
		for _, key := range sortedKeys(b, c) {
			childPath := joinPath(path, key)
			bv, inBase := b[key]
			cv, inComp := c[key]
			switch {
			case !inBase:
				*out = append(*out, fmt.Sprintf("Added: %s", childPath))
			case !inComp:
				*out = append(*out, fmt.Sprintf("Removed: %s", childPath))
			default:
				diff(childPath, bv, cv, out)
			}
		}
	case []any:
		c := comparison.([]any)
		n := len(b)
		if len(c) < n {
			n = len(c)
		}
		for i := 0; i < n; i++ {
			diff(fmt.Sprintf("%s[%d]", displayPath(path), i), b[i], c[i], out)
		}
		for i := n; i < len(c); i++ {
			*out = append(*out, fmt.Sprintf("Added: %s[%d]", displayPath(path), i))
		}
		for i := n; i < len(b); i++ {
			*out = append(*out, fmt.Sprintf("Removed: %s[%d]", displayPath(path), i))
		}
	default:
		if !reflect.DeepEqual(baseline, comparison) {
			*out = append(*out, fmt.Sprintf("Changed: %s from '%v' to '%v'", displayPath(path), baseline, comparison))
		}
	}
}

// jsonType names a decoded JSON value's type for difference messages.
func jsonType(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func sortedKeys(maps ...map[string]any) []string {
	seen := map[string]bool{}
	var keys []string
	for _, m := range maps {
		for k := range m {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	sort.Strings(keys)
	return keys
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func displayPath(path string) string {
	if path == "" {
		return "root"
	}
	return path
}
