package cli

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/paneltree/pkg/domain"
	"github.com/aretw0/paneltree/pkg/expr"
)

// LoadData reads a JSON or YAML object. An empty path yields an empty object.
func LoadData(path string) (map[string]any, error) {
	if path == "" {
		return map[string]any{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read data file: %w", err)
	}
	return ParseData(raw)
}

// ParseData decodes a JSON or YAML object whose top-level keys are valid
// variable names.
func ParseData(raw []byte) (map[string]any, error) {
	var data map[string]any
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to parse data: %w", err)
	}
	for k := range data {
		if !expr.IsIdent(k) || k == domain.InputVar {
			return nil, fmt.Errorf("%w: data key %q", domain.ErrInvalidVarName, k)
		}
	}
	if data == nil {
		data = map[string]any{}
	}
	return normalizeValue(data).(map[string]any), nil
}

// BindData binds each top-level key as a constant variable, in key order.
func BindData(data map[string]any) domain.Frame {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	frame := domain.Frame{}
	for _, k := range keys {
		frame = frame.With(k, expr.NewConst(data[k], nil))
	}
	return frame
}

// normalizeValue turns YAML maps with non-string keys into string-keyed maps.
func normalizeValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalizeValue(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalizeValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalizeValue(val)
		}
		return out
	default:
		return v
	}
}
