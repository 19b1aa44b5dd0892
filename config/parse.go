package config

import (
	"encoding/json"
	"fmt"

	yaml "gopkg.in/yaml.v3"
)

// parseSections reads a config document, JSON or YAML, into section -> key -> value. Scalar
// values are converted to strings; nulls are dropped. A section that is not an object, or a
// value that is itself an object or array, is an error.
func parseSections(data []byte) (map[string]map[string]string, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		// JSON is a subset of YAML, but YAML errors are less helpful for JSON files.
		jsonErr := err
		var yamlRaw interface{}
		if yerr := yaml.Unmarshal(data, &yamlRaw); yerr != nil {
			return nil, jsonErr
		}
		normalized, nerr := normalizeYAML(yamlRaw)
		if nerr != nil {
			return nil, nerr
		}
		m, ok := normalized.(map[string]interface{})
		if !ok {
			if normalized == nil {
				return map[string]map[string]string{}, nil
			}
			return nil, fmt.Errorf("config must be an object of sections, not %T", normalized)
		}
		raw = m
	}
	ret := make(map[string]map[string]string, len(raw))
	for section, sectionValue := range raw {
		values, ok := sectionValue.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("config section %q must be an object, not %T", section, sectionValue)
		}
		out := make(map[string]string, len(values))
		for key, value := range values {
			switch v := value.(type) {
			case nil:
				continue
			case map[string]interface{}, []interface{}:
				return nil, fmt.Errorf("config value %s.%s must be a scalar", section, key)
			default:
				out[key] = fmt.Sprint(v)
			}
		}
		ret[section] = out
	}
	return ret, nil
}

// normalizeYAML turns map[interface{}]interface{} nodes into map[string]interface{} so the
// result has the same shape as decoded JSON.
func normalizeYAML(data interface{}) (interface{}, error) {
	switch data := data.(type) {
	case []interface{}:
		out := make([]interface{}, 0, len(data))
		for _, v := range data {
			v1, err := normalizeYAML(v)
			if err != nil {
				return nil, err
			}
			out = append(out, v1)
		}
		return out, nil
	case map[string]interface{}:
		out := make(map[string]interface{}, len(data))
		for k, v := range data {
			v1, err := normalizeYAML(v)
			if err != nil {
				return nil, err
			}
			out[k] = v1
		}
		return out, nil
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(data))
		for k, v := range data {
			key, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("config contained a map key of type %T; only string keys are allowed", k)
			}
			v1, err := normalizeYAML(v)
			if err != nil {
				return nil, err
			}
			out[key] = v1
		}
		return out, nil
	default:
		return data, nil
	}
}
