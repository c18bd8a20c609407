// Package config provides configuration loading and parsing for loadpulse.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// lookupSetting returns the first value present under any of the candidate
// keys, trying each candidate verbatim and lowercased. Viper lowercases keys
// read from files, but callers may pass maps from other sources.
func lookupSetting(settings map[string]interface{}, candidates ...string) (interface{}, bool) {
	for _, key := range candidates {
		if v, ok := settings[key]; ok {
			return v, true
		}
		if v, ok := settings[strings.ToLower(key)]; ok {
			return v, true
		}
	}
	return nil, false
}

func asString(value interface{}) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case fmt.Stringer:
		return v.String(), nil
	}
	return fmt.Sprint(value), nil
}

func asInt(value interface{}) (int, error) {
	if s, ok := value.(string); ok {
		s = strings.TrimSpace(s)
		if s == "" {
			return 0, nil
		}
		return strconv.Atoi(s)
	}
	f, err := asFloat64(value)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

// asFloat64 is the workhorse numeric conversion: YAML, JSON, and viper hand
// back a mix of int, int64, and float64 depending on the source format.
func asFloat64(value interface{}) (float64, error) {
	switch v := value.(type) {
	case nil:
		return 0, nil
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int8:
		return float64(v), nil
	case int16:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint:
		return float64(v), nil
	case uint8:
		return float64(v), nil
	case uint16:
		return float64(v), nil
	case uint32:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, nil
		}
		return strconv.ParseFloat(s, 64)
	}
	return 0, fmt.Errorf("unsupported numeric type %T", value)
}

func asBool(value interface{}) (bool, error) {
	switch v := value.(type) {
	case nil:
		return false, nil
	case bool:
		return v, nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return false, nil
		}
		return strconv.ParseBool(s)
	}
	return false, fmt.Errorf("unsupported boolean type %T", value)
}

// asDuration accepts time.Duration, Go duration strings ("90s", "1m30s"),
// and bare numbers, which are read as seconds.
func asDuration(value interface{}) (time.Duration, error) {
	switch v := value.(type) {
	case nil:
		return 0, nil
	case time.Duration:
		return v, nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, nil
		}
		return time.ParseDuration(s)
	}
	secs, err := asFloat64(value)
	if err != nil {
		return 0, fmt.Errorf("unsupported duration type %T", value)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

func asStringMap(value interface{}) (map[string]string, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case map[string]string:
		out := make(map[string]string, len(v))
		for k, val := range v {
			out[k] = val
		}
		return out, nil
	}

	entry, err := toStringKeyMap(value)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(entry))
	for k, raw := range entry {
		if k == "" {
			return nil, fmt.Errorf("map key cannot be empty")
		}
		s, err := asString(raw)
		if err != nil {
			return nil, err
		}
		out[k] = s
	}
	return out, nil
}

func asStringSlice(value interface{}) ([]string, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{v}, nil
	case []string:
		return v, nil
	case []interface{}:
		out := make([]string, len(v))
		for i, item := range v {
			s, err := asString(item)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			out[i] = s
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported string slice type %T", value)
}

// toStringKeyMap normalizes nested config maps. YAML decoders may produce
// either string or interface{} keys; keys come back lowercased and trimmed.
func toStringKeyMap(value interface{}) (map[string]interface{}, error) {
	out := map[string]interface{}{}
	switch v := value.(type) {
	case map[string]interface{}:
		for key, val := range v {
			out[strings.ToLower(strings.TrimSpace(key))] = val
		}
	case map[interface{}]interface{}:
		for key, val := range v {
			s, err := asString(key)
			if err != nil {
				return nil, err
			}
			out[strings.ToLower(strings.TrimSpace(s))] = val
		}
	default:
		return nil, fmt.Errorf("expected map, got %T", value)
	}
	return out, nil
}
