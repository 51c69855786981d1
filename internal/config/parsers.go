// Package config loads heystat settings from flags and an optional config file.
package config

import (
	"fmt"
	"math"
	"strings"

	"github.com/spf13/cast"
)

// lookupSetting returns the first of the candidate keys present in settings.
// Config file keys are lowercased by viper, so candidates are tried as given
// and lowercased.
func lookupSetting(settings map[string]interface{}, candidates ...string) (interface{}, bool) {
	for _, key := range candidates {
		if val, ok := settings[key]; ok {
			return val, true
		}
		if val, ok := settings[strings.ToLower(key)]; ok {
			return val, true
		}
	}
	return nil, false
}

func asString(value interface{}) (string, error) {
	return cast.ToStringE(value)
}

// asKeyword reads an enumerated setting such as a dialect, batch mode or
// label policy, which are matched case-insensitively.
func asKeyword(value interface{}) (string, error) {
	s, err := cast.ToStringE(value)
	if err != nil {
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(s)), nil
}

// asInt reads a count such as parallelism or buckets. Fractional numbers are
// rejected rather than truncated.
func asInt(value interface{}) (int, error) {
	switch v := value.(type) {
	case float32:
		value = float64(v)
	case string:
		value = strings.TrimSpace(v)
	}
	if f, ok := value.(float64); ok && f != math.Trunc(f) {
		return 0, fmt.Errorf("%v is not a whole number", f)
	}
	return cast.ToIntE(value)
}

func asFloat64(value interface{}) (float64, error) {
	if s, ok := value.(string); ok {
		value = strings.TrimSpace(s)
	}
	return cast.ToFloat64E(value)
}

func asBool(value interface{}) (bool, error) {
	switch v := value.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return false, nil
		}
		return cast.ToBoolE(strings.TrimSpace(v))
	case bool, nil:
		return cast.ToBoolE(v)
	default:
		return false, fmt.Errorf("unsupported boolean type %T", value)
	}
}

// asStringSlice reads a list of directories or thresholds. A bare string is
// a single entry; it is not split, since thresholds contain spaces.
func asStringSlice(value interface{}) ([]string, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{v}, nil
	case []string, []interface{}:
		return cast.ToStringSliceE(v)
	default:
		return nil, fmt.Errorf("unsupported string slice type %T", value)
	}
}

// toStringKeyMap reads a nested section such as labels or tracing, with its
// keys lowercased.
func toStringKeyMap(value interface{}) (map[string]interface{}, error) {
	settings, err := cast.ToStringMapE(value)
	if err != nil {
		return nil, err
	}
	result := make(map[string]interface{}, len(settings))
	for key, val := range settings {
		result[strings.ToLower(strings.TrimSpace(key))] = val
	}
	return result, nil
}
