package keel

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Conversions from interpolated scalar strings (and native scalar values)
// to the types exposed by the typed accessors. Failures produce a
// *ConversionError carrying the key, the target type, and the raw value.

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func toInt64(key string, v any) (int64, error) {
	switch x := v.(type) {
	case int:
		return int64(x), nil
	case int64:
		return x, nil
	case uint64:
		return int64(x), nil
	case float64:
		if x == float64(int64(x)) {
			return int64(x), nil
		}
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		if err != nil {
			return 0, &ConversionError{Key: key, Target: "int64", Value: v, Err: err}
		}
		return n, nil
	}
	return 0, &ConversionError{Key: key, Target: "int64", Value: v}
}

func toFloat64(key string, v any) (float64, error) {
	switch x := v.(type) {
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case float64:
		return x, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, &ConversionError{Key: key, Target: "float64", Value: v, Err: err}
		}
		return f, nil
	}
	return 0, &ConversionError{Key: key, Target: "float64", Value: v}
}

func toBool(key string, v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "true", "yes", "on", "1":
			return true, nil
		case "false", "no", "off", "0":
			return false, nil
		}
		return false, &ConversionError{Key: key, Target: "bool", Value: v}
	}
	return false, &ConversionError{Key: key, Target: "bool", Value: v}
}

func toDuration(key string, v any) (time.Duration, error) {
	switch x := v.(type) {
	case time.Duration:
		return x, nil
	case int:
		return time.Duration(x), nil
	case int64:
		return time.Duration(x), nil
	case string:
		d, err := time.ParseDuration(strings.TrimSpace(x))
		if err != nil {
			return 0, &ConversionError{Key: key, Target: "time.Duration", Value: v, Err: err}
		}
		return d, nil
	}
	return 0, &ConversionError{Key: key, Target: "time.Duration", Value: v}
}
