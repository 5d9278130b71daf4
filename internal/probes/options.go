package probe

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Params come from YAML through viper, so numbers may arrive as int,
// float64 or string depending on the source.

func getStringOption(options map[string]interface{}, key, defaultValue string) string {
	switch value := options[key].(type) {
	case string:
		if value != "" {
			return value
		}
	case fmt.Stringer:
		return value.String()
	case int, int64, float64, bool:
		return fmt.Sprint(value)
	}
	return defaultValue
}

func getIntOption(options map[string]interface{}, key string, defaultValue int) int {
	switch value := options[key].(type) {
	case int:
		return value
	case int64:
		return int(value)
	case float64:
		return int(value)
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatOption(options map[string]interface{}, key string, defaultValue float64) float64 {
	switch value := options[key].(type) {
	case float64:
		return value
	case int:
		return float64(value)
	case int64:
		return float64(value)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolOption(options map[string]interface{}, key string, defaultValue bool) bool {
	switch value := options[key].(type) {
	case bool:
		return value
	case string:
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOption(options map[string]interface{}, key string, defaultValue time.Duration) time.Duration {
	switch value := options[key].(type) {
	case time.Duration:
		return value
	case float64:
		return time.Duration(value * float64(time.Second))
	case int:
		return time.Duration(value) * time.Second
	case string:
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getStringSliceOption(options map[string]interface{}, key string) []string {
	var result []string

	switch value := options[key].(type) {
	case []string:
		result = append(result, value...)
	case []interface{}:
		for _, item := range value {
			result = append(result, fmt.Sprint(item))
		}
	case string:
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				result = append(result, part)
			}
		}
	case int:
		result = append(result, strconv.Itoa(value))
	}

	return result
}

func getHeadersOption(options map[string]interface{}) map[string]string {
	headers := make(map[string]string)

	if headersOpt, ok := options["headers"].(map[string]interface{}); ok {
		for key, value := range headersOpt {
			if strValue, ok := value.(string); ok {
				headers[key] = strValue
			}
		}
	}

	return headers
}

func parsePort(port interface{}) (int, bool) {
	switch v := port.(type) {
	case float64:
		return int(v), v > 0 && v <= 65535
	case int:
		return v, v > 0 && v <= 65535
	case string:
		if p, err := strconv.Atoi(v); err == nil && p > 0 && p <= 65535 {
			return p, true
		}
	}
	return 0, false
}
