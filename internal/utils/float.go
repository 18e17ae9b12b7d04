package utils

// ToFloat64 converts a stats value to float64 for export.
// Returns the converted value and true if successful, or 0 and false if conversion fails.
// Supports: bool (1/0), float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64
func ToFloat64(v interface{}) (float64, bool) {
	if v == nil {
		return 0, false
	}

	switch val := v.(type) {
	case bool:
		if val {
			return 1, true
		}
		return 0, true
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int8:
		return float64(val), true
	case int16:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint:
		return float64(val), true
	case uint8:
		return float64(val), true
	case uint16:
		return float64(val), true
	case uint32:
		return float64(val), true
	case uint64:
		return float64(val), true
	default:
		return 0, false
	}
}

// IsNumeric checks if a value can be exported as a gauge.
func IsNumeric(v interface{}) bool {
	_, ok := ToFloat64(v)
	return ok
}
