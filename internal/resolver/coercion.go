// internal/resolver/coercion.go
package resolver

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/solatis/gridview/internal/types"
)

/*
 * Type coercion for formatting and comparison.
 *
 * Raw record values arrive in whatever shape the source produced: JSON
 * numbers decode as float64, SharePoint dates arrive as ISO strings, Go
 * callers pass time.Time. Coerce maps a raw value onto the comparable Go
 * type of the field's declared tag:
 *
 *   - number:   float64 (ints, floats, json.Number, numeric strings)
 *   - date(time): time.Time (time.Time, date strings, epoch milliseconds)
 *   - boolean:  bool, strict (no "true" vs 1 ambiguity)
 *   - text:     string, lenient (every value has a text form)
 *
 * Null/nil is reported as IsNull, distinct from a coercion failure. Callers
 * treat both as "no value" for ordering, but the formatter falls back to the
 * text form on failure so that malformed data stays visible.
 */

// CoercionResult holds the coerced value or indicates null.
type CoercionResult struct {
	Value  any  // coerced value (valid only if !IsNull)
	IsNull bool // true if input was nil/null
}

// Coerce converts value to the comparable type of fieldType.
// Date strings without zone information are read in loc.
// Returns ErrCoercionFailed for impossible coercions.
func Coerce(value any, fieldType types.FieldType, loc *time.Location) (CoercionResult, error) {
	if value == nil {
		return CoercionResult{IsNull: true}, nil
	}
	if loc == nil {
		loc = time.UTC
	}

	switch fieldType.Normalize() {
	case types.FieldTypeNumber:
		return coerceNumber(value)
	case types.FieldTypeDate, types.FieldTypeDateTime:
		return coerceTime(value, loc)
	case types.FieldTypeBoolean:
		return coerceBoolean(value)
	case types.FieldTypeText:
		return coerceText(value)
	default:
		return CoercionResult{}, types.ErrCoercionFailed
	}
}

// coerceNumber converts value to float64. Rejects booleans per strict mode.
// Whitespace-only strings return ErrCoercionFailed.
func coerceNumber(value any) (CoercionResult, error) {
	if f, ok := toFloat64(value); ok {
		return CoercionResult{Value: f}, nil
	}
	switch v := value.(type) {
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return CoercionResult{}, types.ErrCoercionFailed
		}
		return CoercionResult{Value: f}, nil
	case string:
		v = strings.TrimSpace(v)
		if v == "" {
			return CoercionResult{}, types.ErrCoercionFailed
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return CoercionResult{}, types.ErrCoercionFailed
		}
		return CoercionResult{Value: f}, nil
	default:
		return CoercionResult{}, types.ErrCoercionFailed
	}
}

// coerceTime converts value to time.Time.
// Numbers are epoch milliseconds, the JSON form of a JavaScript Date.
func coerceTime(value any, loc *time.Location) (CoercionResult, error) {
	switch v := value.(type) {
	case time.Time:
		if v.IsZero() {
			return CoercionResult{IsNull: true}, nil
		}
		return CoercionResult{Value: v}, nil
	case *time.Time:
		if v == nil || v.IsZero() {
			return CoercionResult{IsNull: true}, nil
		}
		return CoercionResult{Value: *v}, nil
	case string:
		v = strings.TrimSpace(v)
		if v == "" {
			return CoercionResult{}, types.ErrCoercionFailed
		}
		t, err := dateparse.ParseIn(v, loc)
		if err != nil {
			return CoercionResult{}, types.ErrCoercionFailed
		}
		return CoercionResult{Value: t}, nil
	case json.Number:
		ms, err := v.Int64()
		if err != nil {
			return CoercionResult{}, types.ErrCoercionFailed
		}
		return CoercionResult{Value: time.UnixMilli(ms).In(loc)}, nil
	}
	if f, ok := toFloat64(value); ok {
		return CoercionResult{Value: time.UnixMilli(int64(f)).In(loc)}, nil
	}
	return CoercionResult{}, types.ErrCoercionFailed
}

// coerceBoolean validates value is boolean type.
func coerceBoolean(value any) (CoercionResult, error) {
	switch v := value.(type) {
	case bool:
		return CoercionResult{Value: v}, nil
	default:
		return CoercionResult{}, types.ErrCoercionFailed
	}
}

// coerceText converts all types to string representation.
func coerceText(value any) (CoercionResult, error) {
	switch v := value.(type) {
	case string:
		return CoercionResult{Value: v}, nil
	case float64:
		return CoercionResult{Value: strconv.FormatFloat(v, 'f', -1, 64)}, nil
	case float32:
		return CoercionResult{Value: strconv.FormatFloat(float64(v), 'f', -1, 32)}, nil
	case int:
		return CoercionResult{Value: strconv.Itoa(v)}, nil
	case int64:
		return CoercionResult{Value: strconv.FormatInt(v, 10)}, nil
	case json.Number:
		return CoercionResult{Value: v.String()}, nil
	case bool:
		if v {
			return CoercionResult{Value: "true"}, nil
		}
		return CoercionResult{Value: "false"}, nil
	case time.Time:
		return CoercionResult{Value: v.Format(time.RFC3339)}, nil
	case fmt.Stringer:
		return CoercionResult{Value: v.String()}, nil
	default:
		return CoercionResult{Value: fmt.Sprintf("%v", v)}, nil
	}
}

// toFloat64 converts Go numeric kinds to float64.
func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
