package schema

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/spigell/talenthub/internal/utils"
)

// Constraint is a single predicate over a field value. A nil message means the
// value satisfies it.
type Constraint struct {
	rule     Rule
	required bool
	check    func(value any) (string, bool)
}

// Rule reports which rule a failure of this constraint is filed under.
func (c Constraint) Rule() Rule { return c.rule }

// Sized is implemented by values that validate against MaxBytes by their
// payload size, such as uploaded documents.
type Sized interface {
	Size() int64
}

// Zeroer lets composite values report absence.
type Zeroer interface {
	IsZero() bool
}

// Required rejects absent values. Blank strings and empty collections count
// as absent.
func Required() Constraint {
	return Constraint{rule: RuleRequired, required: true}
}

// Range accepts numbers within [min, max].
func Range(min, max float64) Constraint {
	return Constraint{rule: RuleRange, check: func(value any) (string, bool) {
		n, ok := toFloat(value)
		if !ok {
			return fmt.Sprintf("must be a number, got %T", value), false
		}
		if n < min || n > max {
			return fmt.Sprintf("must be between %s and %s", formatNumber(min), formatNumber(max)), false
		}
		return "", true
	}}
}

// Equal accepts exactly want.
func Equal(want float64) Constraint {
	return Constraint{rule: RuleEqual, check: func(value any) (string, bool) {
		n, ok := toFloat(value)
		if !ok {
			return fmt.Sprintf("must be a number, got %T", value), false
		}
		if n != want {
			return fmt.Sprintf("must equal %s", formatNumber(want)), false
		}
		return "", true
	}}
}

// Length bounds a string by character count. A non-positive max is unbounded.
func Length(min, max int) Constraint {
	return Constraint{rule: RuleLength, check: func(value any) (string, bool) {
		s, ok := value.(string)
		if !ok {
			return fmt.Sprintf("must be a string, got %T", value), false
		}
		n := utf8.RuneCountInString(s)
		if n < min {
			return fmt.Sprintf("must be at least %d characters", min), false
		}
		if max > 0 && n > max {
			return fmt.Sprintf("must be at most %d characters", max), false
		}
		return "", true
	}}
}

// OneOf accepts a string from the allowed set.
func OneOf(allowed ...string) Constraint {
	return Constraint{rule: RuleEnum, check: func(value any) (string, bool) {
		s := fmt.Sprint(value)
		for _, a := range allowed {
			if s == a {
				return "", true
			}
		}
		return fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")), false
	}}
}

// MaxBytes bounds the payload size of strings, byte slices and Sized values.
func MaxBytes(limit int64) Constraint {
	return Constraint{rule: RuleSize, check: func(value any) (string, bool) {
		var size int64
		switch v := value.(type) {
		case Sized:
			size = v.Size()
		case []byte:
			size = int64(len(v))
		case string:
			size = int64(len(v))
		default:
			return fmt.Sprintf("cannot be measured, got %T", value), false
		}
		if size > limit {
			return fmt.Sprintf("must not exceed %s", utils.FormatBytes(limit)), false
		}
		return "", true
	}}
}

// Count bounds the number of items in a slice.
func Count(min, max int) Constraint {
	return Constraint{rule: RuleCount, check: func(value any) (string, bool) {
		rv := reflect.ValueOf(value)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return fmt.Sprintf("must be a list, got %T", value), false
		}
		if n := rv.Len(); n < min || n > max {
			return fmt.Sprintf("must contain between %d and %d items, got %d", min, max, n), false
		}
		return "", true
	}}
}

func isAbsent(value any) bool {
	if value == nil {
		return true
	}
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v) == ""
	case Zeroer:
		return v.IsZero()
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map:
		return rv.Len() == 0
	case reflect.Ptr, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	}
	return 0, false
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
