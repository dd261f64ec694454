package anthem

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"time"
	"unicode/utf8"

	"github.com/spf13/cast"
)

// Encode turns one named field value into a Tuple.
//
// ok is false when the value is absent (nil); such a field contributes no
// tuple. A present value that cannot be converted yields Value 0 and a
// non-nil warning; Encode never fails.
func Encode(name string, value any) (t Tuple, ok bool, warn *EncodingWarning) {
	value = indirect(value)
	if isAbsent(value) {
		return Tuple{}, false, nil
	}
	t.NameLength = utf8.RuneCountInString(name)

	v, err := encodeValue(value)
	if err != nil {
		return t, true, &EncodingWarning{Field: name, Err: err}
	}
	t.Value = v
	return t, true, nil
}

func encodeValue(value any) (v float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			v, err = 0, fmt.Errorf("%w: %v", ErrUnsupportedValue, r)
		}
	}()

	switch val := value.(type) {
	case bool:
		if val {
			return 1, nil
		}
		return 0, nil
	case json.Number, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		f, err := cast.ToFloat64E(val)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrUnsupportedValue, err)
		}
		return finite(f)
	}

	// Named types over basic kinds.
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Bool:
		if rv.Bool() {
			return 1, nil
		}
		return 0, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return finite(rv.Float())
	}

	s, err := canonicalString(value)
	if err != nil {
		return 0, err
	}
	return float64(utf8.RuneCountInString(s)), nil
}

func finite(f float64) (float64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: non-finite number %v", ErrUnsupportedValue, f)
	}
	return f, nil
}

// canonicalString renders a present non-numeric value the way it is stored
// upstream: text as-is, dates as ISO strings, composites as compact JSON.
func canonicalString(value any) (string, error) {
	switch val := value.(type) {
	case string:
		return val, nil
	case []byte:
		return string(val), nil
	case time.Time:
		return formatTime(val), nil
	case fmt.Stringer, error:
		return cast.ToStringE(val)
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.String:
		return rv.String(), nil
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		b, err := json.Marshal(value)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrUnsupportedValue, err)
		}
		return string(b), nil
	}

	s, err := cast.ToStringE(value)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupportedValue, err)
	}
	return s, nil
}

// formatTime keeps calendar dates short: a midnight UTC value is a date.
func formatTime(t time.Time) string {
	if t.Location() == time.UTC && t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format(time.DateOnly)
	}
	return t.Format(time.RFC3339)
}

func indirect(value any) any {
	rv := reflect.ValueOf(value)
	for rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return nil
	}
	return rv.Interface()
}

func isAbsent(value any) bool {
	if value == nil {
		return true
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		return rv.IsNil()
	}
	return false
}
