package avro

import (
	"encoding"
	"fmt"
	"math"
	"net/url"
	"reflect"
	"strconv"
	"time"
)

var (
	timeType            = reflect.TypeFor[time.Time]()
	urlType             = reflect.TypeFor[url.URL]()
	textMarshalerType   = reflect.TypeFor[encoding.TextMarshaler]()
	textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()
)

const (
	ticksPerSecond = 10_000_000
	// unixEpochTicks counts 100ns ticks from 0001-01-01 to 1970-01-01 UTC.
	unixEpochTicks = 621_355_968_000_000_000
)

func timeToLong(tm time.Time, posix bool) int64 {
	if posix {
		return tm.Unix()
	}
	return unixEpochTicks + tm.Unix()*ticksPerSecond + int64(tm.Nanosecond()/100)
}

func longToTime(n int64, posix bool) time.Time {
	if posix {
		return time.Unix(n, 0).UTC()
	}
	n -= unixEpochTicks
	sec, rem := n/ticksPerSecond, n%ticksPerSecond
	if rem < 0 {
		sec--
		rem += ticksPerSecond
	}
	return time.Unix(sec, rem*100).UTC()
}

// intGetter reads an integer of kind k as the int64 stored on the wire.
// Unsigned 64-bit values keep their bit pattern.
func intGetter(t reflect.Type, min, max int64) (func(v reflect.Value) (int64, error), bool) {
	switch k := t.Kind(); {
	case isSigned(k):
		return func(v reflect.Value) (int64, error) {
			n := v.Int()
			if n < min || n > max {
				return 0, mismatch("%d overflows %s", n, rangeName(max))
			}
			return n, nil
		}, true
	case isUnsigned(k):
		wrap := max == math.MaxInt64 && (k == reflect.Uint64 || k == reflect.Uint || k == reflect.Uintptr)
		return func(v reflect.Value) (int64, error) {
			u := v.Uint()
			if !wrap && u > uint64(max) {
				return 0, mismatch("%d overflows %s", u, rangeName(max))
			}
			return int64(u), nil
		}, true
	}
	return nil, false
}

func rangeName(max int64) string {
	if max == math.MaxInt32 {
		return "int"
	}
	return "long"
}

// intSetter stores a decoded integer into a value of type t.
func intSetter(t reflect.Type) (func(v reflect.Value, n int64) error, bool) {
	switch k := t.Kind(); {
	case isSigned(k):
		return func(v reflect.Value, n int64) error {
			if v.OverflowInt(n) {
				return mismatch("%d overflows %s", n, t)
			}
			v.SetInt(n)
			return nil
		}, true
	case k == reflect.Uint64 || k == reflect.Uint || k == reflect.Uintptr:
		return func(v reflect.Value, n int64) error {
			v.SetUint(uint64(n))
			return nil
		}, true
	case isUnsigned(k):
		return func(v reflect.Value, n int64) error {
			if n < 0 || v.OverflowUint(uint64(n)) {
				return mismatch("%d overflows %s", n, t)
			}
			v.SetUint(uint64(n))
			return nil
		}, true
	}
	return nil, false
}

func floatSetter(t reflect.Type) (func(v reflect.Value, f float64) error, bool) {
	if k := t.Kind(); k != reflect.Float32 && k != reflect.Float64 {
		return nil, false
	}
	return func(v reflect.Value, f float64) error {
		v.SetFloat(f)
		return nil
	}, true
}

// stringGetter renders values of t as Avro strings.
func stringGetter(t reflect.Type) (func(v reflect.Value) (string, error), bool) {
	switch {
	case t.Kind() == reflect.String:
		return func(v reflect.Value) (string, error) { return v.String(), nil }, true
	case t == urlType:
		return func(v reflect.Value) (string, error) {
			u := v.Interface().(url.URL)
			return u.String(), nil
		}, true
	case t.Implements(textMarshalerType):
		return func(v reflect.Value) (string, error) {
			b, err := v.Interface().(encoding.TextMarshaler).MarshalText()
			if err != nil {
				return "", fmt.Errorf("%w: %w", ErrValueMismatch, err)
			}
			return string(b), nil
		}, true
	}
	return nil, false
}

// stringSetter parses Avro strings back into values of t.
func stringSetter(t reflect.Type) (func(v reflect.Value, s string) error, bool) {
	switch {
	case t.Kind() == reflect.String:
		return func(v reflect.Value, s string) error {
			v.SetString(s)
			return nil
		}, true
	case t == urlType:
		return func(v reflect.Value, s string) error {
			u, err := url.Parse(s)
			if err != nil {
				return malformed(s, t, err)
			}
			v.Set(reflect.ValueOf(*u))
			return nil
		}, true
	case reflect.PointerTo(t).Implements(textUnmarshalerType):
		return func(v reflect.Value, s string) error {
			p := reflect.New(t)
			if err := p.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(s)); err != nil {
				return malformed(s, t, err)
			}
			v.Set(p.Elem())
			return nil
		}, true
	case isByteSlice(t):
		return func(v reflect.Value, s string) error {
			v.SetBytes([]byte(s))
			return nil
		}, true
	}
	return nil, false
}

// keyGetter renders map keys of type t as strings.
func keyGetter(t reflect.Type) (func(v reflect.Value) (string, error), bool) {
	k := t.Kind()
	switch {
	case k == reflect.String:
		return func(v reflect.Value) (string, error) { return v.String(), nil }, true
	case t == urlType || t.Implements(textMarshalerType):
		return stringGetter(t)
	case isSigned(k):
		return func(v reflect.Value) (string, error) { return strconv.FormatInt(v.Int(), 10), nil }, true
	case isUnsigned(k):
		return func(v reflect.Value) (string, error) { return strconv.FormatUint(v.Uint(), 10), nil }, true
	}
	return nil, false
}

// keySetter parses map keys of type t.
func keySetter(t reflect.Type) (func(s string) (reflect.Value, error), bool) {
	k := t.Kind()
	switch {
	case k == reflect.String:
		return func(s string) (reflect.Value, error) {
			return reflect.ValueOf(s).Convert(t), nil
		}, true
	case t == urlType || reflect.PointerTo(t).Implements(textUnmarshalerType):
		set, _ := stringSetter(t)
		return func(s string) (reflect.Value, error) {
			key := reflect.New(t).Elem()
			return key, set(key, s)
		}, true
	case isSigned(k):
		return func(s string) (reflect.Value, error) {
			n, err := strconv.ParseInt(s, 10, t.Bits())
			if err != nil {
				return reflect.Value{}, malformed(s, t, err)
			}
			return reflect.ValueOf(n).Convert(t), nil
		}, true
	case isUnsigned(k):
		return func(s string) (reflect.Value, error) {
			n, err := strconv.ParseUint(s, 10, t.Bits())
			if err != nil {
				return reflect.Value{}, malformed(s, t, err)
			}
			return reflect.ValueOf(n).Convert(t), nil
		}, true
	}
	return nil, false
}
