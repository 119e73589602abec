package domain

import (
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
)

// timeHook turns string and epoch values into time.Time so loosely formatted records still decode
func timeHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if to != reflect.TypeOf(time.Time{}) {
		return data, nil
	}
	switch v := data.(type) {
	case string:
		if v == "" {
			return time.Time{}, nil
		}
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return t, nil
		}
		return dateparse.ParseAny(v)
	case float64:
		return time.UnixMilli(int64(v)), nil
	case int64:
		return time.UnixMilli(v), nil
	case int:
		return time.UnixMilli(int64(v)), nil
	}
	return data, nil
}

// WholeNumber reads a base 10 integer from loosely typed input.
// Fractional numbers are rejected rather than truncated.
func WholeNumber(value interface{}) (int, error) {
	switch v := value.(type) {
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, errors.Errorf("%q is not a whole number", v)
		}
		return n, nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
			return 0, errors.Errorf("%v is not a whole number", v)
		}
		return int(v), nil
	case float32:
		return WholeNumber(float64(v))
	}
	return cast.ToIntE(value)
}

// intHook keeps integer fields from silently truncating fractions or reading octal and hex strings
func intHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if to.Kind() != reflect.Int {
		return data, nil
	}
	switch v := data.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return data, nil
		}
		return WholeNumber(v)
	case float64, float32:
		return WholeNumber(v)
	}
	return data, nil
}

func decode(input map[string]interface{}, out interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.ComposeDecodeHookFunc(timeHook, intHook),
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

// DecodeDraft converts a loosely typed record, such as parsed JSON or form input, into a Draft
func DecodeDraft(input map[string]interface{}) (Draft, error) {
	var d Draft
	if err := decode(input, &d); err != nil {
		return Draft{}, errors.Wrap(err, "decode product record")
	}
	return d, nil
}

// DecodeChanges converts loosely typed update input into Changes. Keys outside the allow-list are ignored.
func DecodeChanges(input map[string]interface{}) (Changes, error) {
	var c Changes
	if err := decode(input, &c); err != nil {
		return Changes{}, errors.Wrap(err, "decode product changes")
	}
	return c, nil
}
