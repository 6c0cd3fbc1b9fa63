package mapper

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"simulation-parsers/internal/grammar"
	"simulation-parsers/internal/mapping"
	"simulation-parsers/internal/units"
)

var quantityType = reflect.TypeOf(units.Quantity{})

// denseTypes are tried in order when a magnitude is stored in a quantity.
var denseTypes = []reflect.Type{
	reflect.TypeOf(float64(0)),
	reflect.TypeOf([]float64{}),
	reflect.TypeOf([][]float64{}),
	reflect.TypeOf([][][]float64{}),
}

// assign writes val into the quantity field fv. Unit fields hold a
// units.Quantity (or a pointer to one); other fields get the magnitude only.
func assign(fv reflect.Value, val any, unitField bool, unit string) error {
	if !unitField {
		out, err := convert(val, fv.Type())
		if err != nil {
			return err
		}

		fv.Set(out)

		return nil
	}

	q, err := toQuantity(val, unit)
	if err != nil {
		return err
	}

	if fv.Kind() == reflect.Pointer {
		fv.Set(reflect.ValueOf(&q))
	} else {
		fv.Set(reflect.ValueOf(q))
	}

	return nil
}

func asQuantity(v any) (units.Quantity, bool) {
	switch q := v.(type) {
	case units.Quantity:
		return q, true
	case *units.Quantity:
		if q != nil {
			return *q, true
		}
	}

	return units.Quantity{}, false
}

// toQuantity tags val with unit. A value that already is a quantity keeps its
// own unit.
func toQuantity(val any, unit string) (units.Quantity, error) {
	if q, ok := asQuantity(val); ok {
		if q.Unit == "" {
			q.Unit = unit
		}

		mag, ok := dense(q.Magnitude)
		if !ok {
			return units.Quantity{}, fmt.Errorf("quantity magnitude %T is not numeric", q.Magnitude)
		}

		return units.New(mag, q.Unit), nil
	}

	mag, ok := dense(val)
	if !ok {
		return units.Quantity{}, fmt.Errorf("value %T is not numeric", val)
	}

	return units.New(mag, unit), nil
}

// dense converts a number or nested sequences of numbers into float64,
// []float64, [][]float64 or [][][]float64.
func dense(v any) (any, bool) {
	for _, t := range denseTypes {
		if out, err := convert(v, t); err == nil {
			return out.Interface(), true
		}
	}

	return nil, false
}

// convert converts v into a value of type t. Scalars convert between numeric
// kinds and from strings, sequences convert element-wise, and a scalar stored
// into a slice field becomes a one element slice.
func convert(v any, t reflect.Type) (reflect.Value, error) {
	return convertValue(v, t, true)
}

// convertValue wraps scalars into slices only when wrap is set, so nested
// sequences keep their shape.
func convertValue(v any, t reflect.Type, wrap bool) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(t), nil
	}

	if q, ok := asQuantity(v); ok && t != quantityType {
		v = q.Magnitude
	}

	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(t) {
		return rv, nil
	}

	switch t.Kind() {
	case reflect.Pointer:
		inner, err := convertValue(v, t.Elem(), wrap)
		if err != nil {
			return reflect.Value{}, err
		}

		out := reflect.New(t.Elem())
		out.Elem().Set(inner)

		return out, nil
	case reflect.String:
		if _, isList := mapping.AsList(v); isList {
			break
		}

		if _, isRecord := v.(map[string]any); isRecord {
			break
		}

		return reflect.ValueOf(fmt.Sprint(v)).Convert(t), nil
	case reflect.Bool:
		b, err := toBool(v)
		if err != nil {
			return reflect.Value{}, err
		}

		return reflect.ValueOf(b).Convert(t), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		f, err := toFloat(v)
		if err != nil {
			return reflect.Value{}, err
		}

		if f != math.Trunc(f) {
			return reflect.Value{}, fmt.Errorf("cannot store %v in %s", f, t)
		}

		out := reflect.New(t).Elem()
		out.SetInt(int64(f))

		return out, nil
	case reflect.Float32, reflect.Float64:
		f, err := toFloat(v)
		if err != nil {
			return reflect.Value{}, err
		}

		out := reflect.New(t).Elem()
		out.SetFloat(f)

		return out, nil
	case reflect.Slice:
		list, ok := mapping.AsList(v)
		if !ok {
			if !wrap {
				break
			}

			list = []any{v}
		}

		out := reflect.MakeSlice(t, len(list), len(list))

		for i, el := range list {
			ev, err := convertValue(el, t.Elem(), false)
			if err != nil {
				return reflect.Value{}, fmt.Errorf("[%d]: %w", i, err)
			}

			out.Index(i).Set(ev)
		}

		return out, nil
	}

	return reflect.Value{}, fmt.Errorf("cannot convert %T to %s", v, t)
}

func toFloat(v any) (float64, error) {
	rv := reflect.ValueOf(v)

	switch {
	case rv.CanInt():
		return float64(rv.Int()), nil
	case rv.CanUint():
		return float64(rv.Uint()), nil
	case rv.CanFloat():
		return rv.Float(), nil
	case rv.Kind() == reflect.String:
		return grammar.ParseFloat(rv.String())
	default:
		return 0, fmt.Errorf("%T is not a number", v)
	}
}

func toBool(v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		s := strings.Trim(strings.ToLower(strings.TrimSpace(x)), ".")
		switch s {
		case "t", "true", "yes", "y":
			return true, nil
		case "f", "false", "no", "n":
			return false, nil
		}

		return strconv.ParseBool(s)
	}

	if f, err := toFloat(v); err == nil {
		return f != 0, nil
	}

	return false, fmt.Errorf("%T is not a boolean", v)
}
