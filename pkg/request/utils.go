package request

import (
	"fmt"
	"maps"
	"net/url"
	"reflect"
	"strings"

	"github.com/spf13/cast"
)

// ToFormBody flattens a JSON-like map into form fields.
// It panics on a value that cannot be stringified, see ToFormBodyE.
func ToFormBody(in map[string]any) map[string]string {
	out, err := ToFormBodyE(in)
	if err != nil {
		panic(err)
	}
	return out
}

// ToFormBodyE flattens a JSON-like map into form fields.
// Slices become "key[0]", "key[1]", ... and string-keyed maps become "key[subKey]",
// everything else is stringified.
func ToFormBodyE(in map[string]any) (map[string]string, error) {
	out := make(map[string]string)
	for k, v := range in {
		ty := reflect.TypeOf(v)
		switch {
		case ty == nil:
			out[k] = ""
		case ty.Kind() == reflect.Slice:
			value := reflect.ValueOf(v)
			for i := 0; i < value.Len(); i++ {
				str, err := castToString(value.Index(i).Interface())
				if err != nil {
					return nil, err
				}
				out[fmt.Sprintf("%s[%d]", k, i)] = str
			}
		case ty.Kind() == reflect.Map && ty.Key().Kind() == reflect.String:
			iter := reflect.ValueOf(v).MapRange()
			for iter.Next() {
				str, err := castToString(iter.Value().Interface())
				if err != nil {
					return nil, err
				}
				out[fmt.Sprintf("%s[%s]", k, iter.Key().String())] = str
			}
		default:
			str, err := castToString(v)
			if err != nil {
				return nil, err
			}
			out[k] = str
		}
	}
	return out, nil
}

// StructToMap exports struct fields to a values map.
// It panics on a field without a resolvable name, see StructToMapE.
func StructToMap(in any, allowedFields []string) map[string]any {
	out, err := StructToMapE(in, allowedFields)
	if err != nil {
		panic(err)
	}
	return out
}

// StructToMapE exports struct fields to a values map.
// With a non-nil allowedFields only the listed fields are exported.
//
// The map key comes from the `writeas` tag, with the `json` tag as a fallback,
// a field with neither is an error.
// Fields tagged `readonly:"true"` are never exported,
// fields tagged `writeoptional:"true"` are exported only when non-zero.
func StructToMapE(in any, allowedFields []string) (map[string]any, error) {
	out := make(map[string]any)
	if err := structToMap(reflect.ValueOf(in), out, allowedFields); err != nil {
		return nil, err
	}
	return out, nil
}

func structToMap(in reflect.Value, out map[string]any, allowedFields []string) error {
	for in.Kind() == reflect.Ptr || in.Kind() == reflect.Interface {
		in = in.Elem()
	}
	t := in.Type()

	allowed := make(map[string]bool)
	for _, field := range allowedFields {
		allowed[field] = true
	}

	numFields := t.NumField()
	for i := 0; i < numFields; i++ {
		field := t.Field(i)
		fieldValue := in.Field(i)

		// Flatten embedded structs
		if field.Anonymous {
			if err := structToMap(fieldValue, out, allowedFields); err != nil {
				return err
			}
			continue
		}

		if field.Tag.Get("readonly") == "true" {
			continue
		}

		if field.Tag.Get("writeoptional") == "true" && fieldValue.IsZero() {
			continue
		}

		// Resolve the wire name
		var fieldName string
		if v := field.Tag.Get("writeas"); v != "" {
			fieldName = v
		} else if v := strings.Split(field.Tag.Get("json"), ",")[0]; v != "" {
			fieldName = v
		} else {
			return fmt.Errorf(`field "%s" of %s has no json name`, field.Name, t.String())
		}

		if fieldName == "-" {
			continue
		}

		if len(allowedFields) > 0 && !allowed[fieldName] {
			continue
		}

		out[fieldName] = fieldValue.Interface()
	}
	return nil
}

func cloneParams(in map[string]string) (out map[string]string) {
	out = make(map[string]string)
	maps.Copy(out, in)
	return out
}

func cloneURLValues(in url.Values) (out url.Values) {
	out = make(url.Values)
	for k, values := range in {
		for _, v := range values {
			out.Add(k, v)
		}
	}
	return out
}

func castToString(v any) (string, error) {
	out, err := cast.ToStringE(v)
	if err != nil {
		return "", fmt.Errorf(`cannot cast %T to string %w`, v, err)
	}
	return out, nil
}
