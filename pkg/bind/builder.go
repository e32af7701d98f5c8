package bind

import (
	"fmt"
	"io"
	"net/http"
	"reflect"

	"github.com/spf13/cast"

	"github.com/declarest/go-client/pkg/request"
)

// Builder is a strategy that knows how to write one placement kind onto the request.
// Custom builders can be registered by the Dispatcher.AndBuilder method.
type Builder interface {
	// Location returns the placement flag handled by the builder.
	Location() Location
	// Build writes the field placement onto the immutable request and returns the modified copy.
	Build(r request.HTTPRequest, f Field) (request.HTTPRequest, error)
}

// Field is one definition struct field handed to a Builder.
type Field struct {
	// Name is the wire name of the field.
	Name string
	// Format is the body format from the tag, empty means auto-detection by the value type.
	Format string
	// Value of the field.
	Value reflect.Value
}

func defaultBuilders() []Builder {
	return []Builder{
		queryBuilder{},
		pathBuilder{},
		headerBuilder{},
		cookieBuilder{},
		basicAuthBuilder{},
		bodyBuilder{},
	}
}

type queryBuilder struct{}

func (queryBuilder) Location() Location { return LocationQuery }

func (queryBuilder) Build(r request.HTTPRequest, f Field) (request.HTTPRequest, error) {
	v, ok := deref(f.Value)
	if !ok {
		return r, nil
	}

	// A slice repeats the key, one value per element
	if v.Kind() == reflect.Slice && v.Type().Elem().Kind() != reflect.Uint8 {
		for i := 0; i < v.Len(); i++ {
			str, err := fieldString(v.Index(i))
			if err != nil {
				return nil, err
			}
			r = r.AndQueryValue(f.Name, str)
		}
		return r, nil
	}

	str, err := fieldString(v)
	if err != nil {
		return nil, err
	}
	return r.AndQueryParam(f.Name, str), nil
}

type pathBuilder struct{}

func (pathBuilder) Location() Location { return LocationPath }

func (pathBuilder) Build(r request.HTTPRequest, f Field) (request.HTTPRequest, error) {
	v, ok := deref(f.Value)
	if !ok {
		return nil, fmt.Errorf(`path parameter "%s" must not be nil`, f.Name)
	}
	str, err := fieldString(v)
	if err != nil {
		return nil, err
	}
	return r.AndPathParam(f.Name, str), nil
}

type headerBuilder struct{}

func (headerBuilder) Location() Location { return LocationHeader }

func (headerBuilder) Build(r request.HTTPRequest, f Field) (request.HTTPRequest, error) {
	v, ok := deref(f.Value)
	if !ok {
		return r, nil
	}
	str, err := fieldString(v)
	if err != nil {
		return nil, err
	}
	return r.AndHeader(f.Name, str), nil
}

type cookieBuilder struct{}

func (cookieBuilder) Location() Location { return LocationCookie }

func (cookieBuilder) Build(r request.HTTPRequest, f Field) (request.HTTPRequest, error) {
	switch v := f.Value.Interface().(type) {
	case *http.Cookie:
		if v == nil {
			return r, nil
		}
		return r.AndCookie(v), nil
	case http.Cookie:
		return r.AndCookie(&v), nil
	}

	value, ok := deref(f.Value)
	if !ok {
		return r, nil
	}
	str, err := fieldString(value)
	if err != nil {
		return nil, err
	}
	return r.AndCookie(&http.Cookie{Name: f.Name, Value: str}), nil
}

type basicAuthBuilder struct{}

func (basicAuthBuilder) Location() Location { return LocationBasicAuth }

func (basicAuthBuilder) Build(r request.HTTPRequest, f Field) (request.HTTPRequest, error) {
	switch v := f.Value.Interface().(type) {
	case BasicAuth:
		return r.WithBasicAuth(v.Username, v.Password), nil
	case *BasicAuth:
		if v == nil {
			return r, nil
		}
		return r.WithBasicAuth(v.Username, v.Password), nil
	default:
		return nil, fmt.Errorf(`basic auth field must be of the bind.BasicAuth type, found "%T"`, f.Value.Interface())
	}
}

type bodyBuilder struct{}

func (bodyBuilder) Location() Location { return LocationBody }

func (bodyBuilder) Build(r request.HTTPRequest, f Field) (request.HTTPRequest, error) {
	format := f.Format
	if format == "" {
		format = defaultBodyFormat(f.Value)
	}

	switch format {
	case FormatJSON:
		return r.WithJSONBody(f.Value.Interface()), nil
	case FormatForm:
		return buildFormBody(r, f)
	case FormatString:
		str, err := fieldString(f.Value)
		if err != nil {
			return nil, err
		}
		return r.WithBody(str), nil
	case FormatBytes:
		switch v := f.Value.Interface().(type) {
		case []byte:
			return r.WithBody(v), nil
		case string:
			return r.WithBody([]byte(v)), nil
		default:
			return nil, fmt.Errorf(`bytes body must be a []byte or a string, found "%T"`, f.Value.Interface())
		}
	case FormatStream:
		if v, ok := f.Value.Interface().(io.Reader); ok {
			return r.WithBody(v), nil
		}
		return nil, fmt.Errorf(`stream body must implement io.Reader, found "%T"`, f.Value.Interface())
	case FormatMultipart:
		if v, ok := f.Value.Interface().(*request.MultipartBody); ok {
			return r.WithMultipartBody(v), nil
		}
		return nil, fmt.Errorf(`multipart body must be a *request.MultipartBody, found "%T"`, f.Value.Interface())
	case FormatPatch:
		if v, ok := f.Value.Interface().(request.PatchDocument); ok {
			return r.WithPatchBody(v), nil
		}
		return nil, fmt.Errorf(`patch body must implement request.PatchDocument, found "%T"`, f.Value.Interface())
	default:
		return nil, fmt.Errorf(`unexpected body format "%s"`, format)
	}
}

func buildFormBody(r request.HTTPRequest, f Field) (request.HTTPRequest, error) {
	// Arbitrary user values flow here, a bad value is a definition error, not a panic
	switch v := f.Value.Interface().(type) {
	case map[string]string:
		return r.WithFormBody(v), nil
	case map[string]any:
		form, err := request.ToFormBodyE(v)
		if err != nil {
			return nil, err
		}
		return r.WithFormBody(form), nil
	}
	if v, ok := deref(f.Value); ok && v.Kind() == reflect.Struct {
		values, err := request.StructToMapE(f.Value.Interface(), nil)
		if err != nil {
			return nil, err
		}
		form, err := request.ToFormBodyE(values)
		if err != nil {
			return nil, err
		}
		return r.WithFormBody(form), nil
	}
	return nil, fmt.Errorf(`form body must be a struct or a map, found "%T"`, f.Value.Interface())
}

// defaultBodyFormat detects the body format from the value type,
// used when the tag has no explicit format option.
func defaultBodyFormat(value reflect.Value) string {
	switch value.Interface().(type) {
	case *request.MultipartBody:
		return FormatMultipart
	case request.PatchDocument:
		return FormatPatch
	case []byte:
		return FormatBytes
	case string:
		return FormatString
	}
	if _, ok := value.Interface().(io.Reader); ok {
		return FormatStream
	}
	return FormatJSON
}

// deref follows pointers and interfaces to the underlying value.
// The second return value is false for a nil pointer or a nil interface.
func deref(v reflect.Value) (reflect.Value, bool) {
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return v, false
		}
		v = v.Elem()
	}
	return v, true
}

func fieldString(v reflect.Value) (string, error) {
	out, err := cast.ToStringE(v.Interface())
	if err != nil {
		return "", fmt.Errorf(`cannot convert value of the type "%T" to a string: %w`, v.Interface(), err)
	}
	return out, nil
}
