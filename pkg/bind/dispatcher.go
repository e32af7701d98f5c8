package bind

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/umisama/go-regexpcache"

	"github.com/declarest/go-client/pkg/request"
)

// pathPlaceholderPattern matches "{name}" placeholders in the path template.
const pathPlaceholderPattern = `\{[^{}]+\}`

// Dispatcher assembles request.HTTPRequest values from tagged definition structs
// and sends them by the configured request.Sender.
//
// The Dispatcher is immutable, the And* methods return a modified clone.
type Dispatcher struct {
	sender   request.Sender
	builders []Builder
}

// NewDispatcher creates a Dispatcher with the default builders,
// one for each Location flag.
func NewDispatcher(sender request.Sender) *Dispatcher {
	return &Dispatcher{sender: sender, builders: defaultBuilders()}
}

// AndBuilder returns a clone of the Dispatcher with the builder registered
// ahead of the existing ones, so it can override a default placement strategy.
func (d *Dispatcher) AndBuilder(b Builder) *Dispatcher {
	clone := *d
	clone.builders = append([]Builder{b}, d.builders...)
	return &clone
}

// HTTPRequest assembles an immutable HTTP request from the definition.
// An invalid definition is reported as an error, not a panic.
func (d *Dispatcher) HTTPRequest(def Definition) (request.HTTPRequest, error) {
	// Routing metadata
	method := strings.ToUpper(strings.TrimSpace(def.Method()))
	if method == "" {
		return nil, fmt.Errorf(`definition %T: method is not set`, def)
	}
	path := def.Path()
	if path == "" {
		return nil, fmt.Errorf(`definition %T: path is not set`, def)
	}

	r := request.NewHTTPRequest(d.sender).WithMethod(method).WithURL(path)

	// Optional response mapping metadata
	if v, ok := def.(ResultProvider); ok {
		r = r.WithResult(v.ResultDef())
	}
	if v, ok := def.(ErrorProvider); ok {
		r = r.WithError(v.ErrorDef())
	}

	// Placement metadata
	value := reflect.ValueOf(def)
	for value.Kind() == reflect.Ptr {
		if value.IsNil() {
			return nil, fmt.Errorf(`definition %T: value is nil`, def)
		}
		value = value.Elem()
	}
	if value.Kind() != reflect.Struct {
		return nil, fmt.Errorf(`definition %T: expected a struct, found "%s"`, def, value.Kind())
	}
	var bodyField string
	r, err := d.applyStruct(r, value, &bodyField)
	if err != nil {
		return nil, fmt.Errorf(`definition %T: %w`, def, err)
	}

	// Content type override
	if v, ok := def.(ContentTypeProvider); ok && v.ContentType() != "" {
		r = r.WithContentType(v.ContentType())
	}

	// All path placeholders must be bound
	for _, m := range regexpcache.MustCompile(pathPlaceholderPattern).FindAllString(path, -1) {
		if _, found := r.PathParams()[strings.Trim(m, "{}")]; !found {
			return nil, fmt.Errorf(`definition %T: path placeholder "%s" is not bound`, def, m)
		}
	}

	return r, nil
}

// Send assembles the request from the definition and sends it,
// the response mapping is defined by the definition itself,
// see the ResultProvider and ErrorProvider interfaces.
func (d *Dispatcher) Send(ctx context.Context, def Definition) (response request.HTTPResponse, result any, err error) {
	r, err := d.HTTPRequest(def)
	if err != nil {
		return nil, nil, request.NewReqDefinitionError(err).SendOrErr(ctx)
	}
	return r.Send(ctx)
}

// SendOrErr assembles the request from the definition and sends it.
func (d *Dispatcher) SendOrErr(ctx context.Context, def Definition) error {
	r, err := d.HTTPRequest(def)
	if err != nil {
		return request.NewReqDefinitionError(err).SendOrErr(ctx)
	}
	return r.SendOrErr(ctx)
}

// APIRequest assembles an API request from the definition, the response is mapped to a new R value.
// A definition error is wrapped to the request, it surfaces on send, so it is checked in one place only.
func APIRequest[R request.Result](d *Dispatcher, def Definition) request.APIRequest[*R] {
	result := new(R)
	r, err := d.HTTPRequest(def)
	if err != nil {
		return request.NewAPIRequest(result, request.NewReqDefinitionError(err))
	}
	return request.NewAPIRequest(result, r.WithResult(result))
}

// Send assembles the request from the definition, sends it and maps the response to a new R value.
func Send[R request.Result](ctx context.Context, d *Dispatcher, def Definition) (*R, error) {
	return APIRequest[R](d, def).Send(ctx)
}

func (d *Dispatcher) applyStruct(r request.HTTPRequest, value reflect.Value, bodyField *string) (request.HTTPRequest, error) {
	t := value.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldValue := value.Field(i)

		if !field.IsExported() {
			continue
		}

		// Flatten untagged embedded structs
		if field.Anonymous {
			if _, tagged := field.Tag.Lookup("http"); !tagged {
				embedded, ok := deref(fieldValue)
				if ok && embedded.Kind() == reflect.Struct {
					var err error
					if r, err = d.applyStruct(r, embedded, bodyField); err != nil {
						return nil, err
					}
				}
				continue
			}
		}

		tag, ok, err := parseTag(field)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		// The omitempty option skips zero values for non-body placements only,
		// a configured body is always applied, even when its value is empty
		skipZero := tag.omitEmpty && fieldValue.IsZero()

		f := Field{Name: tag.name, Format: tag.format, Value: fieldValue}
		for _, location := range tag.locations.split() {
			if skipZero && location != LocationBody {
				continue
			}
			if location == LocationBody {
				if *bodyField != "" {
					return nil, fmt.Errorf(`fields "%s" and "%s" both define the request body`, *bodyField, field.Name)
				}
				*bodyField = field.Name
			}
			builder, found := d.builder(location)
			if !found {
				return nil, fmt.Errorf(`field "%s": no builder is registered for the location "%s"`, field.Name, location)
			}
			if r, err = builder.Build(r, f); err != nil {
				return nil, fmt.Errorf(`field "%s": %w`, field.Name, err)
			}
		}
	}
	return r, nil
}

// builder lookup is a linear scan, the builders count is small.
func (d *Dispatcher) builder(location Location) (Builder, bool) {
	for _, b := range d.builders {
		if b.Location()&location != 0 {
			return b, true
		}
	}
	return nil, false
}
