package bind

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/umisama/go-regexpcache"
)

// tagOptionPattern validates one option token of the "http" tag.
const tagOptionPattern = `^(omitempty|name=\S+|format=[a-z]+)$`

// fieldTag is the parsed content of the "http" struct tag.
type fieldTag struct {
	locations Location
	name      string
	omitEmpty bool
	format    string
}

// parseTag parses the "http" tag of the struct field.
// The second return value is false if the field has no placement and should be skipped.
func parseTag(field reflect.StructField) (tag fieldTag, ok bool, err error) {
	raw, found := field.Tag.Lookup("http")
	if !found || raw == "" || raw == "-" {
		return fieldTag{}, false, nil
	}

	// Locations, one or more separated by "|"
	parts := strings.Split(raw, ",")
	for _, token := range strings.Split(parts[0], "|") {
		location, err := ParseLocation(strings.TrimSpace(token))
		if err != nil {
			return fieldTag{}, false, fmt.Errorf(`field "%s": %w`, field.Name, err)
		}
		tag.locations |= location
	}

	// Options
	for _, opt := range parts[1:] {
		opt = strings.TrimSpace(opt)
		if !regexpcache.MustCompile(tagOptionPattern).MatchString(opt) {
			return fieldTag{}, false, fmt.Errorf(`field "%s": unexpected option "%s" in the http tag`, field.Name, opt)
		}
		switch {
		case opt == "omitempty":
			tag.omitEmpty = true
		case strings.HasPrefix(opt, "name="):
			tag.name = strings.TrimPrefix(opt, "name=")
		case strings.HasPrefix(opt, "format="):
			tag.format = strings.TrimPrefix(opt, "format=")
		}
	}

	// The format option applies to the body only
	if tag.format != "" {
		if tag.locations&LocationBody == 0 {
			return fieldTag{}, false, fmt.Errorf(`field "%s": the format option can only be used with the body location`, field.Name)
		}
		if !knownFormat(tag.format) {
			return fieldTag{}, false, fmt.Errorf(`field "%s": unexpected body format "%s"`, field.Name, tag.format)
		}
	}

	// Wire name: the name option, the json tag, the field name
	if tag.name == "" {
		if v := strings.Split(field.Tag.Get("json"), ",")[0]; v != "" && v != "-" {
			tag.name = v
		} else {
			tag.name = field.Name
		}
	}

	return tag, true, nil
}

func knownFormat(format string) bool {
	switch format {
	case FormatJSON, FormatForm, FormatString, FormatBytes, FormatStream, FormatMultipart, FormatPatch:
		return true
	default:
		return false
	}
}
