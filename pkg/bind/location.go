package bind

import (
	"fmt"
	"strings"
)

// Location is a flag enumeration describing where a definition field is placed on the wire.
// Values can be combined by the bitwise OR, in the tag by the "|" separator,
// then the field is placed to each location once.
type Location int

const (
	// LocationBody places the field value as the request body, see the Format* constants.
	LocationBody Location = 1 << iota
	// LocationQuery places the field value as a query string parameter, a slice repeats the key.
	LocationQuery
	// LocationPath binds the field value to a "{name}" placeholder in the path template.
	LocationPath
	// LocationHeader places the field value as a request header.
	LocationHeader
	// LocationCookie places the field value as a request cookie.
	LocationCookie
	// LocationBasicAuth uses the field value, a BasicAuth struct, as the request credentials.
	LocationBasicAuth
)

// locations in the order they are rendered by the String method.
var locations = []struct {
	flag Location
	name string
}{
	{LocationBody, "body"},
	{LocationQuery, "query"},
	{LocationPath, "path"},
	{LocationHeader, "header"},
	{LocationCookie, "cookie"},
	{LocationBasicAuth, "basicauth"},
}

// ParseLocation converts a tag token to the Location flag.
func ParseLocation(token string) (Location, error) {
	for _, l := range locations {
		if l.name == token {
			return l.flag, nil
		}
	}
	return 0, fmt.Errorf(`unexpected location "%s"`, token)
}

func (v Location) String() string {
	if v == 0 {
		return "none"
	}
	var parts []string
	rest := v
	for _, l := range locations {
		if rest&l.flag != 0 {
			parts = append(parts, l.name)
			rest &^= l.flag
		}
	}
	if rest != 0 {
		parts = append(parts, fmt.Sprintf("unknown(%d)", int(rest)))
	}
	return strings.Join(parts, "|")
}

// split returns the individual flags of a combined value.
func (v Location) split() []Location {
	var out []Location
	for _, l := range locations {
		if v&l.flag != 0 {
			out = append(out, l.flag)
		}
	}
	return out
}
