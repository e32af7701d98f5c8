package client

import (
	"mime"
	"strings"

	"github.com/umisama/go-regexpcache"
)

// jsonMediaTypePattern matches "application/json" and the "application/*+json" family,
// for example "application/json-patch+json" or "application/vnd.api+json".
const jsonMediaTypePattern = `^application/([a-zA-Z0-9\.\-]+\+)?json$`

// isJSONContentType reports whether the Content-Type header value carries a JSON payload.
// Parameters, like "; charset=utf-8", are ignored.
func isJSONContentType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		// Fallback for malformed parameters, check the media type part only
		mediaType = strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
	}
	return regexpcache.MustCompile(jsonMediaTypePattern).MatchString(mediaType)
}
