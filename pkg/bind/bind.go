// Package bind assembles HTTP requests declaratively, from tagged definition structs.
//
// A definition struct carries the routing metadata, the HTTP method and the path template,
// and the placement metadata of each field in the "http" struct tag:
//
//	type UpdateBranchRequest struct {
//		BranchID int             `json:"branchId" http:"path"`
//		Since    string          `json:"since" http:"query,omitempty"`
//		Token    string          `http:"header,name=X-StorageApi-Token"`
//		Auth     bind.BasicAuth  `http:"basicauth,omitempty"`
//		Payload  *BranchPayload  `json:"-" http:"body,format=json"`
//	}
//
//	func (UpdateBranchRequest) Method() string { return http.MethodPut }
//	func (UpdateBranchRequest) Path() string   { return "/v2/branches/{branchId}" }
//
// The Dispatcher reflects over the definition, validates the tags,
// applies the matching Builder for each placement
// and produces an immutable request.HTTPRequest:
//
//	d := bind.NewDispatcher(client.New().WithBaseURL("https://api.example.com"))
//	result, err := bind.Send[Branch](ctx, d, UpdateBranchRequest{BranchID: 123, Payload: payload})
//
// Tag syntax: http:"<location>[|<location>...][,name=<wire name>][,omitempty][,format=<body format>]".
// The wire name falls back to the "json" tag, then to the Go field name.
// Fields tagged http:"-", untagged fields and unexported fields are skipped,
// untagged embedded structs are flattened.
package bind

// Definition is the routing metadata carried by a request definition struct.
type Definition interface {
	// Method returns the HTTP method of the request.
	Method() string
	// Path returns the URL path template, placeholders in the "{name}" form
	// are bound by fields with the "path" location.
	Path() string
}

// ResultProvider is an optional Definition interface,
// it provides a target value for the response mapping.
type ResultProvider interface {
	ResultDef() any
}

// ErrorProvider is an optional Definition interface,
// it provides a target error value for the error response mapping.
type ErrorProvider interface {
	ErrorDef() error
}

// ContentTypeProvider is an optional Definition interface,
// it overrides the Content-Type header set by the body builder.
type ContentTypeProvider interface {
	ContentType() string
}

// BasicAuth is the value type of a field with the "basicauth" location.
type BasicAuth struct {
	Username string
	Password string
}

// Body format names for the "format" tag option.
const (
	// FormatJSON encodes the field value as a JSON body, default for structs, maps and slices.
	FormatJSON = "json"
	// FormatForm encodes a struct or a map as an "application/x-www-form-urlencoded" body.
	FormatForm = "form"
	// FormatString sends the field value as a plain string body.
	FormatString = "string"
	// FormatBytes sends the field value as a raw []byte body.
	FormatBytes = "bytes"
	// FormatStream streams an io.Reader field value as the body.
	FormatStream = "stream"
	// FormatMultipart sends a *request.MultipartBody field value as a multipart form.
	FormatMultipart = "multipart"
	// FormatPatch sends a request.PatchDocument field value as a JSON Patch body.
	FormatPatch = "patch"
)
