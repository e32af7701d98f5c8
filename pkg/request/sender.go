package request

import (
	"context"
	"net/http"
)

// Sender dispatches assembled requests, client.Client is the default implementation over net/http.
type Sender interface {
	// Send dispatches the request and maps the response.
	// The dynamic type of the returned "result" is the HTTPRequest.ResultDef() type.
	// Interface methods cannot carry their own type parameter, so the result is typed
	// as any here, the generic APIRequest envelope restores the static type for callers.
	Send(ctx context.Context, request HTTPRequest) (rawResponse *http.Response, result any, err error)
}

// Sendable is implemented by HTTPRequest and APIRequest.
type Sendable interface {
	SendOrErr(ctx context.Context) error
}

// ReqDefinitionError defers a request-assembly error to send time.
// A failed definition still satisfies Sendable, so the error is checked
// in one place only, together with the send errors.
type ReqDefinitionError struct {
	error
}

func NewReqDefinitionError(err error) Sendable {
	return ReqDefinitionError{error: err}
}

func (v ReqDefinitionError) SendOrErr(_ context.Context) error {
	return v
}

func (v ReqDefinitionError) Unwrap() error {
	return v.error
}
