package request

import (
	"context"
	"fmt"
	"reflect"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	APIRequestSpanName     = "declarest.go.api.client.request"
	apiRequestTracerCtxKey = ctxKey("api-request-tracer")
	// DataDog compatibility attributes.
	attrSpanKind            = "span.kind"
	attrSpanKindValueClient = "client"
	attrSpanType            = "span.type"
	attrSpanTypeValueHTTP   = "http"
)

// APIRequest is a high-level request envelope, the response is mapped to the generic type R.
// One APIRequest may be backed by several HTTP requests that together fill the result.
type APIRequest[R Result] interface {
	// WithBefore registers a callback invoked before the request is sent.
	// A returned error aborts the send.
	WithBefore(func(ctx context.Context) error) APIRequest[R]
	// WithOnComplete registers a callback invoked after the request finishes, with the result or the error.
	WithOnComplete(func(ctx context.Context, result R, err error) error) APIRequest[R]
	// WithOnSuccess registers a callback invoked only after a 2xx response.
	WithOnSuccess(func(ctx context.Context, result R) error) APIRequest[R]
	// WithOnError registers a callback invoked only when the request fails.
	WithOnError(func(ctx context.Context, err error) error) APIRequest[R]
	// Send dispatches the underlying requests and returns the mapped result.
	Send(ctx context.Context) (result R, err error)
	SendOrErr(ctx context.Context) error
}

type ParallelAPIRequests []Sendable

type withTracer interface {
	Tracer() trace.Tracer
}

type ctxKey string

// Parallel groups requests so they can be sent concurrently as one Sendable.
func Parallel(requests ...Sendable) ParallelAPIRequests {
	return requests
}

func (v ParallelAPIRequests) SendOrErr(ctx context.Context) error {
	wg := NewWaitGroup(ctx)
	for _, r := range v {
		wg.Send(r)
	}
	return wg.Wait()
}

func APIRequestTracerFromContext(ctx context.Context) (trace.Tracer, bool) {
	tracer, found := ctx.Value(apiRequestTracerCtxKey).(trace.Tracer)
	return tracer, found
}

// NewAPIRequest wraps one or more Sendable values (HTTPRequest or APIRequest)
// into an envelope that yields the given result value.
func NewAPIRequest[R Result](result R, requests ...Sendable) APIRequest[R] {
	if len(requests) == 0 {
		panic(fmt.Errorf("at least one request must be provided"))
	}
	return &apiRequest[R]{requests: requests, result: result}
}

// NewNoOperationAPIRequest returns an envelope that yields the result without
// sending anything, for code paths where no call is needed.
func NewNoOperationAPIRequest[R Result](result R) APIRequest[R] {
	return &apiRequest[R]{result: result}
}

type apiRequest[R Result] struct {
	requests []Sendable
	before   []func(ctx context.Context) error
	after    []func(ctx context.Context, result R, err error) error
	result   R
}

func (r apiRequest[R]) WithBefore(fn func(ctx context.Context) error) APIRequest[R] {
	r.before = append(r.before, fn)
	return r
}

func (r apiRequest[R]) WithOnComplete(fn func(ctx context.Context, result R, err error) error) APIRequest[R] {
	r.after = append(r.after, fn)
	return r
}

func (r apiRequest[R]) WithOnSuccess(fn func(ctx context.Context, result R) error) APIRequest[R] {
	r.after = append(r.after, func(ctx context.Context, result R, err error) error {
		if err == nil {
			err = fn(ctx, result)
		}
		return err
	})
	return r
}

func (r apiRequest[R]) WithOnError(fn func(ctx context.Context, err error) error) APIRequest[R] {
	r.after = append(r.after, func(ctx context.Context, result R, err error) error {
		if err != nil {
			err = fn(ctx, err)
		}
		return err
	})
	return r
}

func (r apiRequest[R]) Send(ctx context.Context) (result R, err error) {
	ctx, span := r.startSpan(ctx)
	if span != nil {
		defer func() {
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			span.End()
		}()
	}

	if err := ctx.Err(); err != nil {
		return r.result, err
	}

	for _, fn := range r.before {
		if err := fn(ctx); err != nil {
			return r.result, err
		}
	}

	if err := ctx.Err(); err != nil {
		return r.result, err
	}

	// Underlying requests run concurrently
	wg := NewWaitGroup(ctx)
	for _, request := range r.requests {
		wg.Send(request)
	}
	err = wg.Wait()

	// Listeners may inspect, replace or clear the error
	for _, fn := range r.after {
		if err := ctx.Err(); err != nil {
			return r.result, err
		}
		err = fn(ctx, r.result, err)
	}

	return r.result, err
}

func (r apiRequest[R]) SendOrErr(ctx context.Context) error {
	_, err := r.Send(ctx)
	return err
}

// startSpan opens the API-level span when the first underlying request has a tracer attached.
func (r apiRequest[R]) startSpan(ctx context.Context) (context.Context, trace.Span) {
	if len(r.requests) == 0 {
		return ctx, nil
	}
	tp, ok := r.requests[0].(withTracer)
	if !ok {
		return ctx, nil
	}
	tracer := tp.Tracer()
	if tracer == nil {
		return ctx, nil
	}

	var resultType string
	if v := reflect.TypeOf(r.result); v != nil {
		resultType = v.String()
	}

	ctx, span := tracer.Start(
		ctx,
		APIRequestSpanName,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String(attrSpanKind, attrSpanKindValueClient),
			attribute.String(attrSpanType, attrSpanTypeValueHTTP),
			attribute.Int("api.requests_count", len(r.requests)),
			attribute.String("api.result_type", resultType),
		),
	)
	return context.WithValue(ctx, apiRequestTracerCtxKey, tracer), span
}
