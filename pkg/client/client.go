// Package client provides the default HTTP implementation of the request.Sender interface.
//
// Client is based on the standard net/http package and contains
// retry, circuit breaker and tracing/telemetry support.
// It is easy to implement a custom HTTP client, by implementing the request.Sender interface.
//
// Requests are defined by the request package, either manually,
// or declaratively from tagged definition structs, see the bind package.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptrace"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/oauth2"

	"github.com/declarest/go-client/pkg/client/counter"
	"github.com/declarest/go-client/pkg/client/decode"
	"github.com/declarest/go-client/pkg/client/trace"
	"github.com/declarest/go-client/pkg/jsonstream"
	"github.com/declarest/go-client/pkg/request"

	otelTrace "go.opentelemetry.io/otel/trace"
)

// Client is a default and configurable implementation of the request.Sender interface by Go native http.Client.
// It supports retry, circuit breaker and tracing/telemetry.
type Client struct {
	transport   http.RoundTripper
	baseURL     *url.URL
	header      http.Header
	retry       RetryConfig
	traces      []trace.Factory
	tracer      otelTrace.Tracer
	breaker     *gobreaker.CircuitBreaker[*http.Response]
	tokenSource oauth2.TokenSource
}

// New creates new HTTP Client.
func New() Client {
	c := Client{transport: DefaultTransport(), header: make(http.Header), retry: DefaultRetry()}
	c.header.Set("User-Agent", "declarest-go-client")
	c.header.Set("Accept-Encoding", "gzip, br")
	return c
}

// WithBaseURL returns a clone of the Client with base url set.
func (c Client) WithBaseURL(baseURLStr string) Client {
	baseURL, err := url.Parse(baseURLStr)
	if err != nil {
		panic(fmt.Errorf(`base url "%s" is not valid: %w`, baseURLStr, err))
	}
	// Normalize base URL, so url.ResolveReference will work as expected
	baseURL.Path = strings.TrimRight(baseURL.Path, "/") + "/"
	c.baseURL = baseURL
	return c
}

// WithUserAgent returns a clone of the Client with user agent set.
func (c Client) WithUserAgent(v string) Client {
	c.header = c.header.Clone()
	c.header.Set("User-Agent", v)
	return c
}

// WithHeader returns a clone of the Client with common header set.
func (c Client) WithHeader(key, value string) Client {
	c.header = c.header.Clone()
	c.header.Set(key, value)
	return c
}

// WithHeaders returns a clone of the Client with common headers set.
func (c Client) WithHeaders(headers map[string]string) Client {
	c.header = c.header.Clone()
	for k, v := range headers {
		c.header.Set(k, v)
	}
	return c
}

// WithTransport returns a clone of the Client with a HTTP transport set.
func (c Client) WithTransport(transport http.RoundTripper) Client {
	if transport == nil || transport == http.RoundTripper(nil) {
		panic(fmt.Errorf("transport cannot be nil"))
	}
	c.transport = transport
	return c
}

// WithRetry returns a clone of the Client with retry config set.
func (c Client) WithRetry(retry RetryConfig) Client {
	c.retry = retry
	return c
}

// AndTrace returns a clone of the Client with the trace hooks factory added.
// Hooks from all registered factories are composed, in registration order.
func (c Client) AndTrace(fn trace.Factory) Client {
	c.traces = append(c.traces[:len(c.traces):len(c.traces)], fn)
	return c
}

// WithTracerProvider returns a clone of the Client with the tracer for API request spans set.
func (c Client) WithTracerProvider(tp otelTrace.TracerProvider) Client {
	c.tracer = tp.Tracer("github.com/declarest/go-client")
	return c
}

// WithBreaker returns a clone of the Client with the circuit breaker set.
// The breaker wraps each HTTP request attempt, including retries.
func (c Client) WithBreaker(breaker *gobreaker.CircuitBreaker[*http.Response]) Client {
	c.breaker = breaker
	return c
}

// WithTokenSource returns a clone of the Client with the OAuth2 token source set.
// A fresh token is applied to the Authorization header of each request.
func (c Client) WithTokenSource(ts oauth2.TokenSource) Client {
	c.tokenSource = ts
	return c
}

// Tracer returns the tracer for API request spans, if set, see WithTracerProvider.
func (c Client) Tracer() otelTrace.Tracer {
	return c.tracer
}

// Send method sends HTTP request and returns HTTP response, it implements the request.Sender interface.
func (c Client) Send(ctx context.Context, reqDef request.HTTPRequest) (res *http.Response, result any, err error) {
	// Method cannot be called on an empty value
	if c.transport == nil {
		panic(fmt.Errorf("client value is not initialized"))
	}

	// If method or url is not set, panic occurs. So we get these values first.
	method := reqDef.Method()
	reqURL := urlFromDefinition(c.baseURL, reqDef)

	// Init trace hooks, compose hooks from all factories
	var tc *trace.ClientTrace
	for _, fn := range c.traces {
		var t *trace.ClientTrace
		ctx, t = fn(ctx, reqDef)
		if t != nil {
			t.Compose(tc)
			tc = t
		}
	}
	if tc != nil {
		ctx = httptrace.WithClientTrace(ctx, &tc.ClientTrace)
	}

	// Create request
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), nil)
	if err != nil {
		return nil, nil, err
	}

	// Global headers
	for k, values := range c.header {
		for _, v := range values {
			req.Header.Set(k, v)
		}
	}

	// Request headers
	for k, values := range reqDef.RequestHeader() {
		req.Header.Del(k) // clear global values
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}

	// Cookies
	for _, cookie := range reqDef.Cookies() {
		req.AddCookie(cookie)
	}

	// Basic authentication
	if username, password, set := reqDef.BasicAuth(); set {
		req.SetBasicAuth(username, password)
	}

	// OAuth2 token
	if c.tokenSource != nil {
		token, err := c.tokenSource.Token()
		if err != nil {
			return nil, nil, fmt.Errorf(`request %s "%s": cannot get token: %w`, method, req.URL.String(), err)
		}
		token.SetAuthHeader(req)
	}

	// Body
	if body := reqDef.RequestBody(); body != nil {
		// A non-seekable stream can be read only once,
		// buffer it so redirects and retries can replay the bytes.
		if v, ok := oneShotReader(body); ok {
			buffered, err := io.ReadAll(v)
			if err != nil {
				return nil, nil, fmt.Errorf(`request %s "%s": cannot read request body stream: %w`, method, req.URL.String(), err)
			}
			if closer, ok := v.(io.Closer); ok {
				_ = closer.Close()
			}
			reqDef = reqDef.WithBody(buffered)
		}

		// GetBody factory is used for requests when a redirect/retry requires reading the body more than once.
		req.GetBody = func() (io.ReadCloser, error) {
			if body, err := requestBody(reqDef); err == nil {
				return body, nil
			} else {
				return nil, fmt.Errorf(`request %s "%s": cannot prepare request body: %w`, req.Method, req.URL.String(), err)
			}
		}
		req.Body, err = req.GetBody()
		if err != nil {
			return nil, nil, err
		}
	}

	// Setup native client
	nativeClient := http.Client{
		Timeout: c.retry.TotalRequestTimeout,
		// wrapped transport for trace/retry/breaker
		Transport: roundTripper{retry: c.retry, trace: tc, breaker: c.breaker, wrapped: c.transport},
	}

	// Send request
	startedAt := time.Now()
	res, err = nativeClient.Do(req)

	// Trace request processed
	if tc != nil && tc.RequestProcessed != nil {
		defer func() {
			tc.RequestProcessed(result, err)
		}()
	}

	// Handle send error
	if err != nil {
		return nil, nil, handleSendError(startedAt, c.retry.TotalRequestTimeout, req, err)
	}

	// Process body
	if r, e, unexpectedErr := handleResponseBody(res, reqDef.ResultDef(), reqDef.ErrorDef(), tc); unexpectedErr == nil {
		// No unexpected error, set result/error result
		result, err = r, e
	} else {
		// Unexpected error
		err = fmt.Errorf(`cannot process request %s "%s": %w`, req.Method, req.URL.String(), unexpectedErr)
	}

	// Generic HTTP error
	if err == nil && res.StatusCode > 399 {
		return res, nil, fmt.Errorf(`request %s "%s" failed: %d %s`, req.Method, req.URL.String(), res.StatusCode, http.StatusText(res.StatusCode))
	}

	return res, result, err
}

// urlFromDefinition resolves the absolute request URL:
// path parameters are replaced by the defined values, each placeholder once,
// relative URL is resolved against the base URL,
// and query parameters are encoded.
func urlFromDefinition(baseURL *url.URL, reqDef request.HTTPRequest) *url.URL {
	reqURLStr := reqDef.URL().String()

	// Replace path parameters
	for k, v := range reqDef.PathParams() {
		reqURLStr = strings.ReplaceAll(reqURLStr, url.PathEscape("{"+k+"}"), url.PathEscape(v))
	}

	// Convert to absolute url
	reqURL, err := url.Parse(reqURLStr)
	if err != nil {
		panic(fmt.Errorf(`url "%s" is not valid: %w`, reqURLStr, err))
	}
	if baseURL != nil && !reqURL.IsAbs() {
		reqURL.Path = strings.TrimLeft(reqURL.Path, "/")
		reqURL = baseURL.ResolveReference(reqURL)
	}

	// Set query parameters
	reqURL.RawQuery = reqDef.QueryParams().Encode()
	return reqURL
}

// oneShotReader reports whether the body is a stream that cannot be replayed.
// Every other body type is re-created by requestBody on each call.
func oneShotReader(body any) (io.Reader, bool) {
	switch body.(type) {
	case string, []byte, *request.MultipartBody, io.ReadSeeker:
		return nil, false
	}
	v, ok := body.(io.Reader)
	return v, ok
}

func requestBody(r request.HTTPRequest) (io.ReadCloser, error) {
	contentType := r.RequestHeader().Get("Content-Type")
	body := r.RequestBody()
	if v, ok := body.(string); ok {
		return io.NopCloser(strings.NewReader(v)), nil
	}
	if v, ok := body.([]byte); ok {
		return io.NopCloser(bytes.NewReader(v)), nil
	}
	if v, ok := body.(*request.MultipartBody); ok {
		// Multipart form, a fresh reader for each call
		return v.Encode()
	}
	if v, ok := body.(io.ReadSeekCloser); ok {
		// io.ReadSeekCloser stream
		if _, err := v.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
		return v, nil
	}
	if v, ok := body.(io.ReadSeeker); ok {
		// io.ReadSeeker stream
		if _, err := v.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
		return io.NopCloser(v), nil
	}
	if body != nil && isJSONContentType(contentType) {
		// Json body
		c, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf(`cannot encode JSON body: %w`, err)
		}
		return io.NopCloser(bytes.NewReader(c)), nil
	}
	// empty body
	return nil, nil
}

func handleResponseBody(r *http.Response, resultDef any, errDef error, tc *trace.ClientTrace) (result any, err error, unexpectedErr error) {
	// Count bytes read from the connection, the raw body before the content decoding
	rawBody := counter.NewReadCloser(r.Body, nil)
	r.Body = rawBody
	defer r.Body.Close()

	if tc != nil && tc.BodyParseStart != nil {
		tc.BodyParseStart(r)
	}
	if tc != nil && tc.BodyParseDone != nil {
		defer func() {
			tc.BodyParseDone(r, result, rawBody.Bytes(), unexpectedErr)
		}()
	}

	if r.StatusCode == http.StatusNoContent {
		return nil, nil, nil
	}

	// Process content encoding
	body, decodeErr := decode.Decode(r.Body, r.Header.Get("Content-Encoding"))
	if decodeErr != nil {
		return nil, nil, decodeErr
	}
	r.Body = body

	// Process content type
	contentType := r.Header.Get("Content-Type")
	switch v := resultDef.(type) {
	case *[]byte:
		// Load response body as []byte
		bodyBytes, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, nil, fmt.Errorf(`cannot read response body: %w`, err)
		}
		*v = bodyBytes
		return v, nil, nil
	case *string:
		// Load response body as string
		bodyBytes, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, nil, fmt.Errorf(`cannot read response body: %w`, err)
		}
		*v = string(bodyBytes)
		return v, nil, nil
	case io.WriteCloser:
		// Stream response to io.WriteCloser
		if _, err := io.Copy(v, r.Body); err != nil {
			return nil, nil, fmt.Errorf(`cannot read response body: %w`, err)
		}
		if err := v.Close(); err != nil {
			return nil, nil, fmt.Errorf(`cannot read response body: %w`, err)
		}
		return nil, nil, nil
	case io.Writer:
		// Stream response to io.Writer
		if _, err := io.Copy(v, r.Body); err != nil {
			return nil, nil, fmt.Errorf(`cannot read response body: %w`, err)
		}
		return nil, nil, nil
	}

	if isJSONContentType(contentType) {
		// Map JSON response
		if r.StatusCode > 199 && r.StatusCode < 300 && resultDef != nil {
			// Map JSON response to defined result, as a stream if the result supports it
			if v, ok := resultDef.(jsonstream.Unmarshaler); ok {
				if err := v.UnmarshalJSONStream(jsonstream.NewDecoder(r.Body)); err != nil {
					return nil, nil, fmt.Errorf(`cannot decode JSON result stream: %w`, err)
				}
				return resultDef, nil, nil
			}
			if err := json.NewDecoder(r.Body).Decode(resultDef); err != nil {
				return nil, nil, fmt.Errorf(`cannot decode JSON result: %w`, err)
			}
			return resultDef, nil, nil
		} else if r.StatusCode > 399 && errDef != nil {
			// Map JSON response to defined error
			if err := json.NewDecoder(r.Body).Decode(errDef); err != nil {
				return nil, nil, fmt.Errorf(`cannot decode JSON error: %w`, err)
			}
			// Set HTTP request
			if v, ok := errDef.(errorWithRequest); ok {
				v.SetRequest(r.Request)
			}
			// Set HTTP response
			if v, ok := errDef.(errorWithResponse); ok {
				v.SetResponse(r)
			}
			return nil, errDef, nil
		}
	}
	return nil, nil, nil
}

func handleSendError(startedAt time.Time, clientTimeout time.Duration, req *http.Request, err error) error {
	// Timeout
	var netErr net.Error
	if deadline, ok := req.Context().Deadline(); ok && errors.Is(err, context.DeadlineExceeded) {
		err = urlError(req, fmt.Errorf("timeout after %s", deadline.Sub(startedAt)))
	} else if errors.Is(err, context.Canceled) {
		err = urlError(req, fmt.Errorf("canceled after %s", time.Since(startedAt)))
	} else if errors.As(err, &netErr) && netErr.Timeout() {
		if strings.Contains(err.Error(), "Client.Timeout exceeded") {
			err = urlError(req, fmt.Errorf("timeout after %s", clientTimeout))
		} else {
			err = urlError(req, fmt.Errorf("timeout after %s", time.Since(startedAt)))
		}
	}

	// Url error
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = fmt.Errorf(`request %s "%s" failed: %w`, strings.ToUpper(urlErr.Op), urlErr.URL, urlErr.Err)
	}

	return err
}

// roundTripper wraps a http.RoundTripper and adds trace, retry and circuit breaker functionality.
type roundTripper struct {
	trace   *trace.ClientTrace
	retry   RetryConfig
	breaker *gobreaker.CircuitBreaker[*http.Response]
	wrapped http.RoundTripper
}

func (rt roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	state := rt.retry.NewBackoff()
	attempt := 0
	for {
		// Count sent request body bytes
		var sentBytes *counter.ReadCloser
		if req.Body != nil {
			sentBytes = counter.NewReadCloser(req.Body, nil)
			req.Body = sentBytes
		}

		// Trace request start
		if rt.trace != nil && rt.trace.HTTPRequestStart != nil {
			rt.trace.HTTPRequestStart(req)
		}

		// Send
		res, err := rt.send(req)

		// Trace request done
		if rt.trace != nil && rt.trace.HTTPRequestDone != nil {
			var sent int64
			if sentBytes != nil {
				sent = sentBytes.Bytes()
			}
			rt.trace.HTTPRequestDone(res, sent, err)
		}

		// Check if we should retry
		if rt.retry.Condition == nil || !rt.retry.Condition(res, err) || attempt >= rt.retry.Count {
			// No retry
			return res, err
		}

		// Get next delay
		delay := state.NextBackOff()
		if delay == backoff.Stop {
			// Stop
			return res, err
		}

		// Trace retry
		attempt++
		if rt.trace != nil && rt.trace.RetryDelay != nil {
			rt.trace.RetryDelay(attempt, delay)
		}

		// Rewind body before retry
		if req.GetBody != nil {
			req.Body, err = req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("cannot rewind body: %w", err)
			}
		}

		// Wait
		select {
		case <-req.Context().Done():
			// context is canceled
			return nil, req.Context().Err()
		case <-time.NewTimer(delay).C:
			// time elapsed, retry
		}
	}
}

func (rt roundTripper) send(req *http.Request) (*http.Response, error) {
	if rt.breaker != nil {
		return rt.breaker.Execute(func() (*http.Response, error) {
			return rt.wrapped.RoundTrip(req)
		})
	}
	return rt.wrapped.RoundTrip(req)
}

type errorWithRequest interface {
	error
	SetRequest(request *http.Request)
}

type errorWithResponse interface {
	error
	SetResponse(response *http.Response)
}

func urlError(req *http.Request, err error) *url.Error {
	return &url.Error{Op: req.Method, URL: req.URL.String(), Err: err}
}
