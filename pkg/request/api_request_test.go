package request_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/declarest/go-client/pkg/client"
	"github.com/declarest/go-client/pkg/request"
)

type job struct {
	ID     int    `json:"id"`
	Status string `json:"status"`
}

func TestAPIRequest_Send(t *testing.T) {
	t.Parallel()
	c, transport := client.NewMockedClient()
	c = c.WithBaseURL("https://example.com")
	transport.RegisterResponder(
		"GET", "https://example.com/job/1",
		httpmock.NewJsonResponderOrPanic(200, map[string]any{"id": 1, "status": "success"}),
	)

	result := &job{}
	var callsOrder []string
	apiReq := request.
		NewAPIRequest(result, request.NewHTTPRequest(c).WithGet("/job/1").WithResult(result)).
		WithBefore(func(ctx context.Context) error {
			callsOrder = append(callsOrder, "before")
			return nil
		}).
		WithOnSuccess(func(ctx context.Context, result *job) error {
			callsOrder = append(callsOrder, "success")
			return nil
		}).
		WithOnError(func(ctx context.Context, err error) error {
			callsOrder = append(callsOrder, "error")
			return err
		}).
		WithOnComplete(func(ctx context.Context, result *job, err error) error {
			callsOrder = append(callsOrder, "complete")
			return err
		})

	out, err := apiReq.Send(context.Background())
	require.NoError(t, err)
	assert.Same(t, result, out)
	assert.Equal(t, &job{ID: 1, Status: "success"}, out)
	assert.Equal(t, []string{"before", "success", "complete"}, callsOrder)
}

func TestAPIRequest_Send_Error(t *testing.T) {
	t.Parallel()
	c, transport := client.NewMockedClient()
	c = c.WithBaseURL("https://example.com")
	transport.RegisterResponder("GET", "https://example.com/job/1", httpmock.NewStringResponder(500, "error"))

	handled := errors.New("handled error")
	result := &job{}
	apiReq := request.
		NewAPIRequest(result, request.NewHTTPRequest(c).WithGet("/job/1").WithResult(result)).
		WithOnError(func(ctx context.Context, err error) error {
			return handled
		})

	_, err := apiReq.Send(context.Background())
	assert.Same(t, handled, err)
}

func TestAPIRequest_Send_BeforeStopsRequest(t *testing.T) {
	t.Parallel()
	c, transport := client.NewMockedClient()
	c = c.WithBaseURL("https://example.com")

	stop := errors.New("stop")
	result := &job{}
	apiReq := request.
		NewAPIRequest(result, request.NewHTTPRequest(c).WithGet("/job/1").WithResult(result)).
		WithBefore(func(ctx context.Context) error {
			return stop
		})

	_, err := apiReq.Send(context.Background())
	assert.Same(t, stop, err)
	assert.Equal(t, 0, transport.GetTotalCallCount())
}

func TestNoOperationAPIRequest(t *testing.T) {
	t.Parallel()
	result := &job{ID: 123}
	out, err := request.NewNoOperationAPIRequest(result).Send(context.Background())
	require.NoError(t, err)
	assert.Same(t, result, out)
}

func TestParallelAPIRequests(t *testing.T) {
	t.Parallel()
	c, transport := client.NewMockedClient()
	c = c.WithBaseURL("https://example.com")
	transport.RegisterResponder("GET", `=~^https://example.com/`, httpmock.NewStringResponder(200, "OK"))

	parallel := request.Parallel(
		request.NewHTTPRequest(c).WithGet("/foo1"),
		request.NewHTTPRequest(c).WithGet("/foo2"),
		request.NewHTTPRequest(c).WithGet("/foo3"),
	)
	require.NoError(t, parallel.SendOrErr(context.Background()))
	assert.Equal(t, 3, transport.GetTotalCallCount())
}
