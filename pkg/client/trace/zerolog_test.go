package trace_test

import (
	"context"
	"strings"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/keboola/go-utils/pkg/wildcards"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/declarest/go-client/pkg/client"
	"github.com/declarest/go-client/pkg/client/trace"
	"github.com/declarest/go-client/pkg/request"
)

func TestZerologTracer(t *testing.T) {
	t.Parallel()

	// Mocked response
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", `https://example.com`, httpmock.NewStringResponder(200, "OK"))

	// Logs for trace testing
	var logs strings.Builder
	logger := zerolog.New(&logs)

	// Create client
	ctx := context.Background()
	c := client.New().
		WithTransport(transport).
		WithRetry(client.TestingRetry()).
		AndTrace(trace.ZerologTracer(logger))

	// Expected events
	expected := `
{"level":"debug","requestId":1,"method":"GET","url":"https://example.com","message":"request started"}
{"level":"debug","requestId":1,"method":"GET","url":"https://example.com","sentBytes":0,"elapsed":%s,"statusCode":200,"message":"request done"}
{"level":"debug","requestId":1,"method":"GET","url":"https://example.com","receivedBytes":2,"message":"response body parsed"}
{"level":"debug","requestId":1,"method":"GET","url":"https://example.com","elapsed":%s,"message":"request processed"}
`

	// Test
	str := ""
	_, result, err := request.NewHTTPRequest(c).WithGet("https://example.com").WithResult(&str).Send(ctx)
	assert.NoError(t, err)
	assert.Equal(t, "OK", *result.(*string))
	wildcards.Assert(t, strings.TrimLeft(expected, "\n"), logs.String())
}
