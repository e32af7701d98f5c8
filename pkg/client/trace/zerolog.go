package trace

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/declarest/go-client/pkg/request"
)

// ZerologTracer emits a structured zerolog event for each stage of an outgoing request.
// It is a structured alternative to the LogTracer.
func ZerologTracer(logger zerolog.Logger) Factory {
	var idGenerator uint64
	return func(ctx context.Context, reqDef request.HTTPRequest) (context.Context, *ClientTrace) {
		requestID := atomic.AddUint64(&idGenerator, 1)
		log := logger.With().
			Uint64("requestId", requestID).
			Str("method", reqDef.Method()).
			Str("url", reqDef.URL().String()).
			Logger()

		var startTime time.Time
		var doneTime time.Time

		t := &ClientTrace{}
		t.HTTPRequestStart = func(r *http.Request) {
			startTime = time.Now()
			log.Debug().Msg("request started")
		}
		t.HTTPRequestDone = func(r *http.Response, sent int64, err error) {
			doneTime = time.Now()
			e := log.Debug().Int64("sentBytes", sent).Dur("elapsed", doneTime.Sub(startTime))
			if err != nil {
				e = e.Err(err)
			} else {
				e = e.Int("statusCode", r.StatusCode)
			}
			e.Msg("request done")
		}
		t.RetryDelay = func(attempt int, delay time.Duration) {
			log.Warn().Int("attempt", attempt).Dur("delay", delay).Msg("request retry")
		}
		t.BodyParseDone = func(r *http.Response, result any, received int64, parseError error) {
			e := log.Debug().Int64("receivedBytes", received)
			if parseError != nil {
				e = e.Err(parseError)
			}
			e.Msg("response body parsed")
		}
		t.RequestProcessed = func(result any, err error) {
			e := log.Debug().Dur("elapsed", time.Since(startTime))
			if err != nil {
				e = log.Error().Dur("elapsed", time.Since(startTime)).Err(err)
			}
			e.Msg("request processed")
		}
		return ctx, t
	}
}
