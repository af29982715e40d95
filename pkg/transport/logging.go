package transport

import (
	"net/http"
	"time"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// InjectLogger returns a middleware that puts lg into the request context.
func InjectLogger(lg *zap.Logger) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			ctx := zctx.Base(req.Context(), lg)
			return next.RoundTrip(req.WithContext(ctx))
		})
	}
}

// LogRequests returns a middleware that logs each request at debug level
// and failures at warn, using the logger from the request context.
func LogRequests() Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			lg := zctx.From(req.Context()).With(
				zap.String("http.method", req.Method),
				zap.String("http.path", req.URL.Path),
			)
			if id := RequestIDFromContext(req.Context()); id != "" {
				lg = lg.With(zap.String("request_id", id))
			}

			start := time.Now()
			resp, err := next.RoundTrip(req)
			took := time.Since(start)

			switch {
			case err != nil:
				lg.Warn("Request failed", zap.Duration("took", took), zap.Error(err))
			case resp.StatusCode >= http.StatusBadRequest:
				lg.Warn("Request returned error status",
					zap.Int("http.status", resp.StatusCode),
					zap.Duration("took", took),
				)
			default:
				lg.Debug("Request",
					zap.Int("http.status", resp.StatusCode),
					zap.Duration("took", took),
				)
			}
			return resp, err
		})
	}
}
