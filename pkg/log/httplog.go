package log

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Logger returns chi middleware that logs completed requests through the
// given zap logger. The agent's debug endpoint is the only HTTP surface, so
// health probes are demoted to debug level to keep the log readable.
func Logger(l *zap.Logger, name string) func(next http.Handler) http.Handler {
	if l == nil {
		panic("log.Logger received a nil *zap.Logger")
	}

	logger := l.WithOptions(zap.AddCallerSkip(1)).Named(name)

	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			defer func() {
				fields := []zap.Field{
					zap.String("request_id", middleware.GetReqID(r.Context())),
					zap.String("http_method", r.Method),
					zap.String("http_path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
					zap.Int("http_status_code", ww.Status()),
					zap.Int64("response_bytes", int64(ww.BytesWritten())),
					zap.Duration("latency", time.Since(start)),
				}

				switch {
				case ww.Status() >= 500:
					logger.Error(r.URL.Path, fields...)
				case ww.Status() >= 400:
					logger.Warn(r.URL.Path, fields...)
				case isHealthCheck(r.Method, r.URL.Path):
					logger.Debug(r.URL.Path, fields...)
				default:
					logger.Info(r.URL.Path, fields...)
				}
			}()

			next.ServeHTTP(ww, r)
		}
		return http.HandlerFunc(fn)
	}
}

func isHealthCheck(method string, path string) bool {
	return method == http.MethodGet && path == "/health"
}
