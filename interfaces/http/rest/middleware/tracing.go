package middleware

import (
	"fmt"
	"net/http"

	"chatter/pkg/observability"

	"github.com/go-chi/chi/v5/middleware"
)

// Tracing opens an X-Ray segment per request. It is a pass-through when
// tracing is disabled.
func Tracing(tracer *observability.Tracer) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if tracer == nil || !tracer.Enabled() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, seg := tracer.StartSegment(r.Context(), r.Method)
			tracer.AddAnnotation(ctx, "path", r.URL.Path)
			if id := middleware.GetReqID(ctx); id != "" {
				tracer.AddAnnotation(ctx, "request_id", id)
			}

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			var err error
			if ww.Status() >= http.StatusInternalServerError {
				err = fmt.Errorf("http status %d", ww.Status())
			}
			seg.Close(err)
		})
	}
}
