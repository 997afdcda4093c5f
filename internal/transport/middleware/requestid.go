package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/frahmantamala/freelance-payments/pkg/logger"
)

const (
	TraceHeader    = "X-Trace-ID"
	maxTraceIDSize = 128
)

// RequestID tags the request context with a trace id taken from the caller or
// freshly generated, and echoes it back.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get(TraceHeader)
		if traceID == "" || len(traceID) > maxTraceIDSize {
			traceID = uuid.NewString()
		}

		w.Header().Set(TraceHeader, traceID)
		next.ServeHTTP(w, r.WithContext(logger.WithTraceID(r.Context(), traceID)))
	})
}
