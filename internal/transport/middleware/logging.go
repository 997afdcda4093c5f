package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/middleware"

	"github.com/frahmantamala/freelance-payments/pkg/logger"
)

const (
	maxLoggedBody = 4 << 10
	filtered      = "[FILTERED]"
)

// maskedNames matches header and JSON field names by substring. Besides
// credentials it covers the customer data Razorpay embeds in payment entities.
var maskedNames = []string{
	"password",
	"token",
	"authorization",
	"secret",
	"key",
	"session",
	"credential",
	"auth",
	"signature",
	"email",
	"contact",
	"card",
	"vpa",
	"bank",
}

func isMasked(name string) bool {
	lower := strings.ToLower(name)
	for _, m := range maskedNames {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

type loggingOptions struct {
	omitBody map[string]bool
}

type LoggingOption func(*loggingOptions)

// OmitBody logs only the size of request and response bodies on paths whose
// payload must not be read before the handler authenticates it.
func OmitBody(paths ...string) LoggingOption {
	return func(o *loggingOptions) {
		for _, p := range paths {
			o.omitBody[p] = true
		}
	}
}

// LoggingMiddleware logs each request and its response with masked fields.
// At most maxLoggedBody bytes of either body are buffered; the handler still
// reads the full request body.
func LoggingMiddleware(log *slog.Logger, opts ...LoggingOption) func(next http.Handler) http.Handler {
	o := loggingOptions{omitBody: map[string]bool{}}
	for _, opt := range opts {
		opt(&o)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			attrs := []any{
				"request_id", middleware.GetReqID(r.Context()),
				"trace_id", logger.TraceID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
			}
			omit := o.omitBody[r.URL.Path]

			reqAttrs := append(attrs,
				"query", r.URL.RawQuery,
				"remote_addr", r.RemoteAddr,
				"user_agent", r.UserAgent(),
				"headers", maskHeaders(r.Header),
			)
			if omit {
				reqAttrs = append(reqAttrs, "body_size", r.ContentLength)
			} else {
				reqAttrs = append(reqAttrs, "body", maskBody(peekBody(r)))
			}
			log.InfoContext(r.Context(), "incoming request", reqAttrs...)

			rw := &recordingWriter{ResponseWriter: w, status: http.StatusOK, discard: omit}
			next.ServeHTTP(rw, r)

			level := slog.LevelInfo
			switch {
			case rw.status >= http.StatusInternalServerError:
				level = slog.LevelError
			case rw.status >= http.StatusBadRequest:
				level = slog.LevelWarn
			}

			respAttrs := append(attrs,
				"status_code", rw.status,
				"duration_ms", time.Since(start).Milliseconds(),
				"response_size", rw.size,
			)
			if !omit {
				respAttrs = append(respAttrs, "body", maskBody(rw.head.Bytes()))
			}
			log.Log(r.Context(), level, "response", respAttrs...)
		})
	}
}

// peekBody returns up to maxLoggedBody+1 bytes of the request body and puts
// them back in front of the unread remainder.
func peekBody(r *http.Request) []byte {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	head, _ := io.ReadAll(io.LimitReader(r.Body, maxLoggedBody+1))
	r.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(head), r.Body), r.Body}
	return head
}

type recordingWriter struct {
	http.ResponseWriter
	status      int
	size        int
	wroteHeader bool
	discard     bool
	head        bytes.Buffer
}

func (rw *recordingWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.status = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *recordingWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	if room := maxLoggedBody + 1 - rw.head.Len(); room > 0 && !rw.discard {
		rw.head.Write(b[:min(room, len(b))])
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.size += n
	return n, err
}

func (rw *recordingWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

func maskHeaders(headers http.Header) map[string]string {
	out := make(map[string]string, len(headers))
	for name, values := range headers {
		if isMasked(name) {
			out[name] = filtered
			continue
		}
		out[name] = strings.Join(values, ", ")
	}
	return out
}

func maskBody(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	if len(body) > maxLoggedBody {
		return "[TRUNCATED]"
	}

	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		// Opaque bodies are only logged when nothing in them looks sensitive
		if isMasked(string(body)) {
			return filtered
		}
		return string(body)
	}

	masked, err := json.Marshal(maskJSON(data))
	if err != nil {
		return filtered
	}
	return string(masked)
}

func maskJSON(data any) any {
	switch v := data.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, value := range v {
			if isMasked(key) {
				out[key] = filtered
				continue
			}
			out[key] = maskJSON(value)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = maskJSON(item)
		}
		return out
	}
	return data
}
