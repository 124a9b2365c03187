package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/s3m-esports/standings/pkg/metrics"
)

// streamSuffix marks endpoints whose requests last as long as the viewer stays.
const streamSuffix = "_stream"

// MetricsMiddleware records request counts, latency and error codes per
// endpoint. Stream endpoints are counted but kept out of the latency
// histogram.
func MetricsMiddleware(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	streaming := strings.HasSuffix(endpoint, streamSuffix)
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next(rec, r)

		status := strconv.Itoa(rec.status)
		metrics.RecordHTTPRequest(endpoint, r.Method, status)
		if !streaming {
			metrics.RecordHTTPRequestDuration(endpoint, r.Method, status, metrics.Since(start))
		}
		if rec.status < http.StatusBadRequest {
			return
		}

		code := rec.code
		if code == "" {
			_, code = classifyStatus(rec.status)
		}
		metrics.RecordErrorByEndpoint(endpoint, r.Method, code)
		metrics.RecordErrorByType(code, severity(rec.status))
		metrics.RecordErrorLatency("http", code, metrics.Since(start))
	}
}

// severity ranks failures for alerting: our faults are high, callers' medium.
func severity(status int) string {
	if status >= http.StatusInternalServerError {
		return "high"
	}
	return "medium"
}

// statusRecorder remembers the status and error code a handler wrote.
type statusRecorder struct {
	http.ResponseWriter
	status int
	code   string
}

// Unwrap lets http.ResponseController reach Flush and SetWriteDeadline.
func (rw *statusRecorder) Unwrap() http.ResponseWriter { return rw.ResponseWriter }

func (rw *statusRecorder) WriteHeader(status int) {
	rw.status = status
	rw.ResponseWriter.WriteHeader(status)
}

// noteErrorCode tags the response with its error code so metrics use the
// same vocabulary as the JSON body.
func noteErrorCode(w http.ResponseWriter, code string) {
	for {
		switch v := w.(type) {
		case *statusRecorder:
			v.code = code
			return
		case interface{ Unwrap() http.ResponseWriter }:
			w = v.Unwrap()
		default:
			return
		}
	}
}
