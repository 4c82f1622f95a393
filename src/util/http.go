package util

import (
	"net/http"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"songshelf/src/metrics"
)

// LogHandler provides middleware that logs all requests and response codes
// using logrus and records them as metrics.
func LogHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rwi := &rwInterceptor{ResponseWriter: w}
		next.ServeHTTP(rwi, r)
		code := rwi.statusCode
		if code == 0 {
			code = http.StatusOK
		}
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, strconv.Itoa(code)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())

		entry := log.WithField("duration", time.Since(start))
		if code >= 500 {
			entry.Errorf("%s %s -> %d", r.Method, r.URL.Path, code)
		} else if code >= 400 {
			entry.Warnf("%s %s -> %d", r.Method, r.URL.Path, code)
		} else {
			entry.Debugf("%s %s -> %d", r.Method, r.URL.Path, code)
		}
	})
}

type rwInterceptor struct {
	http.ResponseWriter
	statusCode int
}

func (rwi *rwInterceptor) WriteHeader(code int) {
	rwi.statusCode = code
	rwi.ResponseWriter.WriteHeader(code)
}

func (rwi *rwInterceptor) Write(b []byte) (int, error) {
	if rwi.statusCode == 0 {
		rwi.WriteHeader(http.StatusOK)
	}
	return rwi.ResponseWriter.Write(b)
}

// Flush lets event streams pass through the interceptor.
func (rwi *rwInterceptor) Flush() {
	if f, ok := rwi.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
