package handlers

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"socialnet/internal/metrics"
)

// WithRecover wraps an http.Handler and recovers from panics. It answers
// HTTP 500 unless the handler already started its response.
func WithRecover(next http.Handler, log *logrus.Entry) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		defer func() {
			if p := recover(); p != nil {
				log.WithFields(logrus.Fields{
					"method":  r.Method,
					"path":    r.URL.Path,
					"started": rec.wrote,
				}).Errorf("[recover] %v", p)
				if !rec.wrote {
					writeError(rec, http.StatusInternalServerError, "Internal Server Error")
				}
			}
		}()
		next.ServeHTTP(rec, r)
	})
}

// statusRecorder remembers the status code and whether anything was sent.
type statusRecorder struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.wrote {
		return
	}
	s.status = code
	s.wrote = true
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	s.wrote = true
	return s.ResponseWriter.Write(b)
}

// WithLogging logs every request and records its latency.
func WithLogging(next http.Handler, log *logrus.Entry, latency *metrics.Latency) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		elapsed := time.Since(start)
		latency.Record(elapsed)
		log.WithFields(logrus.Fields{
			"method":  r.Method,
			"path":    r.URL.Path,
			"status":  rec.status,
			"elapsed": elapsed,
		}).Info("request")
	})
}
