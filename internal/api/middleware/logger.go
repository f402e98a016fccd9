package middleware

import (
	"log"
	"net/http"
	"strings"
	"time"
)

// Method and path are caller-controlled; stripping CR/LF keeps every request
// on a single log line.
var stripCRLF = strings.NewReplacer("\n", "", "\r", "").Replace

// Logger logs one line per request: method, path, status and duration.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		//nolint:gosec // G706: method and path pass through stripCRLF above
		log.Printf(
			"%s %s -> %d in %s",
			stripCRLF(r.Method),
			stripCRLF(r.URL.Path),
			rec.status,
			time.Since(start),
		)
	})
}

// statusRecorder captures the status code written by downstream handlers.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
