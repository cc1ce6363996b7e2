package middleware

import (
	"net/http"
	"runtime/debug"

	"fakestore-offline/pkg/apierror"

	log "github.com/sirupsen/logrus"
)

// Recovery is a middleware that recovers from panics.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.WithFields(log.Fields{
					"component":  "Recovery",
					"path":       r.URL.Path,
					"request_id": GetRequestID(r.Context()),
				}).Errorf("PANIC: %v\n%s", err, debug.Stack())

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				w.Write(apierror.InternalError("internal server error").ToJSON())
			}
		}()

		next.ServeHTTP(w, r)
	})
}
