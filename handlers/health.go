package handlers

import (
	"net/http"

	"blog-entries-service/logger"
	"blog-entries-service/services"
)

func Ready(store services.BlogStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.Ping(r.Context()); err != nil {
			logger.FromContext(r.Context()).WithError(err).Warn("readiness check failed")
			http.Error(w, "elasticsearch not ready: "+err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("OK"))
	}
}
