package router

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"blog-entries-service/handlers"
	"blog-entries-service/services"
)

func NewRouter(store services.BlogStore) *mux.Router {
	r := mux.NewRouter()
	r.Use(requestID, instrument)

	entries := r.PathPrefix("/entries").Subrouter()
	entries.HandleFunc("/searchid/{id}", handlers.FindByID(store)).Methods(http.MethodGet)
	entries.HandleFunc("/searchuser/{user}", handlers.SearchUser(store)).Methods(http.MethodGet)
	entries.HandleFunc("/new/{id}", handlers.NewEntry(store)).Methods(http.MethodPut)

	r.HandleFunc("/ready", handlers.Ready(store)).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.InstrumentMetricHandler(
		prometheus.DefaultRegisterer,
		promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
			DisableCompression: true,
		}),
	)).Methods(http.MethodGet)

	return r
}
