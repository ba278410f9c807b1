package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"blog-entries-service/logger"
	"blog-entries-service/models"
	"blog-entries-service/services"
)

// UnavailableMessage is the plain text answer of searchid when the index server is down.
const UnavailableMessage = "ElasticSearch server is not available, not started, network issue , ... !"

// NewEntry indexes the Blog in the request body under the id from the path.
func NewEntry(store services.BlogStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())
		log.Info("Add new Blog entry service called !")

		var blog models.Blog
		if err := json.NewDecoder(r.Body).Decode(&blog); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		blog.ID = mux.Vars(r)["id"]

		ack, err := store.Add(r.Context(), blog)
		if err != nil {
			if services.IsNodeUnavailable(err) {
				log.Error("ElasticSearch server is not available - not started, network issue , ... !")
			}
			log.WithError(err).Error("indexing blog failed")
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		log.Infof("Response received : %s", ack.ID)

		writeJSON(w, http.StatusOK, ack)
	}
}

// FindByID answers 400 with a plain text body when the index server cannot be
// reached. A missing document is answered with a JSON null.
func FindByID(store services.BlogStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())
		log.Info("Find By ID Service called !")

		blog, err := store.FindByID(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			if services.IsNodeUnavailable(err) {
				log.WithError(err).Warn("elasticsearch unavailable")
				w.Header().Set("Content-Type", "text/plain")
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(UnavailableMessage))
				return
			}
			log.WithError(err).Error("fetching blog failed")
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, blog)
	}
}

// SearchUser lists the blogs of the user from the path as a JSON array.
func SearchUser(store services.BlogStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())
		log.Info("Search Blogs Service called !")

		blogs, err := store.GetBlogs(r.Context(), mux.Vars(r)["user"])
		if err != nil {
			log.WithError(err).Error("searching blogs failed")
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if blogs == nil {
			blogs = []models.Blog{}
		}

		writeJSON(w, http.StatusOK, blogs)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	jsonResponse, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		http.Error(w, "Error converting response to JSON: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(jsonResponse)
}
