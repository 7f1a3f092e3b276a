package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"cinelist/services/tmdb"
)

type metadataGateway interface {
	Search(ctx context.Context, query string) (*tmdb.SearchResponse, error)
	Details(ctx context.Context, movieID int64) (*tmdb.MovieDetails, error)
}

var _ metadataGateway = (*tmdb.Client)(nil)

// MoviesHandler serves search and detail lookups against the metadata gateway.
type MoviesHandler struct {
	gateway metadataGateway
}

// NewMoviesHandler creates the movie catalog handler.
func NewMoviesHandler(gateway metadataGateway) *MoviesHandler {
	return &MoviesHandler{gateway: gateway}
}

// Register mounts the movie routes on the movies subrouter.
func (h *MoviesHandler) Register(r *mux.Router) {
	r.HandleFunc("/search", h.Search).Methods(http.MethodGet)
	r.HandleFunc("/{movieID}", h.Details).Methods(http.MethodGet)
}

// Search proxies a catalog search. A missing q parameter is a client
// error; any upstream failure is a single generic server error.
func (h *MoviesHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}

	results, err := h.gateway.Search(r.Context(), query)
	if err != nil {
		log.Printf("[movies-handler] search failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to search movies")
		return
	}

	writeJSON(w, http.StatusOK, results)
}

// Details returns the catalog record for one movie. Unknown and malformed
// ids are both a 404; the detail page presents every failure as not-found.
func (h *MoviesHandler) Details(w http.ResponseWriter, r *http.Request) {
	movieID, err := strconv.ParseInt(mux.Vars(r)["movieID"], 10, 64)
	if err != nil || movieID <= 0 {
		writeError(w, http.StatusNotFound, "movie not found")
		return
	}

	details, err := h.gateway.Details(r.Context(), movieID)
	if err != nil {
		// An upstream fault is indistinguishable from an unknown id to the
		// detail page; both read as not-found. The cause still gets logged.
		if !errors.Is(err, tmdb.ErrNotFound) {
			log.Printf("[movies-handler] details failed for %d: %v", movieID, err)
		}
		writeError(w, http.StatusNotFound, "movie not found")
		return
	}

	writeJSON(w, http.StatusOK, details)
}
