package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"cinelist/models"
	watchlistsvc "cinelist/services/watchlist"
)

type watchlistService interface {
	Status(ctx context.Context, caller models.Caller, movieID int64) (models.WatchlistStatus, error)
	AddToPlanToWatch(ctx context.Context, caller models.Caller, movie models.MovieData) (*models.WatchlistEntry, error)
	RemoveFromPlanToWatch(ctx context.Context, caller models.Caller, movieID int64) error
	AddToWatched(ctx context.Context, caller models.Caller, movie models.MovieData) (*models.WatchlistEntry, error)
	RemoveFromWatched(ctx context.Context, caller models.Caller, movieID int64) error
	ListPlanToWatch(ctx context.Context, caller models.Caller) ([]models.WatchlistEntry, error)
	ListWatched(ctx context.Context, caller models.Caller) ([]models.WatchlistEntry, error)
}

var _ watchlistService = (*watchlistsvc.Service)(nil)

type callerResolver interface {
	Caller(r *http.Request) models.Caller
}

// WatchlistHandler exposes the watchlist actions over HTTP. Expected
// failures (validation, authorization, conflicts) come back as {error}
// envelopes with matching status codes and are never 500s.
type WatchlistHandler struct {
	service watchlistService
	auth    callerResolver
}

// NewWatchlistHandler creates the watchlist action handler.
func NewWatchlistHandler(service watchlistService, auth callerResolver) *WatchlistHandler {
	return &WatchlistHandler{service: service, auth: auth}
}

// Register mounts the watchlist routes on the router.
func (h *WatchlistHandler) Register(r *mux.Router) {
	r.HandleFunc("/watchlist/status/{movieID}", h.Status).Methods(http.MethodGet)
	r.HandleFunc("/watchlist/plan-to-watch", h.ListPlanToWatch).Methods(http.MethodGet)
	r.HandleFunc("/watchlist/plan-to-watch", h.AddToPlanToWatch).Methods(http.MethodPost)
	r.HandleFunc("/watchlist/plan-to-watch/{movieID}", h.RemoveFromPlanToWatch).Methods(http.MethodDelete)
	r.HandleFunc("/watchlist/watched", h.ListWatched).Methods(http.MethodGet)
	r.HandleFunc("/watchlist/watched", h.AddToWatched).Methods(http.MethodPost)
	r.HandleFunc("/watchlist/watched/{movieID}", h.RemoveFromWatched).Methods(http.MethodDelete)
}

// Status reports list membership for a movie. Malformed ids and anonymous
// requests both yield the neutral all-false status; a page render must
// never break on this endpoint.
func (h *WatchlistHandler) Status(w http.ResponseWriter, r *http.Request) {
	movieID, _ := strconv.ParseInt(mux.Vars(r)["movieID"], 10, 64)

	status, err := h.service.Status(r.Context(), h.auth.Caller(r), movieID)
	if err != nil {
		log.Printf("[watchlist-handler] status lookup failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load watchlist status")
		return
	}

	writeJSON(w, http.StatusOK, status)
}

// AddToPlanToWatch creates a plan-to-watch entry from the posted movie snapshot.
func (h *WatchlistHandler) AddToPlanToWatch(w http.ResponseWriter, r *http.Request) {
	h.add(w, r, h.service.AddToPlanToWatch)
}

// AddToWatched marks a movie watched, clearing any plan-to-watch entry.
func (h *WatchlistHandler) AddToWatched(w http.ResponseWriter, r *http.Request) {
	h.add(w, r, h.service.AddToWatched)
}

func (h *WatchlistHandler) add(w http.ResponseWriter, r *http.Request,
	op func(context.Context, models.Caller, models.MovieData) (*models.WatchlistEntry, error)) {

	var movie models.MovieData
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&movie); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	entry, err := op(r.Context(), h.auth.Caller(r), movie)
	if err != nil {
		h.writeOpError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "id": entry.ID})
}

// RemoveFromPlanToWatch deletes a plan-to-watch entry; removing a movie
// that is not listed still succeeds.
func (h *WatchlistHandler) RemoveFromPlanToWatch(w http.ResponseWriter, r *http.Request) {
	h.remove(w, r, h.service.RemoveFromPlanToWatch)
}

// RemoveFromWatched deletes a watched entry; idempotent as well.
func (h *WatchlistHandler) RemoveFromWatched(w http.ResponseWriter, r *http.Request) {
	h.remove(w, r, h.service.RemoveFromWatched)
}

func (h *WatchlistHandler) remove(w http.ResponseWriter, r *http.Request,
	op func(context.Context, models.Caller, int64) error) {

	movieID, _ := strconv.ParseInt(mux.Vars(r)["movieID"], 10, 64)

	if err := op(r.Context(), h.auth.Caller(r), movieID); err != nil {
		h.writeOpError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// ListPlanToWatch returns the caller's plan-to-watch entries, newest first.
// Anonymous requests get an empty list.
func (h *WatchlistHandler) ListPlanToWatch(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.service.ListPlanToWatch)
}

// ListWatched returns the caller's watched entries, newest first.
func (h *WatchlistHandler) ListWatched(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.service.ListWatched)
}

func (h *WatchlistHandler) list(w http.ResponseWriter, r *http.Request,
	op func(context.Context, models.Caller) ([]models.WatchlistEntry, error)) {

	entries, err := op(r.Context(), h.auth.Caller(r))
	if err != nil {
		log.Printf("[watchlist-handler] list failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load watchlist")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"movies": entries})
}

// writeOpError maps service errors onto the response envelope. Persistence
// faults surface only their generic "failed to <action>" message.
func (h *WatchlistHandler) writeOpError(w http.ResponseWriter, err error) {
	var (
		validationErr  *watchlistsvc.ValidationError
		conflictErr    *watchlistsvc.ConflictError
		persistenceErr *watchlistsvc.PersistenceError
	)

	switch {
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, validationErr.Reason)
	case errors.Is(err, watchlistsvc.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.As(err, &conflictErr):
		writeError(w, http.StatusConflict, conflictErr.Message)
	case errors.As(err, &persistenceErr):
		writeError(w, http.StatusInternalServerError, persistenceErr.Error())
	default:
		log.Printf("[watchlist-handler] unexpected error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
