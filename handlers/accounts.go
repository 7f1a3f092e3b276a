package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"cinelist/models"
	authsvc "cinelist/services/auth"
)

type accountService interface {
	Register(ctx context.Context, email, pass string) (*models.User, error)
	Caller(r *http.Request) models.Caller
}

var _ accountService = (*authsvc.Service)(nil)

// AccountsHandler exposes registration and the current-session probe.
// Login and logout themselves are handled by the mounted auth routes.
type AccountsHandler struct {
	service accountService
}

// NewAccountsHandler creates the accounts handler.
func NewAccountsHandler(service accountService) *AccountsHandler {
	return &AccountsHandler{service: service}
}

// Register mounts the account routes on the router.
func (h *AccountsHandler) Register(r *mux.Router) {
	r.HandleFunc("/register", h.CreateAccount).Methods(http.MethodPost)
	r.HandleFunc("/me", h.Me).Methods(http.MethodGet)
}

// CreateAccount registers a new credential account.
func (h *AccountsHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&request); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.service.Register(r.Context(), request.Email, request.Password)
	if err != nil {
		switch {
		case errors.Is(err, authsvc.ErrInvalidAccount):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, authsvc.ErrAccountExists):
			writeError(w, http.StatusConflict, err.Error())
		default:
			log.Printf("[accounts-handler] register failed: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to create account")
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "id": user.ID})
}

// Me reports the caller's resolved identity, or authenticated=false for
// anonymous sessions. Never an error.
func (h *AccountsHandler) Me(w http.ResponseWriter, r *http.Request) {
	caller := h.service.Caller(r)
	if !caller.Authenticated() {
		writeJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"id":            caller.UserID,
		"name":          caller.Name,
	})
}
