package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"huddled/internal/store"
)

func decodeJSON(r *http.Request, dest any) error {
	if r.Body == nil {
		return errors.New("request body required")
	}
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dest)
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}
	respondJSON(w, status, map[string]any{"error": err.Error()})
}

// respondStoreError maps store sentinel errors to their HTTP statuses.
// Anything unrecognised is logged and reported as a generic 500.
func (a *API) respondStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrUserNotFound):
		respondError(w, http.StatusNotFound, err)
	case errors.Is(err, store.ErrGroupNotFound):
		respondError(w, http.StatusNotFound, err)
	case errors.Is(err, store.ErrGroupExpired):
		respondError(w, http.StatusGone, errors.New("invitation expired"))
	case errors.Is(err, store.ErrAlreadyMember):
		respondError(w, http.StatusBadRequest, err)
	default:
		a.log.Error().Err(err).Msg("store operation failed")
		respondError(w, http.StatusInternalServerError, errors.New("internal server error"))
	}
}
