package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (a *API) handleUserGroups(w http.ResponseWriter, r *http.Request) {
	deviceToken := chi.URLParam(r, "deviceToken")

	groups, err := a.store.GroupsForUser(r.Context(), deviceToken)
	if err != nil {
		a.respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"groups": projectGroups(groups)})
}

func (a *API) handleUserCreatedGroups(w http.ResponseWriter, r *http.Request) {
	deviceToken := chi.URLParam(r, "deviceToken")

	groups, err := a.store.GroupsCreatedBy(r.Context(), deviceToken)
	if err != nil {
		a.respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"groups": projectGroups(groups)})
}
