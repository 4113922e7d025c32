package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"huddled/internal/store"
)

// handleIndex serves a machine-readable description of the API.
func (a *API) handleIndex(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"name":        "huddled",
		"description": "group invitation and membership service",
		"endpoints": []map[string]string{
			{"method": "POST", "path": "/api/groups", "description": "create a group and receive an invite code"},
			{"method": "POST", "path": "/api/groups/{code}/join", "description": "join a group by invite code"},
			{"method": "GET", "path": "/api/groups/{code}", "description": "fetch group details"},
			{"method": "GET", "path": "/api/users/{deviceToken}/groups", "description": "list groups the user belongs to"},
			{"method": "GET", "path": "/api/users/{deviceToken}/created-groups", "description": "list groups the user created"},
			{"method": "GET", "path": "/g/{code}", "description": "HTML invite landing page"},
		},
	})
}

func (a *API) handleLandingPage(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	group, err := a.store.GroupByCode(r.Context(), code)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrGroupNotFound):
			a.renderErrorPage(w, http.StatusNotFound, "Invitation not found",
				"This invite link does not match any group. Check the code and try again.")
		case errors.Is(err, store.ErrGroupExpired):
			a.renderErrorPage(w, http.StatusGone, "Invitation expired",
				"This invitation is no longer valid. Ask the group creator for a new link.")
		default:
			a.log.Error().Err(err).Msg("landing page lookup failed")
			a.renderErrorPage(w, http.StatusInternalServerError, "Something went wrong",
				"We could not load this invitation. Please try again later.")
		}
		return
	}

	creatorName := ""
	if group.Creator != nil {
		creatorName = group.Creator.Name
	}
	expires := ""
	if group.ExpiresAt != nil {
		expires = group.ExpiresAt.UTC().Format(time.RFC1123)
	}

	page, err := a.renderer.Render("landing.html.tmpl", map[string]any{
		"Title":       group.Title,
		"Description": group.Description,
		"InviteCode":  group.InviteCode,
		"MemberCount": len(group.Members),
		"CreatorName": creatorName,
		"ExpiresAt":   expires,
	})
	if err != nil {
		a.log.Error().Err(err).Msg("render landing page")
		a.renderErrorPage(w, http.StatusInternalServerError, "Something went wrong",
			"We could not load this invitation. Please try again later.")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(page))
}

func (a *API) renderErrorPage(w http.ResponseWriter, status int, heading, message string) {
	page, err := a.renderer.Render("error.html.tmpl", map[string]any{
		"Heading": heading,
		"Message": message,
	})
	if err != nil {
		http.Error(w, heading, status)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(page))
}
