package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"huddled/internal/store"
	"huddled/pkg/bus"
)

func (a *API) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DeviceToken     string         `json:"deviceToken"`
		ModelID         string         `json:"modelId"`
		Title           string         `json:"title"`
		Description     string         `json:"description"`
		ExpirationHours *float64       `json:"expirationHours"`
		Metadata        map[string]any `json:"metadata"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	req.DeviceToken = strings.TrimSpace(req.DeviceToken)
	req.ModelID = strings.TrimSpace(req.ModelID)
	if req.DeviceToken == "" || req.ModelID == "" {
		respondError(w, http.StatusBadRequest, errors.New("deviceToken and modelId are required"))
		return
	}

	group, err := a.store.CreateGroup(r.Context(), store.CreateGroupParams{
		DeviceToken:     req.DeviceToken,
		ModelID:         req.ModelID,
		Title:           req.Title,
		Description:     req.Description,
		ExpirationHours: req.ExpirationHours,
		Metadata:        req.Metadata,
	})
	if err != nil {
		a.respondStoreError(w, err)
		return
	}

	a.publish(r, bus.SubjectGroupCreated, bus.GroupCreated{
		GroupID:    group.ID,
		InviteCode: group.InviteCode,
		ModelID:    group.ModelID,
		CreatorID:  group.CreatorID,
		ExpiresAt:  group.ExpiresAt,
		CreatedAt:  group.CreatedAt,
	})

	respondJSON(w, http.StatusCreated, map[string]any{
		"group":    projectGroup(group),
		"shareUrl": a.shareURL(group.InviteCode),
	})
}

func (a *API) handleJoinGroup(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	var req struct {
		DeviceToken string `json:"deviceToken"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	req.DeviceToken = strings.TrimSpace(req.DeviceToken)
	if req.DeviceToken == "" {
		respondError(w, http.StatusBadRequest, errors.New("deviceToken is required"))
		return
	}

	group, err := a.store.JoinGroup(r.Context(), req.DeviceToken, code)
	if err != nil {
		a.respondStoreError(w, err)
		return
	}

	user, err := a.store.UserByToken(r.Context(), req.DeviceToken)
	if err != nil {
		a.respondStoreError(w, err)
		return
	}

	a.publish(r, bus.SubjectMemberJoined, bus.MemberJoined{
		GroupID:     group.ID,
		InviteCode:  group.InviteCode,
		UserID:      user.ID,
		MemberCount: len(group.Members),
		JoinedAt:    a.storeNow(),
	})

	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"group":   projectGroup(group),
	})
}

func (a *API) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	group, err := a.store.GroupByCode(r.Context(), code)
	if err != nil {
		a.respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"group": projectGroup(group)})
}

func (a *API) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := a.store.CountStats(r.Context())
	if err != nil {
		if errors.Is(err, store.ErrStatsUnavailable) {
			respondError(w, http.StatusServiceUnavailable, err)
			return
		}
		a.respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"stats": stats})
}

// publish sends a domain event without failing the request; a nil bus is
// a no-op.
func (a *API) publish(r *http.Request, subject string, event any) {
	if err := a.bus.Publish(r.Context(), subject, event); err != nil {
		a.log.Warn().Err(err).Str("subject", subject).Msg("publish event")
	}
}
