package handlers

import (
	"time"

	"github.com/google/uuid"

	"huddled/internal/models"
)

// UserProjection is the public shape of a user inside group responses.
type UserProjection struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// GroupProjection is the public shape of a group across every JSON
// endpoint.
type GroupProjection struct {
	GroupID     uuid.UUID        `json:"groupId"`
	InviteCode  string           `json:"inviteCode"`
	ModelID     string           `json:"modelId"`
	Title       string           `json:"title,omitempty"`
	Description string           `json:"description,omitempty"`
	Creator     UserProjection   `json:"creator"`
	ExpiresAt   *time.Time       `json:"expiresAt,omitempty"`
	MemberCount int              `json:"memberCount"`
	Members     []UserProjection `json:"members"`
	Metadata    map[string]any   `json:"metadata,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
}

func projectUser(u *models.User) UserProjection {
	if u == nil {
		return UserProjection{}
	}
	return UserProjection{ID: u.ID, Name: u.Name}
}

func projectGroup(g *models.Group) GroupProjection {
	members := make([]UserProjection, 0, len(g.Members))
	for i := range g.Members {
		members = append(members, projectUser(g.Members[i].User))
	}

	return GroupProjection{
		GroupID:     g.ID,
		InviteCode:  g.InviteCode,
		ModelID:     g.ModelID,
		Title:       g.Title,
		Description: g.Description,
		Creator:     projectUser(g.Creator),
		ExpiresAt:   g.ExpiresAt,
		MemberCount: len(g.Members),
		Members:     members,
		Metadata:    map[string]any(g.Metadata),
		CreatedAt:   g.CreatedAt,
	}
}

func projectGroups(groups []models.Group) []GroupProjection {
	out := make([]GroupProjection, 0, len(groups))
	for i := range groups {
		out = append(out, projectGroup(&groups[i]))
	}
	return out
}
