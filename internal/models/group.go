package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Group is a joinable collection of users sharing a reference to an
// external model resource. The invite code is the public handle.
type Group struct {
	ID          uuid.UUID         `gorm:"type:uuid;primaryKey"`
	InviteCode  string            `gorm:"type:text;uniqueIndex;not null"`
	ModelID     string            `gorm:"type:text;not null"`
	CreatorID   uuid.UUID         `gorm:"type:uuid;not null;index"`
	Title       string            `gorm:"type:text"`
	Description string            `gorm:"type:text"`
	Metadata    datatypes.JSONMap `gorm:"type:jsonb"`
	ExpiresAt   *time.Time
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`

	Creator *User         `gorm:"foreignKey:CreatorID;references:ID;constraint:OnDelete:CASCADE"`
	Members []GroupMember `gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE"`
}

// Expired reports whether the group is past its expiration at the given
// instant. A group without ExpiresAt never expires.
func (g *Group) Expired(now time.Time) bool {
	return g.ExpiresAt != nil && g.ExpiresAt.Before(now)
}
