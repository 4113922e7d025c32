package models

import (
	"time"

	"github.com/google/uuid"
)

// GroupMember links a user to a group they belong to. The composite
// unique index keeps a user in a given group at most once; the store
// treats a violation of it as the business-level "already a member".
type GroupMember struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_group_members_user_group"`
	GroupID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_group_members_user_group"`
	JoinedAt time.Time `gorm:"autoCreateTime"`

	User  *User  `gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE"`
	Group *Group `gorm:"foreignKey:GroupID;references:ID;constraint:OnDelete:CASCADE"`
}
