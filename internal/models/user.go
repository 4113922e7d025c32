package models

import (
	"time"

	"github.com/google/uuid"
)

// User is the identity behind an opaque device token. A row is created
// lazily the first time a token is seen; there is no signup flow.
type User struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	DeviceToken string    `gorm:"type:text;uniqueIndex;not null"`
	Name        string    `gorm:"type:text"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`

	Memberships   []GroupMember `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	CreatedGroups []Group       `gorm:"foreignKey:CreatorID;constraint:OnDelete:CASCADE"`
}
