package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/voxlink/voxlink/internal/permissions"
)

// GuildRole is a named permission mask. Position is a display and
// default-role-selection hint only; it gates nothing.
type GuildRole struct {
	ID      string `gorm:"primaryKey;size:36" json:"id"`
	GuildID string `gorm:"size:36;index;not null" json:"guild_id"`

	Name        string                 `gorm:"not null" json:"name"`
	Color       string                 `gorm:"default:#99aab5" json:"color"`
	Permissions permissions.Permission `gorm:"type:bigint;default:0" json:"permissions"`
	Position    int                    `gorm:"default:0" json:"position"`
	IsHoisted   bool                   `gorm:"default:false" json:"is_hoisted"`

	// IsManaged marks the system roles created with the guild; they
	// reject edit and delete.
	IsManaged bool `gorm:"default:false" json:"is_managed"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (GuildRole) TableName() string {
	return "guild_roles"
}

func (r *GuildRole) BeforeCreate(*gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
