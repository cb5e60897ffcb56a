package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Guild owns its roles, members and categories; deleting a guild
// cascades to all three. Channels survive category deletion and are
// cascaded through the guild itself.
type Guild struct {
	ID string `gorm:"primaryKey;size:36" json:"id"`

	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`

	// InviteCode is the guild-level join-by-code credential, distinct
	// from ephemeral invite tokens in the TTL cache.
	InviteCode string `gorm:"uniqueIndex" json:"invite_code"`

	IsPublic         bool `gorm:"default:false" json:"is_public"`
	RequiresApproval bool `gorm:"default:false" json:"requires_approval"`

	OwnerID string `gorm:"size:36;index" json:"owner_id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Roles      []GuildRole       `gorm:"constraint:OnDelete:CASCADE" json:"roles,omitempty"`
	Members    []GuildMember     `gorm:"constraint:OnDelete:CASCADE" json:"members,omitempty"`
	Categories []ChannelCategory `gorm:"constraint:OnDelete:CASCADE" json:"categories,omitempty"`
}

func (Guild) TableName() string {
	return "guilds"
}

func (g *Guild) BeforeCreate(*gorm.DB) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	return nil
}
