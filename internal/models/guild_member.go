package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MemberStatus string

const (
	MemberActive  MemberStatus = "active"
	MemberPending MemberStatus = "pending" // awaiting approval
	MemberBanned  MemberStatus = "banned"
)

// GuildMember associates a user with a guild. A user has at most one
// row per guild; banning keeps the row with status=banned, kicking
// deletes it.
type GuildMember struct {
	ID      string `gorm:"primaryKey;size:36" json:"id"`
	GuildID string `gorm:"size:36;uniqueIndex:idx_guild_user;not null" json:"guild_id"`
	UserID  string `gorm:"size:36;uniqueIndex:idx_guild_user;not null" json:"user_id"`

	Nickname string       `json:"nickname"`
	Status   MemberStatus `gorm:"default:active" json:"status"`

	IsMuted    bool `gorm:"default:false" json:"is_muted"`
	IsDeafened bool `gorm:"default:false" json:"is_deafened"`

	JoinedAt  time.Time `gorm:"autoCreateTime" json:"joined_at"`
	UpdatedAt time.Time `json:"updated_at"`

	User  *User       `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Roles []GuildRole `gorm:"many2many:guild_member_roles" json:"roles,omitempty"`
}

func (GuildMember) TableName() string {
	return "guild_members"
}

func (m *GuildMember) BeforeCreate(*gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// RoleIDs is a convenience for idempotent assignment checks.
func (m *GuildMember) HasRole(roleID string) bool {
	for _, r := range m.Roles {
		if r.ID == roleID {
			return true
		}
	}
	return false
}
