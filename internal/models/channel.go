package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/voxlink/voxlink/internal/permissions"
)

type ChannelType string

const (
	ChannelText   ChannelType = "text"
	ChannelVoice  ChannelType = "voice"
	ChannelStream ChannelType = "stream"
)

// PermissionOverwrite adjusts a role's effective permissions inside a
// single channel.
type PermissionOverwrite struct {
	RoleID string                 `json:"role_id"`
	Allow  permissions.Permission `json:"allow"`
	Deny   permissions.Permission `json:"deny"`
}

// Overwrites is stored as a jsonb column.
type Overwrites []PermissionOverwrite

func (o Overwrites) Value() (driver.Value, error) {
	if o == nil {
		return nil, nil
	}
	return json.Marshal(o)
}

func (o *Overwrites) Scan(src any) error {
	if src == nil {
		*o = nil
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, o)
	case string:
		return json.Unmarshal([]byte(v), o)
	default:
		return fmt.Errorf("unsupported overwrites source type %T", src)
	}
}

// Channel may be guild-less (legacy global spaces) and category-less.
type Channel struct {
	ID string `gorm:"primaryKey;size:36" json:"id"`

	Name        string      `gorm:"not null" json:"name"`
	Type        ChannelType `gorm:"default:text" json:"type"`
	Topic       *string     `json:"topic,omitempty"`
	Description string      `json:"description"`
	IsPrivate   bool        `gorm:"default:false" json:"is_private"`
	Position    int         `gorm:"default:0" json:"position"`

	PermissionOverwrites Overwrites `gorm:"type:jsonb" json:"permission_overwrites,omitempty"`

	GuildID     *string `gorm:"size:36;index" json:"guild_id,omitempty"`
	CategoryID  *string `gorm:"size:36;index" json:"category_id,omitempty"`
	CreatedByID string  `gorm:"size:36" json:"created_by_id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Channel) TableName() string {
	return "channels"
}

func (c *Channel) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

type ChannelCategory struct {
	ID      string `gorm:"primaryKey;size:36" json:"id"`
	GuildID string `gorm:"size:36;index;not null" json:"guild_id"`

	Name      string `gorm:"not null" json:"name"`
	Position  int    `gorm:"default:0" json:"position"`
	IsPrivate bool   `gorm:"default:false" json:"is_private"`

	// No cascade from category to channels: deleting a category only
	// detaches its channels.
	Channels []Channel `gorm:"foreignKey:CategoryID;constraint:OnDelete:SET NULL" json:"channels,omitempty"`
}

func (ChannelCategory) TableName() string {
	return "channel_categories"
}

func (c *ChannelCategory) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
