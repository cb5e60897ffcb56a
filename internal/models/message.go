package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Attachment struct {
	URL  string `json:"url"`
	Name string `json:"name"`
	Size int64  `json:"size"`
}

type Attachments []Attachment

func (a Attachments) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil
	}
	return json.Marshal(a)
}

func (a *Attachments) Scan(src any) error {
	if src == nil {
		*a = nil
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, a)
	case string:
		return json.Unmarshal([]byte(v), a)
	default:
		return fmt.Errorf("unsupported attachments source type %T", src)
	}
}

// Message rows are soft-deleted: content is blanked and IsDeleted set,
// the row stays for reply chains.
type Message struct {
	ID        string `gorm:"primaryKey;size:36" json:"id"`
	ChannelID string `gorm:"size:36;index;not null" json:"channel_id"`
	AuthorID  string `gorm:"size:36;index;not null" json:"author_id"`

	Content     string      `gorm:"type:text" json:"content"`
	Attachments Attachments `gorm:"type:jsonb" json:"attachments,omitempty"`
	ReplyToID   *string     `gorm:"size:36" json:"reply_to_id,omitempty"`
	EditedAt    *time.Time  `json:"edited_at,omitempty"`
	IsDeleted   bool        `gorm:"default:false;index" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Author *User `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
}

func (Message) TableName() string {
	return "messages"
}

func (m *Message) BeforeCreate(*gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
