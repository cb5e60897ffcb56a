package repositories

import (
	"gorm.io/gorm"

	"github.com/voxlink/voxlink/internal/models"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(msg *models.Message) error {
	if err := r.db.Create(msg).Error; err != nil {
		return err
	}
	// Reload with author so broadcasts carry the public fields.
	return r.db.Preload("Author").First(msg, "id = ?", msg.ID).Error
}

// ListRecent returns up to limit non-deleted messages, newest first.
func (r *MessageRepository) ListRecent(channelID string, limit int) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.Preload("Author").
		Where("channel_id = ? AND is_deleted = ?", channelID, false).
		Order("created_at DESC").
		Limit(limit).
		Find(&messages).Error
	return messages, err
}

func (r *MessageRepository) Get(id string) (*models.Message, error) {
	var msg models.Message
	err := r.db.Preload("Author").
		First(&msg, "id = ? AND is_deleted = ?", id, false).Error
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// SoftDelete keeps the row for reply chains but blanks the content.
func (r *MessageRepository) SoftDelete(id string) error {
	return r.db.Model(&models.Message{}).Where("id = ?", id).Updates(map[string]any{
		"is_deleted":  true,
		"content":     "[Message deleted]",
		"attachments": nil,
	}).Error
}
