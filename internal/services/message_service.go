package services

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/voxlink/voxlink/internal/apperrors"
	"github.com/voxlink/voxlink/internal/models"
	"github.com/voxlink/voxlink/internal/permissions"
)

// HistoryLimit is how many messages a channel join replays.
const HistoryLimit = 50

const maxMessageLength = 4000

// MessageStore is the persistence surface MessageService needs.
type MessageStore interface {
	Create(msg *models.Message) error
	ListRecent(channelID string, limit int) ([]models.Message, error)
	Get(id string) (*models.Message, error)
	SoftDelete(id string) error
}

// ChannelAccess answers whether a user may read or post in a channel.
// GuildService implements it.
type ChannelAccess interface {
	CanAccessChannel(channelID, userID string) (*models.Channel, error)
	RequirePermission(guildID, userID string, p permissions.Permission) error
}

type MessageService struct {
	store  MessageStore
	access ChannelAccess
	logger *zap.Logger
}

func NewMessageService(store MessageStore, access ChannelAccess, logger *zap.Logger) *MessageService {
	return &MessageService{store: store, access: access, logger: logger}
}

type SendMessageRequest struct {
	Content     string             `json:"content"`
	Attachments models.Attachments `json:"attachments"`
	ReplyToID   *string            `json:"reply_to_id"`
}

// Send persists a message. The author is always the calling principal;
// there is no way to post as someone else.
func (s *MessageService) Send(channelID, authorID string, req *SendMessageRequest) (*models.Message, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" && len(req.Attachments) == 0 {
		return nil, fmt.Errorf("%w: message is empty", apperrors.ErrBadRequest)
	}
	if len(content) > maxMessageLength {
		return nil, fmt.Errorf("%w: message exceeds %d characters", apperrors.ErrBadRequest, maxMessageLength)
	}

	ch, err := s.access.CanAccessChannel(channelID, authorID)
	if err != nil {
		return nil, err
	}
	if ch.Type != models.ChannelText {
		return nil, fmt.Errorf("%w: cannot post to a %s channel", apperrors.ErrBadRequest, ch.Type)
	}
	if ch.GuildID != nil {
		if err := s.access.RequirePermission(*ch.GuildID, authorID, permissions.SendMessages); err != nil {
			return nil, err
		}
	}

	msg := &models.Message{
		ChannelID:   channelID,
		AuthorID:    authorID,
		Content:     content,
		Attachments: req.Attachments,
		ReplyToID:   req.ReplyToID,
	}
	if err := s.store.Create(msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// History returns the most recent window in chronological order,
// oldest first, ready to replay into a joining client.
func (s *MessageService) History(channelID, userID string, limit int) ([]models.Message, error) {
	if _, err := s.access.CanAccessChannel(channelID, userID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > HistoryLimit {
		limit = HistoryLimit
	}

	msgs, err := s.store.ListRecent(channelID, limit)
	if err != nil {
		return nil, err
	}
	// ListRecent is newest-first; flip for replay.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// Delete soft-deletes: authors may remove their own messages, and
// holders of the delete permission may remove anyone's.
func (s *MessageService) Delete(messageID, actorID string) error {
	msg, err := s.store.Get(messageID)
	if err != nil {
		return fmt.Errorf("%w: message", apperrors.ErrNotFound)
	}

	if msg.AuthorID != actorID {
		ch, err := s.access.CanAccessChannel(msg.ChannelID, actorID)
		if err != nil {
			return err
		}
		if ch.GuildID == nil {
			return fmt.Errorf("%w: only the author can delete this message", apperrors.ErrForbidden)
		}
		if err := s.access.RequirePermission(*ch.GuildID, actorID, permissions.DeleteMessages); err != nil {
			return err
		}
	}

	if err := s.store.SoftDelete(messageID); err != nil {
		return err
	}
	s.logger.Info("message deleted",
		zap.String("message_id", messageID), zap.String("actor_id", actorID))
	return nil
}
