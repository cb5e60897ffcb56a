package services

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/voxlink/voxlink/internal/apperrors"
	"github.com/voxlink/voxlink/internal/models"
)

type fakeMessageStore struct {
	mu   sync.Mutex
	msgs map[string]*models.Message
	seq  int
}

func newFakeMessageStore() *fakeMessageStore {
	return &fakeMessageStore{msgs: map[string]*models.Message{}}
}

func (f *fakeMessageStore) Create(msg *models.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	f.seq++
	msg.CreatedAt = time.Unix(int64(f.seq), 0)
	cp := *msg
	f.msgs[msg.ID] = &cp
	return nil
}

func (f *fakeMessageStore) ListRecent(channelID string, limit int) ([]models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Message
	for _, m := range f.msgs {
		if m.ChannelID == channelID && !m.IsDeleted {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeMessageStore) Get(id string) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.msgs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *m
	return &cp, nil
}

func (f *fakeMessageStore) SoftDelete(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.msgs[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	m.IsDeleted = true
	m.Content = "[Message deleted]"
	m.Attachments = nil
	return nil
}

// newTestMessageService builds a guild with an owner, a joined member,
// and returns the text channel everything posts to.
func newTestMessageService(t *testing.T) (*MessageService, *fakeMessageStore, *GuildService, *models.Guild, string) {
	t.Helper()
	guildSvc, guildStore := newTestGuildService()
	guild := mustCreateGuild(t, guildSvc, "owner", "Alpha")
	_, err := guildSvc.JoinByInvite(guild.InviteCode, "member")
	require.NoError(t, err)

	channels, err := guildStore.ListGuildChannels(guild.ID)
	require.NoError(t, err)
	var textChannel string
	for _, ch := range channels {
		if ch.Type == models.ChannelText {
			textChannel = ch.ID
			break
		}
	}
	require.NotEmpty(t, textChannel)

	store := newFakeMessageStore()
	svc := NewMessageService(store, guildSvc, zap.NewNop())
	return svc, store, guildSvc, guild, textChannel
}

func TestSendMessage(t *testing.T) {
	svc, _, _, _, channelID := newTestMessageService(t)

	msg, err := svc.Send(channelID, "member", &SendMessageRequest{Content: "  hello  "})
	require.NoError(t, err)
	assert.Equal(t, "hello", msg.Content)
	assert.Equal(t, "member", msg.AuthorID)

	// Empty and oversized messages are rejected.
	_, err = svc.Send(channelID, "member", &SendMessageRequest{Content: "   "})
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)
	_, err = svc.Send(channelID, "member", &SendMessageRequest{
		Content: strings.Repeat("x", maxMessageLength+1),
	})
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)

	// Attachments alone carry a message.
	withFile, err := svc.Send(channelID, "member", &SendMessageRequest{
		Attachments: models.Attachments{{URL: "https://cdn.example.com/a.png", Name: "a.png", Size: 2048}},
	})
	require.NoError(t, err)
	assert.Empty(t, withFile.Content)

	// Outsiders cannot post.
	_, err = svc.Send(channelID, "stranger", &SendMessageRequest{Content: "hi"})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestSendRejectsVoiceChannels(t *testing.T) {
	svc, _, guildSvc, guild, _ := newTestMessageService(t)

	channels, err := guildSvc.store.ListGuildChannels(guild.ID)
	require.NoError(t, err)
	var voiceID string
	for _, ch := range channels {
		if ch.Type == models.ChannelVoice {
			voiceID = ch.ID
			break
		}
	}
	require.NotEmpty(t, voiceID)

	_, err = svc.Send(voiceID, "member", &SendMessageRequest{Content: "hi"})
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)
}

func TestHistoryWindow(t *testing.T) {
	svc, _, _, _, channelID := newTestMessageService(t)

	for i := 0; i < 120; i++ {
		_, err := svc.Send(channelID, "member", &SendMessageRequest{
			Content: fmt.Sprintf("msg-%d", i),
		})
		require.NoError(t, err)
	}

	msgs, err := svc.History(channelID, "member", 0)
	require.NoError(t, err)
	require.Len(t, msgs, HistoryLimit)

	// Oldest of the retained window first, newest last.
	assert.Equal(t, "msg-70", msgs[0].Content)
	assert.Equal(t, "msg-119", msgs[len(msgs)-1].Content)
	for i := 1; i < len(msgs); i++ {
		assert.True(t, msgs[i].CreatedAt.After(msgs[i-1].CreatedAt))
	}
}

func TestDeleteMessage(t *testing.T) {
	svc, store, _, _, channelID := newTestMessageService(t)

	msg, err := svc.Send(channelID, "member", &SendMessageRequest{Content: "oops"})
	require.NoError(t, err)

	// A different plain member cannot delete someone else's message.
	guildSvc := svc.access.(*GuildService)
	ch, err := guildSvc.store.GetChannel(channelID)
	require.NoError(t, err)
	_, err = guildSvc.JoinByInvite(mustInviteCode(t, guildSvc, *ch.GuildID), "other")
	require.NoError(t, err)
	err = svc.Delete(msg.ID, "other")
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	// The author can.
	require.NoError(t, svc.Delete(msg.ID, "member"))
	got, err := store.Get(msg.ID)
	require.NoError(t, err)
	assert.True(t, got.IsDeleted)
	assert.Equal(t, "[Message deleted]", got.Content)

	// Deleted messages drop out of history.
	msgs, err := svc.History(channelID, "member", 50)
	require.NoError(t, err)
	for _, m := range msgs {
		assert.NotEqual(t, msg.ID, m.ID)
	}

	// The owner holds DELETE_MESSAGES through the Owner role.
	second, err := svc.Send(channelID, "member", &SendMessageRequest{Content: "again"})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(second.ID, "owner"))

	err = svc.Delete("missing", "member")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func mustInviteCode(t *testing.T, svc *GuildService, guildID string) string {
	t.Helper()
	g, err := svc.store.GetGuild(guildID)
	require.NoError(t, err)
	return g.InviteCode
}
