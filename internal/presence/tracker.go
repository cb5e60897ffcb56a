// Package presence tracks online state and per-channel membership in
// the shared TTL cache. It is deliberately forgiving: reads degrade to
// offline/empty on cache errors so chat keeps working when presence is
// temporarily unavailable.
package presence

import (
	"context"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

type Tracker struct {
	rdb    redis.UniversalClient
	ttl    time.Duration
	logger *zap.Logger
}

// NewTracker builds a tracker whose presence entries expire after ttl.
// Expiry without an explicit disconnect reads as offline, which covers
// abrupt process loss.
func NewTracker(rdb redis.UniversalClient, ttl time.Duration, logger *zap.Logger) *Tracker {
	return &Tracker{rdb: rdb, ttl: ttl, logger: logger}
}

func statusKey(userID string) string {
	return fmt.Sprintf("presence:user:%s:status", userID)
}

func membersKey(channelID string) string {
	return fmt.Sprintf("presence:channel:%s:members", channelID)
}

// SetOnline marks the user online and (re)arms the TTL. Called on
// authentication and on every heartbeat.
func (t *Tracker) SetOnline(ctx context.Context, userID string) {
	if err := t.rdb.Set(ctx, statusKey(userID), StatusOnline, t.ttl).Err(); err != nil {
		t.logger.Warn("failed to set presence online", zap.String("user_id", userID), zap.Error(err))
	}
}

func (t *Tracker) SetOffline(ctx context.Context, userID string) {
	if err := t.rdb.Del(ctx, statusKey(userID)).Err(); err != nil {
		t.logger.Warn("failed to clear presence", zap.String("user_id", userID), zap.Error(err))
	}
}

// Status returns "offline" for absent keys and for cache errors alike.
func (t *Tracker) Status(ctx context.Context, userID string) string {
	status, err := t.rdb.Get(ctx, statusKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return StatusOffline
	}
	if err != nil {
		t.logger.Warn("presence read failed, defaulting offline", zap.Error(err))
		return StatusOffline
	}
	return status
}

func (t *Tracker) AddChannelMember(ctx context.Context, channelID, userID string) {
	if err := t.rdb.SAdd(ctx, membersKey(channelID), userID).Err(); err != nil {
		t.logger.Warn("failed to add channel member",
			zap.String("channel_id", channelID), zap.Error(err))
	}
}

func (t *Tracker) RemoveChannelMember(ctx context.Context, channelID, userID string) {
	if err := t.rdb.SRem(ctx, membersKey(channelID), userID).Err(); err != nil {
		t.logger.Warn("failed to remove channel member",
			zap.String("channel_id", channelID), zap.Error(err))
	}
}

// ChannelMembers returns the ids currently joined to the channel room,
// or an empty slice on cache error.
func (t *Tracker) ChannelMembers(ctx context.Context, channelID string) []string {
	members, err := t.rdb.SMembers(ctx, membersKey(channelID)).Result()
	if err != nil {
		t.logger.Warn("channel member read failed, defaulting empty",
			zap.String("channel_id", channelID), zap.Error(err))
		return nil
	}
	return members
}
