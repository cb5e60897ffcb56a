// Package tokens implements ephemeral credentials (invites and magic
// login links) over a TTL key/value cache. The cache is the single
// source of truth for both kinds; nothing here touches the database.
package tokens

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/voxlink/voxlink/config"
	"github.com/voxlink/voxlink/internal/apperrors"
)

const (
	invitePrefix = "invite:"
	magicPrefix  = "magic:"
)

var ErrMaxUsesReached = fmt.Errorf("%w: invite has reached maximum uses", apperrors.ErrUnauthorized)

// Invite is the cached payload, keyed by its code. MaxUses == 0 means
// unlimited.
type Invite struct {
	Code      string    `json:"-"`
	GuildID   string    `json:"guild_id,omitempty"`
	ChannelID string    `json:"channel_id,omitempty"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
	Uses      int       `json:"uses"`
	MaxUses   int       `json:"max_uses"`
}

type CreateInviteParams struct {
	GuildID        string
	ChannelID      string
	Role           string
	ExpiresInHours int // 0 means the configured default
	MaxUses        int
}

// redeemScript performs the check-and-increment as one atomic step on
// the cache side. A plain read-modify-write here would let two
// concurrent redemptions both observe uses < max_uses and both
// succeed.
//
// Returns "NOTFOUND", "MAXUSES", or the updated payload.
var redeemScript = redis.NewScript(`
local raw = redis.call('GET', KEYS[1])
if not raw then
  return 'NOTFOUND'
end
local invite = cjson.decode(raw)
local max = tonumber(invite.max_uses) or 0
local uses = tonumber(invite.uses) or 0
if max > 0 and uses >= max then
  return 'MAXUSES'
end
invite.uses = uses + 1
local updated = cjson.encode(invite)
local ttl = redis.call('TTL', KEYS[1])
if ttl > 0 then
  redis.call('SET', KEYS[1], updated, 'EX', ttl)
else
  redis.call('SET', KEYS[1], updated)
end
return updated
`)

type Store struct {
	rdb    redis.UniversalClient
	cfg    *config.InviteConfig
	logger *zap.Logger
}

func NewStore(rdb redis.UniversalClient, cfg *config.InviteConfig, logger *zap.Logger) *Store {
	return &Store{rdb: rdb, cfg: cfg, logger: logger}
}

// CreateInvite stores a fresh invite under a random token. The
// requested lifetime is clamped to the configured bounds.
func (s *Store) CreateInvite(ctx context.Context, p CreateInviteParams) (*Invite, error) {
	hours := p.ExpiresInHours
	if hours <= 0 {
		hours = s.cfg.DefaultHours
	}
	if hours < s.cfg.MinHours {
		hours = s.cfg.MinHours
	}
	if hours > s.cfg.MaxHours {
		hours = s.cfg.MaxHours
	}

	maxUses := p.MaxUses
	if maxUses < 0 {
		maxUses = s.cfg.DefaultMaxUses
	}

	role := p.Role
	if role == "" {
		role = "member"
	}

	ttl := time.Duration(hours) * time.Hour
	inv := &Invite{
		Code:      uuid.NewString(),
		GuildID:   p.GuildID,
		ChannelID: p.ChannelID,
		Role:      role,
		ExpiresAt: time.Now().Add(ttl).UTC(),
		Uses:      0,
		MaxUses:   maxUses,
	}

	raw, err := json.Marshal(inv)
	if err != nil {
		return nil, err
	}
	if err := s.rdb.Set(ctx, invitePrefix+inv.Code, raw, ttl).Err(); err != nil {
		s.logger.Error("failed to store invite", zap.Error(err))
		return nil, fmt.Errorf("%w: invite cache write failed", apperrors.ErrServiceUnavailable)
	}
	return inv, nil
}

// GetInvite reads an invite without consuming a use.
func (s *Store) GetInvite(ctx context.Context, code string) (*Invite, error) {
	raw, err := s.rdb.Get(ctx, invitePrefix+code).Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: invalid or expired invite", apperrors.ErrUnauthorized)
	}
	if err != nil {
		s.logger.Error("failed to read invite", zap.Error(err))
		return nil, fmt.Errorf("%w: invite cache read failed", apperrors.ErrServiceUnavailable)
	}
	return decodeInvite(code, []byte(raw))
}

// RedeemInvite consumes one use. Under concurrent redemption of an
// invite with max_uses = N, exactly N calls succeed.
func (s *Store) RedeemInvite(ctx context.Context, code string) (*Invite, error) {
	res, err := redeemScript.Run(ctx, s.rdb, []string{invitePrefix + code}).Text()
	if err != nil {
		s.logger.Error("invite redeem script failed", zap.Error(err))
		return nil, fmt.Errorf("%w: invite cache unreachable", apperrors.ErrServiceUnavailable)
	}
	switch res {
	case "NOTFOUND":
		return nil, fmt.Errorf("%w: invalid or expired invite", apperrors.ErrUnauthorized)
	case "MAXUSES":
		return nil, ErrMaxUsesReached
	}
	return decodeInvite(code, []byte(res))
}

func (s *Store) DeleteInvite(ctx context.Context, code string) error {
	return s.rdb.Del(ctx, invitePrefix+code).Err()
}

// InviteTTL reports the remaining lifetime of an invite.
func (s *Store) InviteTTL(ctx context.Context, code string) (time.Duration, error) {
	ttl, err := s.rdb.TTL(ctx, invitePrefix+code).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: invite cache read failed", apperrors.ErrServiceUnavailable)
	}
	return ttl, nil
}

// CreateMagicLink stores a single-use login token for the email.
func (s *Store) CreateMagicLink(ctx context.Context, email string) (string, error) {
	token := uuid.NewString()
	ttl := time.Duration(s.cfg.MagicLinkTTL) * time.Second
	if err := s.rdb.Set(ctx, magicPrefix+token, email, ttl).Err(); err != nil {
		s.logger.Error("failed to store magic link", zap.Error(err))
		return "", fmt.Errorf("%w: magic link cache write failed", apperrors.ErrServiceUnavailable)
	}
	return token, nil
}

// ConsumeMagicLink fetches and deletes in one step, so two concurrent
// verifications of the same token cannot both succeed.
func (s *Store) ConsumeMagicLink(ctx context.Context, token string) (string, error) {
	email, err := s.rdb.GetDel(ctx, magicPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("%w: invalid or expired magic link", apperrors.ErrUnauthorized)
	}
	if err != nil {
		s.logger.Error("failed to consume magic link", zap.Error(err))
		return "", fmt.Errorf("%w: magic link cache unreachable", apperrors.ErrServiceUnavailable)
	}
	return email, nil
}

func decodeInvite(code string, raw []byte) (*Invite, error) {
	var inv Invite
	if err := json.Unmarshal(raw, &inv); err != nil {
		return nil, fmt.Errorf("corrupt invite payload: %w", err)
	}
	inv.Code = code
	return &inv, nil
}
