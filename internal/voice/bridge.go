// Package voice bridges channels to the external SFU. The server
// never proxies media; it only mints signed room grants and calls the
// SFU admin API.
package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/voxlink/voxlink/config"
	"github.com/voxlink/voxlink/internal/apperrors"
)

// roomPrefix namespaces SFU rooms by channel so a room name can never
// collide with anything else.
const roomPrefix = "channel:"

type Bridge struct {
	cfg    *config.VoiceConfig
	http   *http.Client
	logger *zap.Logger
}

func NewBridge(cfg *config.VoiceConfig, logger *zap.Logger) *Bridge {
	return &Bridge{
		cfg:    cfg,
		http:   &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

// RoomName maps a channel to its SFU room.
func RoomName(channelID string) string {
	return roomPrefix + channelID
}

// ChannelID recovers the channel from an SFU room name. The second
// return is false for rooms this server did not create.
func ChannelID(roomName string) (string, bool) {
	id, ok := strings.CutPrefix(roomName, roomPrefix)
	return id, ok && id != ""
}

// Grant is a signed room credential handed to the client, which
// presents it to the SFU directly.
type Grant struct {
	Token    string `json:"token"`
	Room     string `json:"room"`
	URL      string `json:"url"`
	Identity string `json:"identity"`
}

type videoGrant struct {
	Room         string `json:"room"`
	RoomJoin     bool   `json:"roomJoin"`
	CanPublish   bool   `json:"canPublish"`
	CanSubscribe bool   `json:"canSubscribe"`
}

type grantClaims struct {
	Name  string     `json:"name,omitempty"`
	Video videoGrant `json:"video"`
	jwtlib.RegisteredClaims
}

// CreateGrant mints a join token for the channel's room. Identity is
// always the authenticated principal; callers cannot pick their own.
// publish=false issues a listen-only grant for stream viewers.
func (b *Bridge) CreateGrant(channelID, identity, displayName string, publish bool) (*Grant, error) {
	if b.cfg.APIKey == "" || b.cfg.APISecret == "" {
		return nil, fmt.Errorf("%w: voice is not configured", apperrors.ErrServiceUnavailable)
	}

	room := RoomName(channelID)
	now := time.Now()
	claims := grantClaims{
		Name: displayName,
		Video: videoGrant{
			Room:         room,
			RoomJoin:     true,
			CanPublish:   publish,
			CanSubscribe: true,
		},
		RegisteredClaims: jwtlib.RegisteredClaims{
			Issuer:    b.cfg.APIKey,
			Subject:   identity,
			IssuedAt:  jwtlib.NewNumericDate(now),
			NotBefore: jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(time.Duration(b.cfg.GrantTTL) * time.Second)),
		},
	}

	token, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).
		SignedString([]byte(b.cfg.APISecret))
	if err != nil {
		return nil, err
	}

	return &Grant{
		Token:    token,
		Room:     room,
		URL:      b.cfg.URL,
		Identity: identity,
	}, nil
}

// Participant is the slice of SFU participant state we surface.
type Participant struct {
	Identity string `json:"identity"`
	Name     string `json:"name"`
	JoinedAt int64  `json:"joined_at"`
}

// ListParticipants asks the SFU who is in the channel's room. An
// unreachable SFU degrades to an empty list; roster display is not
// worth failing a request over.
func (b *Bridge) ListParticipants(ctx context.Context, channelID string) ([]Participant, error) {
	var resp struct {
		Participants []Participant `json:"participants"`
	}
	err := b.adminCall(ctx, "ListParticipants", map[string]string{"room": RoomName(channelID)}, &resp)
	if err != nil {
		b.logger.Warn("sfu participant listing failed",
			zap.String("channel_id", channelID), zap.Error(err))
		return nil, nil
	}
	return resp.Participants, nil
}

// RemoveParticipant force-disconnects a user from the channel's room,
// backing a moderator kick. Best-effort like the other admin calls:
// the SFU is not authoritative for domain state, so an unreachable one
// is logged and swallowed rather than failing the request.
func (b *Bridge) RemoveParticipant(ctx context.Context, channelID, identity string) {
	err := b.adminCall(ctx, "RemoveParticipant", map[string]string{
		"room":     RoomName(channelID),
		"identity": identity,
	}, nil)
	if err != nil {
		b.logger.Warn("sfu participant removal failed",
			zap.String("channel_id", channelID),
			zap.String("identity", identity), zap.Error(err))
	}
}

// DeleteRoom tears the room down after its channel is deleted.
// Best-effort: the SFU also expires empty rooms on its own.
func (b *Bridge) DeleteRoom(ctx context.Context, channelID string) {
	err := b.adminCall(ctx, "DeleteRoom", map[string]string{"room": RoomName(channelID)}, nil)
	if err != nil {
		b.logger.Warn("sfu room deletion failed",
			zap.String("channel_id", channelID), zap.Error(err))
	}
}

// adminCall posts to the SFU's RoomService RPC surface with a
// short-lived admin token.
func (b *Bridge) adminCall(ctx context.Context, method string, params map[string]string, out any) error {
	token, err := b.adminToken()
	if err != nil {
		return err
	}

	body, err := json.Marshal(params)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/twirp/livekit.RoomService/%s", httpBaseURL(b.cfg.URL), method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := b.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("sfu %s returned %s", method, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (b *Bridge) adminToken() (string, error) {
	now := time.Now()
	claims := struct {
		Video struct {
			RoomAdmin bool `json:"roomAdmin"`
			RoomList  bool `json:"roomList"`
		} `json:"video"`
		jwtlib.RegisteredClaims
	}{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Issuer:    b.cfg.APIKey,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(time.Minute)),
		},
	}
	claims.Video.RoomAdmin = true
	claims.Video.RoomList = true

	return jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).
		SignedString([]byte(b.cfg.APISecret))
}

// httpBaseURL converts the client-facing websocket URL into the admin
// HTTP endpoint.
func httpBaseURL(url string) string {
	switch {
	case strings.HasPrefix(url, "wss://"):
		return "https://" + strings.TrimPrefix(url, "wss://")
	case strings.HasPrefix(url, "ws://"):
		return "http://" + strings.TrimPrefix(url, "ws://")
	}
	return url
}
