// Package gateway is the realtime websocket surface: room membership,
// event fan-out, presence, and the live half of messaging. It never
// touches media; voice events only mirror who is in which room.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/voxlink/voxlink/config"
	"github.com/voxlink/voxlink/internal/models"
	"github.com/voxlink/voxlink/internal/presence"
	"github.com/voxlink/voxlink/internal/services"
	"github.com/voxlink/voxlink/middleware/jwt"
)

// How long an unauthenticated socket may sit before we hang up.
const authWait = 10 * time.Second

var (
	errMalformedEvent = errors.New("malformed event")
	errUnknownEvent   = errors.New("unknown event type")
	errNotInChannel   = errors.New("join the channel first")
)

// GuildAccess is the slice of guild behavior the gateway needs.
type GuildAccess interface {
	ListGuilds(userID string) ([]models.Guild, error)
	GetGuild(guildID, userID string) (*models.Guild, error)
	CanAccessChannel(channelID, userID string) (*models.Channel, error)
}

// Messaging is the slice of message behavior the gateway needs.
type Messaging interface {
	Send(channelID, authorID string, req *services.SendMessageRequest) (*models.Message, error)
	History(channelID, userID string, limit int) ([]models.Message, error)
}

// TokenParser validates session credentials.
type TokenParser interface {
	ParseToken(token string) (*jwt.Claims, error)
}

type Handler struct {
	hub      *Hub
	guilds   GuildAccess
	messages Messaging
	presence *presence.Tracker
	tokens   TokenParser
	cfg      *config.WebsocketConfig
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

func NewHandler(
	hub *Hub,
	guilds GuildAccess,
	messages Messaging,
	tracker *presence.Tracker,
	tokens TokenParser,
	cfg *config.WebsocketConfig,
	logger *zap.Logger,
) *Handler {
	h := &Handler{
		hub:      hub,
		guilds:   guilds,
		messages: messages,
		presence: tracker,
		tokens:   tokens,
		cfg:      cfg,
		logger:   logger,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if len(h.cfg.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.cfg.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

func (h *Handler) pongWait() time.Duration {
	return time.Duration(h.cfg.HeartbeatInterval*2) * time.Second
}

func (h *Handler) pingPeriod() time.Duration {
	return h.pongWait() * 9 / 10
}

// ServeWS upgrades the connection and runs the session. Credentials
// may arrive as a Bearer header, a token query parameter, or a first
// auth frame, checked in that order.
func (h *Handler) ServeWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	claims, err := h.authenticate(conn, c.Request)
	if err != nil {
		deadline := time.Now().Add(writeWait)
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "authentication failed"),
			deadline)
		conn.Close()
		return
	}

	client := &Client{
		conn:     conn,
		send:     make(chan []byte, h.cfg.SendBufferSize),
		userID:   claims.UserID,
		username: claims.UserName,
		channels: make(map[string]struct{}),
		handler:  h,
		logger:   h.logger.With(zap.String("user_id", claims.UserID)),
	}

	ctx := c.Request.Context()
	h.hub.Register(client)
	h.presence.SetOnline(ctx, client.userID)

	// Sessions start subscribed to every guild the user belongs to, so
	// guild-wide events arrive without an explicit guild:join.
	guilds, err := h.guilds.ListGuilds(client.userID)
	if err != nil {
		h.logger.Warn("could not list guilds for session",
			zap.String("user_id", client.userID), zap.Error(err))
	}
	guildIDs := make([]string, 0, len(guilds))
	for _, g := range guilds {
		h.hub.Join(client, guildRoom(g.ID))
		guildIDs = append(guildIDs, g.ID)
	}
	h.broadcastPresence(client, presence.StatusOnline)

	client.sendEvent(newEvent(EventReady, gin.H{
		"user_id":  client.userID,
		"username": client.username,
		"guilds":   guildIDs,
	}))

	client.logger.Info("gateway session opened")
	go client.writePump()
	go client.readPump(context.WithoutCancel(ctx))
}

// authenticate resolves the session principal before any other event
// is processed.
func (h *Handler) authenticate(conn *websocket.Conn, r *http.Request) (*jwt.Claims, error) {
	if token := credentialFromRequest(r); token != "" {
		return h.tokens.ParseToken(token)
	}

	// No transport credential: the first frame must be an auth event.
	conn.SetReadDeadline(time.Now().Add(authWait))
	defer conn.SetReadDeadline(time.Time{})

	_, data, err := conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	var event Event
	if err := json.Unmarshal(data, &event); err != nil || event.Type != EventAuth {
		return nil, errMalformedEvent
	}
	var payload authPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil || payload.Token == "" {
		return nil, errMalformedEvent
	}
	return h.tokens.ParseToken(payload.Token)
}

// credentialFromRequest checks the Authorization header, then the
// token query parameter. Browsers cannot set headers on websocket
// dials, hence the query fallback.
func credentialFromRequest(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return r.URL.Query().Get("token")
}

// dispatch routes one inbound event. Runs on the session's read pump.
func (h *Handler) dispatch(ctx context.Context, c *Client, event *Event) {
	switch event.Type {
	case EventChannelJoin:
		h.handleChannelJoin(ctx, c, event)
	case EventChannelLeave:
		h.handleChannelLeave(ctx, c, event)
	case EventMessageSend:
		h.handleMessageSend(ctx, c, event)
	case EventTypingStart:
		h.handleTyping(c, event, true)
	case EventTypingStop:
		h.handleTyping(c, event, false)
	case EventGuildJoin:
		h.handleGuildJoin(c, event)
	case EventGuildLeave:
		h.handleGuildLeave(c, event)
	case EventVoiceJoined:
		h.handleVoice(ctx, c, event, true)
	case EventVoiceLeft:
		h.handleVoice(ctx, c, event, false)
	case EventAuth:
		// Already authenticated; ignore.
	default:
		c.sendError(event.Type, errUnknownEvent)
	}
}

// handleChannelJoin subscribes the session to a channel room and
// replays recent history. The snapshot goes only to the joiner; the
// room hears member-joined instead.
func (h *Handler) handleChannelJoin(ctx context.Context, c *Client, event *Event) {
	var p channelPayload
	if err := json.Unmarshal(event.Payload, &p); err != nil || p.ChannelID == "" {
		c.sendError(event.Type, errMalformedEvent)
		return
	}

	if _, err := h.guilds.CanAccessChannel(p.ChannelID, c.userID); err != nil {
		c.sendError(event.Type, err)
		return
	}

	h.hub.Join(c, channelRoom(p.ChannelID))
	c.channels[p.ChannelID] = struct{}{}
	h.presence.AddChannelMember(ctx, p.ChannelID, c.userID)

	history, err := h.messages.History(p.ChannelID, c.userID, services.HistoryLimit)
	if err != nil {
		h.logger.Warn("history replay failed",
			zap.String("channel_id", p.ChannelID), zap.Error(err))
	}
	if history == nil {
		history = []models.Message{}
	}

	c.sendEvent(newEvent(EventChannelReady, gin.H{
		"channel_id": p.ChannelID,
		"messages":   history,
		"members":    h.presence.ChannelMembers(ctx, p.ChannelID),
	}))

	h.hub.Broadcast(channelRoom(p.ChannelID), newEvent(EventMemberJoined, gin.H{
		"channel_id": p.ChannelID,
		"user_id":    c.userID,
		"username":   c.username,
	}), c)
}

func (h *Handler) handleChannelLeave(ctx context.Context, c *Client, event *Event) {
	var p channelPayload
	if err := json.Unmarshal(event.Payload, &p); err != nil || p.ChannelID == "" {
		c.sendError(event.Type, errMalformedEvent)
		return
	}
	if _, joined := c.channels[p.ChannelID]; !joined {
		return
	}
	delete(c.channels, p.ChannelID)
	h.leaveChannel(ctx, c, p.ChannelID)
}

func (h *Handler) leaveChannel(ctx context.Context, c *Client, channelID string) {
	h.hub.Leave(c, channelRoom(channelID))
	h.presence.RemoveChannelMember(ctx, channelID, c.userID)
	h.hub.Broadcast(channelRoom(channelID), newEvent(EventMemberLeft, gin.H{
		"channel_id": channelID,
		"user_id":    c.userID,
	}), nil)
}

// handleMessageSend persists then fans out. The sender gets the
// broadcast copy too, carrying the server-assigned id and timestamp;
// failures go back privately as an error event.
func (h *Handler) handleMessageSend(ctx context.Context, c *Client, event *Event) {
	var p messageSendPayload
	if err := json.Unmarshal(event.Payload, &p); err != nil || p.ChannelID == "" {
		c.sendError(event.Type, errMalformedEvent)
		return
	}

	msg, err := h.messages.Send(p.ChannelID, c.userID, &services.SendMessageRequest{
		Content:   p.Content,
		ReplyToID: p.ReplyToID,
	})
	if err != nil {
		c.sendError(event.Type, err)
		return
	}

	h.hub.Broadcast(channelRoom(p.ChannelID), newEvent(EventMessageNew, msg), nil)
}

// handleTyping relays typing state to everyone else in the channel.
// Never echoed to the sender, never persisted.
func (h *Handler) handleTyping(c *Client, event *Event, typing bool) {
	var p channelPayload
	if err := json.Unmarshal(event.Payload, &p); err != nil || p.ChannelID == "" {
		c.sendError(event.Type, errMalformedEvent)
		return
	}
	if _, joined := c.channels[p.ChannelID]; !joined {
		c.sendError(event.Type, errNotInChannel)
		return
	}
	h.hub.Broadcast(channelRoom(p.ChannelID), newEvent(EventTyping, gin.H{
		"channel_id": p.ChannelID,
		"user_id":    c.userID,
		"username":   c.username,
		"typing":     typing,
	}), c)
}

func (h *Handler) handleGuildJoin(c *Client, event *Event) {
	var p guildPayload
	if err := json.Unmarshal(event.Payload, &p); err != nil || p.GuildID == "" {
		c.sendError(event.Type, errMalformedEvent)
		return
	}
	if _, err := h.guilds.GetGuild(p.GuildID, c.userID); err != nil {
		c.sendError(event.Type, err)
		return
	}
	h.hub.Join(c, guildRoom(p.GuildID))
}

func (h *Handler) handleGuildLeave(c *Client, event *Event) {
	var p guildPayload
	if err := json.Unmarshal(event.Payload, &p); err != nil || p.GuildID == "" {
		c.sendError(event.Type, errMalformedEvent)
		return
	}
	h.hub.Leave(c, guildRoom(p.GuildID))
}

// handleVoice mirrors SFU room occupancy to the channel room. The
// gateway takes the client's word for it only after checking the
// channel is a real voice channel the user may enter.
func (h *Handler) handleVoice(ctx context.Context, c *Client, event *Event, joined bool) {
	var p channelPayload
	if err := json.Unmarshal(event.Payload, &p); err != nil || p.ChannelID == "" {
		c.sendError(event.Type, errMalformedEvent)
		return
	}

	ch, err := h.guilds.CanAccessChannel(p.ChannelID, c.userID)
	if err != nil {
		c.sendError(event.Type, err)
		return
	}
	if ch.Type == models.ChannelText {
		c.sendError(event.Type, errors.New("not a voice channel"))
		return
	}

	if joined {
		h.presence.AddChannelMember(ctx, p.ChannelID, c.userID)
	} else {
		h.presence.RemoveChannelMember(ctx, p.ChannelID, c.userID)
	}

	h.hub.Broadcast(channelRoom(p.ChannelID), newEvent(EventVoiceState, gin.H{
		"channel_id": p.ChannelID,
		"user_id":    c.userID,
		"username":   c.username,
		"joined":     joined,
	}), nil)
}

// disconnect tears a session down: channel rooms hear member-left,
// everyone hears the presence change, and the cache forgets the user.
func (h *Handler) disconnect(ctx context.Context, c *Client) {
	for channelID := range c.channels {
		h.leaveChannel(ctx, c, channelID)
	}
	h.broadcastPresence(c, presence.StatusOffline)

	h.hub.Unregister(c)
	h.presence.SetOffline(ctx, c.userID)
	c.logger.Info("gateway session closed")
}

// broadcastPresence tells every connected session, not just shared
// rooms; two users need no common guild to see each other come online.
func (h *Handler) broadcastPresence(c *Client, status string) {
	h.hub.BroadcastAll(newEvent(EventPresenceChanged, gin.H{
		"user_id":  c.userID,
		"username": c.username,
		"status":   status,
	}), c)
}
