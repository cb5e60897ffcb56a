package gateway

import "encoding/json"

// Event is the wire envelope in both directions. Payload shape is
// event-specific.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Client-to-server event types.
const (
	EventAuth         = "auth"
	EventChannelJoin  = "channel:join"
	EventChannelLeave = "channel:leave"
	EventMessageSend  = "message:send"
	EventTypingStart  = "typing:start"
	EventTypingStop   = "typing:stop"
	EventGuildJoin    = "guild:join"
	EventGuildLeave   = "guild:leave"
	EventVoiceJoined  = "voice:joined"
	EventVoiceLeft    = "voice:left"
)

// Server-to-client event types.
const (
	EventReady           = "ready"
	EventChannelReady    = "channel:ready"
	EventMemberJoined    = "channel:member-joined"
	EventMemberLeft      = "channel:member-left"
	EventMessageNew      = "message:new"
	EventTyping          = "typing"
	EventVoiceState      = "voice:state"
	EventPresenceChanged = "presence:changed"
	EventError           = "error"
)

type authPayload struct {
	Token string `json:"token"`
}

type channelPayload struct {
	ChannelID string `json:"channel_id"`
}

type guildPayload struct {
	GuildID string `json:"guild_id"`
}

type messageSendPayload struct {
	ChannelID string `json:"channel_id"`
	Content   string `json:"content"`
	ReplyToID *string `json:"reply_to_id,omitempty"`
}

type errorPayload struct {
	Message string `json:"message"`
	Event   string `json:"event,omitempty"`
}

// newEvent marshals the payload eagerly so a single encoding is shared
// by every recipient of a broadcast.
func newEvent(eventType string, payload any) *Event {
	var raw json.RawMessage
	if payload != nil {
		raw, _ = json.Marshal(payload)
	}
	return &Event{Type: eventType, Payload: raw}
}

func (e *Event) encode() []byte {
	data, _ := json.Marshal(e)
	return data
}

// Room keys. A room is just a named set of clients; the prefixes keep
// user, channel and guild fan-out from ever colliding.
func userRoom(userID string) string       { return "user:" + userID }
func channelRoom(channelID string) string { return "channel:" + channelID }
func guildRoom(guildID string) string     { return "guild:" + guildID }
