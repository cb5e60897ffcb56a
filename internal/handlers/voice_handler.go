package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/voxlink/voxlink/internal/apperrors"
	"github.com/voxlink/voxlink/internal/models"
	"github.com/voxlink/voxlink/internal/permissions"
	"github.com/voxlink/voxlink/internal/services"
	"github.com/voxlink/voxlink/internal/voice"
)

type VoiceHandler struct {
	guilds services.ChannelAccess
	bridge *voice.Bridge
}

func NewVoiceHandler(guilds services.ChannelAccess, bridge *voice.Bridge) *VoiceHandler {
	return &VoiceHandler{guilds: guilds, bridge: bridge}
}

// Token issues an SFU grant for a voice or stream channel. The grant
// identity is always the authenticated principal; nothing in the
// request can override it.
func (h *VoiceHandler) Token(c *gin.Context) {
	channelID := c.Param("channelID")
	userID := principal(c)

	ch, err := h.guilds.CanAccessChannel(channelID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	if ch.Type == models.ChannelText {
		respondError(c, fmt.Errorf("%w: not a voice channel", apperrors.ErrBadRequest))
		return
	}

	publish := true
	if ch.GuildID != nil {
		switch ch.Type {
		case models.ChannelVoice:
			if err := h.guilds.RequirePermission(*ch.GuildID, userID, permissions.ConnectVoice); err != nil {
				respondError(c, err)
				return
			}
		case models.ChannelStream:
			// Anyone with view access may watch; only STREAM holders
			// may publish.
			if err := h.guilds.RequirePermission(*ch.GuildID, userID, permissions.Stream); err != nil {
				publish = false
			}
		}
	}

	grant, err := h.bridge.CreateGrant(channelID, userID, c.GetString("username"), publish)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, grant)
}

func (h *VoiceHandler) Participants(c *gin.Context) {
	channelID := c.Param("channelID")
	if _, err := h.guilds.CanAccessChannel(channelID, principal(c)); err != nil {
		respondError(c, err)
		return
	}

	participants, err := h.bridge.ListParticipants(c.Request.Context(), channelID)
	if err != nil {
		respondError(c, err)
		return
	}
	if participants == nil {
		participants = []voice.Participant{}
	}
	respondData(c, http.StatusOK, participants)
}

// Disconnect force-removes a participant from a voice channel's room.
func (h *VoiceHandler) Disconnect(c *gin.Context) {
	channelID := c.Param("channelID")
	targetID := c.Param("userID")

	ch, err := h.guilds.CanAccessChannel(channelID, principal(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if ch.GuildID == nil {
		respondError(c, fmt.Errorf("%w: channel has no guild", apperrors.ErrBadRequest))
		return
	}
	if err := h.guilds.RequirePermission(*ch.GuildID, principal(c), permissions.MuteMembers); err != nil {
		respondError(c, err)
		return
	}

	h.bridge.RemoveParticipant(c.Request.Context(), channelID, targetID)
	c.Status(http.StatusNoContent)
}
