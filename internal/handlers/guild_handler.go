package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/voxlink/voxlink/internal/permissions"
	"github.com/voxlink/voxlink/internal/services"
	"github.com/voxlink/voxlink/internal/tokens"
)

type GuildHandler struct {
	guilds      *services.GuildService
	tokens      *tokens.Store
	frontendURL string
}

func NewGuildHandler(guilds *services.GuildService, tokenStore *tokens.Store, frontendURL string) *GuildHandler {
	return &GuildHandler{guilds: guilds, tokens: tokenStore, frontendURL: frontendURL}
}

func (h *GuildHandler) Create(c *gin.Context) {
	var req services.CreateGuildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	guild, err := h.guilds.CreateGuild(principal(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusCreated, guild)
}

func (h *GuildHandler) List(c *gin.Context) {
	guilds, err := h.guilds.ListGuilds(principal(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, guilds)
}

func (h *GuildHandler) Get(c *gin.Context) {
	guild, err := h.guilds.GetGuild(c.Param("id"), principal(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, guild)
}

func (h *GuildHandler) Update(c *gin.Context) {
	var req services.UpdateGuildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	guild, err := h.guilds.UpdateGuild(c.Param("id"), principal(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, guild)
}

func (h *GuildHandler) Delete(c *gin.Context) {
	if err := h.guilds.DeleteGuild(c.Param("id"), principal(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Join admits the caller via the guild-level join code.
func (h *GuildHandler) Join(c *gin.Context) {
	var req struct {
		InviteCode string `json:"invite_code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	member, err := h.guilds.JoinByInvite(req.InviteCode, principal(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, member)
}

// Preview resolves a guild by its invite code without joining, so a
// client can show what the code leads to.
func (h *GuildHandler) Preview(c *gin.Context) {
	guild, err := h.guilds.GetGuildByInviteCode(c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{
		"id":          guild.ID,
		"name":        guild.Name,
		"description": guild.Description,
		"icon":        guild.Icon,
		"is_public":   guild.IsPublic,
	})
}

func (h *GuildHandler) RegenerateInviteCode(c *gin.Context) {
	code, err := h.guilds.RegenerateInviteCode(c.Param("id"), principal(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{"invite_code": code})
}

// CreateInviteToken mints an ephemeral single-guild invite.
func (h *GuildHandler) CreateInviteToken(c *gin.Context) {
	guildID := c.Param("id")
	if err := h.guilds.RequirePermission(guildID, principal(c), permissions.CreateInvite); err != nil {
		respondError(c, err)
		return
	}

	var req struct {
		ChannelID      string `json:"channel_id"`
		Role           string `json:"role"`
		ExpiresInHours int    `json:"expires_in_hours"`
		MaxUses        int    `json:"max_uses"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	inv, err := h.tokens.CreateInvite(c.Request.Context(), tokens.CreateInviteParams{
		GuildID:        guildID,
		ChannelID:      req.ChannelID,
		Role:           req.Role,
		ExpiresInHours: req.ExpiresInHours,
		MaxUses:        req.MaxUses,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusCreated, gin.H{
		"code":       inv.Code,
		"url":        h.frontendURL + "/invite/" + inv.Code,
		"role":       inv.Role,
		"expires_at": inv.ExpiresAt,
		"max_uses":   inv.MaxUses,
	})
}

func (h *GuildHandler) ListMembers(c *gin.Context) {
	members, err := h.guilds.ListMembers(c.Param("id"), principal(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, members)
}

func (h *GuildHandler) KickMember(c *gin.Context) {
	if err := h.guilds.KickMember(c.Param("id"), c.Param("userID"), principal(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *GuildHandler) BanMember(c *gin.Context) {
	if err := h.guilds.BanMember(c.Param("id"), c.Param("userID"), principal(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *GuildHandler) ListRoles(c *gin.Context) {
	roles, err := h.guilds.ListRoles(c.Param("id"), principal(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, roles)
}

func (h *GuildHandler) CreateRole(c *gin.Context) {
	var req services.RoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	role, err := h.guilds.CreateRole(c.Param("id"), principal(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusCreated, role)
}

func (h *GuildHandler) UpdateRole(c *gin.Context) {
	var req services.RoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	role, err := h.guilds.UpdateRole(c.Param("id"), c.Param("roleID"), principal(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, role)
}

func (h *GuildHandler) DeleteRole(c *gin.Context) {
	if err := h.guilds.DeleteRole(c.Param("id"), c.Param("roleID"), principal(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *GuildHandler) AssignRole(c *gin.Context) {
	if err := h.guilds.AssignRole(c.Param("id"), c.Param("userID"), c.Param("roleID"), principal(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *GuildHandler) RemoveRole(c *gin.Context) {
	if err := h.guilds.RemoveRole(c.Param("id"), c.Param("userID"), c.Param("roleID"), principal(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *GuildHandler) ListCategories(c *gin.Context) {
	cats, err := h.guilds.ListCategories(c.Param("id"), principal(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, cats)
}

func (h *GuildHandler) CreateCategory(c *gin.Context) {
	var req services.CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cat, err := h.guilds.CreateCategory(c.Param("id"), principal(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusCreated, cat)
}

func (h *GuildHandler) DeleteCategory(c *gin.Context) {
	if err := h.guilds.DeleteCategory(c.Param("id"), c.Param("categoryID"), principal(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *GuildHandler) CreateChannel(c *gin.Context) {
	var req services.ChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ch, err := h.guilds.CreateChannel(c.Param("id"), principal(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusCreated, ch)
}

func (h *GuildHandler) ListChannels(c *gin.Context) {
	channels, err := h.guilds.ListChannels(c.Param("id"), principal(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, channels)
}

func (h *GuildHandler) UpdateChannel(c *gin.Context) {
	var req services.ChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ch, err := h.guilds.UpdateChannel(c.Param("id"), c.Param("channelID"), principal(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, ch)
}

func (h *GuildHandler) DeleteChannel(c *gin.Context) {
	if err := h.guilds.DeleteChannel(c.Param("id"), c.Param("channelID"), principal(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
