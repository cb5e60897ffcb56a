package services

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/voxlink/voxlink/internal/apperrors"
	"github.com/voxlink/voxlink/internal/models"
	"github.com/voxlink/voxlink/internal/permissions"
)

// Invite codes are regenerated on unique-index collisions, but not
// forever: past this many attempts the operation fails with a
// conflict.
const inviteCodeRetries = 5

const inviteCodeLength = 10

const inviteCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz23456789"

// GuildStore is the persistence surface GuildService needs. The gorm
// implementation lives in repositories; tests use an in-memory fake.
type GuildStore interface {
	CreateGuild(guild *models.Guild, roles []*models.GuildRole, ownerMember *models.GuildMember, ownerRoleIdx int, categories []*models.ChannelCategory, channels []*models.Channel) error
	GetGuild(id string) (*models.Guild, error)
	GetGuildByInviteCode(code string) (*models.Guild, error)
	ListGuildsForUser(userID string) ([]models.Guild, error)
	UpdateGuild(id string, updates map[string]any) error
	DeleteGuild(id string) error
	SetInviteCode(guildID, code string) error

	GetMember(guildID, userID string) (*models.GuildMember, error)
	CreateMember(member *models.GuildMember, roles []models.GuildRole) error
	DeleteMember(guildID, userID string) error
	UpdateMemberStatus(guildID, userID string, status models.MemberStatus) error
	ListActiveMembers(guildID string) ([]models.GuildMember, error)
	AppendMemberRole(member *models.GuildMember, role *models.GuildRole) error
	RemoveMemberRole(member *models.GuildMember, role *models.GuildRole) error

	CreateRole(role *models.GuildRole) error
	GetRole(guildID, roleID string) (*models.GuildRole, error)
	UpdateRole(roleID string, updates map[string]any) error
	DeleteRole(roleID string) error
	ListRoles(guildID string) ([]models.GuildRole, error)
	LowestPositionRole(guildID string) (*models.GuildRole, error)

	CreateCategory(cat *models.ChannelCategory) error
	GetCategory(guildID, categoryID string) (*models.ChannelCategory, error)
	DeleteCategory(guildID, categoryID string) error
	ListCategories(guildID string) ([]models.ChannelCategory, error)

	CreateChannel(ch *models.Channel) error
	GetChannel(id string) (*models.Channel, error)
	UpdateChannel(id string, updates map[string]any) error
	DeleteChannel(id string) error
	ListGuildChannels(guildID string) ([]models.Channel, error)
}

type GuildService struct {
	store  GuildStore
	logger *zap.Logger
}

func NewGuildService(store GuildStore, logger *zap.Logger) *GuildService {
	return &GuildService{store: store, logger: logger}
}

type CreateGuildRequest struct {
	Name             string `json:"name" binding:"required"`
	Description      string `json:"description"`
	Icon             string `json:"icon"`
	IsPublic         bool   `json:"is_public"`
	RequiresApproval bool   `json:"requires_approval"`
}

// CreateGuild builds the whole guild graph as one atomic unit: the
// guild row, the three managed roles, the creator's owner membership,
// and the default category/channel structure. A guild never exists
// without its system roles.
func (s *GuildService) CreateGuild(creatorID string, req *CreateGuildRequest) (*models.Guild, error) {
	guild := &models.Guild{
		Name:             req.Name,
		Description:      req.Description,
		Icon:             req.Icon,
		IsPublic:         req.IsPublic,
		RequiresApproval: req.RequiresApproval,
		OwnerID:          creatorID,
		InviteCode:       generateInviteCode(),
	}

	roles := []*models.GuildRole{
		{Name: "Owner", Color: "#f1c40f", Permissions: permissions.DefaultOwner, Position: 100, IsManaged: true},
		{Name: "Officer", Color: "#e74c3c", Permissions: permissions.DefaultOfficer, Position: 50, IsManaged: true},
		{Name: "Member", Color: "#99aab5", Permissions: permissions.DefaultMember, Position: 1, IsManaged: true},
	}

	member := &models.GuildMember{
		UserID: creatorID,
		Status: models.MemberActive,
	}

	// Category IDs are assigned up front so the default channels can
	// reference them inside the same transaction.
	textCat := &models.ChannelCategory{ID: uuid.NewString(), Name: "Text Channels", Position: 0}
	voiceCat := &models.ChannelCategory{ID: uuid.NewString(), Name: "Voice Channels", Position: 1}

	channels := []*models.Channel{
		{Name: "general", Type: models.ChannelText, CategoryID: &textCat.ID, Position: 0, CreatedByID: creatorID},
		{Name: "announcements", Type: models.ChannelText, CategoryID: &textCat.ID, Position: 1, CreatedByID: creatorID},
		{Name: "General", Type: models.ChannelVoice, CategoryID: &voiceCat.ID, Position: 0, CreatedByID: creatorID},
		{Name: "Raid", Type: models.ChannelVoice, CategoryID: &voiceCat.ID, Position: 1, CreatedByID: creatorID},
	}

	err := s.store.CreateGuild(guild, roles, member, 0,
		[]*models.ChannelCategory{textCat, voiceCat}, channels)
	if err != nil {
		return nil, err
	}

	s.logger.Info("guild created",
		zap.String("guild_id", guild.ID),
		zap.String("owner_id", creatorID))
	return guild, nil
}

func (s *GuildService) GetGuild(guildID, userID string) (*models.Guild, error) {
	guild, err := s.store.GetGuild(guildID)
	if err != nil {
		return nil, notFound(err, "guild")
	}
	if _, err := s.activeMember(guildID, userID); err != nil {
		return nil, err
	}
	return guild, nil
}

func (s *GuildService) ListGuilds(userID string) ([]models.Guild, error) {
	return s.store.ListGuildsForUser(userID)
}

type UpdateGuildRequest struct {
	Name             *string `json:"name"`
	Description      *string `json:"description"`
	Icon             *string `json:"icon"`
	IsPublic         *bool   `json:"is_public"`
	RequiresApproval *bool   `json:"requires_approval"`
}

func (s *GuildService) UpdateGuild(guildID, userID string, req *UpdateGuildRequest) (*models.Guild, error) {
	if err := s.RequirePermission(guildID, userID, permissions.ManageGuild); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Icon != nil {
		updates["icon"] = *req.Icon
	}
	if req.IsPublic != nil {
		updates["is_public"] = *req.IsPublic
	}
	if req.RequiresApproval != nil {
		updates["requires_approval"] = *req.RequiresApproval
	}
	if len(updates) > 0 {
		if err := s.store.UpdateGuild(guildID, updates); err != nil {
			return nil, err
		}
	}
	guild, err := s.store.GetGuild(guildID)
	if err != nil {
		return nil, notFound(err, "guild")
	}
	return guild, nil
}

// DeleteGuild is owner-only; even ADMINISTRATOR does not reach it.
func (s *GuildService) DeleteGuild(guildID, userID string) error {
	guild, err := s.store.GetGuild(guildID)
	if err != nil {
		return notFound(err, "guild")
	}
	if guild.OwnerID != userID {
		return fmt.Errorf("%w: only the owner can delete a guild", apperrors.ErrForbidden)
	}
	return s.store.DeleteGuild(guildID)
}

// ─── Invite codes ───────────────────────────────────────────────────

// RegenerateInviteCode swaps the guild join code, retrying on
// collisions up to the budget.
func (s *GuildService) RegenerateInviteCode(guildID, userID string) (string, error) {
	if err := s.RequirePermission(guildID, userID, permissions.CreateInvite); err != nil {
		return "", err
	}

	for attempt := 0; attempt < inviteCodeRetries; attempt++ {
		code := generateInviteCode()
		err := s.store.SetInviteCode(guildID, code)
		if err == nil {
			return code, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return "", err
		}
		s.logger.Warn("invite code collision, retrying",
			zap.String("guild_id", guildID), zap.Int("attempt", attempt+1))
	}
	return "", fmt.Errorf("%w: could not allocate a unique invite code", apperrors.ErrConflict)
}

func (s *GuildService) GetGuildByInviteCode(code string) (*models.Guild, error) {
	guild, err := s.store.GetGuildByInviteCode(code)
	if err != nil {
		return nil, notFound(err, "invite code")
	}
	return guild, nil
}

// JoinByInvite admits a user via the guild-level join code. Banned
// users are refused, active members conflict, and approval-required
// guilds admit as pending.
func (s *GuildService) JoinByInvite(code, userID string) (*models.GuildMember, error) {
	guild, err := s.store.GetGuildByInviteCode(code)
	if err != nil {
		return nil, notFound(err, "invite code")
	}

	if existing, err := s.store.GetMember(guild.ID, userID); err == nil {
		switch existing.Status {
		case models.MemberActive:
			return nil, fmt.Errorf("%w: already a member", apperrors.ErrConflict)
		case models.MemberBanned:
			return nil, fmt.Errorf("%w: you are banned from this guild", apperrors.ErrForbidden)
		case models.MemberPending:
			return existing, nil
		}
	}

	status := models.MemberActive
	if guild.RequiresApproval {
		status = models.MemberPending
	}

	member := &models.GuildMember{
		GuildID: guild.ID,
		UserID:  userID,
		Status:  status,
	}

	var defaultRoles []models.GuildRole
	if role, err := s.store.LowestPositionRole(guild.ID); err == nil {
		defaultRoles = append(defaultRoles, *role)
	}

	if err := s.store.CreateMember(member, defaultRoles); err != nil {
		return nil, err
	}
	member.Roles = defaultRoles

	s.logger.Info("member joined guild",
		zap.String("guild_id", guild.ID),
		zap.String("user_id", userID),
		zap.String("status", string(status)))
	return member, nil
}

// GrantMembership admits a user directly with the named managed role,
// bypassing the guild join code. Ephemeral invite tokens land here
// after redemption: the token already proved admission, so
// requires_approval does not apply.
func (s *GuildService) GrantMembership(guildID, userID, roleName string) (*models.GuildMember, error) {
	if _, err := s.store.GetGuild(guildID); err != nil {
		return nil, notFound(err, "guild")
	}

	if existing, err := s.store.GetMember(guildID, userID); err == nil {
		switch existing.Status {
		case models.MemberBanned:
			return nil, fmt.Errorf("%w: you are banned from this guild", apperrors.ErrForbidden)
		case models.MemberActive:
			return existing, nil
		case models.MemberPending:
			if err := s.store.UpdateMemberStatus(guildID, userID, models.MemberActive); err != nil {
				return nil, err
			}
			existing.Status = models.MemberActive
			return existing, nil
		}
	}

	roles, err := s.store.ListRoles(guildID)
	if err != nil {
		return nil, err
	}
	var grant []models.GuildRole
	for _, r := range roles {
		if r.IsManaged && strings.EqualFold(r.Name, roleName) {
			grant = append(grant, r)
			break
		}
	}
	if len(grant) == 0 {
		if role, err := s.store.LowestPositionRole(guildID); err == nil {
			grant = append(grant, *role)
		}
	}

	member := &models.GuildMember{
		GuildID: guildID,
		UserID:  userID,
		Status:  models.MemberActive,
	}
	if err := s.store.CreateMember(member, grant); err != nil {
		return nil, err
	}
	member.Roles = grant
	return member, nil
}

// ─── Members ────────────────────────────────────────────────────────

func (s *GuildService) ListMembers(guildID, userID string) ([]models.GuildMember, error) {
	if _, err := s.activeMember(guildID, userID); err != nil {
		return nil, err
	}
	return s.store.ListActiveMembers(guildID)
}

// KickMember deletes the membership row entirely. The owner cannot be
// kicked.
func (s *GuildService) KickMember(guildID, targetUserID, actorID string) error {
	if err := s.RequirePermission(guildID, actorID, permissions.KickMembers); err != nil {
		return err
	}
	guild, err := s.store.GetGuild(guildID)
	if err != nil {
		return notFound(err, "guild")
	}
	if guild.OwnerID == targetUserID {
		return fmt.Errorf("%w: cannot kick the owner", apperrors.ErrForbidden)
	}
	return s.store.DeleteMember(guildID, targetUserID)
}

// BanMember keeps the row — ban history and role assignments survive —
// and flips status to banned. The owner cannot be banned.
func (s *GuildService) BanMember(guildID, targetUserID, actorID string) error {
	if err := s.RequirePermission(guildID, actorID, permissions.BanMembers); err != nil {
		return err
	}
	guild, err := s.store.GetGuild(guildID)
	if err != nil {
		return notFound(err, "guild")
	}
	if guild.OwnerID == targetUserID {
		return fmt.Errorf("%w: cannot ban the owner", apperrors.ErrForbidden)
	}
	if _, err := s.store.GetMember(guildID, targetUserID); err != nil {
		return notFound(err, "member")
	}
	return s.store.UpdateMemberStatus(guildID, targetUserID, models.MemberBanned)
}

// AssignRole is idempotent: assigning a role the member already holds
// is a no-op.
func (s *GuildService) AssignRole(guildID, targetUserID, roleID, actorID string) error {
	if err := s.RequirePermission(guildID, actorID, permissions.ManageRoles); err != nil {
		return err
	}
	role, err := s.store.GetRole(guildID, roleID)
	if err != nil {
		return notFound(err, "role")
	}
	member, err := s.store.GetMember(guildID, targetUserID)
	if err != nil {
		return notFound(err, "member")
	}
	if member.HasRole(roleID) {
		return nil
	}
	return s.store.AppendMemberRole(member, role)
}

// RemoveRole tolerates absent assignments.
func (s *GuildService) RemoveRole(guildID, targetUserID, roleID, actorID string) error {
	if err := s.RequirePermission(guildID, actorID, permissions.ManageRoles); err != nil {
		return err
	}
	member, err := s.store.GetMember(guildID, targetUserID)
	if err != nil {
		return notFound(err, "member")
	}
	if !member.HasRole(roleID) {
		return nil
	}
	role, err := s.store.GetRole(guildID, roleID)
	if err != nil {
		return nil
	}
	return s.store.RemoveMemberRole(member, role)
}

// ─── Roles ──────────────────────────────────────────────────────────

type RoleRequest struct {
	Name        string                 `json:"name" binding:"required"`
	Color       string                 `json:"color"`
	Permissions permissions.Permission `json:"permissions"`
	Position    int                    `json:"position"`
	IsHoisted   bool                   `json:"is_hoisted"`
}

func (s *GuildService) ListRoles(guildID, userID string) ([]models.GuildRole, error) {
	if _, err := s.activeMember(guildID, userID); err != nil {
		return nil, err
	}
	return s.store.ListRoles(guildID)
}

func (s *GuildService) CreateRole(guildID, actorID string, req *RoleRequest) (*models.GuildRole, error) {
	if err := s.RequirePermission(guildID, actorID, permissions.ManageRoles); err != nil {
		return nil, err
	}
	role := &models.GuildRole{
		GuildID:     guildID,
		Name:        req.Name,
		Color:       req.Color,
		Permissions: req.Permissions,
		Position:    req.Position,
		IsHoisted:   req.IsHoisted,
	}
	if role.Color == "" {
		role.Color = "#99aab5"
	}
	if err := s.store.CreateRole(role); err != nil {
		return nil, err
	}
	return role, nil
}

func (s *GuildService) UpdateRole(guildID, roleID, actorID string, req *RoleRequest) (*models.GuildRole, error) {
	if err := s.RequirePermission(guildID, actorID, permissions.ManageRoles); err != nil {
		return nil, err
	}
	role, err := s.store.GetRole(guildID, roleID)
	if err != nil {
		return nil, notFound(err, "role")
	}
	if role.IsManaged {
		return nil, fmt.Errorf("%w: cannot modify system roles", apperrors.ErrForbidden)
	}
	updates := map[string]any{
		"name":        req.Name,
		"color":       req.Color,
		"permissions": req.Permissions,
		"position":    req.Position,
		"is_hoisted":  req.IsHoisted,
	}
	if err := s.store.UpdateRole(roleID, updates); err != nil {
		return nil, err
	}
	return s.store.GetRole(guildID, roleID)
}

func (s *GuildService) DeleteRole(guildID, roleID, actorID string) error {
	if err := s.RequirePermission(guildID, actorID, permissions.ManageRoles); err != nil {
		return err
	}
	role, err := s.store.GetRole(guildID, roleID)
	if err != nil {
		return notFound(err, "role")
	}
	if role.IsManaged {
		return fmt.Errorf("%w: cannot delete system roles", apperrors.ErrForbidden)
	}
	return s.store.DeleteRole(roleID)
}

// ─── Categories ─────────────────────────────────────────────────────

type CategoryRequest struct {
	Name     string `json:"name" binding:"required"`
	Position int    `json:"position"`
}

func (s *GuildService) CreateCategory(guildID, actorID string, req *CategoryRequest) (*models.ChannelCategory, error) {
	if err := s.RequirePermission(guildID, actorID, permissions.ManageChannels); err != nil {
		return nil, err
	}
	cat := &models.ChannelCategory{
		GuildID:  guildID,
		Name:     req.Name,
		Position: req.Position,
	}
	if err := s.store.CreateCategory(cat); err != nil {
		return nil, err
	}
	return cat, nil
}

// DeleteCategory reassigns the category's channels to "no category";
// it never deletes them.
func (s *GuildService) DeleteCategory(guildID, categoryID, actorID string) error {
	if err := s.RequirePermission(guildID, actorID, permissions.ManageChannels); err != nil {
		return err
	}
	if _, err := s.store.GetCategory(guildID, categoryID); err != nil {
		return notFound(err, "category")
	}
	return s.store.DeleteCategory(guildID, categoryID)
}

func (s *GuildService) ListCategories(guildID, userID string) ([]models.ChannelCategory, error) {
	if _, err := s.activeMember(guildID, userID); err != nil {
		return nil, err
	}
	return s.store.ListCategories(guildID)
}

// ─── Channels ───────────────────────────────────────────────────────

type ChannelRequest struct {
	Name       string             `json:"name" binding:"required"`
	Type       models.ChannelType `json:"type"`
	Topic      *string            `json:"topic"`
	CategoryID *string            `json:"category_id"`
	Position   int                `json:"position"`
	IsPrivate  bool               `json:"is_private"`
	Overwrites models.Overwrites  `json:"permission_overwrites"`
}

func (s *GuildService) CreateChannel(guildID, actorID string, req *ChannelRequest) (*models.Channel, error) {
	if err := s.RequirePermission(guildID, actorID, permissions.ManageChannels); err != nil {
		return nil, err
	}
	if req.CategoryID != nil {
		if _, err := s.store.GetCategory(guildID, *req.CategoryID); err != nil {
			return nil, notFound(err, "category")
		}
	}
	chType := req.Type
	if chType == "" {
		chType = models.ChannelText
	}
	ch := &models.Channel{
		Name:                 req.Name,
		Type:                 chType,
		Topic:                req.Topic,
		GuildID:              &guildID,
		CategoryID:           req.CategoryID,
		Position:             req.Position,
		IsPrivate:            req.IsPrivate,
		PermissionOverwrites: req.Overwrites,
		CreatedByID:          actorID,
	}
	if err := s.store.CreateChannel(ch); err != nil {
		return nil, err
	}
	return ch, nil
}

func (s *GuildService) UpdateChannel(guildID, channelID, actorID string, req *ChannelRequest) (*models.Channel, error) {
	if err := s.RequirePermission(guildID, actorID, permissions.ManageChannels); err != nil {
		return nil, err
	}
	ch, err := s.store.GetChannel(channelID)
	if err != nil || ch.GuildID == nil || *ch.GuildID != guildID {
		return nil, fmt.Errorf("%w: channel", apperrors.ErrNotFound)
	}
	updates := map[string]any{
		"name":     req.Name,
		"topic":    req.Topic,
		"position": req.Position,
	}
	if req.Overwrites != nil {
		updates["permission_overwrites"] = req.Overwrites
	}
	if req.CategoryID != nil {
		if _, err := s.store.GetCategory(guildID, *req.CategoryID); err != nil {
			return nil, notFound(err, "category")
		}
		updates["category_id"] = *req.CategoryID
	}
	if err := s.store.UpdateChannel(channelID, updates); err != nil {
		return nil, err
	}
	return s.store.GetChannel(channelID)
}

// ListChannels returns the guild's channels ordered by position. For
// the category-grouped view use ListCategories, which preloads each
// category's channels.
func (s *GuildService) ListChannels(guildID, userID string) ([]models.Channel, error) {
	if _, err := s.activeMember(guildID, userID); err != nil {
		return nil, err
	}
	return s.store.ListGuildChannels(guildID)
}

func (s *GuildService) DeleteChannel(guildID, channelID, actorID string) error {
	if err := s.RequirePermission(guildID, actorID, permissions.ManageChannels); err != nil {
		return err
	}
	ch, err := s.store.GetChannel(channelID)
	if err != nil || ch.GuildID == nil || *ch.GuildID != guildID {
		return fmt.Errorf("%w: channel", apperrors.ErrNotFound)
	}
	return s.store.DeleteChannel(channelID)
}

// ─── Access checks ──────────────────────────────────────────────────

// CanAccessChannel gates gateway channel joins. Guild channels require
// active membership with the view bit; guild-less channels are open
// unless private, in which case only the creator may enter.
func (s *GuildService) CanAccessChannel(channelID, userID string) (*models.Channel, error) {
	ch, err := s.store.GetChannel(channelID)
	if err != nil {
		return nil, notFound(err, "channel")
	}

	if ch.GuildID == nil {
		if ch.IsPrivate && ch.CreatedByID != userID {
			return nil, fmt.Errorf("%w: access denied to private channel", apperrors.ErrForbidden)
		}
		return ch, nil
	}

	if !s.channelPermission(ch, userID).Has(permissions.ViewChannels) {
		// Distinguish non-members from members denied by overwrites.
		if err := s.RequirePermission(*ch.GuildID, userID, permissions.ViewChannels); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: access denied to channel", apperrors.ErrForbidden)
	}
	return ch, nil
}

// channelPermission resolves a member's effective permissions inside
// one channel: the OR of their role masks narrowed or widened by the
// channel's per-role overwrites. Returns zero for non-members; the
// owner gets Administrator.
func (s *GuildService) channelPermission(ch *models.Channel, userID string) permissions.Permission {
	if ch.GuildID == nil {
		return 0
	}
	guild, err := s.store.GetGuild(*ch.GuildID)
	if err != nil {
		return 0
	}
	if guild.OwnerID == userID {
		return permissions.Administrator
	}
	member, err := s.activeMember(*ch.GuildID, userID)
	if err != nil {
		return 0
	}

	masks := make([]permissions.Permission, 0, len(member.Roles))
	roleIDs := make([]string, 0, len(member.Roles))
	for _, r := range member.Roles {
		masks = append(masks, r.Permissions)
		roleIDs = append(roleIDs, r.ID)
	}
	overwrites := make([]permissions.Overwrite, 0, len(ch.PermissionOverwrites))
	for _, ow := range ch.PermissionOverwrites {
		overwrites = append(overwrites, permissions.Overwrite{
			RoleID: ow.RoleID,
			Allow:  ow.Allow,
			Deny:   ow.Deny,
		})
	}
	return permissions.ApplyOverwrites(permissions.Combined(masks), roleIDs, overwrites)
}

// RequirePermission fetches guild and membership in one pass and
// applies the bitmask rules: owner bypass, then ADMINISTRATOR, then
// the OR of role masks.
func (s *GuildService) RequirePermission(guildID, userID string, p permissions.Permission) error {
	guild, err := s.store.GetGuild(guildID)
	if err != nil {
		return notFound(err, "guild")
	}
	if guild.OwnerID == userID {
		return nil
	}

	member, err := s.activeMember(guildID, userID)
	if err != nil {
		return err
	}

	masks := make([]permissions.Permission, 0, len(member.Roles))
	for _, r := range member.Roles {
		masks = append(masks, r.Permissions)
	}
	if !permissions.HasPermission(userID, guild.OwnerID, masks, p) {
		return fmt.Errorf("%w: insufficient permissions", apperrors.ErrForbidden)
	}
	return nil
}

func (s *GuildService) activeMember(guildID, userID string) (*models.GuildMember, error) {
	member, err := s.store.GetMember(guildID, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: not a member of this guild", apperrors.ErrNotFound)
	}
	if member.Status != models.MemberActive {
		return nil, fmt.Errorf("%w: membership is %s", apperrors.ErrForbidden, member.Status)
	}
	return member, nil
}

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", apperrors.ErrNotFound, what)
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: %s", apperrors.ErrNotFound, what)
}

func generateInviteCode() string {
	code := make([]byte, inviteCodeLength)
	max := big.NewInt(int64(len(inviteCodeAlphabet)))
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand failing is unrecoverable here
			panic(err)
		}
		code[i] = inviteCodeAlphabet[n.Int64()]
	}
	return string(code)
}
