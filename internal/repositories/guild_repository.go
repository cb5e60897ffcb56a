package repositories

import (
	"gorm.io/gorm"

	"github.com/voxlink/voxlink/internal/models"
)

type GuildRepository struct {
	db *gorm.DB
}

func NewGuildRepository(db *gorm.DB) *GuildRepository {
	return &GuildRepository{db: db}
}

// CreateGuild persists the whole creation graph in one transaction:
// guild, managed roles, the creator's membership bound to the owner
// role, and the default category/channel structure. Any failure rolls
// everything back.
func (r *GuildRepository) CreateGuild(
	guild *models.Guild,
	roles []*models.GuildRole,
	ownerMember *models.GuildMember,
	ownerRoleIdx int,
	categories []*models.ChannelCategory,
	channels []*models.Channel,
) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(guild).Error; err != nil {
			return err
		}
		for _, role := range roles {
			role.GuildID = guild.ID
			if err := tx.Create(role).Error; err != nil {
				return err
			}
		}
		ownerMember.GuildID = guild.ID
		if err := tx.Create(ownerMember).Error; err != nil {
			return err
		}
		if err := tx.Model(ownerMember).Association("Roles").Append(roles[ownerRoleIdx]); err != nil {
			return err
		}
		for _, cat := range categories {
			cat.GuildID = guild.ID
			if err := tx.Create(cat).Error; err != nil {
				return err
			}
		}
		for _, ch := range channels {
			ch.GuildID = &guild.ID
			if err := tx.Create(ch).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *GuildRepository) GetGuild(id string) (*models.Guild, error) {
	var guild models.Guild
	if err := r.db.First(&guild, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &guild, nil
}

func (r *GuildRepository) GetGuildByInviteCode(code string) (*models.Guild, error) {
	var guild models.Guild
	if err := r.db.First(&guild, "invite_code = ?", code).Error; err != nil {
		return nil, err
	}
	return &guild, nil
}

func (r *GuildRepository) ListGuildsForUser(userID string) ([]models.Guild, error) {
	var guilds []models.Guild
	err := r.db.
		Joins("JOIN guild_members ON guild_members.guild_id = guilds.id").
		Where("guild_members.user_id = ? AND guild_members.status = ?", userID, models.MemberActive).
		Find(&guilds).Error
	return guilds, err
}

func (r *GuildRepository) UpdateGuild(id string, updates map[string]any) error {
	return r.db.Model(&models.Guild{}).Where("id = ?", id).Updates(updates).Error
}

// DeleteGuild removes the guild and its owned roles, members and
// categories. Channels hang off the guild id and are removed too.
func (r *GuildRepository) DeleteGuild(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("guild_id = ?", id).Delete(&models.Channel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("guild_id = ?", id).Delete(&models.ChannelCategory{}).Error; err != nil {
			return err
		}
		if err := tx.Exec(
			"DELETE FROM guild_member_roles WHERE guild_member_id IN (SELECT id FROM guild_members WHERE guild_id = ?)", id,
		).Error; err != nil {
			return err
		}
		if err := tx.Where("guild_id = ?", id).Delete(&models.GuildMember{}).Error; err != nil {
			return err
		}
		if err := tx.Where("guild_id = ?", id).Delete(&models.GuildRole{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Guild{}, "id = ?", id).Error
	})
}

// SetInviteCode swaps the guild-level join code. Unique-index
// violations surface as gorm.ErrDuplicatedKey for the caller's retry
// loop.
func (r *GuildRepository) SetInviteCode(guildID, code string) error {
	return r.db.Model(&models.Guild{}).Where("id = ?", guildID).Update("invite_code", code).Error
}

// ─── Members ────────────────────────────────────────────────────────

func (r *GuildRepository) GetMember(guildID, userID string) (*models.GuildMember, error) {
	var member models.GuildMember
	err := r.db.Preload("Roles").Preload("User").
		First(&member, "guild_id = ? AND user_id = ?", guildID, userID).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *GuildRepository) CreateMember(member *models.GuildMember, roles []models.GuildRole) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(member).Error; err != nil {
			return err
		}
		for i := range roles {
			if err := tx.Model(member).Association("Roles").Append(&roles[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *GuildRepository) DeleteMember(guildID, userID string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(
			"DELETE FROM guild_member_roles WHERE guild_member_id IN (SELECT id FROM guild_members WHERE guild_id = ? AND user_id = ?)",
			guildID, userID,
		).Error; err != nil {
			return err
		}
		return tx.Where("guild_id = ? AND user_id = ?", guildID, userID).
			Delete(&models.GuildMember{}).Error
	})
}

func (r *GuildRepository) UpdateMemberStatus(guildID, userID string, status models.MemberStatus) error {
	return r.db.Model(&models.GuildMember{}).
		Where("guild_id = ? AND user_id = ?", guildID, userID).
		Update("status", status).Error
}

func (r *GuildRepository) ListActiveMembers(guildID string) ([]models.GuildMember, error) {
	var members []models.GuildMember
	err := r.db.Preload("Roles").Preload("User").
		Where("guild_id = ? AND status = ?", guildID, models.MemberActive).
		Find(&members).Error
	return members, err
}

func (r *GuildRepository) AppendMemberRole(member *models.GuildMember, role *models.GuildRole) error {
	return r.db.Model(member).Association("Roles").Append(role)
}

func (r *GuildRepository) RemoveMemberRole(member *models.GuildMember, role *models.GuildRole) error {
	return r.db.Model(member).Association("Roles").Delete(role)
}

// ─── Roles ──────────────────────────────────────────────────────────

func (r *GuildRepository) CreateRole(role *models.GuildRole) error {
	return r.db.Create(role).Error
}

func (r *GuildRepository) GetRole(guildID, roleID string) (*models.GuildRole, error) {
	var role models.GuildRole
	err := r.db.First(&role, "id = ? AND guild_id = ?", roleID, guildID).Error
	if err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *GuildRepository) UpdateRole(roleID string, updates map[string]any) error {
	return r.db.Model(&models.GuildRole{}).Where("id = ?", roleID).Updates(updates).Error
}

func (r *GuildRepository) DeleteRole(roleID string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM guild_member_roles WHERE guild_role_id = ?", roleID).Error; err != nil {
			return err
		}
		return tx.Delete(&models.GuildRole{}, "id = ?", roleID).Error
	})
}

func (r *GuildRepository) ListRoles(guildID string) ([]models.GuildRole, error) {
	var roles []models.GuildRole
	err := r.db.Where("guild_id = ?", guildID).Order("position DESC").Find(&roles).Error
	return roles, err
}

// LowestPositionRole is the default role handed to joiners.
func (r *GuildRepository) LowestPositionRole(guildID string) (*models.GuildRole, error) {
	var role models.GuildRole
	err := r.db.Where("guild_id = ?", guildID).Order("position ASC").First(&role).Error
	if err != nil {
		return nil, err
	}
	return &role, nil
}

// ─── Categories & channels ──────────────────────────────────────────

func (r *GuildRepository) CreateCategory(cat *models.ChannelCategory) error {
	return r.db.Create(cat).Error
}

// DeleteCategory detaches the category's channels before removing the
// category itself; channels are never cascade-deleted this way.
func (r *GuildRepository) DeleteCategory(guildID, categoryID string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Channel{}).
			Where("category_id = ?", categoryID).
			Update("category_id", nil).Error; err != nil {
			return err
		}
		return tx.Where("id = ? AND guild_id = ?", categoryID, guildID).
			Delete(&models.ChannelCategory{}).Error
	})
}

func (r *GuildRepository) ListCategories(guildID string) ([]models.ChannelCategory, error) {
	var cats []models.ChannelCategory
	err := r.db.Preload("Channels", func(db *gorm.DB) *gorm.DB {
		return db.Order("channels.position ASC")
	}).Where("guild_id = ?", guildID).Order("position ASC").Find(&cats).Error
	return cats, err
}

func (r *GuildRepository) GetCategory(guildID, categoryID string) (*models.ChannelCategory, error) {
	var cat models.ChannelCategory
	err := r.db.First(&cat, "id = ? AND guild_id = ?", categoryID, guildID).Error
	if err != nil {
		return nil, err
	}
	return &cat, nil
}

func (r *GuildRepository) CreateChannel(ch *models.Channel) error {
	return r.db.Create(ch).Error
}

func (r *GuildRepository) GetChannel(id string) (*models.Channel, error) {
	var ch models.Channel
	if err := r.db.First(&ch, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &ch, nil
}

func (r *GuildRepository) UpdateChannel(id string, updates map[string]any) error {
	return r.db.Model(&models.Channel{}).Where("id = ?", id).Updates(updates).Error
}

func (r *GuildRepository) DeleteChannel(id string) error {
	return r.db.Delete(&models.Channel{}, "id = ?", id).Error
}

func (r *GuildRepository) ListGuildChannels(guildID string) ([]models.Channel, error) {
	var channels []models.Channel
	err := r.db.Where("guild_id = ?", guildID).Order("position ASC").Find(&channels).Error
	return channels, err
}
