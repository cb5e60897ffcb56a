package services

import (
	"sort"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/voxlink/voxlink/internal/models"
	"github.com/voxlink/voxlink/internal/permissions"
)

// fakeGuildStore is an in-memory GuildStore for service tests. It
// mirrors the relational behavior the gorm repository provides,
// including the unique invite-code index and transactional guild
// creation.
type fakeGuildStore struct {
	mu sync.Mutex

	guilds     map[string]*models.Guild
	members    map[string]*models.GuildMember // guildID+"/"+userID
	roles      map[string]*models.GuildRole
	categories map[string]*models.ChannelCategory
	channels   map[string]*models.Channel

	memberRoles map[string][]string // member key -> role IDs
	inviteCodes map[string]string   // code -> guild ID
}

func newFakeGuildStore() *fakeGuildStore {
	return &fakeGuildStore{
		guilds:      map[string]*models.Guild{},
		members:     map[string]*models.GuildMember{},
		roles:       map[string]*models.GuildRole{},
		categories:  map[string]*models.ChannelCategory{},
		channels:    map[string]*models.Channel{},
		memberRoles: map[string][]string{},
		inviteCodes: map[string]string{},
	}
}

func memberKey(guildID, userID string) string { return guildID + "/" + userID }

func (f *fakeGuildStore) CreateGuild(
	guild *models.Guild,
	roles []*models.GuildRole,
	ownerMember *models.GuildMember,
	ownerRoleIdx int,
	categories []*models.ChannelCategory,
	channels []*models.Channel,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if guild.ID == "" {
		guild.ID = uuid.NewString()
	}
	if _, taken := f.inviteCodes[guild.InviteCode]; taken {
		return gorm.ErrDuplicatedKey
	}
	f.guilds[guild.ID] = guild
	f.inviteCodes[guild.InviteCode] = guild.ID

	for _, r := range roles {
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		r.GuildID = guild.ID
		f.roles[r.ID] = r
	}

	ownerMember.GuildID = guild.ID
	key := memberKey(guild.ID, ownerMember.UserID)
	f.members[key] = ownerMember
	f.memberRoles[key] = []string{roles[ownerRoleIdx].ID}

	for _, c := range categories {
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		c.GuildID = guild.ID
		f.categories[c.ID] = c
	}
	for _, ch := range channels {
		if ch.ID == "" {
			ch.ID = uuid.NewString()
		}
		ch.GuildID = &guild.ID
		f.channels[ch.ID] = ch
	}
	return nil
}

func (f *fakeGuildStore) GetGuild(id string) (*models.Guild, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.guilds[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *g
	return &cp, nil
}

func (f *fakeGuildStore) GetGuildByInviteCode(code string) (*models.Guild, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.inviteCodes[code]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *f.guilds[id]
	return &cp, nil
}

func (f *fakeGuildStore) ListGuildsForUser(userID string) ([]models.Guild, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Guild
	for key, m := range f.members {
		if m.UserID == userID && m.Status == models.MemberActive {
			gid := key[:len(key)-len(userID)-1]
			if g, ok := f.guilds[gid]; ok {
				out = append(out, *g)
			}
		}
	}
	return out, nil
}

func (f *fakeGuildStore) UpdateGuild(id string, updates map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.guilds[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if v, ok := updates["name"]; ok {
		g.Name = v.(string)
	}
	if v, ok := updates["description"]; ok {
		g.Description = v.(string)
	}
	if v, ok := updates["icon"]; ok {
		g.Icon = v.(string)
	}
	if v, ok := updates["is_public"]; ok {
		g.IsPublic = v.(bool)
	}
	if v, ok := updates["requires_approval"]; ok {
		g.RequiresApproval = v.(bool)
	}
	return nil
}

func (f *fakeGuildStore) DeleteGuild(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.guilds[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	delete(f.inviteCodes, g.InviteCode)
	delete(f.guilds, id)
	for key, m := range f.members {
		if m.GuildID == id {
			delete(f.members, key)
			delete(f.memberRoles, key)
		}
	}
	for rid, r := range f.roles {
		if r.GuildID == id {
			delete(f.roles, rid)
		}
	}
	for cid, c := range f.categories {
		if c.GuildID == id {
			delete(f.categories, cid)
		}
	}
	for chid, ch := range f.channels {
		if ch.GuildID != nil && *ch.GuildID == id {
			delete(f.channels, chid)
		}
	}
	return nil
}

func (f *fakeGuildStore) SetInviteCode(guildID, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.guilds[guildID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if owner, taken := f.inviteCodes[code]; taken && owner != guildID {
		return gorm.ErrDuplicatedKey
	}
	delete(f.inviteCodes, g.InviteCode)
	g.InviteCode = code
	f.inviteCodes[code] = guildID
	return nil
}

func (f *fakeGuildStore) GetMember(guildID, userID string) (*models.GuildMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.members[memberKey(guildID, userID)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *m
	cp.Roles = nil
	for _, rid := range f.memberRoles[memberKey(guildID, userID)] {
		if r, ok := f.roles[rid]; ok {
			cp.Roles = append(cp.Roles, *r)
		}
	}
	return &cp, nil
}

func (f *fakeGuildStore) CreateMember(member *models.GuildMember, roles []models.GuildRole) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if member.ID == "" {
		member.ID = uuid.NewString()
	}
	key := memberKey(member.GuildID, member.UserID)
	if _, exists := f.members[key]; exists {
		return gorm.ErrDuplicatedKey
	}
	f.members[key] = member
	for _, r := range roles {
		f.memberRoles[key] = append(f.memberRoles[key], r.ID)
	}
	return nil
}

func (f *fakeGuildStore) DeleteMember(guildID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := memberKey(guildID, userID)
	if _, ok := f.members[key]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(f.members, key)
	delete(f.memberRoles, key)
	return nil
}

func (f *fakeGuildStore) UpdateMemberStatus(guildID, userID string, status models.MemberStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.members[memberKey(guildID, userID)]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	m.Status = status
	return nil
}

func (f *fakeGuildStore) ListActiveMembers(guildID string) ([]models.GuildMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.GuildMember
	for key, m := range f.members {
		if m.GuildID == guildID && m.Status == models.MemberActive {
			cp := *m
			cp.Roles = nil
			for _, rid := range f.memberRoles[key] {
				if r, ok := f.roles[rid]; ok {
					cp.Roles = append(cp.Roles, *r)
				}
			}
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (f *fakeGuildStore) AppendMemberRole(member *models.GuildMember, role *models.GuildRole) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := memberKey(member.GuildID, member.UserID)
	f.memberRoles[key] = append(f.memberRoles[key], role.ID)
	return nil
}

func (f *fakeGuildStore) RemoveMemberRole(member *models.GuildMember, role *models.GuildRole) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := memberKey(member.GuildID, member.UserID)
	kept := f.memberRoles[key][:0]
	for _, rid := range f.memberRoles[key] {
		if rid != role.ID {
			kept = append(kept, rid)
		}
	}
	f.memberRoles[key] = kept
	return nil
}

func (f *fakeGuildStore) CreateRole(role *models.GuildRole) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if role.ID == "" {
		role.ID = uuid.NewString()
	}
	f.roles[role.ID] = role
	return nil
}

func (f *fakeGuildStore) GetRole(guildID, roleID string) (*models.GuildRole, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.roles[roleID]
	if !ok || r.GuildID != guildID {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeGuildStore) UpdateRole(roleID string, updates map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.roles[roleID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if v, ok := updates["name"]; ok {
		r.Name = v.(string)
	}
	if v, ok := updates["color"]; ok {
		r.Color = v.(string)
	}
	if v, ok := updates["permissions"]; ok {
		r.Permissions = v.(permissions.Permission)
	}
	if v, ok := updates["position"]; ok {
		r.Position = v.(int)
	}
	if v, ok := updates["is_hoisted"]; ok {
		r.IsHoisted = v.(bool)
	}
	return nil
}

func (f *fakeGuildStore) DeleteRole(roleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.roles[roleID]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(f.roles, roleID)
	for key, rids := range f.memberRoles {
		kept := rids[:0]
		for _, rid := range rids {
			if rid != roleID {
				kept = append(kept, rid)
			}
		}
		f.memberRoles[key] = kept
	}
	return nil
}

func (f *fakeGuildStore) ListRoles(guildID string) ([]models.GuildRole, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.GuildRole
	for _, r := range f.roles {
		if r.GuildID == guildID {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position > out[j].Position })
	return out, nil
}

func (f *fakeGuildStore) LowestPositionRole(guildID string) (*models.GuildRole, error) {
	roles, _ := f.ListRoles(guildID)
	if len(roles) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	cp := roles[len(roles)-1]
	return &cp, nil
}

func (f *fakeGuildStore) CreateCategory(cat *models.ChannelCategory) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cat.ID == "" {
		cat.ID = uuid.NewString()
	}
	f.categories[cat.ID] = cat
	return nil
}

func (f *fakeGuildStore) GetCategory(guildID, categoryID string) (*models.ChannelCategory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.categories[categoryID]
	if !ok || c.GuildID != guildID {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeGuildStore) DeleteCategory(guildID, categoryID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.categories[categoryID]
	if !ok || c.GuildID != guildID {
		return gorm.ErrRecordNotFound
	}
	for _, ch := range f.channels {
		if ch.CategoryID != nil && *ch.CategoryID == categoryID {
			ch.CategoryID = nil
		}
	}
	delete(f.categories, categoryID)
	return nil
}

func (f *fakeGuildStore) ListCategories(guildID string) ([]models.ChannelCategory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ChannelCategory
	for _, c := range f.categories {
		if c.GuildID == guildID {
			cp := *c
			for _, ch := range f.channels {
				if ch.CategoryID != nil && *ch.CategoryID == c.ID {
					cp.Channels = append(cp.Channels, *ch)
				}
			}
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (f *fakeGuildStore) CreateChannel(ch *models.Channel) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ch.ID == "" {
		ch.ID = uuid.NewString()
	}
	f.channels[ch.ID] = ch
	return nil
}

func (f *fakeGuildStore) GetChannel(id string) (*models.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.channels[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *ch
	return &cp, nil
}

func (f *fakeGuildStore) UpdateChannel(id string, updates map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.channels[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if v, ok := updates["name"]; ok {
		ch.Name = v.(string)
	}
	if v, ok := updates["topic"]; ok {
		ch.Topic = v.(*string)
	}
	if v, ok := updates["position"]; ok {
		ch.Position = v.(int)
	}
	if v, ok := updates["category_id"]; ok {
		id := v.(string)
		ch.CategoryID = &id
	}
	if v, ok := updates["permission_overwrites"]; ok {
		ch.PermissionOverwrites = v.(models.Overwrites)
	}
	return nil
}

func (f *fakeGuildStore) DeleteChannel(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.channels[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(f.channels, id)
	return nil
}

func (f *fakeGuildStore) ListGuildChannels(guildID string) ([]models.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Channel
	for _, ch := range f.channels {
		if ch.GuildID != nil && *ch.GuildID == guildID {
			out = append(out, *ch)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}
