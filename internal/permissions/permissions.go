// Package permissions implements guild permission resolution as pure
// bitmask arithmetic. It performs no I/O; callers load roles first and
// hand them in.
package permissions

// Permission is a 64-bit OR-combinable flag set stored as a bigint on
// guild roles.
type Permission uint64

const (
	// General
	ViewChannels   Permission = 1 << 0
	ManageChannels Permission = 1 << 1
	ManageGuild    Permission = 1 << 2
	ManageRoles    Permission = 1 << 3
	KickMembers    Permission = 1 << 4
	BanMembers     Permission = 1 << 5
	CreateInvite   Permission = 1 << 6
	// Text channels
	SendMessages    Permission = 1 << 7
	DeleteMessages  Permission = 1 << 8
	PinMessages     Permission = 1 << 9
	MentionEveryone Permission = 1 << 10
	// Voice channels
	ConnectVoice  Permission = 1 << 11
	Speak         Permission = 1 << 12
	MuteMembers   Permission = 1 << 13
	DeafenMembers Permission = 1 << 14
	MoveMembers   Permission = 1 << 15
	// Streams
	Stream Permission = 1 << 16
	// Administrator implies every other permission.
	Administrator Permission = 1 << 30
)

// All enumerates every defined flag, Administrator included.
var All = []Permission{
	ViewChannels, ManageChannels, ManageGuild, ManageRoles,
	KickMembers, BanMembers, CreateInvite,
	SendMessages, DeleteMessages, PinMessages, MentionEveryone,
	ConnectVoice, Speak, MuteMembers, DeafenMembers, MoveMembers,
	Stream, Administrator,
}

// Canonical permission sets for the managed roles created with every
// guild.
const (
	DefaultMember = ViewChannels | SendMessages | ConnectVoice | Speak

	DefaultModerator = DefaultMember | DeleteMessages | PinMessages |
		KickMembers | MuteMembers | CreateInvite

	DefaultOfficer = DefaultModerator | BanMembers | ManageChannels |
		DeafenMembers | MoveMembers | MentionEveryone | Stream

	DefaultOwner = Administrator
)

// Has reports whether mask grants p, honoring the Administrator
// implication.
func (mask Permission) Has(p Permission) bool {
	if mask&Administrator != 0 {
		return true
	}
	return mask&p == p
}

// Combined ORs the permission masks of all roles.
func Combined(masks []Permission) Permission {
	var out Permission
	for _, m := range masks {
		out |= m
	}
	return out
}

// HasPermission resolves whether a member may perform the action
// guarded by p. The guild owner bypasses role checks entirely.
func HasPermission(userID, guildOwnerID string, roleMasks []Permission, p Permission) bool {
	if userID != "" && userID == guildOwnerID {
		return true
	}
	return Combined(roleMasks).Has(p)
}

// Overwrite adjusts the effective permissions of one role inside a
// single channel.
type Overwrite struct {
	RoleID string
	Allow  Permission
	Deny   Permission
}

// ApplyOverwrites narrows or widens base for a member holding roleIDs.
// All matching denies clear first, then all matching allows set, so an
// allow on any held role wins over a deny on another. Administrator is
// immune to overwrites.
func ApplyOverwrites(base Permission, roleIDs []string, overwrites []Overwrite) Permission {
	if base&Administrator != 0 {
		return base
	}
	held := make(map[string]struct{}, len(roleIDs))
	for _, id := range roleIDs {
		held[id] = struct{}{}
	}
	var allow, deny Permission
	for _, ow := range overwrites {
		if _, ok := held[ow.RoleID]; ok {
			allow |= ow.Allow
			deny |= ow.Deny
		}
	}
	return (base &^ deny) | allow
}
