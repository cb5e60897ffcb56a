package permissions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestHas(t *testing.T) {
	t.Run("single bit", func(t *testing.T) {
		assert.True(t, SendMessages.Has(SendMessages))
		assert.False(t, SendMessages.Has(BanMembers))
	})

	t.Run("combined mask", func(t *testing.T) {
		mask := ViewChannels | SendMessages | ConnectVoice
		assert.True(t, mask.Has(SendMessages))
		assert.True(t, mask.Has(ViewChannels|SendMessages))
		assert.False(t, mask.Has(ManageGuild))
	})

	t.Run("administrator implies everything", func(t *testing.T) {
		for _, p := range All {
			assert.True(t, Administrator.Has(p), "administrator should grant %b", p)
		}
	})
}

func TestDefaultSets(t *testing.T) {
	assert.True(t, DefaultMember.Has(ViewChannels))
	assert.True(t, DefaultMember.Has(SendMessages))
	assert.True(t, DefaultMember.Has(ConnectVoice))
	assert.True(t, DefaultMember.Has(Speak))
	assert.False(t, DefaultMember.Has(KickMembers))

	assert.True(t, DefaultModerator.Has(DeleteMessages))
	assert.True(t, DefaultModerator.Has(KickMembers))
	assert.True(t, DefaultModerator.Has(CreateInvite))
	assert.False(t, DefaultModerator.Has(BanMembers))

	assert.True(t, DefaultOfficer.Has(BanMembers))
	assert.True(t, DefaultOfficer.Has(ManageChannels))
	assert.True(t, DefaultOfficer.Has(MentionEveryone))
	assert.True(t, DefaultOfficer.Has(Stream))
	assert.False(t, DefaultOfficer.Has(ManageGuild))

	assert.Equal(t, Administrator, DefaultOwner)
}

func TestHasPermission(t *testing.T) {
	t.Run("owner bypass regardless of roles", func(t *testing.T) {
		assert.True(t, HasPermission("u1", "u1", nil, ManageGuild))
		assert.True(t, HasPermission("u1", "u1", []Permission{0}, BanMembers))
	})

	t.Run("empty user never matches empty owner", func(t *testing.T) {
		assert.False(t, HasPermission("", "", nil, ViewChannels))
	})

	t.Run("ORed across roles", func(t *testing.T) {
		masks := []Permission{ViewChannels, SendMessages}
		assert.True(t, HasPermission("u2", "u1", masks, SendMessages))
		assert.False(t, HasPermission("u2", "u1", masks, KickMembers))
	})

	t.Run("administrator on one role grants all", func(t *testing.T) {
		masks := []Permission{ViewChannels, Administrator}
		for _, p := range All {
			assert.True(t, HasPermission("u2", "u1", masks, p))
		}
	})
}

// Property: a combined mask grants exactly the union of its roles'
// bits, unless any role carries Administrator.
func TestCombinedProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 5).Draw(t, "roles")
		var masks []Permission
		var union Permission
		for i := 0; i < n; i++ {
			m := Permission(rapid.Uint64Range(0, uint64(Administrator<<1)-1).Draw(t, "mask"))
			masks = append(masks, m)
			union |= m
		}

		combined := Combined(masks)
		if combined != union {
			t.Fatalf("combined %b != union %b", combined, union)
		}

		admin := union&Administrator != 0
		for _, p := range All {
			want := admin || union&p == p
			if combined.Has(p) != want {
				t.Fatalf("Has(%b) = %v, want %v (mask %b)", p, combined.Has(p), want, combined)
			}
		}
	})
}

func TestApplyOverwrites(t *testing.T) {
	base := DefaultMember

	t.Run("deny clears a bit", func(t *testing.T) {
		ows := []Overwrite{{RoleID: "r1", Deny: SendMessages}}
		eff := ApplyOverwrites(base, []string{"r1"}, ows)
		assert.False(t, eff.Has(SendMessages))
		assert.True(t, eff.Has(ViewChannels))
	})

	t.Run("allow widens", func(t *testing.T) {
		ows := []Overwrite{{RoleID: "r1", Allow: ManageChannels}}
		eff := ApplyOverwrites(base, []string{"r1"}, ows)
		assert.True(t, eff.Has(ManageChannels))
	})

	t.Run("allow on one held role beats deny on another", func(t *testing.T) {
		ows := []Overwrite{
			{RoleID: "r1", Deny: SendMessages},
			{RoleID: "r2", Allow: SendMessages},
		}
		eff := ApplyOverwrites(base, []string{"r1", "r2"}, ows)
		assert.True(t, eff.Has(SendMessages))
	})

	t.Run("overwrites for unheld roles are ignored", func(t *testing.T) {
		ows := []Overwrite{{RoleID: "r9", Deny: ViewChannels}}
		eff := ApplyOverwrites(base, []string{"r1"}, ows)
		assert.Equal(t, base, eff)
	})

	t.Run("administrator is immune", func(t *testing.T) {
		ows := []Overwrite{{RoleID: "r1", Deny: ViewChannels | SendMessages}}
		eff := ApplyOverwrites(Administrator, []string{"r1"}, ows)
		assert.True(t, eff.Has(ViewChannels))
	})
}

// Property: the owner always passes, whatever the roles say.
func TestOwnerBypassProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		owner := rapid.StringMatching(`[a-z0-9-]{1,16}`).Draw(t, "owner")
		mask := Permission(rapid.Uint64().Draw(t, "mask"))
		perm := All[rapid.IntRange(0, len(All)-1).Draw(t, "perm")]
		if !HasPermission(owner, owner, []Permission{mask}, perm) {
			t.Fatalf("owner %q denied %b with mask %b", owner, perm, mask)
		}
	})
}
