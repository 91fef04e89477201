package chat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alarifkyhastriputra/Vimosshadow/internal/graph"
	"github.com/alarifkyhastriputra/Vimosshadow/internal/models"
	"github.com/alarifkyhastriputra/Vimosshadow/internal/notify"
	"github.com/alarifkyhastriputra/Vimosshadow/internal/store"
)

func newFixture(t *testing.T) (*Service, *graph.Service, *store.Store) {
	t.Helper()
	st := store.New(nil)
	g := graph.New(st, notify.New(st, nil), nil)
	ctx := context.Background()
	for _, id := range []string{"alice", "bob", "carol", "dave"} {
		require.NoError(t, st.Put(ctx, "users/"+id, models.User{Name: id}))
	}
	return New(st, g, nil), g, st
}

func befriend(t *testing.T, g *graph.Service, a, b string) {
	t.Helper()
	require.NoError(t, g.ToggleFollow(context.Background(), a, b))
	require.NoError(t, g.ToggleFollow(context.Background(), b, a))
}

func user(id string) *models.User { return &models.User{ID: id, Name: id} }

func TestThreadIDOrderInsensitive(t *testing.T) {
	assert.Equal(t, "alice_bob", ThreadID("alice", "bob"))
	assert.Equal(t, "alice_bob", ThreadID("bob", "alice"))
	assert.Equal(t, ThreadID("x", "y"), ThreadID("y", "x"))
}

func TestSendDirectRequiresMutual(t *testing.T) {
	svc, g, _ := newFixture(t)
	ctx := context.Background()

	_, err := svc.SendDirect(ctx, user("alice"), "bob", "hey")
	assert.ErrorIs(t, err, models.ErrPermissionDenied)

	// One-way follow is still not enough.
	require.NoError(t, g.ToggleFollow(ctx, "alice", "bob"))
	_, err = svc.SendDirect(ctx, user("alice"), "bob", "hey")
	assert.ErrorIs(t, err, models.ErrPermissionDenied)

	require.NoError(t, g.ToggleFollow(ctx, "bob", "alice"))
	_, err = svc.SendDirect(ctx, user("alice"), "bob", "hey")
	assert.NoError(t, err)
}

func TestSendDirectGateReevaluatedPerSend(t *testing.T) {
	svc, g, _ := newFixture(t)
	ctx := context.Background()
	befriend(t, g, "alice", "bob")

	_, err := svc.SendDirect(ctx, user("alice"), "bob", "hi")
	require.NoError(t, err)

	// Bob unfollows: history remains readable but new sends are refused.
	require.NoError(t, g.ToggleFollow(ctx, "bob", "alice"))
	_, err = svc.SendDirect(ctx, user("alice"), "bob", "still there?")
	assert.ErrorIs(t, err, models.ErrPermissionDenied)

	msgs, err := svc.DirectMessages(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

func TestSendDirectValidation(t *testing.T) {
	svc, g, _ := newFixture(t)
	ctx := context.Background()
	befriend(t, g, "alice", "bob")

	_, err := svc.SendDirect(ctx, user("alice"), "bob", "   ")
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	banned := &models.User{ID: "alice", IsBanned: true}
	_, err = svc.SendDirect(ctx, banned, "bob", "hi")
	assert.ErrorIs(t, err, models.ErrPermissionDenied)
}

func TestDirectMessagesOrderedAndSymmetric(t *testing.T) {
	svc, g, _ := newFixture(t)
	ctx := context.Background()
	befriend(t, g, "alice", "bob")

	_, err := svc.SendDirect(ctx, user("alice"), "bob", "first")
	require.NoError(t, err)
	_, err = svc.SendDirect(ctx, user("bob"), "alice", "second")
	require.NoError(t, err)

	msgs, err := svc.DirectMessages(ctx, "alice", "bob")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "first", msgs[0].Text)
	assert.Equal(t, "second", msgs[1].Text)

	// Same thread regardless of which side asks.
	reversed, err := svc.DirectMessages(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.Equal(t, msgs, reversed)
}

func TestCreateGroupExcludesNonMutuals(t *testing.T) {
	svc, g, _ := newFixture(t)
	ctx := context.Background()
	befriend(t, g, "alice", "bob")

	id, err := svc.CreateGroup(ctx, user("alice"), "climbers", []string{"bob", "carol"})
	require.NoError(t, err)

	group, err := svc.Group(ctx, id)
	require.NoError(t, err)
	assert.True(t, group.Participants["alice"])
	assert.True(t, group.Participants["bob"])
	assert.False(t, group.Participants["carol"])
	assert.Equal(t, map[string]bool{"alice": true}, group.Admins)
	assert.Equal(t, "alice", group.CreatorID)
}

func TestCreateGroupValidation(t *testing.T) {
	svc, g, _ := newFixture(t)
	ctx := context.Background()
	befriend(t, g, "alice", "bob")

	_, err := svc.CreateGroup(ctx, user("alice"), "  ", []string{"bob"})
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = svc.CreateGroup(ctx, user("alice"), "climbers", nil)
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	banned := &models.User{ID: "alice", IsBanned: true}
	_, err = svc.CreateGroup(ctx, banned, "climbers", []string{"bob"})
	assert.ErrorIs(t, err, models.ErrPermissionDenied)
}

func TestAddMemberRequiresAdminAndMutual(t *testing.T) {
	svc, g, _ := newFixture(t)
	ctx := context.Background()
	befriend(t, g, "alice", "bob")
	id, err := svc.CreateGroup(ctx, user("alice"), "climbers", []string{"bob"})
	require.NoError(t, err)

	// Non-admin actor: silent no-op.
	befriend(t, g, "bob", "carol")
	require.NoError(t, svc.AddMember(ctx, "bob", id, "carol"))
	group, err := svc.Group(ctx, id)
	require.NoError(t, err)
	assert.False(t, group.Participants["carol"])

	// Admin but not mutual with invitee: silent no-op.
	require.NoError(t, svc.AddMember(ctx, "alice", id, "carol"))
	group, err = svc.Group(ctx, id)
	require.NoError(t, err)
	assert.False(t, group.Participants["carol"])

	befriend(t, g, "alice", "carol")
	require.NoError(t, svc.AddMember(ctx, "alice", id, "carol"))
	group, err = svc.Group(ctx, id)
	require.NoError(t, err)
	assert.True(t, group.Participants["carol"])
}

func TestRemoveMemberAndSelfRemoval(t *testing.T) {
	svc, g, _ := newFixture(t)
	ctx := context.Background()
	befriend(t, g, "alice", "bob")
	befriend(t, g, "alice", "carol")
	id, err := svc.CreateGroup(ctx, user("alice"), "climbers", []string{"bob", "carol"})
	require.NoError(t, err)

	// A plain member cannot remove someone else.
	require.NoError(t, svc.RemoveMember(ctx, "bob", id, "carol"))
	group, err := svc.Group(ctx, id)
	require.NoError(t, err)
	assert.True(t, group.Participants["carol"])

	// But may always remove themself.
	require.NoError(t, svc.LeaveGroup(ctx, "bob", id))
	group, err = svc.Group(ctx, id)
	require.NoError(t, err)
	assert.False(t, group.Participants["bob"])

	// Admins remove anyone.
	require.NoError(t, svc.RemoveMember(ctx, "alice", id, "carol"))
	group, err = svc.Group(ctx, id)
	require.NoError(t, err)
	assert.False(t, group.Participants["carol"])
}

func TestAdminsStayWithinParticipants(t *testing.T) {
	svc, g, _ := newFixture(t)
	ctx := context.Background()
	befriend(t, g, "alice", "bob")
	id, err := svc.CreateGroup(ctx, user("alice"), "climbers", []string{"bob"})
	require.NoError(t, err)

	require.NoError(t, svc.PromoteAdmin(ctx, "alice", id, "bob"))
	require.NoError(t, svc.RemoveMember(ctx, "alice", id, "bob"))

	group, err := svc.Group(ctx, id)
	require.NoError(t, err)
	assert.False(t, group.Admins["bob"])
	assert.False(t, group.Participants["bob"])
	for admin := range group.Admins {
		assert.True(t, group.Participants[admin])
	}
}

func TestPromoteAdminRules(t *testing.T) {
	svc, g, _ := newFixture(t)
	ctx := context.Background()
	befriend(t, g, "alice", "bob")
	id, err := svc.CreateGroup(ctx, user("alice"), "climbers", []string{"bob"})
	require.NoError(t, err)

	// Non-admin actor cannot promote.
	require.NoError(t, svc.PromoteAdmin(ctx, "bob", id, "bob"))
	group, err := svc.Group(ctx, id)
	require.NoError(t, err)
	assert.False(t, group.Admins["bob"])

	// Non-participant target cannot be promoted.
	require.NoError(t, svc.PromoteAdmin(ctx, "alice", id, "carol"))
	group, err = svc.Group(ctx, id)
	require.NoError(t, err)
	assert.False(t, group.Admins["carol"])

	require.NoError(t, svc.PromoteAdmin(ctx, "alice", id, "bob"))
	group, err = svc.Group(ctx, id)
	require.NoError(t, err)
	assert.True(t, group.Admins["bob"])
}

func TestSendGroupParticipantGateAndPreview(t *testing.T) {
	svc, g, _ := newFixture(t)
	ctx := context.Background()
	befriend(t, g, "alice", "bob")
	id, err := svc.CreateGroup(ctx, user("alice"), "climbers", []string{"bob"})
	require.NoError(t, err)

	_, err = svc.SendGroup(ctx, user("carol"), id, "let me in")
	assert.ErrorIs(t, err, models.ErrPermissionDenied)

	_, err = svc.SendGroup(ctx, user("bob"), id, "  ")
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = svc.SendGroup(ctx, user("bob"), id, "summit at dawn")
	require.NoError(t, err)

	group, err := svc.Group(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "summit at dawn", group.LastMessage)
	assert.NotZero(t, group.LastTimestamp)

	msgs, err := svc.GroupMessages(ctx, id)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "bob", msgs[0].SenderID)
}

func TestGroupsForSkipsDissolvedAndSortsByActivity(t *testing.T) {
	svc, g, _ := newFixture(t)
	ctx := context.Background()
	befriend(t, g, "alice", "bob")

	quiet, err := svc.CreateGroup(ctx, user("alice"), "quiet", []string{"bob"})
	require.NoError(t, err)
	busy, err := svc.CreateGroup(ctx, user("alice"), "busy", []string{"bob"})
	require.NoError(t, err)
	solo, err := svc.CreateGroup(ctx, user("alice"), "solo", []string{"bob"})
	require.NoError(t, err)

	_, err = svc.SendGroup(ctx, user("alice"), busy, "ping")
	require.NoError(t, err)

	// Everyone leaves: the group dissolves out of listings.
	require.NoError(t, svc.LeaveGroup(ctx, "bob", solo))
	require.NoError(t, svc.LeaveGroup(ctx, "alice", solo))

	groups, err := svc.GroupsFor(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, busy, groups[0].ID)
	assert.Equal(t, quiet, groups[1].ID)

	groups, err = svc.GroupsFor(ctx, "dave")
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestUpdateGroupInfo(t *testing.T) {
	svc, g, _ := newFixture(t)
	ctx := context.Background()
	befriend(t, g, "alice", "bob")
	id, err := svc.CreateGroup(ctx, user("alice"), "climbers", []string{"bob"})
	require.NoError(t, err)

	err = svc.UpdateGroupInfo(ctx, "bob", id, "renamed", "", "")
	assert.ErrorIs(t, err, models.ErrPermissionDenied)

	err = svc.UpdateGroupInfo(ctx, "alice", id, "", "", "")
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	require.NoError(t, svc.UpdateGroupInfo(ctx, "alice", id, "renamed", "new bio", ""))
	group, err := svc.Group(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "renamed", group.Name)
	assert.Equal(t, "new bio", group.Bio)
	// Untouched fields survive the partial update.
	assert.True(t, group.Participants["bob"])
}
