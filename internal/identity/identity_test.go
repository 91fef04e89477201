package identity

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alarifkyhastriputra/Vimosshadow/internal/models"
	"github.com/alarifkyhastriputra/Vimosshadow/internal/store"
)

func newFixture(t *testing.T, admins ...string) (*Service, *store.Store) {
	t.Helper()
	allowed := map[string]bool{}
	for _, email := range admins {
		allowed[strings.ToLower(email)] = true
	}
	privileged := func(email string) bool { return allowed[strings.ToLower(email)] }
	st := store.New(nil)
	return New(st, privileged, NewTokenIssuer("test-secret"), nil), st
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newFixture(t)
	ctx := context.Background()

	cases := []struct{ name, email, password string }{
		{"", "a@b.c", "pw"},
		{"Ada", "not-an-email", "pw"},
		{"Ada", "", "pw"},
		{"Ada", "a@b.c", ""},
	}
	for _, c := range cases {
		_, err := svc.Register(ctx, c.name, c.email, c.password)
		assert.ErrorIs(t, err, models.ErrInvalidInput)
	}
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newFixture(t)
	ctx := context.Background()

	uid, err := svc.Register(ctx, "Ada", "ada@example.com", "hunter2")
	require.NoError(t, err)
	require.NotEmpty(t, uid)

	user, err := svc.Get(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, "Ada", user.Name)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.False(t, user.IsAdmin)

	loginUID, token, err := svc.Login(ctx, "ADA@example.com", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, uid, loginUID)

	claims, err := svc.Tokens().Validate(token)
	require.NoError(t, err)
	assert.Equal(t, uid, claims.UserID)
	assert.Equal(t, "Ada", claims.Name)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newFixture(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "Ada", "ada@example.com", "hunter2")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "Imposter", "ADA@EXAMPLE.COM", "other")
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestLoginFailures(t *testing.T) {
	svc, _ := newFixture(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "Ada", "ada@example.com", "hunter2")
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "ada@example.com", "wrong")
	assert.ErrorIs(t, err, models.ErrPermissionDenied)

	_, _, err = svc.Login(ctx, "nobody@example.com", "hunter2")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestEnsureProvisionsDefaults(t *testing.T) {
	svc, _ := newFixture(t, "root@example.com")
	ctx := context.Background()

	require.NoError(t, svc.Ensure(ctx, "u1", "", "root@example.com", ""))

	user, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Anonymous Shadow", user.Name)
	assert.Equal(t, "A wandering soul.", user.Bio)
	assert.Contains(t, user.PhotoURL, "dicebear")
	assert.True(t, user.IsAdmin)
}

func TestEnsureLeavesExistingRecord(t *testing.T) {
	svc, st := newFixture(t)
	ctx := context.Background()
	require.NoError(t, st.Put(ctx, "users/u1", models.User{Name: "Ada", Email: "ada@example.com"}))

	require.NoError(t, svc.Ensure(ctx, "u1", "Other", "other@example.com", ""))

	user, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", user.Name)
	assert.Equal(t, "ada@example.com", user.Email)
}

func TestObserveCorrectsDriftedAdminFlag(t *testing.T) {
	svc, st := newFixture(t, "root@example.com")
	ctx := context.Background()

	// Stored flag claims admin but the allow-list disagrees.
	require.NoError(t, st.Put(ctx, "users/u1", models.User{
		Name: "Ada", Email: "ada@example.com", IsAdmin: true,
	}))
	user, err := svc.Observe(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, user.IsAdmin)

	var stored models.User
	ok, err := st.Get(ctx, "users/u1", &stored)
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, stored.IsAdmin)

	// And the other direction: allow-listed user with a stale false flag.
	require.NoError(t, st.Put(ctx, "users/u2", models.User{
		Name: "Root", Email: "ROOT@example.com",
	}))
	user, err = svc.Observe(ctx, "u2")
	require.NoError(t, err)
	assert.True(t, user.IsAdmin)
}

func TestObserveUnknownUser(t *testing.T) {
	svc, _ := newFixture(t)

	_, err := svc.Observe(context.Background(), "ghost")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestListSortedByName(t *testing.T) {
	svc, st := newFixture(t)
	ctx := context.Background()
	require.NoError(t, st.Put(ctx, "users/u1", models.User{Name: "Zoe"}))
	require.NoError(t, st.Put(ctx, "users/u2", models.User{Name: "Ada"}))

	users, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "Ada", users[0].Name)
	assert.Equal(t, "Zoe", users[1].Name)
}

func TestUpdateProfile(t *testing.T) {
	svc, st := newFixture(t)
	ctx := context.Background()
	require.NoError(t, st.Put(ctx, "users/u1", models.User{Name: "Ada", Bio: "old"}))

	assert.ErrorIs(t, svc.UpdateProfile(ctx, "ghost", "x", "", ""), models.ErrNotFound)
	assert.ErrorIs(t, svc.UpdateProfile(ctx, "u1", " ", "", ""), models.ErrInvalidInput)

	require.NoError(t, svc.UpdateProfile(ctx, "u1", "", "new bio", ""))
	user, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", user.Name)
	assert.Equal(t, "new bio", user.Bio)
}

func TestAddCapture(t *testing.T) {
	svc, st := newFixture(t)
	ctx := context.Background()
	require.NoError(t, st.Put(ctx, "users/u1", models.User{Name: "Ada"}))

	assert.ErrorIs(t, svc.AddCapture(ctx, "u1", "  "), models.ErrInvalidInput)
	assert.ErrorIs(t, svc.AddCapture(ctx, "ghost", "http://img"), models.ErrNotFound)

	require.NoError(t, svc.AddCapture(ctx, "u1", "http://img"))
	user, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, user.RecentCaptures, 1)
	for _, url := range user.RecentCaptures {
		assert.Equal(t, "http://img", url)
	}
}

func TestTokenRoundTripAndTamper(t *testing.T) {
	issuer := NewTokenIssuer("secret-a")

	token, err := issuer.Generate("u1", "Ada")
	require.NoError(t, err)

	claims, err := issuer.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)

	// Signed under a different key.
	_, err = NewTokenIssuer("secret-b").Validate(token)
	assert.Error(t, err)

	_, err = issuer.Validate("not.a.token")
	assert.Error(t, err)
}
