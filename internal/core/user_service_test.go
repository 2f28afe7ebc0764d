package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Duval1703/chatbot/internal/auth"
)

func newTestUserService(t *testing.T) *UserService {
	t.Helper()
	return NewUserService(newTestStore(t), auth.NewTokenIssuer("test-secret", time.Hour))
}

func TestSignupAndLogin(t *testing.T) {
	svc := newTestUserService(t)
	ctx := context.Background()

	user, err := svc.Signup(ctx, SignupInput{
		Email:    " patient@example.com ",
		Password: "secret123",
		FullName: "Jane Patient",
	})
	require.NoError(t, err)
	assert.Equal(t, "patient@example.com", user.Email)
	assert.Equal(t, "english", user.PreferredLanguage)
	assert.NotEqual(t, "secret123", user.PasswordHash)

	res, err := svc.Login(ctx, "patient@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "bearer", res.TokenType)
	assert.NotEmpty(t, res.AccessToken)
	assert.Equal(t, user.ID, res.User.ID)

	authed, err := svc.Authenticate(ctx, res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, authed.ID)
}

func TestSignupValidation(t *testing.T) {
	svc := newTestUserService(t)
	ctx := context.Background()

	cases := map[string]SignupInput{
		"bad email":      {Email: "not-an-email", Password: "secret123", FullName: "A"},
		"short password": {Email: "a@example.com", Password: "123", FullName: "A"},
		"missing name":   {Email: "a@example.com", Password: "secret123", FullName: "  "},
		"bad language":   {Email: "a@example.com", Password: "secret123", FullName: "A", PreferredLanguage: "klingon"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Signup(ctx, in)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestSignupDuplicateEmail(t *testing.T) {
	svc := newTestUserService(t)
	ctx := context.Background()

	in := SignupInput{Email: "dup@example.com", Password: "secret123", FullName: "Dup"}
	_, err := svc.Signup(ctx, in)
	require.NoError(t, err)

	_, err = svc.Signup(ctx, in)
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc := newTestUserService(t)
	ctx := context.Background()

	_, err := svc.Signup(ctx, SignupInput{Email: "x@example.com", Password: "secret123", FullName: "X"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, "x@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "nobody@example.com", "secret123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticateRejectsGarbage(t *testing.T) {
	svc := newTestUserService(t)

	_, err := svc.Authenticate(context.Background(), "not.a.token")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// A valid token for a user that does not exist.
	token, _, err := auth.NewTokenIssuer("test-secret", time.Hour).GenerateJWT("ghost")
	require.NoError(t, err)
	_, err = svc.Authenticate(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUpdateProfile(t *testing.T) {
	svc := newTestUserService(t)
	ctx := context.Background()

	user, err := svc.Signup(ctx, SignupInput{Email: "p@example.com", Password: "secret123", FullName: "Before"})
	require.NoError(t, err)

	name, lang, phone := "After", "french", "+237699000000"
	updated, err := svc.UpdateProfile(ctx, user.ID, ProfileUpdate{FullName: &name, PreferredLanguage: &lang, Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, "After", updated.FullName)
	assert.Equal(t, "french", updated.PreferredLanguage)

	got, err := svc.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "After", got.FullName)
	require.NotNil(t, got.Phone)
	assert.Equal(t, phone, *got.Phone)

	bad := "klingon"
	_, err = svc.UpdateProfile(ctx, user.ID, ProfileUpdate{PreferredLanguage: &bad})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.UpdateProfile(ctx, "missing", ProfileUpdate{FullName: &name})
	assert.ErrorIs(t, err, ErrNotFound)
}
