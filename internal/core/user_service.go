package core

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/Duval1703/chatbot/internal/auth"
	"github.com/Duval1703/chatbot/internal/store"
)

type UserStore interface {
	CreateUser(ctx context.Context, user *store.User) error
	GetUserByEmail(ctx context.Context, email string) (*store.User, error)
	GetUserByID(ctx context.Context, id string) (*store.User, error)
	UpdateUserProfile(ctx context.Context, user *store.User) error
}

type UserService struct {
	store  UserStore
	tokens *auth.TokenIssuer
}

func NewUserService(s UserStore, tokens *auth.TokenIssuer) *UserService {
	return &UserService{store: s, tokens: tokens}
}

type SignupInput struct {
	Email             string
	Password          string
	FullName          string
	Phone             *string
	DateOfBirth       *time.Time
	PreferredLanguage string
}

func (s *UserService) Signup(ctx context.Context, in SignupInput) (*store.User, error) {
	email := strings.TrimSpace(in.Email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: invalid email", ErrInvalidInput)
	}
	if len(in.Password) < 6 {
		return nil, fmt.Errorf("%w: password must be at least 6 characters", ErrInvalidInput)
	}
	if strings.TrimSpace(in.FullName) == "" {
		return nil, fmt.Errorf("%w: full name is required", ErrInvalidInput)
	}

	lang := in.PreferredLanguage
	if lang == "" {
		lang = English.Code()
	}
	if _, ok := ParseLanguage(lang); !ok {
		return nil, fmt.Errorf("%w: unsupported language %q", ErrInvalidInput, lang)
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &store.User{
		Email:             email,
		PasswordHash:      hash,
		FullName:          strings.TrimSpace(in.FullName),
		Phone:             in.Phone,
		DateOfBirth:       in.DateOfBirth,
		PreferredLanguage: lang,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, storeError("create user", err)
	}
	return user, nil
}

type LoginResult struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresAt   time.Time   `json:"expires_at"`
	User        *store.User `json:"user"`
}

func (s *UserService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.store.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, storeError("get user", err)
	}

	if !user.IsActive || !auth.CheckPasswordHash(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	token, exp, err := s.tokens.GenerateJWT(user.ID)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &LoginResult{AccessToken: token, TokenType: "bearer", ExpiresAt: exp, User: user}, nil
}

// Authenticate resolves a bearer token to an active user.
func (s *UserService) Authenticate(ctx context.Context, token string) (*store.User, error) {
	userID, err := s.tokens.ValidateJWT(token)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, storeError("get user", err)
	}
	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *UserService) GetUser(ctx context.Context, id string) (*store.User, error) {
	user, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		return nil, storeError("get user", err)
	}
	return user, nil
}

// ProfileUpdate holds optional profile changes; nil fields are left as is.
type ProfileUpdate struct {
	FullName          *string
	Phone             *string
	DateOfBirth       *time.Time
	PreferredLanguage *string
}

func (s *UserService) UpdateProfile(ctx context.Context, id string, upd ProfileUpdate) (*store.User, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.FullName != nil {
		name := strings.TrimSpace(*upd.FullName)
		if name == "" {
			return nil, fmt.Errorf("%w: full name cannot be empty", ErrInvalidInput)
		}
		user.FullName = name
	}
	if upd.Phone != nil {
		user.Phone = upd.Phone
	}
	if upd.DateOfBirth != nil {
		user.DateOfBirth = upd.DateOfBirth
	}
	if upd.PreferredLanguage != nil {
		if _, ok := ParseLanguage(*upd.PreferredLanguage); !ok {
			return nil, fmt.Errorf("%w: unsupported language %q", ErrInvalidInput, *upd.PreferredLanguage)
		}
		user.PreferredLanguage = *upd.PreferredLanguage
	}

	if err := s.store.UpdateUserProfile(ctx, user); err != nil {
		return nil, storeError("update user", err)
	}
	return user, nil
}
