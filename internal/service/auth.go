package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/peer-tutoring/internal/model"
	"github.com/iliyamo/peer-tutoring/internal/policy"
	"github.com/iliyamo/peer-tutoring/internal/repository"
	"github.com/iliyamo/peer-tutoring/internal/utils"
)

// AuthConfig carries the token and hashing settings.
type AuthConfig struct {
	JWTSecret      string
	AccessTTLMin   int
	RefreshTTLDays int
	BcryptCost     int
}

// AuthService owns registration, login, token rotation and the user
// directory.
type AuthService struct {
	cfg    AuthConfig
	users  UserStore
	tokens TokenStore
	log    *zap.Logger
}

func NewAuthService(cfg AuthConfig, users UserStore, tokens TokenStore, log *zap.Logger) *AuthService {
	return &AuthService{cfg: cfg, users: users, tokens: tokens, log: log}
}

// RegisterInput is the public registration form.
type RegisterInput struct {
	Username       string
	Password       string
	Role           string
	FullName       string
	AcademicStatus string
	Bio            string
}

// TokenPair is returned by Login and Refresh.
type TokenPair struct {
	Access  utils.AccessToken
	Refresh utils.RefreshToken
}

const minPasswordLen = 6

// Register creates a student or tutor.  Admins are provisioned out of band.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (model.User, error) {
	in.Username = strings.ToLower(strings.TrimSpace(in.Username))
	if in.Username == "" || in.Password == "" {
		return model.User{}, invalid("username and password required")
	}
	if len(in.Password) < minPasswordLen {
		return model.User{}, invalid("password must be at least %d characters", minPasswordLen)
	}
	role := model.Role(strings.ToLower(strings.TrimSpace(in.Role)))
	if role == "" {
		role = model.RoleStudent
	}
	if role != model.RoleStudent && role != model.RoleTutor {
		return model.User{}, invalid("role must be student or tutor")
	}
	fullName := strings.TrimSpace(in.FullName)
	if fullName == "" {
		fullName = in.Username
	}

	hash, err := utils.HashPassword(in.Password, s.cfg.BcryptCost)
	if err != nil {
		return model.User{}, err
	}
	u := model.User{
		Username:       in.Username,
		PasswordHash:   hash,
		Role:           role,
		FullName:       fullName,
		AcademicStatus: strings.TrimSpace(in.AcademicStatus),
		Bio:            strings.TrimSpace(in.Bio),
	}
	id, err := s.users.Create(ctx, u)
	if err != nil {
		return model.User{}, err
	}
	u.ID = id
	s.log.Info("user registered", zap.Uint64("user_id", id), zap.String("role", string(role)))
	return u, nil
}

// Login verifies credentials and issues a fresh token pair.  Unknown users
// and wrong passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, username, password string) (model.User, TokenPair, error) {
	u, err := s.users.GetByUsername(ctx, username)
	if errors.Is(err, repository.ErrUserNotFound) {
		return model.User{}, TokenPair{}, ErrInvalidCredentials
	}
	if err != nil {
		return model.User{}, TokenPair{}, err
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return model.User{}, TokenPair{}, ErrInvalidCredentials
	}
	pair, err := s.issue(ctx, u)
	return u, pair, err
}

// Refresh rotates a refresh token: the old one is consumed and a new pair
// is issued.  A token can be consumed once, so concurrent refreshes with
// the same token yield one pair.
func (s *AuthService) Refresh(ctx context.Context, raw string) (model.User, TokenPair, error) {
	userID, err := s.tokens.ConsumeRefresh(ctx, utils.HashRefreshRaw(strings.TrimSpace(raw)))
	if errors.Is(err, repository.ErrTokenInvalid) {
		return model.User{}, TokenPair{}, ErrInvalidCredentials
	}
	if err != nil {
		return model.User{}, TokenPair{}, err
	}
	u, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return model.User{}, TokenPair{}, ErrInvalidCredentials
	}
	if err != nil {
		return model.User{}, TokenPair{}, err
	}
	pair, err := s.issue(ctx, u)
	return u, pair, err
}

// Logout revokes one refresh token when raw is given, otherwise every
// token of userID.
func (s *AuthService) Logout(ctx context.Context, raw string, userID uint64) error {
	raw = strings.TrimSpace(raw)
	if raw != "" {
		_, err := s.tokens.ConsumeRefresh(ctx, utils.HashRefreshRaw(raw))
		if errors.Is(err, repository.ErrTokenInvalid) {
			return ErrInvalidCredentials
		}
		return err
	}
	if userID == 0 {
		return invalid("provide Authorization header or refresh_token")
	}
	return s.tokens.RevokeAllForUser(ctx, userID)
}

func (s *AuthService) issue(ctx context.Context, u model.User) (TokenPair, error) {
	access, err := utils.NewAccessToken(s.cfg.JWTSecret, u.ID, string(u.Role), s.cfg.AccessTTLMin)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := utils.NewRefreshToken(s.cfg.RefreshTTLDays)
	if err != nil {
		return TokenPair{}, err
	}
	if err := s.tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return TokenPair{}, err
	}
	return TokenPair{Access: access, Refresh: refresh}, nil
}

// Profile returns the caller's own profile, or targetID's.  Admins may
// read anyone; other users may only read tutors, whose profiles are public.
func (s *AuthService) Profile(ctx context.Context, p policy.Principal, targetID uint64) (model.User, error) {
	if !p.Authenticated() {
		return model.User{}, policy.Forbidden(policy.ReasonUnauthenticated)
	}
	if targetID == 0 {
		targetID = p.ID
	}
	u, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		return model.User{}, err
	}
	if targetID != p.ID && !p.IsAdmin() && u.Role != model.RoleTutor {
		return model.User{}, policy.Forbidden(policy.ReasonRoleForbidden)
	}
	return u, nil
}

// ListTutors returns every tutor.
func (s *AuthService) ListTutors(ctx context.Context) ([]model.User, error) {
	tutors, err := s.users.ListByRole(ctx, model.RoleTutor)
	if tutors == nil {
		tutors = []model.User{}
	}
	return tutors, err
}

// ListUsers returns the full user directory.  Admin only.
func (s *AuthService) ListUsers(ctx context.Context, p policy.Principal) ([]model.User, error) {
	if err := policy.Authorize(p, policy.UserList, policy.Target{}).Err(); err != nil {
		return nil, err
	}
	return s.users.ListAll(ctx)
}
