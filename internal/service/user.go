package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"ridehail/internal/auth"
	"ridehail/internal/domain"
	"ridehail/internal/redis"
	"ridehail/internal/repository"
)

// UserService handles registration, login and identity resolution.
type UserService struct {
	userRepo repository.UserRepository
	cache    redis.UserCache
	tokens   *auth.TokenIssuer
	hasher   *auth.PasswordHasher
	logger   logrus.FieldLogger
}

// NewUserService creates a new UserService. cache may be nil.
func NewUserService(
	userRepo repository.UserRepository,
	cache redis.UserCache,
	tokens *auth.TokenIssuer,
	hasher *auth.PasswordHasher,
	logger logrus.FieldLogger,
) *UserService {
	return &UserService{
		userRepo: userRepo,
		cache:    cache,
		tokens:   tokens,
		hasher:   hasher,
		logger:   logger,
	}
}

// RegisterRequest contains the parameters for registering a user.
type RegisterRequest struct {
	Name     string
	Email    string
	Password string
	Role     domain.Role
	Address  string
}

// Session is a signed token together with the user it was issued for.
type Session struct {
	Token string
	User  *domain.User
}

// Register creates a user and signs a token for them.
func (s *UserService) Register(ctx context.Context, req RegisterRequest) (*Session, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Role == "" {
		req.Role = domain.RoleUser
	}

	var problems fieldErrors
	if req.Name == "" {
		problems.add("Please add a name")
	}
	if req.Email == "" {
		problems.add("Please add an email")
	}
	if req.Password == "" {
		problems.add("Please add a password")
	}
	if !req.Role.Valid() {
		problems.add("role must be one of: user, driver")
	}
	if err := problems.err(); err != nil {
		return nil, err
	}

	_, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err == nil {
		return nil, ErrUserExists
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.User{
		ID:           uuid.New().String(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         req.Role,
		Address:      strings.TrimSpace(req.Address),
		CreatedAt:    time.Now(),
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		// Lost a race with a concurrent registration.
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUserExists
		}
		return nil, err
	}

	return s.newSession(user)
}

// Login verifies credentials and signs a token.
// Unknown emails and wrong passwords are indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	return s.newSession(user)
}

// ResolveIdentity verifies a token and loads the user it names.
// Returns auth token errors unchanged and ErrUserNotFound if the user is gone.
func (s *UserService) ResolveIdentity(ctx context.Context, token string) (*domain.User, error) {
	userID, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		cached, err := s.cache.GetUser(ctx, userID)
		if err != nil {
			s.logger.WithError(err).WithField("user_id", userID).Warn("user cache read failed")
		} else if cached != nil {
			return &domain.User{
				ID:    cached.ID,
				Name:  cached.Name,
				Email: cached.Email,
				Role:  domain.Role(cached.Role),
			}, nil
		}
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrInvalidID) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if s.cache != nil {
		cached := &redis.CachedUser{ID: user.ID, Name: user.Name, Email: user.Email, Role: string(user.Role)}
		if err := s.cache.SetUser(ctx, cached); err != nil {
			s.logger.WithError(err).WithField("user_id", userID).Warn("user cache write failed")
		}
	}

	return user, nil
}

func (s *UserService) newSession(user *domain.User) (*Session, error) {
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, User: user}, nil
}
