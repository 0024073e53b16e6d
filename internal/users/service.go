package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/unibo-dslab-projects/ASW25-MicheleMonti-woodpecker/internal/auth"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrInvalidUsername    = errors.New("users: username must be 1-40 letters, digits, '.', '_' or '-'")
	ErrUsernameTaken      = errors.New("users: username already exists")
	ErrInvalidCredentials = errors.New("users: invalid credentials")
	ErrUserNotFound       = errors.New("users: user not found")
)

// ServiceConfig describes the dependencies required for account management.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger
}

// Service registers and authenticates accounts.
type Service struct {
	db         *gorm.DB
	now        func() time.Time
	idProvider IDProvider
	logger     *zap.Logger
}

// NewService constructs the account service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, fmt.Errorf("users: database connection required")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	idProvider := cfg.IDProvider
	if idProvider == nil {
		idProvider = NewUUIDProvider()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		db:         cfg.Database,
		now:        clock,
		idProvider: idProvider,
		logger:     logger,
	}, nil
}

// Register creates an account. The username is trimmed and must be unique
// ignoring case.
func (s *Service) Register(ctx context.Context, username, password string) (User, error) {
	username = normalize(username)
	if !validUsername(username) {
		return User{}, ErrInvalidUsername
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return User{}, err
	}
	id, err := s.idProvider.NewID()
	if err != nil {
		return User{}, fmt.Errorf("users: issue id: %w", err)
	}

	user := User{
		ID:           id,
		Username:     username,
		UsernameKey:  UsernameKey(username),
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&User{}).Where("username_key = ?", user.UsernameKey).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrUsernameTaken
		}
		return tx.Create(&user).Error
	})
	if errors.Is(err, ErrUsernameTaken) || errors.Is(err, gorm.ErrDuplicatedKey) {
		return User{}, ErrUsernameTaken
	}
	if err != nil {
		s.logger.Error("user registration failed", zap.String("username", username), zap.Error(err))
		return User{}, err
	}
	s.logger.Info("user registered", zap.String("user_id", user.ID), zap.String("username", user.Username))
	return user, nil
}

// Authenticate verifies the credentials and records the login time. Unknown
// usernames and wrong passwords are indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, username, password string) (User, error) {
	var user User
	err := s.db.WithContext(ctx).Where("username_key = ?", UsernameKey(username)).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		_ = auth.ComparePassword("", password)
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		s.logger.Error("user lookup failed", zap.String("username", username), zap.Error(err))
		return User{}, err
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}

	loginAt := s.now().UTC()
	if err := s.db.WithContext(ctx).Model(&User{}).Where("id = ?", user.ID).Update("last_login_at", loginAt).Error; err != nil {
		s.logger.Warn("failed to record login time", zap.String("user_id", user.ID), zap.Error(err))
	} else {
		user.LastLoginAt = &loginAt
	}
	return user, nil
}

// Get loads an account by id.
func (s *Service) Get(ctx context.Context, id string) (User, error) {
	id = normalize(id)
	if id == "" {
		return User{}, ErrUserNotFound
	}
	var user User
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, err
	}
	return user, nil
}

// Count reports the number of registered accounts.
func (s *Service) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&User{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
