package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/birthday-buddy/internal/birthdays"
	"github.com/hugh/birthday-buddy/internal/cache"
	"github.com/hugh/birthday-buddy/internal/database/models"
	"github.com/hugh/birthday-buddy/pkg/util"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInactiveUser       = errors.New("user is inactive")
	ErrWorkspaceNotFound  = errors.New("workspace not found")
)

type Service struct {
	db     *gorm.DB
	jwt    *JWTService
	cache  *cache.Facade
	logger *slog.Logger
}

func NewService(db *gorm.DB, jwt *JWTService, c *cache.Facade, logger *slog.Logger) *Service {
	return &Service{db: db, jwt: jwt, cache: c, logger: util.OrDiscard(logger)}
}

type RegisterInput struct {
	Email       string
	Password    string
	Name        string
	DateOfBirth time.Time
	WorkspaceID *uuid.UUID
}

type LoginInput struct {
	Email    string
	Password string
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Register creates the user and their birthday in one transaction.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*AuthResponse, error) {
	user, err := s.createUser(ctx, models.User{
		Email:       normalizeEmail(input.Email),
		Name:        input.Name,
		DateOfBirth: models.DateOf(input.DateOfBirth),
		WorkspaceID: input.WorkspaceID,
		IsActive:    true,
	}, input.Password)
	if err != nil {
		return nil, err
	}

	token, err := s.jwt.GenerateToken(user)
	if err != nil {
		return nil, err
	}

	return &AuthResponse{
		Token: token,
		User:  user,
	}, nil
}

func (s *Service) Login(ctx context.Context, input LoginInput) (*AuthResponse, error) {
	var user models.User
	if err := s.db.WithContext(ctx).
		Where("email = ?", normalizeEmail(input.Email)).
		First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !CheckPassword(input.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, ErrInactiveUser
	}

	token, err := s.jwt.GenerateToken(&user)
	if err != nil {
		return nil, err
	}

	return &AuthResponse{
		Token: token,
		User:  &user,
	}, nil
}

func (s *Service) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// SeedSuperuser creates the first superuser unless one already exists. A
// concurrent boot that loses the unique-email race counts as seeded.
func (s *Service) SeedSuperuser(ctx context.Context, email, password string, dob time.Time) (bool, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("is_superuser = ?", true).Count(&n).Error; err != nil {
		return false, fmt.Errorf("counting superusers: %w", err)
	}
	if n > 0 {
		return false, nil
	}

	user, err := s.createUser(ctx, models.User{
		Email:       normalizeEmail(email),
		DateOfBirth: models.DateOf(dob),
		IsActive:    true,
		IsSuperuser: true,
		IsVerified:  true,
	}, password)
	if errors.Is(err, ErrUserExists) {
		s.logger.Info("superuser already seeded", "email", email)
		return false, nil
	}
	if err != nil {
		return false, err
	}

	s.logger.Info("seeded superuser", "user_id", user.ID, "email", user.Email)
	return true, nil
}

func (s *Service) createUser(ctx context.Context, user models.User, password string) (*models.User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = hash

	var res birthdays.SyncResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.User{}).Where("email = ?", user.Email).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrUserExists
		}

		if user.WorkspaceID != nil {
			var n int64
			if err := tx.Model(&models.Workspace{}).Where("id = ?", *user.WorkspaceID).Count(&n).Error; err != nil {
				return err
			}
			if n == 0 {
				return ErrWorkspaceNotFound
			}
		}

		if err := tx.Create(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrUserExists
			}
			return err
		}

		res, err = birthdays.Sync(tx, &user)
		return err
	})
	if err != nil {
		return nil, err
	}

	scopes := []cache.Scope{cache.UsersAll(), cache.BirthdaysAll()}
	if res.Birthday.WorkspaceID != nil {
		scopes = append(scopes, cache.BirthdaysByWorkspace(*res.Birthday.WorkspaceID))
	}
	s.cache.Invalidate(ctx, scopes...)

	return &user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
