package users

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/birthday-buddy/internal/auth"
	"github.com/hugh/birthday-buddy/internal/birthdays"
	"github.com/hugh/birthday-buddy/internal/cache"
	"github.com/hugh/birthday-buddy/internal/database/models"
	"github.com/hugh/birthday-buddy/internal/service"
	"github.com/hugh/birthday-buddy/pkg/util"
	"gorm.io/gorm"
)

type Service struct {
	db        *gorm.DB
	cache     *cache.Facade
	birthdays *birthdays.Service
	logger    *slog.Logger
}

func NewService(db *gorm.DB, c *cache.Facade, b *birthdays.Service, logger *slog.Logger) *Service {
	return &Service{db: db, cache: c, birthdays: b, logger: util.OrDiscard(logger)}
}

// UpdateInput fields left nil are unchanged. The Is* flags may only be set
// by superusers.
type UpdateInput struct {
	Email          *string
	Name           *string
	Password       *string
	DateOfBirth    *time.Time
	WorkspaceID    *uuid.UUID
	ClearWorkspace bool
	IsActive       *bool
	IsSuperuser    *bool
	IsVerified     *bool
}

func (in UpdateInput) touchesPrivileges() bool {
	return in.IsActive != nil || in.IsSuperuser != nil || in.IsVerified != nil
}

// ListAll returns every user ordered by email, through the cache.
func (s *Service) ListAll(ctx context.Context) ([]models.User, error) {
	if items, outcome := cache.Load[models.User](ctx, s.cache, cache.UsersAll()); outcome.Found() {
		return items, nil
	}

	var items []models.User
	if err := s.db.WithContext(ctx).Order("email").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	cache.Store(ctx, s.cache, cache.UsersAll(), items)
	return items, nil
}

func (s *Service) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]models.User, error) {
	var items []models.User
	if err := s.db.WithContext(ctx).Where("workspace_id = ?", workspaceID).Order("email").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("listing users for workspace %s: %w", workspaceID, err)
	}
	return items, nil
}

// Get returns a user visible to actor: themselves, a workspace mate, or
// anyone for a superuser.
func (s *Service) Get(ctx context.Context, actor service.Actor, id uuid.UUID) (*models.User, error) {
	u, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccessUser(id) && !actor.CanAccessWorkspace(u.WorkspaceID) {
		return nil, service.ErrForbidden
	}
	return u, nil
}

// Update changes a user and re-syncs their birthday in the same transaction.
func (s *Service) Update(ctx context.Context, actor service.Actor, id uuid.UUID, in UpdateInput) (*models.User, error) {
	if !actor.CanAccessUser(id) {
		return nil, service.ErrForbidden
	}
	if in.touchesPrivileges() && !actor.IsSuperuser {
		return nil, service.ErrForbidden
	}

	u, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Email != nil {
		u.Email = *in.Email
	}
	if in.Name != nil {
		u.Name = *in.Name
	}
	if in.DateOfBirth != nil {
		u.DateOfBirth = models.DateOf(*in.DateOfBirth)
	}
	switch {
	case in.ClearWorkspace:
		u.WorkspaceID = nil
	case in.WorkspaceID != nil:
		ws := *in.WorkspaceID
		u.WorkspaceID = &ws
	}
	if in.Password != nil {
		hash, err := auth.HashPassword(*in.Password)
		if err != nil {
			return nil, err
		}
		u.PasswordHash = hash
	}
	if in.IsActive != nil {
		u.IsActive = *in.IsActive
	}
	if in.IsSuperuser != nil {
		u.IsSuperuser = *in.IsSuperuser
	}
	if in.IsVerified != nil {
		u.IsVerified = *in.IsVerified
	}

	var res birthdays.SyncResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if u.WorkspaceID != nil {
			var n int64
			if err := tx.Model(&models.Workspace{}).Where("id = ?", *u.WorkspaceID).Count(&n).Error; err != nil {
				return err
			}
			if n == 0 {
				return service.ErrNotFound
			}
		}
		if err := tx.Save(u).Error; err != nil {
			return err
		}
		res, err = birthdays.Sync(tx, u)
		return err
	})
	if err != nil {
		return nil, service.Translate(err)
	}

	s.cache.Invalidate(ctx, cache.UsersAll())
	if res.Changed {
		s.birthdays.Invalidate(ctx, res.PreviousWorkspaceID, res.Birthday.WorkspaceID)
	}
	return u, nil
}

// Delete removes the user and their birthday.
func (s *Service) Delete(ctx context.Context, actor service.Actor, id uuid.UUID) error {
	if !actor.IsSuperuser {
		return service.ErrForbidden
	}

	u, err := s.find(ctx, id)
	if err != nil {
		return err
	}

	var removed []models.Birthday
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Find(&removed).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.Birthday{}).Error; err != nil {
			return fmt.Errorf("deleting birthday: %w", err)
		}
		return tx.Delete(&models.User{}, "id = ?", id).Error
	})
	if err != nil {
		return service.Translate(err)
	}

	s.cache.Invalidate(ctx, cache.UsersAll())
	scopes := []*uuid.UUID{u.WorkspaceID}
	for i := range removed {
		scopes = append(scopes, removed[i].WorkspaceID)
	}
	s.birthdays.Invalidate(ctx, scopes...)
	s.logger.Info("user deleted", "user_id", id)
	return nil
}

func (s *Service) find(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, service.Translate(err)
	}
	return &u, nil
}
