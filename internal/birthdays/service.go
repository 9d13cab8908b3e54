package birthdays

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/birthday-buddy/internal/cache"
	"github.com/hugh/birthday-buddy/internal/database/models"
	"github.com/hugh/birthday-buddy/internal/service"
	"github.com/hugh/birthday-buddy/pkg/util"
	"gorm.io/gorm"
)

type Service struct {
	db     *gorm.DB
	cache  *cache.Facade
	logger *slog.Logger
}

func NewService(db *gorm.DB, c *cache.Facade, logger *slog.Logger) *Service {
	return &Service{db: db, cache: c, logger: util.OrDiscard(logger)}
}

type CreateInput struct {
	UserID      *uuid.UUID
	Name        string
	DateOfBirth time.Time
	WorkspaceID *uuid.UUID
}

// UpdateInput fields left nil are unchanged. ClearWorkspace detaches the
// birthday from its workspace and wins over WorkspaceID.
type UpdateInput struct {
	Name           *string
	DateOfBirth    *time.Time
	WorkspaceID    *uuid.UUID
	ClearWorkspace bool
}

// ListAll returns every birthday ordered by name, through the cache.
func (s *Service) ListAll(ctx context.Context) ([]models.Birthday, error) {
	if items, outcome := cache.Load[models.Birthday](ctx, s.cache, cache.BirthdaysAll()); outcome.Found() {
		return items, nil
	}

	var items []models.Birthday
	if err := s.db.WithContext(ctx).Order("name").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("listing birthdays: %w", err)
	}
	cache.Store(ctx, s.cache, cache.BirthdaysAll(), items)
	return items, nil
}

// ListByWorkspace returns the workspace's birthdays ordered by name, through the cache.
func (s *Service) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]models.Birthday, error) {
	scope := cache.BirthdaysByWorkspace(workspaceID)
	if items, outcome := cache.Load[models.Birthday](ctx, s.cache, scope); outcome.Found() {
		return items, nil
	}

	var items []models.Birthday
	if err := s.db.WithContext(ctx).Where("workspace_id = ?", workspaceID).Order("name").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("listing birthdays for workspace %s: %w", workspaceID, err)
	}
	cache.Store(ctx, s.cache, scope, items)
	return items, nil
}

func (s *Service) Get(ctx context.Context, actor service.Actor, id uuid.UUID) (*models.Birthday, error) {
	b, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccessWorkspace(b.WorkspaceID) {
		return nil, service.ErrForbidden
	}
	return b, nil
}

// GetByUser returns the birthday linked to a user account.
func (s *Service) GetByUser(ctx context.Context, userID uuid.UUID) (*models.Birthday, error) {
	var b models.Birthday
	if err := s.db.WithContext(ctx).First(&b, "user_id = ?", userID).Error; err != nil {
		return nil, service.Translate(err)
	}
	return &b, nil
}

func (s *Service) Create(ctx context.Context, actor service.Actor, in CreateInput) (*models.Birthday, error) {
	if in.WorkspaceID == nil && !actor.IsSuperuser {
		in.WorkspaceID = copyID(actor.WorkspaceID)
	}
	if !actor.CanAccessWorkspace(in.WorkspaceID) {
		return nil, service.ErrForbidden
	}

	b := models.Birthday{
		UserID:      in.UserID,
		Name:        in.Name,
		DateOfBirth: models.DateOf(in.DateOfBirth),
		WorkspaceID: in.WorkspaceID,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureExists(tx, &models.Workspace{}, in.WorkspaceID); err != nil {
			return err
		}
		if err := ensureExists(tx, &models.User{}, in.UserID); err != nil {
			return err
		}
		return tx.Create(&b).Error
	})
	if err != nil {
		return nil, service.Translate(err)
	}

	s.Invalidate(ctx, b.WorkspaceID)
	return &b, nil
}

func (s *Service) Update(ctx context.Context, actor service.Actor, id uuid.UUID, in UpdateInput) (*models.Birthday, error) {
	b, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	previous := copyID(b.WorkspaceID)

	if in.Name != nil {
		b.Name = *in.Name
	}
	if in.DateOfBirth != nil {
		b.DateOfBirth = models.DateOf(*in.DateOfBirth)
	}
	switch {
	case in.ClearWorkspace:
		b.WorkspaceID = nil
	case in.WorkspaceID != nil:
		b.WorkspaceID = copyID(in.WorkspaceID)
	}
	if !actor.CanAccessWorkspace(b.WorkspaceID) {
		return nil, service.ErrForbidden
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureExists(tx, &models.Workspace{}, b.WorkspaceID); err != nil {
			return err
		}
		return tx.Save(b).Error
	})
	if err != nil {
		return nil, service.Translate(err)
	}

	s.Invalidate(ctx, previous, b.WorkspaceID)
	return b, nil
}

func (s *Service) Delete(ctx context.Context, actor service.Actor, id uuid.UUID) error {
	b, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Delete(&models.Birthday{}, "id = ?", id).Error; err != nil {
		return service.Translate(err)
	}

	s.Invalidate(ctx, b.WorkspaceID)
	return nil
}

// SyncFromUser mirrors u onto its birthday row in its own transaction.
func (s *Service) SyncFromUser(ctx context.Context, u *models.User) (*models.Birthday, error) {
	var res SyncResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		res, err = Sync(tx, u)
		return err
	})
	if err != nil {
		return nil, service.Translate(err)
	}

	if res.Changed {
		s.Invalidate(ctx, res.PreviousWorkspaceID, res.Birthday.WorkspaceID)
	}
	return &res.Birthday, nil
}

// RefreshFromUsers re-syncs every user that already has a birthday and
// returns how many rows changed.
func (s *Service) RefreshFromUsers(ctx context.Context) (int, error) {
	var users []models.User
	err := s.db.WithContext(ctx).
		Where("id IN (?)", s.db.Model(&models.Birthday{}).Select("user_id").Where("user_id IS NOT NULL")).
		Find(&users).Error
	if err != nil {
		return 0, fmt.Errorf("listing users with birthdays: %w", err)
	}

	return s.syncEach(ctx, users, func(r SyncResult) bool { return r.Changed })
}

// Backfill creates birthdays for users that have none and returns how many
// were created.
func (s *Service) Backfill(ctx context.Context) (int, error) {
	var users []models.User
	err := s.db.WithContext(ctx).
		Where("id NOT IN (?)", s.db.Model(&models.Birthday{}).Select("user_id").Where("user_id IS NOT NULL")).
		Find(&users).Error
	if err != nil {
		return 0, fmt.Errorf("listing users without birthdays: %w", err)
	}

	return s.syncEach(ctx, users, func(r SyncResult) bool { return r.Created })
}

func (s *Service) syncEach(ctx context.Context, users []models.User, count func(SyncResult) bool) (int, error) {
	n := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range users {
			res, err := Sync(tx, &users[i])
			if err != nil {
				return err
			}
			if count(res) {
				n++
			}
		}
		return nil
	})
	if err != nil {
		return 0, service.Translate(err)
	}

	if n > 0 {
		s.InvalidateAll(ctx)
	}
	return n, nil
}

// Invalidate drops birthdays:all plus the scope of each given workspace.
func (s *Service) Invalidate(ctx context.Context, workspaceIDs ...*uuid.UUID) {
	scopes := []cache.Scope{cache.BirthdaysAll()}
	for _, id := range workspaceIDs {
		if id != nil {
			scopes = append(scopes, cache.BirthdaysByWorkspace(*id))
		}
	}
	s.cache.Invalidate(ctx, scopes...)
}

// InvalidateAll drops every birthday scope.
func (s *Service) InvalidateAll(ctx context.Context) {
	keys, err := s.cache.Keys(ctx, string(cache.KindBirthdays)+":ws:*")
	if err != nil && !errors.Is(err, cache.ErrUnavailable) {
		s.logger.Warn("listing birthday cache keys", "error", err)
	}

	scopes := []cache.Scope{cache.BirthdaysAll()}
	for _, k := range keys {
		id, err := uuid.Parse(k[len("birthdays:ws:"):])
		if err == nil {
			scopes = append(scopes, cache.BirthdaysByWorkspace(id))
		}
	}
	s.cache.Invalidate(ctx, scopes...)
}

func (s *Service) find(ctx context.Context, id uuid.UUID) (*models.Birthday, error) {
	var b models.Birthday
	if err := s.db.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		return nil, service.Translate(err)
	}
	return &b, nil
}

// ensureExists checks an optional reference. SQLite does not enforce
// foreign keys by default, so this runs on every backend.
func ensureExists(tx *gorm.DB, model any, id *uuid.UUID) error {
	if id == nil {
		return nil
	}
	var n int64
	if err := tx.Model(model).Where("id = ?", *id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return service.ErrNotFound
	}
	return nil
}
