package workspaces

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hugh/birthday-buddy/internal/cache"
	"github.com/hugh/birthday-buddy/internal/database/models"
	"github.com/hugh/birthday-buddy/internal/service"
	"github.com/hugh/birthday-buddy/pkg/util"
	"gorm.io/gorm"
)

// Sealer encrypts webhook URLs at rest.
type Sealer interface {
	Seal(plaintext string) (string, error)
	Open(ciphertext string) (string, error)
}

type Service struct {
	db     *gorm.DB
	cache  *cache.Facade
	sealer Sealer
	logger *slog.Logger
}

func NewService(db *gorm.DB, c *cache.Facade, sealer Sealer, logger *slog.Logger) *Service {
	return &Service{db: db, cache: c, sealer: sealer, logger: util.OrDiscard(logger)}
}

type CreateInput struct {
	Name         string
	SlackWebhook string
	Timezone     string
}

// UpdateInput fields left nil are unchanged. An empty SlackWebhook clears it.
type UpdateInput struct {
	Name         *string
	SlackWebhook *string
	Timezone     *string
}

// List returns all workspaces ordered by name, through the cache. Cached
// entries never carry the webhook.
func (s *Service) List(ctx context.Context) ([]models.Workspace, error) {
	if items, outcome := cache.Load[models.Workspace](ctx, s.cache, cache.WorkspacesAll()); outcome.Found() {
		return items, nil
	}

	var items []models.Workspace
	if err := s.db.WithContext(ctx).Order("name").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("listing workspaces: %w", err)
	}
	cache.Store(ctx, s.cache, cache.WorkspacesAll(), items)
	return items, nil
}

// ListWithSecrets reads straight from the database so the sealed webhook is present.
func (s *Service) ListWithSecrets(ctx context.Context) ([]models.Workspace, error) {
	var items []models.Workspace
	if err := s.db.WithContext(ctx).Order("name").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("listing workspaces: %w", err)
	}
	return items, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Workspace, error) {
	var ws models.Workspace
	if err := s.db.WithContext(ctx).First(&ws, "id = ?", id).Error; err != nil {
		return nil, service.Translate(err)
	}
	return &ws, nil
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Workspace, error) {
	if in.Timezone == "" {
		in.Timezone = models.DefaultTimezone
	}
	if _, err := service.LoadLocation(in.Timezone); err != nil {
		return nil, err
	}

	sealed, err := s.sealer.Seal(in.SlackWebhook)
	if err != nil {
		return nil, fmt.Errorf("sealing webhook: %w", err)
	}

	ws := models.Workspace{
		Name:         in.Name,
		SlackWebhook: sealed,
		Timezone:     in.Timezone,
	}
	if err := s.db.WithContext(ctx).Create(&ws).Error; err != nil {
		return nil, service.Translate(err)
	}

	s.cache.Invalidate(ctx, cache.WorkspacesAll())
	s.logger.Info("workspace created", "workspace_id", ws.ID, "name", ws.Name)
	return &ws, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*models.Workspace, error) {
	ws, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		ws.Name = *in.Name
	}
	if in.Timezone != nil {
		if _, err := service.LoadLocation(*in.Timezone); err != nil {
			return nil, err
		}
		ws.Timezone = *in.Timezone
	}
	if in.SlackWebhook != nil {
		sealed, err := s.sealer.Seal(*in.SlackWebhook)
		if err != nil {
			return nil, fmt.Errorf("sealing webhook: %w", err)
		}
		ws.SlackWebhook = sealed
	}

	if err := s.db.WithContext(ctx).Save(ws).Error; err != nil {
		return nil, service.Translate(err)
	}

	s.cache.Invalidate(ctx, cache.WorkspacesAll())
	return ws, nil
}

// Delete detaches every birthday and user from the workspace, then removes
// it, all in one transaction.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ws models.Workspace
		if err := tx.Select("id").First(&ws, "id = ?", id).Error; err != nil {
			return err
		}

		orphaned := tx.Model(&models.Birthday{}).Where("workspace_id = ?", id).Update("workspace_id", nil)
		if orphaned.Error != nil {
			return fmt.Errorf("detaching birthdays: %w", orphaned.Error)
		}
		if err := tx.Model(&models.User{}).Where("workspace_id = ?", id).Update("workspace_id", nil).Error; err != nil {
			return fmt.Errorf("detaching users: %w", err)
		}
		if err := tx.Delete(&models.Workspace{}, "id = ?", id).Error; err != nil {
			return err
		}

		s.logger.Info("workspace deleted", "workspace_id", id, "orphaned_birthdays", orphaned.RowsAffected)
		return nil
	})
	if err != nil {
		return service.Translate(err)
	}

	s.cache.Invalidate(ctx,
		cache.WorkspacesAll(),
		cache.BirthdaysAll(),
		cache.BirthdaysByWorkspace(id),
		cache.UsersAll(),
	)
	return nil
}

// WebhookURL opens the sealed webhook. Empty means none configured.
func (s *Service) WebhookURL(ws *models.Workspace) (string, error) {
	url, err := s.sealer.Open(ws.SlackWebhook)
	if err != nil {
		return "", fmt.Errorf("opening webhook for workspace %s: %w", ws.ID, err)
	}
	return url, nil
}
