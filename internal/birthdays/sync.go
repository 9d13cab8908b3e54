package birthdays

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hugh/birthday-buddy/internal/database/models"
	"gorm.io/gorm"
)

// SyncResult describes what Sync did to a user's birthday row.
type SyncResult struct {
	Birthday            models.Birthday
	PreviousWorkspaceID *uuid.UUID
	Created             bool
	Changed             bool
}

// Sync makes the user's birthday mirror the user: name, date of birth and
// workspace. The row is created when missing. Run it inside the transaction
// that changed the user; cache invalidation is the caller's job.
func Sync(tx *gorm.DB, u *models.User) (SyncResult, error) {
	var b models.Birthday
	err := tx.Where("user_id = ?", u.ID).First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		userID := u.ID
		b = models.Birthday{
			UserID:      &userID,
			Name:        u.DisplayName(),
			DateOfBirth: models.DateOf(u.DateOfBirth),
			WorkspaceID: copyID(u.WorkspaceID),
		}
		if err := tx.Create(&b).Error; err != nil {
			return SyncResult{}, fmt.Errorf("creating birthday for user %s: %w", u.ID, err)
		}
		return SyncResult{Birthday: b, Created: true, Changed: true}, nil
	}
	if err != nil {
		return SyncResult{}, fmt.Errorf("loading birthday for user %s: %w", u.ID, err)
	}

	res := SyncResult{PreviousWorkspaceID: copyID(b.WorkspaceID)}
	if b.Name == u.DisplayName() && models.SameDate(b.DateOfBirth, u.DateOfBirth) && sameID(b.WorkspaceID, u.WorkspaceID) {
		res.Birthday = b
		return res, nil
	}

	b.Name = u.DisplayName()
	b.DateOfBirth = models.DateOf(u.DateOfBirth)
	b.WorkspaceID = copyID(u.WorkspaceID)
	if err := tx.Save(&b).Error; err != nil {
		return SyncResult{}, fmt.Errorf("updating birthday for user %s: %w", u.ID, err)
	}

	res.Birthday = b
	res.Changed = true
	return res, nil
}

func sameID(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func copyID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
