package birthdays_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/birthday-buddy/internal/birthdays"
	"github.com/hugh/birthday-buddy/internal/cache"
	"github.com/hugh/birthday-buddy/internal/database/models"
	"github.com/hugh/birthday-buddy/internal/service"
	"github.com/hugh/birthday-buddy/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) (*birthdays.Service, *testutil.TestSetup) {
	t.Helper()
	ts := testutil.NewTestContext(t)
	return birthdays.NewService(ts.DB, ts.Cache, nil), ts
}

func member(ts *testutil.TestSetup) service.Actor {
	return service.Actor{UserID: ts.User.ID, WorkspaceID: ts.User.WorkspaceID}
}

func admin(ts *testutil.TestSetup) service.Actor {
	return service.Actor{UserID: ts.Admin.ID, IsSuperuser: true}
}

func TestService_ListByWorkspaceCacheAside(t *testing.T) {
	svc, ts := newService(t)
	ctx := testutil.TestContext(t)
	testutil.CreateTestBirthday(t, ts.DB, ts.Workspace, "Aaron", testutil.Date(1980, time.May, 5))

	items, err := svc.ListByWorkspace(ctx, ts.Workspace.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Aaron", items[0].Name)
	assert.True(t, ts.Redis.Exists("bb:birthdays:ws:"+ts.Workspace.ID.String()))

	// A row written behind the service's back is invisible until invalidation.
	testutil.CreateTestBirthday(t, ts.DB, ts.Workspace, "Sneaky", testutil.Date(1980, time.May, 6))
	items, err = svc.ListByWorkspace(ctx, ts.Workspace.ID)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	svc.Invalidate(ctx, &ts.Workspace.ID)
	items, err = svc.ListByWorkspace(ctx, ts.Workspace.ID)
	require.NoError(t, err)
	assert.Len(t, items, 3)
}

func TestService_ListWorksWithoutRedis(t *testing.T) {
	ts := testutil.NewTestContext(t)
	svc := birthdays.NewService(ts.DB, cache.New(nil, cache.Options{}), nil)

	items, err := svc.ListAll(testutil.TestContext(t))
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestService_CreateDefaultsToMemberWorkspace(t *testing.T) {
	svc, ts := newService(t)
	ctx := testutil.TestContext(t)
	_, _ = svc.ListByWorkspace(ctx, ts.Workspace.ID)

	b, err := svc.Create(ctx, member(ts), birthdays.CreateInput{
		Name:        "Guest",
		DateOfBirth: time.Date(1995, time.August, 8, 15, 30, 0, 0, time.FixedZone("X", 3600)),
	})
	require.NoError(t, err)
	require.NotNil(t, b.WorkspaceID)
	assert.Equal(t, ts.Workspace.ID, *b.WorkspaceID)
	assert.Equal(t, "1995-08-08", b.DateOfBirth.Format(models.DateLayout))

	assert.False(t, ts.Redis.Exists("bb:birthdays:ws:"+ts.Workspace.ID.String()))
}

func TestService_CreateForbiddenInOtherWorkspace(t *testing.T) {
	svc, ts := newService(t)
	other := testutil.CreateTestWorkspace(t, ts.DB, "Other", "UTC", nil, "")

	_, err := svc.Create(testutil.TestContext(t), member(ts), birthdays.CreateInput{
		Name:        "Intruder",
		DateOfBirth: testutil.Date(1990, time.January, 1),
		WorkspaceID: &other.ID,
	})
	assert.ErrorIs(t, err, service.ErrForbidden)
}

func TestService_CreateDuplicateUserConflict(t *testing.T) {
	svc, ts := newService(t)

	_, err := svc.Create(testutil.TestContext(t), admin(ts), birthdays.CreateInput{
		UserID:      &ts.User.ID,
		Name:        "Again",
		DateOfBirth: testutil.Date(1990, time.January, 1),
		WorkspaceID: &ts.Workspace.ID,
	})
	assert.ErrorIs(t, err, service.ErrConflict)
}

func TestService_CreateUnknownWorkspace(t *testing.T) {
	svc, ts := newService(t)
	missing := uuid.New()

	_, err := svc.Create(testutil.TestContext(t), admin(ts), birthdays.CreateInput{
		Name:        "Nowhere",
		DateOfBirth: testutil.Date(1990, time.January, 1),
		WorkspaceID: &missing,
	})
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestService_UpdateMovesBetweenWorkspaces(t *testing.T) {
	svc, ts := newService(t)
	ctx := testutil.TestContext(t)
	other := testutil.CreateTestWorkspace(t, ts.DB, "Other", "UTC", nil, "")
	b := testutil.CreateTestBirthday(t, ts.DB, ts.Workspace, "Mover", testutil.Date(1990, time.January, 1))

	_, _ = svc.ListByWorkspace(ctx, ts.Workspace.ID)
	_, _ = svc.ListByWorkspace(ctx, other.ID)

	updated, err := svc.Update(ctx, admin(ts), b.ID, birthdays.UpdateInput{WorkspaceID: &other.ID})
	require.NoError(t, err)
	assert.Equal(t, other.ID, *updated.WorkspaceID)

	assert.False(t, ts.Redis.Exists("bb:birthdays:ws:"+ts.Workspace.ID.String()))
	assert.False(t, ts.Redis.Exists("bb:birthdays:ws:"+other.ID.String()))

	_, err = svc.Update(ctx, member(ts), b.ID, birthdays.UpdateInput{Name: strPtr("Nope")})
	assert.ErrorIs(t, err, service.ErrForbidden)

	updated, err = svc.Update(ctx, admin(ts), b.ID, birthdays.UpdateInput{ClearWorkspace: true})
	require.NoError(t, err)
	assert.Nil(t, updated.WorkspaceID)
}

func TestService_GetAndDelete(t *testing.T) {
	svc, ts := newService(t)
	ctx := testutil.TestContext(t)
	b := testutil.CreateTestBirthday(t, ts.DB, ts.Workspace, "Temp", testutil.Date(1990, time.January, 1))
	orphan := testutil.CreateTestBirthday(t, ts.DB, nil, "Orphan", testutil.Date(1990, time.January, 1))

	got, err := svc.Get(ctx, member(ts), b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Temp", got.Name)

	_, err = svc.Get(ctx, member(ts), orphan.ID)
	assert.ErrorIs(t, err, service.ErrForbidden)

	require.NoError(t, svc.Delete(ctx, member(ts), b.ID))
	_, err = svc.Get(ctx, member(ts), b.ID)
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestService_SyncFromUser(t *testing.T) {
	svc, ts := newService(t)
	ctx := testutil.TestContext(t)
	other := testutil.CreateTestWorkspace(t, ts.DB, "Other", "UTC", nil, "")

	u := *ts.User
	u.Name = ""
	u.DateOfBirth = testutil.Date(1993, time.October, 31)
	u.WorkspaceID = &other.ID

	b, err := svc.SyncFromUser(ctx, &u)
	require.NoError(t, err)
	assert.Equal(t, u.Email, b.Name)
	assert.Equal(t, "1993-10-31", b.DateOfBirth.Format(models.DateLayout))
	assert.Equal(t, other.ID, *b.WorkspaceID)

	var n int64
	require.NoError(t, ts.DB.Model(&models.Birthday{}).Where("user_id = ?", u.ID).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestService_RefreshAndBackfill(t *testing.T) {
	svc, ts := newService(t)
	ctx := testutil.TestContext(t)

	// Drift: user renamed without a sync.
	require.NoError(t, ts.DB.Model(&models.User{}).Where("id = ?", ts.User.ID).Update("name", "Renamed").Error)

	// A user with no birthday row at all.
	orphanUser := models.User{Email: "nobday@example.com", PasswordHash: "x", DateOfBirth: testutil.Date(2000, time.April, 4), IsActive: true}
	require.NoError(t, ts.DB.Create(&orphanUser).Error)

	n, err := svc.RefreshFromUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	b, err := svc.GetByUser(ctx, ts.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", b.Name)

	n, err = svc.Backfill(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	b, err = svc.GetByUser(ctx, orphanUser.ID)
	require.NoError(t, err)
	assert.Equal(t, "nobday@example.com", b.Name)

	n, err = svc.Backfill(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func strPtr(s string) *string { return &s }
