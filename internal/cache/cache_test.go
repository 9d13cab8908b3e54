package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/hugh/birthday-buddy/internal/metrics"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func newTestFacade(t *testing.T) (*Facade, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return New(client, Options{Metrics: metrics.NewCollector()}), mr
}

func TestScopeKeys(t *testing.T) {
	id := uuid.MustParse("11111111-2222-3333-4444-555555555555")

	assert.Equal(t, "birthdays:all", BirthdaysAll().Key())
	assert.Equal(t, "birthdays:ws:11111111-2222-3333-4444-555555555555", BirthdaysByWorkspace(id).Key())
	assert.Equal(t, "users:all", UsersAll().Key())
	assert.Equal(t, "workspaces:all", WorkspacesAll().Key())
}

func TestStoreLoadRoundTrip(t *testing.T) {
	f, mr := newTestFacade(t)
	ctx := context.Background()

	_, outcome := Load[item](ctx, f, UsersAll())
	assert.Equal(t, Miss, outcome)

	want := []item{{ID: "1", Name: "Ada"}, {ID: "2", Name: "Grace"}}
	Store(ctx, f, UsersAll(), want)

	got, outcome := Load[item](ctx, f, UsersAll())
	require.Equal(t, Hit, outcome)
	assert.Equal(t, want, got)

	assert.True(t, mr.Exists("bb:users:all"))
	assert.Equal(t, DefaultTTL, mr.TTL("bb:users:all"))
}

func TestStoreEmptyListIsHit(t *testing.T) {
	f, _ := newTestFacade(t)
	ctx := context.Background()

	Store[item](ctx, f, WorkspacesAll(), nil)

	got, outcome := Load[item](ctx, f, WorkspacesAll())
	assert.Equal(t, Hit, outcome)
	assert.Empty(t, got)
}

func TestInvalidate(t *testing.T) {
	f, _ := newTestFacade(t)
	ctx := context.Background()
	ws := uuid.New()

	Store(ctx, f, BirthdaysAll(), []item{{ID: "1"}})
	Store(ctx, f, BirthdaysByWorkspace(ws), []item{{ID: "1"}})
	Store(ctx, f, UsersAll(), []item{{ID: "u"}})

	f.Invalidate(ctx, BirthdaysAll(), BirthdaysByWorkspace(ws))

	_, outcome := Load[item](ctx, f, BirthdaysAll())
	assert.Equal(t, Miss, outcome)
	_, outcome = Load[item](ctx, f, BirthdaysByWorkspace(ws))
	assert.Equal(t, Miss, outcome)
	_, outcome = Load[item](ctx, f, UsersAll())
	assert.Equal(t, Hit, outcome)
}

func TestTTLExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	f := New(client, Options{TTL: 10 * time.Second})
	ctx := context.Background()

	Store(ctx, f, UsersAll(), []item{{ID: "1"}})
	mr.FastForward(11 * time.Second)

	_, outcome := Load[item](ctx, f, UsersAll())
	assert.Equal(t, Miss, outcome)
}

func TestCorruptPayloadIsUnavailable(t *testing.T) {
	f, mr := newTestFacade(t)
	require.NoError(t, mr.Set("bb:users:all", "{not json"))

	_, outcome := Load[item](context.Background(), f, UsersAll())
	assert.Equal(t, Unavailable, outcome)
	assert.False(t, outcome.Found())
}

func TestBackendDownIsUnavailable(t *testing.T) {
	f, mr := newTestFacade(t)
	ctx := context.Background()
	mr.Close()

	_, outcome := Load[item](ctx, f, UsersAll())
	assert.Equal(t, Unavailable, outcome)

	assert.NotPanics(t, func() {
		Store(ctx, f, UsersAll(), []item{{ID: "1"}})
		f.Invalidate(ctx, UsersAll())
	})
}

func TestNilClient(t *testing.T) {
	f := New(nil, Options{})
	ctx := context.Background()

	assert.False(t, f.Available())
	_, outcome := Load[item](ctx, f, UsersAll())
	assert.Equal(t, Unavailable, outcome)

	Store(ctx, f, UsersAll(), []item{{ID: "1"}})
	f.Invalidate(ctx, UsersAll())

	_, err := f.Keys(ctx, "*")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, f.Ping(ctx), ErrUnavailable)
}

func TestRawKeysFlush(t *testing.T) {
	f, mr := newTestFacade(t)
	ctx := context.Background()
	require.NoError(t, mr.Set("other:key", "untouched"))

	Store(ctx, f, UsersAll(), []item{{ID: "1", Name: "Ada"}})
	Store(ctx, f, WorkspacesAll(), []item{})

	raw, outcome := f.Raw(ctx, UsersAll())
	require.Equal(t, Hit, outcome)
	assert.JSONEq(t, `[{"id":"1","name":"Ada"}]`, string(raw))

	keys, err := f.Keys(ctx, "*")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"users:all", "workspaces:all"}, keys)

	n, err := f.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.True(t, mr.Exists("other:key"))
	keys, err = f.Keys(ctx, "*")
	require.NoError(t, err)
	assert.Empty(t, keys)
}
