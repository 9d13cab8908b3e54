package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hugh/birthday-buddy/internal/metrics"
	"github.com/hugh/birthday-buddy/pkg/util"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultTTL    = 300 * time.Second
	DefaultPrefix = "bb:"
)

// ErrUnavailable is returned by the admin operations when Redis is not reachable.
var ErrUnavailable = errors.New("cache unavailable")

// Outcome of a lookup.
type Outcome int

const (
	Miss Outcome = iota
	Hit
	Unavailable
)

func (o Outcome) String() string {
	switch o {
	case Hit:
		return "hit"
	case Unavailable:
		return "unavailable"
	default:
		return "miss"
	}
}

// Found collapses Unavailable into a miss.
func (o Outcome) Found() bool {
	return o == Hit
}

type Options struct {
	Prefix  string
	TTL     time.Duration
	Logger  *slog.Logger
	Metrics *metrics.Collector
}

// Facade is a cache-aside layer of JSON list snapshots. A nil client (Redis
// down at boot) makes every call a logged no-op.
type Facade struct {
	client  *redis.Client
	prefix  string
	ttl     time.Duration
	logger  *slog.Logger
	metrics *metrics.Collector
}

func New(client *redis.Client, opts Options) *Facade {
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	return &Facade{
		client:  client,
		prefix:  opts.Prefix,
		ttl:     opts.TTL,
		logger:  util.OrDiscard(opts.Logger),
		metrics: opts.Metrics,
	}
}

func (f *Facade) Available() bool {
	return f != nil && f.client != nil
}

func (f *Facade) TTL() time.Duration {
	return f.ttl
}

func (f *Facade) key(s Scope) string {
	return f.prefix + s.Key()
}

// Ping reports whether Redis answers.
func (f *Facade) Ping(ctx context.Context) error {
	if !f.Available() {
		return ErrUnavailable
	}
	return f.client.Ping(ctx).Err()
}

// Load reads the snapshot for scope.
func Load[T any](ctx context.Context, f *Facade, scope Scope) ([]T, Outcome) {
	raw, outcome := f.get(ctx, scope)
	if outcome != Hit {
		f.record(scope, outcome)
		return nil, outcome
	}

	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		f.logger.Warn("cache payload corrupt", "key", f.key(scope), "error", err)
		f.record(scope, Unavailable)
		return nil, Unavailable
	}

	f.record(scope, Hit)
	return items, Hit
}

// Store writes a snapshot for scope with the configured TTL. Errors are logged.
func Store[T any](ctx context.Context, f *Facade, scope Scope, items []T) {
	if !f.Available() {
		return
	}
	if items == nil {
		items = []T{}
	}

	data, err := json.Marshal(items)
	if err != nil {
		f.logger.Warn("cache encode failed", "key", f.key(scope), "error", err)
		return
	}
	if err := f.client.Set(ctx, f.key(scope), data, f.ttl).Err(); err != nil {
		f.logger.Warn("cache store failed", "key", f.key(scope), "error", err)
	}
}

// Invalidate drops the snapshots for scopes. Best effort.
func (f *Facade) Invalidate(ctx context.Context, scopes ...Scope) {
	if !f.Available() || len(scopes) == 0 {
		return
	}

	keys := make([]string, len(scopes))
	for i, s := range scopes {
		keys[i] = f.key(s)
	}
	if err := f.client.Del(ctx, keys...).Err(); err != nil {
		f.logger.Warn("cache invalidate failed", "keys", keys, "error", err)
		return
	}
	f.logger.Debug("cache invalidated", "keys", keys)
}

// Raw returns the stored JSON for scope, for inspection.
func (f *Facade) Raw(ctx context.Context, scope Scope) (json.RawMessage, Outcome) {
	raw, outcome := f.get(ctx, scope)
	if outcome != Hit {
		return nil, outcome
	}
	if !json.Valid(raw) {
		return nil, Unavailable
	}
	return json.RawMessage(raw), Hit
}

// Keys lists keys under the prefix that match pattern (glob, "*" for all),
// with the prefix removed.
func (f *Facade) Keys(ctx context.Context, pattern string) ([]string, error) {
	if !f.Available() {
		return nil, ErrUnavailable
	}
	if pattern == "" {
		pattern = "*"
	}

	var keys []string
	iter := f.client.Scan(ctx, 0, f.prefix+pattern, 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), f.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scanning keys: %w", err)
	}
	return keys, nil
}

// Flush deletes every key under the prefix and returns how many went.
func (f *Facade) Flush(ctx context.Context) (int, error) {
	keys, err := f.Keys(ctx, "*")
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}

	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = f.prefix + k
	}
	n, err := f.client.Del(ctx, full...).Result()
	if err != nil {
		return 0, fmt.Errorf("deleting keys: %w", err)
	}
	return int(n), nil
}

func (f *Facade) get(ctx context.Context, scope Scope) ([]byte, Outcome) {
	if !f.Available() {
		return nil, Unavailable
	}

	raw, err := f.client.Get(ctx, f.key(scope)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, Miss
	}
	if err != nil {
		f.logger.Warn("cache read failed", "key", f.key(scope), "error", err)
		return nil, Unavailable
	}
	return raw, Hit
}

func (f *Facade) record(scope Scope, outcome Outcome) {
	if f == nil {
		return
	}
	f.metrics.CacheLookup(string(scope.Kind), outcome.String())
}
