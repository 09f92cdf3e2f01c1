package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rosterlabs/roster/pkg/models"
)

func testConfig() *Config {
	return &Config{
		Enabled:       true,
		DefaultTTL:    time.Minute,
		MaxSize:       3,
		CleanupPeriod: 0, // no background cleanup in tests
	}
}

func TestSetGet(t *testing.T) {
	c := New(testConfig())
	ctx := context.Background()

	outcome := Outcome{
		Handle: &models.DispatchHandle{
			DispatchID: "d-1",
			Persona:    models.PersonaDefinition{ID: "python-engineer"},
		},
	}
	require.NoError(t, c.Set(ctx, "key-1", outcome))

	entry, ok := c.Get(ctx, "key-1")
	require.True(t, ok)
	assert.Equal(t, "python-engineer", entry.Outcome.Handle.Persona.ID)
	assert.False(t, entry.Outcome.NoMatch)

	_, ok = c.Get(ctx, "missing")
	assert.False(t, ok)
}

func TestNoMatchOutcomeCached(t *testing.T) {
	c := New(testConfig())
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "key-nm", Outcome{NoMatch: true}))

	entry, ok := c.Get(ctx, "key-nm")
	require.True(t, ok)
	assert.True(t, entry.Outcome.NoMatch)
	assert.Nil(t, entry.Outcome.Handle)
}

func TestExpiry(t *testing.T) {
	cfg := testConfig()
	cfg.DefaultTTL = -time.Second // already expired on insert
	c := New(cfg)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "key-old", Outcome{NoMatch: true}))
	_, ok := c.Get(ctx, "key-old")
	assert.False(t, ok)
}

func TestEvictionAtMaxSize(t *testing.T) {
	c := New(testConfig())
	ctx := context.Background()

	for _, key := range []string{"a", "b", "c", "d"} {
		require.NoError(t, c.Set(ctx, key, Outcome{NoMatch: true}))
	}

	stats := c.GetStats()
	assert.Equal(t, int64(3), stats.TotalEntries)
	assert.Equal(t, int64(1), stats.Evictions)
}

func TestClear(t *testing.T) {
	c := New(testConfig())
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", Outcome{NoMatch: true}))
	c.Clear(ctx)

	_, ok := c.Get(ctx, "a")
	assert.False(t, ok)
}

func TestDisabledCacheIsInert(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	c := New(cfg)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", Outcome{NoMatch: true}))
	_, ok := c.Get(ctx, "a")
	assert.False(t, ok)
}

type closableBackend struct {
	closed bool
}

func (b *closableBackend) Get(ctx context.Context, key string) (*Entry, bool) { return nil, false }
func (b *closableBackend) Set(ctx context.Context, key string, outcome Outcome, ttl time.Duration) error {
	return nil
}
func (b *closableBackend) Clear(ctx context.Context) {}
func (b *closableBackend) Close() error {
	b.closed = true
	return nil
}

func TestCloseClosesBackend(t *testing.T) {
	backend := &closableBackend{}
	c := &Cache{
		backend: backend,
		config:  testConfig(),
		done:    make(chan struct{}),
	}

	c.Close()
	assert.True(t, backend.closed, "Close must release the backend connection")
}

func TestGenerateKey(t *testing.T) {
	task := &models.TaskSignature{Text: "Refactor this React component", Hints: []string{"react", "typescript"}}

	k1 := GenerateKey(1, task)
	k2 := GenerateKey(1, &models.TaskSignature{Text: task.Text, Hints: []string{"typescript", "react"}})
	assert.Equal(t, k1, k2, "hint order must not change the key")

	k3 := GenerateKey(2, task)
	assert.NotEqual(t, k1, k3, "catalog version must change the key")

	k4 := GenerateKey(1, &models.TaskSignature{Text: "Different task"})
	assert.NotEqual(t, k1, k4)
}
