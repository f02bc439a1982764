package cache

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// This test requires a running memcached instance
// If memcached is not available, the test will be skipped
func TestMemcacheService(t *testing.T) {
	mc := NewMemcacheService("localhost:11211")
	if err := mc.Ping(); err != nil {
		t.Skip("Memcached is not available, skipping test")
	}

	err := mc.Set("jobworker_test_key", []byte("test_value"), 1*time.Second)
	assert.NoError(t, err)

	value, err := mc.Get("jobworker_test_key")
	assert.NoError(t, err)
	assert.Equal(t, "test_value", string(value))

	assert.NoError(t, mc.Delete("jobworker_test_key"))
	assert.NoError(t, mc.Delete("jobworker_test_key"), "deleting a missing key is not an error")

	_, err = mc.Get("jobworker_test_key")
	assert.Error(t, err)
}

type mapCache struct {
	values map[string][]byte
}

func (m *mapCache) Get(key string) ([]byte, error) {
	if v, ok := m.values[key]; ok {
		return v, nil
	}
	return nil, errors.New("cache miss")
}

func (m *mapCache) Set(key string, value []byte, expiration time.Duration) error {
	m.values[key] = value
	return nil
}

func (m *mapCache) Delete(key string) error {
	delete(m.values, key)
	return nil
}

func TestBlockGuard(t *testing.T) {
	store := &mapCache{values: make(map[string][]byte)}
	guard := NewBlockGuard(store, "actuarylist_block", 10*time.Minute)
	now := time.Unix(1_700_000_000, 0)
	guard.now = func() time.Time { return now }

	blocked, _ := guard.Blocked()
	assert.False(t, blocked)

	require.NoError(t, guard.Block())
	now = now.Add(4 * time.Minute)

	blocked, left := guard.Blocked()
	assert.True(t, blocked)
	assert.Equal(t, 6*time.Minute, left)
	assert.Equal(t, 10*time.Minute, guard.TTL())
}

func TestBlockGuardWithoutCache(t *testing.T) {
	var nilGuard *BlockGuard
	blocked, _ := nilGuard.Blocked()
	assert.False(t, blocked)
	assert.NoError(t, nilGuard.Block())

	guard := NewBlockGuard(nil, "k", time.Minute)
	blocked, _ = guard.Blocked()
	assert.False(t, blocked)
	assert.NoError(t, guard.Block())
}
