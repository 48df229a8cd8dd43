package failover

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dropapi/internal/repository"
)

// kvStore is a minimal backend interface for exercising the coordinator.
type kvStore interface {
	write(key, value string) error
	read(key string) (string, error)
}

type fakeStore struct {
	data    map[string]string
	failing bool
	writes  int
	reads   int
}

func newFakeStore() *fakeStore { return &fakeStore{data: make(map[string]string)} }

func (s *fakeStore) write(key, value string) error {
	s.writes++
	if s.failing {
		return errors.New("connection refused")
	}
	s.data[key] = value
	return nil
}

func (s *fakeStore) read(key string) (string, error) {
	s.reads++
	if s.failing {
		return "", errors.New("connection refused")
	}
	v, ok := s.data[key]
	if !ok {
		return "", repository.ErrNotFound
	}
	return v, nil
}

func TestCoordinator_HealthyUsesPrimary(t *testing.T) {
	primary, fallback := newFakeStore(), newFakeStore()
	c := New[kvStore]("test", primary, fallback, NewHealth(true))

	err := c.Do(context.Background(), "write", func(b kvStore) error {
		return b.write("k", "v")
	})

	require.NoError(t, err)
	assert.Equal(t, "v", primary.data["k"])
	assert.Empty(t, fallback.data)
	assert.Equal(t, Healthy, c.Health().State())
}

func TestCoordinator_PrimaryFailureDegradesAndFallsThrough(t *testing.T) {
	primary, fallback := newFakeStore(), newFakeStore()
	primary.failing = true
	c := New[kvStore]("test", primary, fallback, NewHealth(true))

	err := c.Do(context.Background(), "write", func(b kvStore) error {
		return b.write("k", "v")
	})

	require.NoError(t, err)
	assert.Equal(t, Degraded, c.Health().State())
	assert.Equal(t, "v", fallback.data["k"])

	// Subsequent operations skip the primary entirely.
	primaryWrites := primary.writes
	err = c.Do(context.Background(), "write", func(b kvStore) error {
		return b.write("k2", "v2")
	})
	require.NoError(t, err)
	assert.Equal(t, primaryWrites, primary.writes)
	assert.Equal(t, "v2", fallback.data["k2"])
}

func TestCoordinator_FallbackSuccessDoesNotRestoreHealth(t *testing.T) {
	primary, fallback := newFakeStore(), newFakeStore()
	primary.failing = true
	c := New[kvStore]("test", primary, fallback, NewHealth(true))

	_ = c.Do(context.Background(), "write", func(b kvStore) error {
		return b.write("k", "v")
	})
	require.Equal(t, Degraded, c.Health().State())

	// Primary recovers, but only the probe may restore it.
	primary.failing = false
	_ = c.Do(context.Background(), "write", func(b kvStore) error {
		return b.write("k2", "v2")
	})
	assert.Equal(t, Degraded, c.Health().State())
	assert.Equal(t, "v2", fallback.data["k2"])

	c.Health().MarkHealthy()
	assert.Equal(t, Healthy, c.Health().State())

	err := c.Do(context.Background(), "write", func(b kvStore) error {
		return b.write("k3", "v3")
	})
	require.NoError(t, err)
	assert.Equal(t, "v3", primary.data["k3"])
}

func TestCoordinator_MissConsultsFallbackWithoutDegrading(t *testing.T) {
	primary, fallback := newFakeStore(), newFakeStore()
	fallback.data["only-here"] = "fallback-value"
	c := New[kvStore]("test", primary, fallback, NewHealth(true))

	var got string
	err := c.Do(context.Background(), "read", func(b kvStore) error {
		v, err := b.read("only-here")
		if err != nil {
			return err
		}
		got = v
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, "fallback-value", got)
	assert.Equal(t, Healthy, c.Health().State(), "a miss is not a failure")
}

func TestCoordinator_MissOnBothBackends(t *testing.T) {
	c := New[kvStore]("test", newFakeStore(), newFakeStore(), NewHealth(true))

	err := c.Do(context.Background(), "read", func(b kvStore) error {
		_, err := b.read("nowhere")
		return err
	})

	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Equal(t, Healthy, c.Health().State())
}

func TestHealth_NoPrimaryIsPermanentlyDegraded(t *testing.T) {
	h := NewHealth(false)
	assert.Equal(t, Degraded, h.State())

	h.MarkHealthy()
	assert.Equal(t, Degraded, h.State(), "probe cannot restore a non-existent primary")

	fallback := newFakeStore()
	c := New[kvStore]("test", nil, fallback, h)
	err := c.Do(context.Background(), "write", func(b kvStore) error {
		return b.write("k", "v")
	})
	require.NoError(t, err)
	assert.Equal(t, "v", fallback.data["k"])
}

func TestHealth_SharedAcrossCoordinators(t *testing.T) {
	h := NewHealth(true)

	failing := newFakeStore()
	failing.failing = true
	files := New[kvStore]("files", failing, newFakeStore(), h)
	aliases := New[kvStore]("aliases", newFakeStore(), newFakeStore(), h)

	_ = files.Do(context.Background(), "write", func(b kvStore) error {
		return b.write("k", "v")
	})

	// A failure seen through one coordinator degrades its siblings.
	assert.Equal(t, Degraded, aliases.Health().State())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "healthy", fmt.Sprint(Healthy))
	assert.Equal(t, "degraded", fmt.Sprint(Degraded))
}
