package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wayvnc-go/wayvnc/internal/region"
)

func shmConfig() Config {
	return Config{
		Type:   TypeShm,
		Width:  1920,
		Height: 1080,
		Stride: 7680,
		Format: FourccXRGB8888,
	}
}

// S1: empty pool, shm 1920x1080 stride 7680 XRGB8888 config; acquire
// twice, release one, acquire a third time => zero free buffers, exactly
// two created.
func TestPoolScenarioS1(t *testing.T) {
	reg := NewRegistry()
	pool := NewPool(reg, nil)

	ok, err := pool.Reconfig(shmConfig())
	require.NoError(t, err)
	require.True(t, ok)

	b1, err := pool.Acquire()
	require.NoError(t, err)
	b2, err := pool.Acquire()
	require.NoError(t, err)
	assert.NotSame(t, b1, b2)
	assert.Equal(t, 2, pool.OutstandingCount())

	require.NoError(t, pool.Release(b1))
	assert.Equal(t, 1, pool.FreeCount())

	b3, err := pool.Acquire()
	require.NoError(t, err)
	assert.Same(t, b1, b3, "released buffer should be reused before creating a new one")

	assert.Equal(t, 0, pool.FreeCount())
	assert.Equal(t, 2, pool.OutstandingCount())
}

// Property 1: acquiring then releasing a buffer without reconfiguring
// leaves the pool's free/outstanding counts as they were.
func TestPoolAcquireReleaseIdempotent(t *testing.T) {
	reg := NewRegistry()
	pool := NewPool(reg, &Config{Type: TypeShm, Width: 640, Height: 480, Stride: 2560, Format: FourccXRGB8888})

	b, err := pool.Acquire()
	require.NoError(t, err)
	require.NoError(t, pool.Release(b))

	assert.Equal(t, 1, pool.FreeCount())
	assert.Equal(t, 0, pool.OutstandingCount())

	b2, err := pool.Acquire()
	require.NoError(t, err)
	assert.Same(t, b, b2)
	require.NoError(t, pool.Release(b2))
	assert.Equal(t, 1, pool.FreeCount())
}

// Property 2: Reconfig with a materially different shape clears every
// free buffer.
func TestPoolReconfigClearsFreeList(t *testing.T) {
	reg := NewRegistry()
	pool := NewPool(reg, nil)

	_, err := pool.Reconfig(shmConfig())
	require.NoError(t, err)

	b, err := pool.Acquire()
	require.NoError(t, err)
	require.NoError(t, pool.Release(b))
	require.Equal(t, 1, pool.FreeCount())

	bigger := shmConfig()
	bigger.Width = 3840
	bigger.Height = 2160
	bigger.Stride = 15360
	ok, err := pool.Reconfig(bigger)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 0, pool.FreeCount(), "reconfig to a different shape must destroy stale free buffers")

	got, _ := pool.Config()
	assert.Equal(t, bigger, got)
}

func TestPoolReconfigSameShapeKeepsFreeList(t *testing.T) {
	reg := NewRegistry()
	pool := NewPool(reg, nil)

	_, err := pool.Reconfig(shmConfig())
	require.NoError(t, err)

	b, err := pool.Acquire()
	require.NoError(t, err)
	require.NoError(t, pool.Release(b))
	require.Equal(t, 1, pool.FreeCount())

	ok, err := pool.Reconfig(shmConfig())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, pool.FreeCount(), "reconfig to the same shape must not disturb the free list")
}

func TestPoolReconfigUnsatisfiableDmabufRejected(t *testing.T) {
	reg := NewRegistry()
	pool := NewPool(reg, nil)

	ok, err := pool.Reconfig(Config{Type: TypeDMABuf, Width: 1920, Height: 1080, Format: FourccXRGB8888})
	require.NoError(t, err)
	assert.False(t, ok, "a dmabuf config with no candidate modifiers is unsatisfiable")
	_, has := pool.Config()
	assert.False(t, has)
}

func TestPoolAcquireBeforeConfigErrors(t *testing.T) {
	reg := NewRegistry()
	pool := NewPool(reg, nil)

	_, err := pool.Acquire()
	assert.Error(t, err)
}

func TestPoolReleaseDestroysBufferThatNoLongerMatches(t *testing.T) {
	reg := NewRegistry()
	pool := NewPool(reg, nil)
	_, err := pool.Reconfig(shmConfig())
	require.NoError(t, err)

	b, err := pool.Acquire()
	require.NoError(t, err)

	bigger := shmConfig()
	bigger.Width = 3840
	bigger.Height = 2160
	bigger.Stride = 15360
	_, err = pool.Reconfig(bigger)
	require.NoError(t, err)

	require.NoError(t, pool.Release(b))
	assert.Equal(t, 0, pool.FreeCount(), "a released buffer that no longer matches the current config is destroyed, not freed")
}

func TestRegistryDamageAllSkipsSourceAndOtherDomain(t *testing.T) {
	reg := NewRegistry()
	pool := NewPool(reg, &Config{Type: TypeShm, Width: 64, Height: 64, Stride: 256, Format: FourccXRGB8888})

	a, err := pool.Acquire()
	require.NoError(t, err)
	b, err := pool.Acquire()
	require.NoError(t, err)
	b.Domain = DomainCursor

	c, err := pool.Acquire()
	require.NoError(t, err)

	dmg := region.New(region.Rect{X1: 0, Y1: 0, X2: 16, Y2: 16})
	reg.DamageAll(a, dmg, DomainOutput)

	assert.True(t, a.BufferDamage.Empty(), "source buffer is excluded from DamageAll")
	assert.True(t, b.BufferDamage.Empty(), "buffer in a different domain is excluded from DamageAll")
	assert.False(t, c.BufferDamage.Empty(), "other same-domain buffers receive the damage")
}
