package damage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wayvnc-go/wayvnc/internal/buffer"
	"github.com/wayvnc-go/wayvnc/internal/region"
)

func newTestBuffer(t *testing.T, width, height int32) *buffer.Buffer {
	t.Helper()
	reg := buffer.NewRegistry()
	pool := buffer.NewPool(reg, &buffer.Config{
		Type:   buffer.TypeShm,
		Width:  width,
		Height: height,
		Stride: width * 4,
		Format: buffer.FourccXRGB8888,
	})
	b, err := pool.Acquire()
	require.NoError(t, err)
	return b
}

// S2: Refinery initialized at 96x64. Feed a buffer of all zeros with
// hint=whole; expect R=whole. Feed the same buffer again with hint=whole;
// expect R=empty. Flip one byte at pixel (40,40); expect
// R={(32,32,64,64)}.
func TestRefinerScenarioS2(t *testing.T) {
	r := NewRefinery(96, 64)
	buf := newTestBuffer(t, 96, 64)
	buf.YInverted = false

	whole := region.Rect{X1: 0, Y1: 0, X2: 96, Y2: 64}

	refined, err := r.Refine(whole, buf)
	require.NoError(t, err)
	assert.Equal(t, whole, refined.Bounds())
	assert.Len(t, refined.Rects(), 6, "96x64 is exactly 3x2 32x32 tiles")

	refined, err = r.Refine(whole, buf)
	require.NoError(t, err)
	assert.True(t, refined.Empty(), "an unchanged buffer must refine to nothing")

	pixels, err := buf.Mapped()
	require.NoError(t, err)
	stride := int(buf.Stride)
	offset := 40*stride + 40*4
	pixels[offset] ^= 0xff

	refined, err = r.Refine(whole, buf)
	require.NoError(t, err)
	want := region.New(region.Rect{X1: 32, Y1: 32, X2: 64, Y2: 64})
	assert.Equal(t, want.Rects(), refined.Rects())
}

// Property 3: damage containment.
func TestRefineContainment(t *testing.T) {
	r := NewRefinery(96, 64)
	buf := newTestBuffer(t, 96, 64)

	hint := region.Rect{X1: 10, Y1: 50, X2: 90, Y2: 63}
	refined, err := r.Refine(hint, buf)
	require.NoError(t, err)

	bound := tileRoundUp(hint).Intersect(region.Rect{X1: 0, Y1: 0, X2: 96, Y2: 64})
	for _, rect := range refined.Rects() {
		assert.True(t, containsRect(bound, rect), "refined rect %v must lie within %v", rect, bound)
	}
}

func containsRect(outer, inner region.Rect) bool {
	return inner.X1 >= outer.X1 && inner.Y1 >= outer.Y1 && inner.X2 <= outer.X2 && inner.Y2 <= outer.Y2
}

// Property 4: damage minimality — an unmodified buffer refines to empty.
func TestRefineMinimalityOnUnchangedBuffer(t *testing.T) {
	r := NewRefinery(64, 64)
	buf := newTestBuffer(t, 64, 64)
	whole := region.Rect{X1: 0, Y1: 0, X2: 64, Y2: 64}

	_, err := r.Refine(whole, buf)
	require.NoError(t, err)

	refined, err := r.Refine(whole, buf)
	require.NoError(t, err)
	assert.True(t, refined.Empty())
}

func TestTileRoundUp(t *testing.T) {
	got := tileRoundUp(region.Rect{X1: 33, Y1: 1, X2: 65, Y2: 63})
	assert.Equal(t, region.Rect{X1: 32, Y1: 0, X2: 96, Y2: 64}, got)
}

func TestRefineRejectsMismatchedSize(t *testing.T) {
	r := NewRefinery(96, 64)
	buf := newTestBuffer(t, 32, 32)
	_, err := r.Refine(region.Rect{X1: 0, Y1: 0, X2: 32, Y2: 32}, buf)
	assert.Error(t, err)
}

func TestRefineRejectsUnsupportedFormat(t *testing.T) {
	r := NewRefinery(8, 8)
	reg := buffer.NewRegistry()
	pool := buffer.NewPool(reg, &buffer.Config{Type: buffer.TypeShm, Width: 8, Height: 8, Stride: 16, Format: 0x1})
	buf, err := pool.Acquire()
	require.NoError(t, err)
	_, err = r.Refine(region.Rect{X1: 0, Y1: 0, X2: 8, Y2: 8}, buf)
	assert.Error(t, err)
}
