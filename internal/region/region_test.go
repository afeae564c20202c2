package region

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRectIntersect(t *testing.T) {
	a := Rect{0, 0, 10, 10}
	b := Rect{5, 5, 15, 15}
	got := a.Intersect(b)
	assert.Equal(t, Rect{5, 5, 10, 10}, got)

	disjoint := Rect{100, 100, 110, 110}
	assert.True(t, a.Intersect(disjoint).Empty())
}

func TestRegionUnionDedup(t *testing.T) {
	var r Region
	r.Union(Rect{0, 0, 32, 32})
	r.Union(Rect{8, 8, 16, 16}) // fully contained, dropped
	assert.Len(t, r.Rects(), 1)

	r.Union(Rect{100, 100, 132, 132})
	assert.Len(t, r.Rects(), 2)
}

func TestRegionIntersectClips(t *testing.T) {
	r := New(Rect{-10, -10, 50, 50}, Rect{200, 200, 300, 300})
	clipped := r.Intersect(Rect{0, 0, 64, 64})
	assert.Len(t, clipped.Rects(), 1)
	assert.Equal(t, Rect{0, 0, 50, 50}, clipped.Rects()[0])
}

func TestRegionBounds(t *testing.T) {
	r := New(Rect{0, 0, 10, 10}, Rect{20, 30, 40, 50})
	assert.Equal(t, Rect{0, 0, 40, 50}, r.Bounds())
}
