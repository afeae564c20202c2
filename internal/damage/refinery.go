// Package damage implements hashed-tile delta refinement: it turns a
// coarse, possibly pessimistic compositor damage hint into a tight
// pixel-accurate region by comparing 32x32-pixel tile hashes frame to
// frame.
package damage

import (
	"fmt"

	"github.com/wayvnc-go/wayvnc/internal/buffer"
	"github.com/wayvnc-go/wayvnc/internal/region"
)

// tileSize is the refinery's fixed tile dimension. Only
// 32bpp buffers are supported in this version.
const tileSize = 32

// Refinery holds the most recent hash of every 32x32 tile of one
// framebuffer. Mutated only from the publisher thread during Refine.
type Refinery struct {
	Width, Height int32
	tilesX        int32
	tilesY        int32
	hashes        []uint32 // row-major, tilesX*tilesY
}

// NewRefinery allocates a refinery for a width x height framebuffer, with
// every tile hash initialized to zero so the first Refine call against
// any nonzero pixel data reports it as changed.
func NewRefinery(width, height int32) *Refinery {
	tilesX := (width + tileSize - 1) / tileSize
	tilesY := (height + tileSize - 1) / tileSize
	return &Refinery{
		Width:  width,
		Height: height,
		tilesX: tilesX,
		tilesY: tilesY,
		hashes: make([]uint32, tilesX*tilesY),
	}
}

// Resize reallocates the refinery for a new framebuffer size, discarding
// all stored hashes (equivalent to every tile reporting changed on first
// use afterward).
func (r *Refinery) Resize(width, height int32) {
	*r = *NewRefinery(width, height)
}

// frameBounds is the full image rectangle the refined region is always
// intersected against.
func (r *Refinery) frameBounds() region.Rect {
	return region.Rect{X1: 0, Y1: 0, X2: r.Width, Y2: r.Height}
}

// tileRoundUp expands rect to whole-tile boundaries: x1/y1 rounded down,
// x2/y2 rounded up, in pixel units.
func tileRoundUp(rect region.Rect) region.Rect {
	return region.Rect{
		X1: floorToTile(rect.X1),
		Y1: floorToTile(rect.Y1),
		X2: ceilToTile(rect.X2),
		Y2: ceilToTile(rect.Y2),
	}
}

func floorToTile(v int32) int32 {
	if v >= 0 {
		return (v / tileSize) * tileSize
	}
	return -(((-v) + tileSize - 1) / tileSize) * tileSize
}

func ceilToTile(v int32) int32 {
	if v >= 0 {
		return ((v + tileSize - 1) / tileSize) * tileSize
	}
	return -((-v) / tileSize) * tileSize
}

func (r *Refinery) tileIndex(tx, ty int32) int {
	return int(ty*r.tilesX + tx)
}

// Refine implements the algorithm: tile hint to 32x32
// boundaries, recompute each tile's hash from buf's pixels, and union
// into the output every tile whose hash changed since the last call.
// Contract: the returned region is a subset of tileRoundUp(hint)
// intersected with the framebuffer rectangle.
func (r *Refinery) Refine(hint region.Rect, buf *buffer.Buffer) (region.Region, error) {
	if buf.Format != buffer.FourccXRGB8888 && buf.Format != buffer.FourccARGB8888 {
		return region.Region{}, fmt.Errorf("damage: unsupported pixel format %#x, only 32bpp is supported", buf.Format)
	}
	if buf.Width != r.Width || buf.Height != r.Height {
		return region.Region{}, fmt.Errorf("damage: buffer %dx%d does not match refinery %dx%d", buf.Width, buf.Height, r.Width, r.Height)
	}

	pixels, err := buf.Mapped()
	if err != nil {
		return region.Region{}, fmt.Errorf("damage: map buffer: %w", err)
	}

	bounds := r.frameBounds()
	rounded := tileRoundUp(hint.Intersect(bounds))

	var refined region.Region
	if rounded.Empty() {
		return refined, nil
	}

	startTX := rounded.X1 / tileSize
	startTY := rounded.Y1 / tileSize
	endTX := (rounded.X2 + tileSize - 1) / tileSize
	endTY := (rounded.Y2 + tileSize - 1) / tileSize

	for ty := startTY; ty < endTY; ty++ {
		for tx := startTX; tx < endTX; tx++ {
			tileRect := region.Rect{
				X1: tx * tileSize,
				Y1: ty * tileSize,
				X2: (tx + 1) * tileSize,
				Y2: (ty + 1) * tileSize,
			}.Intersect(bounds)
			if tileRect.Empty() {
				continue
			}

			hash := r.hashTile(pixels, int(buf.Stride), tileRect, buf.YInverted)
			idx := r.tileIndex(tx, ty)
			if hash != r.hashes[idx] {
				r.hashes[idx] = hash
				refined.Union(tileRect)
			}
		}
	}

	return refined.Intersect(bounds), nil
}

// hashTile computes a single MurmurHash32(seed=0) over a tile's pixels,
// scanline by scanline, honoring y_inverted by scanning bottom-up.
func (r *Refinery) hashTile(pixels []byte, stride int, tile region.Rect, yInverted bool) uint32 {
	const bytesPerPixel = 4
	xStart := int(tile.X1) * bytesPerPixel
	xStop := int(tile.X2) * bytesPerPixel
	rowBytes := xStop - xStart

	h := uint32(0)
	rows := int(tile.Height())
	for i := 0; i < rows; i++ {
		var y int
		if yInverted {
			y = int(tile.Y2) - 1 - i
		} else {
			y = int(tile.Y1) + i
		}
		rowStart := y*stride + xStart
		rowEnd := rowStart + rowBytes
		if rowEnd > len(pixels) || rowStart < 0 {
			continue
		}
		h = murmurHash32(pixels[rowStart:rowEnd], h)
	}
	return h
}
