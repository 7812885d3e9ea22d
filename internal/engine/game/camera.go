package game

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/OCharnyshevich/raster-world/internal/engine/world"
)

// Target is something the camera can follow.
type Target interface {
	Center() mgl64.Vec2
}

// Camera is the viewport centre and half extents in world units.
type Camera struct {
	x, y                  float64
	halfWidth, halfHeight float64
	changed               bool
	target                Target
}

// NewCamera returns a square camera at the origin.
func NewCamera(halfExtent float64) *Camera {
	return &Camera{halfWidth: halfExtent, halfHeight: halfExtent, changed: true}
}

// Viewport implements world.Camera.
func (c *Camera) Viewport() world.Viewport {
	return world.Viewport{X: c.x, Y: c.y, HalfWidth: c.halfWidth, HalfHeight: c.halfHeight}
}

func (c *Camera) X() float64 { return c.x }
func (c *Camera) Y() float64 { return c.y }

// SetHalfExtent resizes the viewport.
func (c *Camera) SetHalfExtent(halfWidth, halfHeight float64) {
	if halfWidth == c.halfWidth && halfHeight == c.halfHeight {
		return
	}
	c.halfWidth, c.halfHeight = halfWidth, halfHeight
	c.changed = true
}

// Move shifts the camera by (dx, dy).
func (c *Camera) Move(dx, dy float64) {
	c.x += dx
	c.y += dy
	c.changed = true
}

// Follow makes Update snap the camera to target's centre. nil stops following.
func (c *Camera) Follow(target Target) {
	c.target = target
}

// Update snaps to the followed target.
func (c *Camera) Update() {
	if c.target == nil {
		return
	}
	p := c.target.Center()
	if p.X() != c.x || p.Y() != c.y {
		c.x, c.y = p.X(), p.Y()
		c.changed = true
	}
}

// Changed reports whether the viewport moved since the last ResetChanged.
func (c *Camera) Changed() bool { return c.changed }

// ResetChanged clears the changed flag once the renderer has caught up.
func (c *Camera) ResetChanged() { c.changed = false }
