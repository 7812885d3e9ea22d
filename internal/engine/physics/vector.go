package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Epsilon is the tolerance below which motion and impulses are treated as zero.
const Epsilon = 1e-6

// Vector is a 2D vector stored in polar form with its Cartesian components
// kept in sync.
type Vector struct {
	length float64
	angle  float64
	xy     mgl64.Vec2
}

// Polar returns the vector with the given length and angle.
func Polar(length, angle float64) Vector {
	v := Vector{length: length, angle: angle}
	v.recalculate()
	return v
}

func (v *Vector) recalculate() {
	v.xy = mgl64.Vec2{v.length * math.Cos(v.angle), v.length * math.Sin(v.angle)}
}

func (v Vector) Length() float64 { return v.length }
func (v Vector) Angle() float64  { return v.angle }
func (v Vector) X() float64      { return v.xy.X() }
func (v Vector) Y() float64      { return v.xy.Y() }

// Vec2 returns the Cartesian form.
func (v Vector) Vec2() mgl64.Vec2 { return v.xy }

// SetLength changes the length and keeps the angle.
func (v *Vector) SetLength(length float64) {
	v.length = length
	v.recalculate()
}

// SetAngle changes the angle and keeps the length.
func (v *Vector) SetAngle(angle float64) {
	v.angle = angle
	v.recalculate()
}

// SetVec2 sets the Cartesian form and re-derives length and angle. A zero vector
// keeps its previous angle.
func (v *Vector) SetVec2(xy mgl64.Vec2) {
	v.xy = xy
	v.length = xy.Len()
	if v.length > Epsilon {
		v.angle = math.Atan2(xy.Y(), xy.X())
	}
}
