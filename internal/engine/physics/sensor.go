package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const circlePoints = 16

// circleShape holds circlePoints points evenly spaced on the unit circle.
var circleShape = func() []mgl64.Vec2 {
	pts := make([]mgl64.Vec2, circlePoints)
	for i := range pts {
		angle := float64(i) / circlePoints * 2 * math.Pi
		pts[i] = mgl64.Vec2{epsilonToZero(math.Cos(angle)), epsilonToZero(math.Sin(angle))}
	}
	return pts
}()

func epsilonToZero(v float64) float64 {
	if math.Abs(v) < Epsilon {
		return 0
	}
	return v
}

// Sensor is a ring of sample points around a body, transformed from an
// immutable unit-shape template.
type Sensor struct {
	shape      []mgl64.Vec2
	points     []mgl64.Vec2
	transforms int
}

// NewCircleSensor returns a sensor with 16 points on a circle.
func NewCircleSensor() *Sensor {
	s := &Sensor{
		shape:  circleShape,
		points: make([]mgl64.Vec2, len(circleShape)),
	}
	copy(s.points, s.shape)
	return s
}

// ApplyTransform rotates, scales and translates the template into world space.
func (s *Sensor) ApplyTransform(cx, cy, radius, rotation float64) {
	rot := mgl64.Rotate2D(rotation)
	for i, p := range s.shape {
		q := rot.Mul2x1(p).Mul(radius)
		s.points[i] = mgl64.Vec2{epsilonToZero(q.X() + cx), epsilonToZero(q.Y() + cy)}
	}
	s.transforms++
}

// Points returns the world-space sample points. The slice is reused by the next
// ApplyTransform.
func (s *Sensor) Points() []mgl64.Vec2 {
	return s.points
}

// Transforms returns how many times ApplyTransform has run.
func (s *Sensor) Transforms() int {
	return s.transforms
}
