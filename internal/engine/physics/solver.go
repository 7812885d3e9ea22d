package physics

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/OCharnyshevich/raster-world/internal/engine/raster"
)

// Solver accumulates position corrections and impulses for one body between
// collision detection and resolution.
type Solver struct {
	corrections []mgl64.Vec2
	impulses    []mgl64.Vec2
}

func (s *Solver) AddCorrection(v mgl64.Vec2) { s.corrections = append(s.corrections, v) }
func (s *Solver) AddImpulse(v mgl64.Vec2)    { s.impulses = append(s.impulses, v) }

// Empty reports whether nothing has been accumulated.
func (s *Solver) Empty() bool {
	return len(s.corrections) == 0 && len(s.impulses) == 0
}

// Correction returns the sum of accumulated corrections.
func (s *Solver) Correction() mgl64.Vec2 { return sum(s.corrections) }

// Impulse returns the sum of accumulated impulses.
func (s *Solver) Impulse() mgl64.Vec2 { return sum(s.impulses) }

// Clear drops everything accumulated.
func (s *Solver) Clear() {
	s.corrections = s.corrections[:0]
	s.impulses = s.impulses[:0]
}

func sum(vs []mgl64.Vec2) mgl64.Vec2 {
	var total mgl64.Vec2
	for _, v := range vs {
		total = total.Add(v)
	}
	return total
}

// ReflectionImpulse returns the velocity change that reflects v off a wall whose
// normal points along wallAngle: -(1+e)(v·n)n.
func ReflectionImpulse(v mgl64.Vec2, wallAngle, elasticity float64) mgl64.Vec2 {
	n := mgl64.Vec2{math.Cos(wallAngle), math.Sin(wallAngle)}
	return n.Mul(-(1 + elasticity) * v.Dot(n))
}

// TestRasterCollision samples src at every sensor point of body. On any hit it
// pushes a correction away from the hit centroid and a reflection impulse onto
// the body's solver. Sampling errors mean the caller broke the readiness gate.
func TestRasterCollision(src raster.Source, body *DynamicObject) (bool, error) {
	var (
		hits     int
		hitSum   mgl64.Vec2
		sensorPt = body.sensor.Points()
	)
	for _, p := range sensorPt {
		px, err := src.PixelAt(p.X(), p.Y())
		if err != nil {
			return false, fmt.Errorf("sample raster at (%g,%g): %w", p.X(), p.Y(), err)
		}
		if px.Solid() {
			hits++
			hitSum = hitSum.Add(p)
		}
	}
	if hits == 0 {
		return false, nil
	}

	centroid := hitSum.Mul(1 / float64(hits))
	ray := body.Center().Sub(centroid)
	body.solver.AddCorrection(ray)

	wallAngle := math.Atan2(ray.Y(), ray.X())
	body.solver.AddImpulse(ReflectionImpulse(body.velocity.Vec2(), wallAngle, body.Elasticity))
	return true, nil
}
