package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// DefaultCorrectionStep is the share of the accumulated correction applied per
// resolution pass.
const DefaultCorrectionStep = 0.1

// DynamicObject is a moving body with a raster sensor. X and Y are its lower
// corner; the sensor is a circle inscribed in its width.
type DynamicObject struct {
	x, y          float64
	width, height float64
	rotation      float64

	velocity        Vector
	angularVelocity float64

	// Elasticity is 0 for fully inelastic and 1 for fully elastic bounces.
	Elasticity float64
	// CorrectionStep scales the position correction applied per pass.
	CorrectionStep float64

	sensor *Sensor
	solver Solver
}

// NewDynamicObject places a body of the given size at (x, y).
func NewDynamicObject(x, y, width, height float64) *DynamicObject {
	o := &DynamicObject{
		x:              x,
		y:              y,
		width:          width,
		height:         height,
		CorrectionStep: DefaultCorrectionStep,
		sensor:         NewCircleSensor(),
	}
	o.updateSensor()
	return o
}

// Body returns o; it marks DynamicObject as a dynamic body for World.
func (o *DynamicObject) Body() *DynamicObject { return o }

func (o *DynamicObject) X() float64        { return o.x }
func (o *DynamicObject) Y() float64        { return o.y }
func (o *DynamicObject) Width() float64    { return o.width }
func (o *DynamicObject) Height() float64   { return o.height }
func (o *DynamicObject) Rotation() float64 { return o.rotation }

// Center returns the centre of the body.
func (o *DynamicObject) Center() mgl64.Vec2 {
	return mgl64.Vec2{o.x + o.width/2, o.y + o.height/2}
}

// Velocity returns the linear velocity for reading or in-place changes.
func (o *DynamicObject) Velocity() *Vector { return &o.velocity }

func (o *DynamicObject) AngularVelocity() float64 { return o.angularVelocity }

func (o *DynamicObject) SetAngularVelocity(w float64) { o.angularVelocity = w }

func (o *DynamicObject) Sensor() *Sensor { return o.sensor }
func (o *DynamicObject) Solver() *Solver { return &o.solver }

// SetPosition moves the body and its sensor.
func (o *DynamicObject) SetPosition(x, y float64) {
	o.x, o.y = x, y
	o.updateSensor()
}

// SetRotation turns the body and its sensor.
func (o *DynamicObject) SetRotation(rotation float64) {
	o.rotation = rotation
	o.updateSensor()
}

func (o *DynamicObject) updateSensor() {
	c := o.Center()
	o.sensor.ApplyTransform(c.X(), c.Y(), o.width/2, o.rotation)
}

// Update integrates velocities over dt seconds. Steps below Epsilon leave the
// body and its sensor untouched.
func (o *DynamicObject) Update(dt float64) {
	moved := false

	if step := o.angularVelocity * dt; math.Abs(step) > Epsilon {
		o.rotation += step
		moved = true
	}

	step := o.velocity.Vec2().Mul(dt)
	if math.Abs(step.X()) > Epsilon || math.Abs(step.Y()) > Epsilon {
		o.x += step.X()
		o.y += step.Y()
		moved = true
	}

	if moved {
		o.updateSensor()
	}
}

// SolveCollisions applies what the solver accumulated and clears it.
func (o *DynamicObject) SolveCollisions() {
	if o.solver.Empty() {
		return
	}
	defer o.solver.Clear()

	// At most a quarter radius per pass.
	corr := o.solver.Correction().Mul(o.CorrectionStep)
	if maxJump := (o.width + o.height) / 16; corr.Len() > maxJump {
		corr = corr.Normalize().Mul(maxJump)
	}
	o.x += corr.X()
	o.y += corr.Y()
	o.updateSensor()

	if impulse := o.solver.Impulse(); impulse.Len() > Epsilon {
		o.velocity.SetVec2(o.velocity.Vec2().Add(impulse))
	}
}
