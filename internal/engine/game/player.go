package game

import (
	"math"

	"github.com/OCharnyshevich/raster-world/internal/engine/physics"
)

// Steering model of the player.
const (
	MaxSpeed      = 10
	MinSpeed      = 0
	RotationSpeed = math.Pi // rad/s
	Acceleration  = 20      // units/s²
)

// Player is a unit-sized body steered by keys. Its heading is the velocity angle.
type Player struct {
	*physics.DynamicObject
}

// NewPlayer places a player at (x, y) heading up.
func NewPlayer(x, y float64) *Player {
	p := &Player{DynamicObject: physics.NewDynamicObject(x, y, 1, 1)}
	p.Velocity().SetAngle(math.Pi / 2)
	return p
}

// Speed returns the current velocity length.
func (p *Player) Speed() float64 {
	return p.Velocity().Length()
}

// Heading returns the direction of travel in radians.
func (p *Player) Heading() float64 {
	return p.Velocity().Angle()
}

// Steer turns and accelerates from held keys over dt seconds.
func (p *Player) Steer(in Input, dt float64) {
	v := p.Velocity()
	angle, speed := v.Angle(), v.Length()

	if in.IsPressed(KeyLeft, KeyA) {
		angle = normalizeAngle(angle + dt*RotationSpeed)
	}
	if in.IsPressed(KeyRight, KeyD) {
		angle = normalizeAngle(angle - dt*RotationSpeed)
	}
	if in.IsPressed(KeyUp, KeyW) {
		speed = min(speed+dt*Acceleration, MaxSpeed)
	}
	if in.IsPressed(KeyDown, KeyS) {
		speed = max(speed-dt*Acceleration, MinSpeed)
	}

	if angle != v.Angle() {
		v.SetAngle(angle)
	}
	// Sprite faces up at rotation 0.
	if r := angle - math.Pi/2; r != p.Rotation() {
		p.SetRotation(r)
	}
	if speed != v.Length() {
		v.SetLength(speed)
	}
}

// normalizeAngle wraps a into [0, 2π).
func normalizeAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a
}
