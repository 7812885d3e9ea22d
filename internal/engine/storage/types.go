package storage

import (
	"github.com/OCharnyshevich/raster-world/internal/engine/game"
)

// SessionData is the serializable state of a player between runs.
type SessionData struct {
	Name     string       `json:"name"`
	Seed     string       `json:"seed"`
	Position PositionData `json:"position"`
	Velocity VelocityData `json:"velocity"`
}

// PositionData holds the player's lower corner and rotation.
type PositionData struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Rotation float64 `json:"rotation"`
}

// VelocityData holds the polar velocity.
type VelocityData struct {
	Length float64 `json:"length"`
	Angle  float64 `json:"angle"`
}

// SessionDataFromPlayer extracts serializable data from a runtime Player.
func SessionDataFromPlayer(name, seed string, p *game.Player) *SessionData {
	return &SessionData{
		Name: name,
		Seed: seed,
		Position: PositionData{
			X:        p.X(),
			Y:        p.Y(),
			Rotation: p.Rotation(),
		},
		Velocity: VelocityData{
			Length: p.Speed(),
			Angle:  p.Heading(),
		},
	}
}

// Apply restores the saved state onto p.
func (sd *SessionData) Apply(p *game.Player) {
	p.SetPosition(sd.Position.X, sd.Position.Y)
	p.SetRotation(sd.Position.Rotation)
	v := p.Velocity()
	v.SetAngle(sd.Velocity.Angle)
	v.SetLength(sd.Velocity.Length)
}
