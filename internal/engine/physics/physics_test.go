package physics

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCharnyshevich/raster-world/internal/engine/raster"
)

const delta = 1e-9

var solid = raster.Pixel{R: 255, G: 255, B: 255, Channels: 3}

// uniform answers every query with the same pixel and counts queries.
type uniform struct {
	px      raster.Pixel
	queries int
}

func (u *uniform) PixelAt(x, y float64) (raster.Pixel, error) {
	u.queries++
	return u.px, nil
}

// wall is solid for edge <= x < edge+1.
type wall struct {
	edge float64
}

func (w *wall) PixelAt(x, y float64) (raster.Pixel, error) {
	if x >= w.edge && x < w.edge+1 {
		return solid, nil
	}
	return raster.Pixel{Channels: 3}, nil
}

type notReady struct{}

func (notReady) PixelAt(x, y float64) (raster.Pixel, error) {
	return raster.Pixel{}, fmt.Errorf("chunk (0,0): %w", raster.ErrNotReady)
}

// unitBody is a 1x1 body centred on the origin.
func unitBody() *DynamicObject {
	return NewDynamicObject(-0.5, -0.5, 1, 1)
}

func TestVectorPolarCartesian(t *testing.T) {
	v := Polar(2, math.Pi/2)
	assert.InDelta(t, 0, v.X(), delta)
	assert.InDelta(t, 2, v.Y(), delta)

	v.SetLength(3)
	assert.InDelta(t, 3, v.Y(), delta)

	v.SetAngle(math.Pi)
	assert.InDelta(t, -3, v.X(), delta)

	v.SetVec2(mgl64.Vec2{0, -4})
	assert.InDelta(t, 4, v.Length(), delta)
	assert.InDelta(t, -math.Pi/2, v.Angle(), delta)

	v.SetVec2(mgl64.Vec2{})
	assert.Zero(t, v.Length())
	assert.InDelta(t, -math.Pi/2, v.Angle(), delta, "zero vector keeps heading")
}

func TestSensorTransform(t *testing.T) {
	s := NewCircleSensor()
	require.Len(t, s.Points(), 16)

	s.ApplyTransform(2, 3, 0.5, 0)
	assert.InDelta(t, 2.5, s.Points()[0].X(), delta)
	assert.InDelta(t, 3, s.Points()[0].Y(), delta)
	assert.InDelta(t, 3.5, s.Points()[4].Y(), delta)

	s.ApplyTransform(2, 3, 0.5, math.Pi/2)
	assert.InDelta(t, 2, s.Points()[0].X(), delta)
	assert.InDelta(t, 3.5, s.Points()[0].Y(), delta)
	assert.Equal(t, 2, s.Transforms())

	for _, p := range s.Points() {
		d := p.Sub(mgl64.Vec2{2, 3}).Len()
		assert.InDelta(t, 0.5, d, 1e-6)
	}
}

func TestCollisionSymmetry(t *testing.T) {
	body := unitBody()
	body.Velocity().SetVec2(mgl64.Vec2{1, 2})
	body.Elasticity = 0.5
	src := &uniform{px: solid}

	hit, err := TestRasterCollision(src, body)
	require.NoError(t, err)
	require.True(t, hit)
	require.Equal(t, 16, src.queries)

	corr := body.Solver().Correction()
	assert.InDelta(t, 0, corr.X(), delta)
	assert.InDelta(t, 0, corr.Y(), delta)

	want := ReflectionImpulse(mgl64.Vec2{1, 2}, math.Atan2(corr.Y(), corr.X()), 0.5)
	got := body.Solver().Impulse()
	assert.InDelta(t, want.X(), got.X(), delta)
	assert.InDelta(t, want.Y(), got.Y(), delta)
}

func TestNoCollisionOnEmptyRaster(t *testing.T) {
	body := unitBody()
	hit, err := TestRasterCollision(&uniform{px: raster.Pixel{Channels: 3}}, body)
	require.NoError(t, err)
	require.False(t, hit)
	require.True(t, body.Solver().Empty())
}

func TestAlphaDrivesHitsForRGBA(t *testing.T) {
	body := unitBody()
	hit, err := TestRasterCollision(&uniform{px: raster.Pixel{R: 200, Channels: 4}}, body)
	require.NoError(t, err)
	require.False(t, hit, "transparent pixel is not solid")

	hit, err = TestRasterCollision(&uniform{px: raster.Pixel{A: 255, Channels: 4}}, body)
	require.NoError(t, err)
	require.True(t, hit)
}

func TestBounceOffWall(t *testing.T) {
	body := unitBody()
	body.Velocity().SetVec2(mgl64.Vec2{2, 0})
	body.Elasticity = 1

	hit, err := TestRasterCollision(&wall{edge: 0.3}, body)
	require.NoError(t, err)
	require.True(t, hit)

	// Five sensor points lie beyond the wall; their centroid is right of centre.
	corr := body.Solver().Correction()
	assert.Less(t, corr.X(), 0.0)
	assert.InDelta(t, 0, corr.Y(), delta)

	before := body.Sensor().Transforms()
	body.SolveCollisions()
	assert.Less(t, body.X(), -0.5)
	assert.Greater(t, body.X(), -0.5-0.125)
	assert.Equal(t, before+1, body.Sensor().Transforms())

	assert.InDelta(t, -2, body.Velocity().X(), delta)
	assert.InDelta(t, 0, body.Velocity().Y(), delta)
	assert.InDelta(t, math.Pi, math.Abs(body.Velocity().Angle()), delta)
	assert.True(t, body.Solver().Empty())
}

func TestInelasticWallStopsNormalMotion(t *testing.T) {
	body := unitBody()
	body.Velocity().SetVec2(mgl64.Vec2{2, 1})

	_, err := TestRasterCollision(&wall{edge: 0.3}, body)
	require.NoError(t, err)
	body.SolveCollisions()

	assert.InDelta(t, 0, body.Velocity().X(), delta)
	assert.InDelta(t, 1, body.Velocity().Y(), delta)
}

func TestCorrectionIsClamped(t *testing.T) {
	body := unitBody()
	body.Solver().AddCorrection(mgl64.Vec2{10, 0})
	body.SolveCollisions()

	// (w+h)/16 for a 1x1 body.
	assert.InDelta(t, -0.5+0.125, body.X(), delta)
	assert.InDelta(t, -0.5, body.Y(), delta)
}

func TestSolveCollisionsNoopWhenEmpty(t *testing.T) {
	body := unitBody()
	before := body.Sensor().Transforms()
	body.SolveCollisions()
	assert.Equal(t, before, body.Sensor().Transforms())
	assert.Equal(t, -0.5, body.X())
}

func TestIdleSkip(t *testing.T) {
	body := unitBody()
	body.Velocity().SetVec2(mgl64.Vec2{1e-9, 0})
	body.SetAngularVelocity(1e-9)
	before := body.Sensor().Transforms()
	pts := append([]mgl64.Vec2(nil), body.Sensor().Points()...)

	body.Update(1)

	assert.Equal(t, before, body.Sensor().Transforms())
	assert.Equal(t, -0.5, body.X())
	assert.Equal(t, -0.5, body.Y())
	assert.Zero(t, body.Rotation())
	assert.Equal(t, pts, body.Sensor().Points())
}

func TestUpdateIntegrates(t *testing.T) {
	body := unitBody()
	body.Velocity().SetLength(2)
	body.Velocity().SetAngle(math.Pi / 2)
	body.SetAngularVelocity(1)
	before := body.Sensor().Transforms()

	body.Update(0.5)

	assert.InDelta(t, -0.5, body.X(), delta)
	assert.InDelta(t, 0.5, body.Y(), delta)
	assert.InDelta(t, 0.5, body.Rotation(), delta)
	assert.Equal(t, before+1, body.Sensor().Transforms())
}

type crate struct{ id int }

func TestWorldClassifiesOnce(t *testing.T) {
	w := NewWorld(slog.New(slog.NewTextHandler(io.Discard, nil)))
	src := &uniform{}
	body := unitBody()
	box := &crate{}

	w.Add(src, body, box)
	w.Add(src, body)
	r, d, s := w.Counts()
	assert.Equal(t, [3]int{1, 1, 1}, [3]int{r, d, s})

	w.Remove(body, &crate{})
	r, d, s = w.Counts()
	assert.Equal(t, [3]int{1, 0, 1}, [3]int{r, d, s})

	w.Remove(src, box)
	r, d, s = w.Counts()
	assert.Equal(t, [3]int{0, 0, 0}, [3]int{r, d, s})
}

func TestWorldResolvesEachColliderOnce(t *testing.T) {
	w := NewWorld(slog.New(slog.NewTextHandler(io.Discard, nil)))
	body := unitBody()
	body.Velocity().SetVec2(mgl64.Vec2{2, 0})
	body.Elasticity = 1
	idle := NewDynamicObject(100, 100, 1, 1)

	w.Add(&wall{edge: 0.3}, &wall{edge: 0.3}, body, idle)
	require.NoError(t, w.Update(0))

	// Both walls push; the sum is applied in a single pass.
	assert.InDelta(t, 2-8, body.Velocity().X(), delta)
	assert.True(t, body.Solver().Empty())
	assert.Less(t, body.X(), -0.5)
	assert.Equal(t, 100.0, idle.X())
}

func TestWorldAbortsOnSamplingError(t *testing.T) {
	w := NewWorld(slog.New(slog.NewTextHandler(io.Discard, nil)))
	body := unitBody()
	w.Add(&uniform{px: solid}, notReady{}, body)

	err := w.Update(0)
	require.ErrorIs(t, err, raster.ErrNotReady)
	assert.True(t, body.Solver().Empty())
	assert.Equal(t, -0.5, body.X())
}
