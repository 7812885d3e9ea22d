package main

import (
	"fmt"
	"math"

	"github.com/gdamore/tcell/v2"

	"github.com/OCharnyshevich/raster-world/internal/engine/game"
	"github.com/OCharnyshevich/raster-world/internal/engine/raster"
	"github.com/OCharnyshevich/raster-world/internal/engine/world"
)

// tileCounter is a world.Drawer that only counts what is on screen per layer.
type tileCounter struct {
	live      map[string]int
	refreshed int
}

func newTileCounter() *tileCounter {
	return &tileCounter{live: make(map[string]int)}
}

func (c *tileCounter) AddTile(layer string, _ *world.Tile)    { c.live[layer]++ }
func (c *tileCounter) RemoveTile(layer string, _ *world.Tile) { c.live[layer]-- }
func (c *tileCounter) RefreshTile(string, *world.Tile)        { c.refreshed++ }

// view draws the layers around the camera, one terminal cell per sample.
type view struct {
	screen tcell.Screen
	tiles  *tileCounter
	zoom   float64 // cells per world unit, horizontally
	every  int     // render every Nth tick
	ticks  int
}

func (v *view) render(g *game.Game) error {
	v.ticks++
	if v.ticks%v.every != 0 {
		return nil
	}

	w, h := v.screen.Size()
	rows := h - 1
	if w <= 0 || rows <= 0 {
		return nil
	}

	// Cells are about twice as tall as wide.
	sx, sy := v.zoom, v.zoom/2
	cam := g.Camera()
	cam.SetHalfExtent(float64(w)/2/sx, float64(rows)/2/sy)

	for row := 0; row < rows; row++ {
		y := cam.Y() - (float64(row)+0.5-float64(rows)/2)/sy
		for col := 0; col < w; col++ {
			x := cam.X() + (float64(col)+0.5-float64(w)/2)/sx
			r, style := cellAt(g, x, y)
			v.screen.SetContent(col, row, r, nil, style)
		}
	}

	p := g.Player()
	c := p.Center()
	col := int(math.Floor((c.X()-cam.X())*sx + float64(w)/2))
	row := int(math.Floor(-(c.Y()-cam.Y())*sy + float64(rows)/2))
	v.screen.SetContent(col, row, headingRune(p.Heading()), nil,
		tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorWhite).Bold(true))

	sim, skipped := g.Frames()
	status := fmt.Sprintf(" ready=%-5v chunks=%-4d queued=%-4d tiles=%d/%d x=%7.1f y=%7.1f speed=%4.1f frames=%d skipped=%d  [arrows/wasd, q quits]",
		g.Ready(), g.TotalChunksCount(), g.ChunksInQueue(),
		v.tiles.live[game.LayerBackground], v.tiles.live[game.LayerCollision],
		p.X(), p.Y(), p.Speed(), sim, skipped)
	drawText(v.screen, 0, rows, w, status, tcell.StyleDefault.Reverse(true))

	cam.ResetChanged()
	v.screen.Show()
	return nil
}

func cellAt(g *game.Game, x, y float64) (rune, tcell.Style) {
	if px, err := g.Collision().PixelAt(x, y); err == nil && px.Solid() {
		return '█', tcell.StyleDefault.Foreground(rgb(px))
	}
	px, err := g.Background().PixelAt(x, y)
	if err != nil {
		return '·', tcell.StyleDefault.Foreground(tcell.ColorGray)
	}
	return ' ', tcell.StyleDefault.Background(rgb(px))
}

func rgb(px raster.Pixel) tcell.Color {
	return tcell.NewRGBColor(int32(px.R), int32(px.G), int32(px.B))
}

var headings = []rune{'>', '^', '<', 'v'}

// headingRune points along angle a.
func headingRune(a float64) rune {
	i := int(math.Round(a/(math.Pi/2))) % 4
	if i < 0 {
		i += 4
	}
	return headings[i]
}

func drawText(s tcell.Screen, x, y, width int, text string, style tcell.Style) {
	col := x
	for _, r := range text {
		if col >= x+width {
			return
		}
		s.SetContent(col, y, r, nil, style)
		col++
	}
	for ; col < x+width; col++ {
		s.SetContent(col, y, ' ', nil, style)
	}
}
