package physics

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/OCharnyshevich/raster-world/internal/engine/raster"
)

// Body is implemented by anything the world should integrate and collide.
type Body interface {
	Body() *DynamicObject
}

type kind int

const (
	kindRaster kind = iota
	kindDynamic
	kindStatic
)

// World holds raster sources, dynamic bodies and inert static objects. Each
// object is classified once when added. Objects must be comparable, usually
// pointers.
type World struct {
	log *slog.Logger

	kinds    map[any]kind
	rasters  []raster.Source
	dynamics []*DynamicObject
	statics  []any

	colliding []*DynamicObject
	seen      map[*DynamicObject]struct{}
}

// NewWorld returns an empty world.
func NewWorld(log *slog.Logger) *World {
	return &World{
		log:   log,
		kinds: make(map[any]kind),
		seen:  make(map[*DynamicObject]struct{}),
	}
}

// Add registers objects. Raster sources take precedence over bodies; anything
// else is static. Objects already present are ignored.
func (w *World) Add(objects ...any) {
	for _, obj := range objects {
		if _, ok := w.kinds[obj]; ok {
			continue
		}
		switch o := obj.(type) {
		case raster.Source:
			w.kinds[obj] = kindRaster
			w.rasters = append(w.rasters, o)
		case Body:
			w.kinds[obj] = kindDynamic
			w.dynamics = append(w.dynamics, o.Body())
		default:
			w.kinds[obj] = kindStatic
			w.statics = append(w.statics, obj)
		}
	}
}

// Remove unregisters objects. Unknown objects are ignored.
func (w *World) Remove(objects ...any) {
	for _, obj := range objects {
		k, ok := w.kinds[obj]
		if !ok {
			continue
		}
		delete(w.kinds, obj)
		switch k {
		case kindRaster:
			w.rasters = slices.DeleteFunc(w.rasters, func(r raster.Source) bool { return any(r) == obj })
		case kindDynamic:
			body := obj.(Body).Body()
			w.dynamics = slices.DeleteFunc(w.dynamics, func(d *DynamicObject) bool { return d == body })
		case kindStatic:
			w.statics = slices.DeleteFunc(w.statics, func(s any) bool { return s == obj })
		}
	}
}

// Counts returns the size of each collection.
func (w *World) Counts() (rasters, dynamics, statics int) {
	return len(w.rasters), len(w.dynamics), len(w.statics)
}

// Update integrates every body, tests them against every raster source and
// resolves each colliding body once. A sampling error aborts the tick.
func (w *World) Update(dt float64) error {
	for _, d := range w.dynamics {
		d.Update(dt)
	}

	w.colliding = w.colliding[:0]
	clear(w.seen)
	for _, r := range w.rasters {
		for _, d := range w.dynamics {
			hit, err := TestRasterCollision(r, d)
			if err != nil {
				for _, c := range w.colliding {
					c.solver.Clear()
				}
				d.solver.Clear()
				return fmt.Errorf("test raster collision: %w", err)
			}
			if !hit {
				continue
			}
			if _, ok := w.seen[d]; !ok {
				w.seen[d] = struct{}{}
				w.colliding = append(w.colliding, d)
			}
		}
	}

	if len(w.colliding) > 0 {
		w.log.Debug("solving collisions", "count", len(w.colliding))
	}
	for _, d := range w.colliding {
		d.SolveCollisions()
	}
	return nil
}
