package main

import (
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/OCharnyshevich/raster-world/internal/engine/game"
)

// keyHold turns terminal key presses into held keys. Terminals report no key
// release, so a key counts as held for a while after each press or repeat.
type keyHold struct {
	hold time.Duration
	now  func() time.Time

	mu    sync.Mutex
	until map[game.Key]time.Time
}

func newKeyHold(hold time.Duration) *keyHold {
	return &keyHold{hold: hold, now: time.Now, until: make(map[game.Key]time.Time)}
}

func (k *keyHold) Press(key game.Key) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.until[key] = k.now().Add(k.hold)
}

func (k *keyHold) IsPressed(keys ...game.Key) bool {
	now := k.now()
	k.mu.Lock()
	defer k.mu.Unlock()
	for _, key := range keys {
		if now.Before(k.until[key]) {
			return true
		}
	}
	return false
}

// steeringKey maps a terminal key event to a steering key.
func steeringKey(ev *tcell.EventKey) (game.Key, bool) {
	switch ev.Key() {
	case tcell.KeyLeft:
		return game.KeyLeft, true
	case tcell.KeyRight:
		return game.KeyRight, true
	case tcell.KeyUp:
		return game.KeyUp, true
	case tcell.KeyDown:
		return game.KeyDown, true
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'a', 'A':
			return game.KeyA, true
		case 'd', 'D':
			return game.KeyD, true
		case 'w', 'W':
			return game.KeyW, true
		case 's', 'S':
			return game.KeyS, true
		}
	}
	return 0, false
}

// isQuit reports whether ev should close the viewer.
func isQuit(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return true
	case tcell.KeyRune:
		return ev.Rune() == 'q'
	}
	return false
}

// pollEvents feeds key presses to keys until the screen is finalised or the
// user quits.
func pollEvents(screen tcell.Screen, keys *keyHold, quit func()) {
	for {
		switch ev := screen.PollEvent().(type) {
		case nil:
			return
		case *tcell.EventResize:
			screen.Sync()
		case *tcell.EventKey:
			if isQuit(ev) {
				quit()
				return
			}
			if k, ok := steeringKey(ev); ok {
				keys.Press(k)
			}
		}
	}
}
