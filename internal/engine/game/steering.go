package game

import "sync"

// Key is a logical steering key.
type Key int

const (
	KeyLeft Key = iota
	KeyRight
	KeyUp
	KeyDown
	KeyA
	KeyD
	KeyW
	KeyS
)

var keyNames = [...]string{"left", "right", "up", "down", "a", "d", "w", "s"}

func (k Key) String() string {
	if k >= 0 && int(k) < len(keyNames) {
		return keyNames[k]
	}
	return "unknown"
}

// Input answers whether any of the given keys is currently held.
type Input interface {
	IsPressed(keys ...Key) bool
}

type noInput struct{}

func (noInput) IsPressed(...Key) bool { return false }

// Steering is an Input fed by key events. It is safe for concurrent use.
type Steering struct {
	mu   sync.Mutex
	held map[Key]bool
}

// NewSteering returns a Steering with every key released.
func NewSteering() *Steering {
	return &Steering{held: make(map[Key]bool)}
}

// Set marks key as held or released.
func (s *Steering) Set(key Key, down bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if down {
		s.held[key] = true
	} else {
		delete(s.held, key)
	}
}

// ReleaseAll releases every key.
func (s *Steering) ReleaseAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.held)
}

func (s *Steering) IsPressed(keys ...Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		if s.held[k] {
			return true
		}
	}
	return false
}
