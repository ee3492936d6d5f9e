package lifecycle

import (
	"errors"
	"sync"

	"github.com/safin-krmavi/Bulltrek/internal/strategy"
)

type State string

const (
	StateIdle       State = "idle"
	StateSubmitting State = "submitting"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

var ErrActionInFlight = errors.New("action already in progress")

type Key struct {
	Type       strategy.Type
	StrategyID string
	Kind       Kind
}

type target struct {
	t  strategy.Type
	id string
}

type slot struct {
	state State
	gen   uint64
}

// Machines tracks one idle → submitting → succeeded|failed machine per
// (strategy type, strategy id, action kind). Kinds never block each other
// unless Exclusive is set, in which case a strategy has at most one active
// action at a time.
type Machines struct {
	Exclusive bool

	mu    sync.Mutex
	slots map[Key]*slot
	gen   uint64
}

func NewMachines(exclusive bool) *Machines {
	return &Machines{Exclusive: exclusive, slots: map[Key]*slot{}}
}

func (m *Machines) slot(k Key) *slot {
	if m.slots == nil {
		m.slots = map[Key]*slot{}
	}
	s, ok := m.slots[k]
	if !ok {
		s = &slot{state: StateIdle}
		m.slots[k] = s
	}
	return s
}

// Begin moves k to submitting and returns a ticket for the later
// transitions. A second Begin for a submitting k fails with
// ErrActionInFlight.
func (m *Machines) Begin(k Key) (uint64, error) {
	k.Type = k.Type.Resolve()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Exclusive {
		for other, s := range m.slots {
			if (target{other.Type, other.StrategyID}) != (target{k.Type, k.StrategyID}) {
				continue
			}
			if s.state == StateSubmitting || (other.Kind != k.Kind && s.state == StateSucceeded) {
				return 0, ErrActionInFlight
			}
		}
	}
	s := m.slot(k)
	if s.state == StateSubmitting {
		return 0, ErrActionInFlight
	}
	m.gen++
	s.state = StateSubmitting
	s.gen = m.gen
	return s.gen, nil
}

// Succeed holds k at succeeded until Release.
func (m *Machines) Succeed(k Key, ticket uint64) {
	m.set(k, ticket, StateSucceeded)
}

// Fail returns k to idle right away.
func (m *Machines) Fail(k Key, ticket uint64) {
	m.set(k, ticket, StateIdle)
}

// Release returns a succeeded k to idle once its alert has closed. A stale
// ticket is ignored.
func (m *Machines) Release(k Key, ticket uint64) {
	m.set(k, ticket, StateIdle)
}

// set applies st when ticket is still current. Idle slots are dropped, so
// the map only holds actions that are running or showing their alert.
func (m *Machines) set(k Key, ticket uint64, st State) {
	k.Type = k.Type.Resolve()
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[k]
	if !ok || s.gen != ticket {
		return
	}
	if st == StateIdle {
		delete(m.slots, k)
		return
	}
	s.state = st
}

func (m *Machines) State(k Key) State {
	k.Type = k.Type.Resolve()
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.slots[k]; ok {
		return s.state
	}
	return StateIdle
}

// Snapshot returns the state of every user action for one strategy.
func (m *Machines) Snapshot(t strategy.Type, strategyID string) map[Kind]State {
	out := make(map[Kind]State, len(Kinds))
	for _, k := range Kinds {
		out[k] = m.State(Key{Type: t, StrategyID: strategyID, Kind: k})
	}
	return out
}
