package alert

import (
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

// Action is an optional navigation link shown with an alert.
type Action struct {
	Label string `json:"label"`
	Route string `json:"route"`
}

type Alert struct {
	ID        string        `json:"id"`
	Kind      string        `json:"kind"`
	Level     Level         `json:"level"`
	Message   string        `json:"message"`
	TTL       time.Duration `json:"-"`
	Action    *Action       `json:"action,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	ExpiresAt time.Time     `json:"expires_at"`
}

type alertJSON Alert

// MarshalJSON writes TTL as whole milliseconds (ttl_ms).
func (a Alert) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		alertJSON
		TTLMillis int64 `json:"ttl_ms"`
	}{alertJSON(a), a.TTL.Milliseconds()})
}

func (a *Alert) UnmarshalJSON(b []byte) error {
	var v struct {
		alertJSON
		TTLMillis int64 `json:"ttl_ms"`
	}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*a = Alert(v.alertJSON)
	a.TTL = time.Duration(v.TTLMillis) * time.Millisecond
	return nil
}

// CloseFunc runs once when an alert leaves the list. expired is false when
// it was dismissed.
type CloseFunc func(a Alert, expired bool)

type entry struct {
	alert   Alert
	timer   *time.Timer
	onClose CloseFunc
}

// Manager holds the visible alerts. Each alert closes itself after its TTL
// unless it is dismissed first.
type Manager struct {
	mu     sync.Mutex
	alerts map[string]*entry
	now    func() time.Time
}

func NewManager() *Manager {
	return &Manager{alerts: map[string]*entry{}, now: time.Now}
}

// Show adds a and arms its timer. A zero TTL never expires on its own.
func (m *Manager) Show(a Alert, onClose CloseFunc) Alert {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Level == "" {
		a.Level = LevelInfo
	}
	a.CreatedAt = m.now()
	if a.TTL > 0 {
		a.ExpiresAt = a.CreatedAt.Add(a.TTL)
	}
	e := &entry{alert: a, onClose: onClose}

	m.mu.Lock()
	if old, ok := m.alerts[a.ID]; ok && old.timer != nil {
		old.timer.Stop()
	}
	m.alerts[a.ID] = e
	if a.TTL > 0 {
		id := a.ID
		e.timer = time.AfterFunc(a.TTL, func() { m.close(id, e, true) })
	}
	m.mu.Unlock()
	return a
}

// Dismiss closes the alert now. The close callback sees expired=false.
// It reports whether the alert was still visible.
func (m *Manager) Dismiss(id string) bool {
	m.mu.Lock()
	e, ok := m.alerts[id]
	m.mu.Unlock()
	if !ok {
		return false
	}
	return m.close(id, e, false)
}

func (m *Manager) close(id string, e *entry, expired bool) bool {
	m.mu.Lock()
	cur, ok := m.alerts[id]
	if !ok || cur != e {
		m.mu.Unlock()
		return false
	}
	delete(m.alerts, id)
	if e.timer != nil {
		e.timer.Stop()
	}
	m.mu.Unlock()

	if e.onClose != nil {
		e.onClose(e.alert, expired)
	}
	return true
}

func (m *Manager) Get(id string) (Alert, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.alerts[id]
	if !ok {
		return Alert{}, false
	}
	return e.alert, true
}

// List returns the visible alerts, oldest first.
func (m *Manager) List() []Alert {
	m.mu.Lock()
	out := make([]Alert, 0, len(m.alerts))
	for _, e := range m.alerts {
		out = append(out, e.alert)
	}
	m.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Close dismisses everything that is still visible.
func (m *Manager) Close() {
	for _, a := range m.List() {
		m.Dismiss(a.ID)
	}
}
