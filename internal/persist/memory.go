package persist

import "sync"

// Memory is an in-process Medium, used in tests and for ephemeral sessions.
type Memory struct {
	mu   sync.Mutex
	data []byte
	ok   bool
}

// NewMemory returns an empty in-memory medium.
func NewMemory() *Memory { return &Memory{} }

// Seed pre-populates the medium, as if a previous session had saved data.
func (m *Memory) Seed(data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = append([]byte(nil), data...)
	m.ok = true
}

func (m *Memory) Load() ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ok {
		return nil, false, nil
	}
	return append([]byte(nil), m.data...), true, nil
}

func (m *Memory) Save(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = append(m.data[:0], data...)
	m.ok = true
	return nil
}
