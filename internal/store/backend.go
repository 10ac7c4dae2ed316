package store

import "sync"

// Backend is the durable storage behind a Store. Values are JSON text.
//
// Two stores observe each other's writes only when their backends report the
// same Area.
type Backend interface {
	Area() string
	Load(key string) ([]byte, bool, error)
	Save(key string, raw []byte) error
}

// MemoryBackend keeps records in a map. A single MemoryBackend shared by
// several stores behaves like one origin's storage seen from several tabs.
type MemoryBackend struct {
	area    string
	mu      sync.RWMutex
	records map[string][]byte
}

// NewMemoryBackend returns an empty backend identified by area.
func NewMemoryBackend(area string) *MemoryBackend {
	return &MemoryBackend{
		area:    area,
		records: make(map[string][]byte),
	}
}

func (m *MemoryBackend) Area() string { return m.area }

func (m *MemoryBackend) Load(key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	raw, ok := m.records[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), raw...), true, nil
}

func (m *MemoryBackend) Save(key string, raw []byte) error {
	m.mu.Lock()
	m.records[key] = append([]byte(nil), raw...)
	m.mu.Unlock()
	return nil
}

// Delete removes a record. It models the user clearing site data.
func (m *MemoryBackend) Delete(key string) {
	m.mu.Lock()
	delete(m.records, key)
	m.mu.Unlock()
}
