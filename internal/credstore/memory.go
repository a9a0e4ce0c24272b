package credstore

import (
	"context"

	gocache "github.com/patrickmn/go-cache"
)

// memoryBackend implementa Backend usando go-cache sin expiración.
// Útil para tests y para procesos que no deben dejar rastro en disco.
type memoryBackend struct {
	prefix string
	c      *gocache.Cache
}

// NewMemory crea un backend en memoria.
func NewMemory(prefix string) *memoryBackend {
	return &memoryBackend{
		prefix: prefix,
		c:      gocache.New(gocache.NoExpiration, 0),
	}
}

func (m *memoryBackend) key(k string) string {
	if m.prefix == "" {
		return k
	}
	return m.prefix + ":" + k
}

func (m *memoryBackend) Get(ctx context.Context, key string) (string, error) {
	v, ok := m.c.Get(m.key(key))
	if !ok {
		return "", ErrNotFound
	}
	s, _ := v.(string)
	return s, nil
}

func (m *memoryBackend) Set(ctx context.Context, key, value string) error {
	m.c.Set(m.key(key), value, gocache.NoExpiration)
	return nil
}

func (m *memoryBackend) Delete(ctx context.Context, key string) error {
	m.c.Delete(m.key(key))
	return nil
}

func (m *memoryBackend) Ping(ctx context.Context) error { return nil }

func (m *memoryBackend) Close() error {
	m.c.Flush()
	return nil
}
