package credstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/dropDatabas3/webcafe/internal/util/atomicwrite"
)

const filePerm = 0o600

// fileBackend persiste un documento JSON {key: value} en disco.
// Cada escritura reescribe el archivo completo de forma atómica.
type fileBackend struct {
	path string
	mu   sync.Mutex
}

// NewFile crea un backend sobre el archivo path. El archivo se crea en el
// primer Set.
func NewFile(path string) *fileBackend {
	return &fileBackend{path: path}
}

func (f *fileBackend) load() (map[string]string, error) {
	b, ok, err := atomicwrite.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("credstore: read %s: %w", f.path, err)
	}
	data := map[string]string{}
	if !ok || len(b) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(b, &data); err != nil {
		return nil, fmt.Errorf("credstore: decode %s: %w", f.path, err)
	}
	return data, nil
}

func (f *fileBackend) save(data map[string]string) error {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	if err := atomicwrite.WriteFile(f.path, b, filePerm); err != nil {
		return fmt.Errorf("credstore: write %s: %w", f.path, err)
	}
	return nil
}

func (f *fileBackend) Get(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := f.load()
	if err != nil {
		return "", err
	}
	v, ok := data[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (f *fileBackend) Set(ctx context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := f.load()
	if err != nil {
		return err
	}
	data[key] = value
	return f.save(data)
}

func (f *fileBackend) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := f.load()
	if err != nil {
		return err
	}
	if _, ok := data[key]; !ok {
		return nil
	}
	delete(data, key)
	return f.save(data)
}

func (f *fileBackend) Ping(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, err := f.load()
	return err
}

func (f *fileBackend) Close() error { return nil }
