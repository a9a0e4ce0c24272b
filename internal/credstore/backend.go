// Package credstore guarda la credencial (bearer token) del usuario logueado.
//
// Soporta:
//   - File (persistente, default): sobrevive reinicios del proceso igual que
//     el localStorage del navegador sobrevive un reload.
//   - Memory (in-process, para tests y sesiones efímeras).
//   - Redis (compartido entre procesos del mismo "origen").
//
// No hay cifrado ni tracking de expiración: la validez del token la decide
// únicamente el backend en el próximo uso.
package credstore

import (
	"context"
	"fmt"
	"strings"
)

// Backend define las operaciones de un key-value store síncrono.
type Backend interface {
	// Get obtiene un valor. Retorna ErrNotFound si no existe.
	Get(ctx context.Context, key string) (string, error)

	// Set guarda un valor (sin expiración).
	Set(ctx context.Context, key, value string) error

	// Delete elimina una key. Borrar una key inexistente no es error.
	Delete(ctx context.Context, key string) error

	// Ping verifica que el backend es usable.
	Ping(ctx context.Context) error

	// Close libera recursos.
	Close() error
}

// Config configuración para crear un backend.
type Config struct {
	Driver string // "file" | "memory" | "redis"

	// File
	Path string

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Prefix        string // Prefijo para todas las keys
}

// Errores del store.
var (
	ErrNotFound = errNotFound{}
)

type errNotFound struct{}

func (e errNotFound) Error() string { return "credstore: key not found" }

// IsNotFound verifica si el error es porque la key no existe.
func IsNotFound(err error) bool {
	_, ok := err.(errNotFound)
	return ok
}

// NewBackend crea un backend según la configuración.
func NewBackend(cfg Config) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "file", "":
		if strings.TrimSpace(cfg.Path) == "" {
			return nil, fmt.Errorf("credstore: file driver requires a path")
		}
		return NewFile(cfg.Path), nil
	case "memory":
		return NewMemory(cfg.Prefix), nil
	case "redis":
		return NewRedis(cfg)
	default:
		return nil, fmt.Errorf("credstore: unknown driver %q", cfg.Driver)
	}
}
