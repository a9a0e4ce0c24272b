package credstore

import (
	"context"
	"errors"
)

// TokenKey es la única key que usa el Store.
const TokenKey = "cafe_token"

// Store envuelve un Backend y guarda exactamente un token bajo TokenKey.
type Store struct {
	b Backend
}

// New crea un Store sobre el backend dado.
func New(b Backend) *Store {
	return &Store{b: b}
}

// Open crea el backend según cfg y lo envuelve en un Store.
func Open(cfg Config) (*Store, error) {
	b, err := NewBackend(cfg)
	if err != nil {
		return nil, err
	}
	return New(b), nil
}

// Get retorna el token guardado o ErrNotFound si no hay ninguno (anónimo).
// Solo "" se trata como ausente; cualquier otro valor (incluido uno con solo
// espacios) se devuelve tal cual fue guardado.
func (s *Store) Get(ctx context.Context) (string, error) {
	v, err := s.b.Get(ctx, TokenKey)
	if err != nil {
		return "", err
	}
	if v == "" {
		return "", ErrNotFound
	}
	return v, nil
}

// Token es un atajo para callers que solo distinguen "hay token" / "no hay".
// Errores del backend se reportan como ausencia junto con el error.
func (s *Store) Token(ctx context.Context) (string, bool, error) {
	v, err := s.Get(ctx)
	if err != nil {
		if IsNotFound(err) {
			return "", false, nil
		}
		return "", false, err
	}
	return v, true, nil
}

// Set guarda (o sobreescribe) el token. "" no es un token: usar Clear.
func (s *Store) Set(ctx context.Context, token string) error {
	if token == "" {
		return errors.New("credstore: empty token")
	}
	return s.b.Set(ctx, TokenKey, token)
}

// Clear elimina el token. Es idempotente.
func (s *Store) Clear(ctx context.Context) error {
	return s.b.Delete(ctx, TokenKey)
}

// Close cierra el backend.
func (s *Store) Close() error {
	return s.b.Close()
}
