// Package authbus es el bus in-process de eventos de autenticación.
//
// Cualquier componente puede emitir y suscribirse. La entrega es síncrona, en
// orden de registro, como máximo una vez por listener activo y sin replay para
// los que se registran después de la emisión. Sin suscriptores (o con un bus
// nil) emitir es un no-op.
package authbus

import (
	"sync"

	"github.com/dropDatabas3/webcafe/internal/observability/logger"
)

// Nombres de los eventos.
const (
	EventAuthChanged    = "cafe-auth-changed"
	EventProfileUpdated = "cafe-profile-updated"
)

// AuthEvent se emite cuando cambia la credencial (login/logout).
type AuthEvent struct {
	Token     *string `json:"token"`               // nil = logout
	UserID    string  `json:"userId,omitempty"`    // login (claim sub)
	Superuser *bool   `json:"superuser,omitempty"` // se conoce recién después del sync
}

// LoggedIn reporta si el evento corresponde a un login.
func (e AuthEvent) LoggedIn() bool { return e.Token != nil }

// ProfileUpdatedEvent se emite cuando el perfil cambió en el backend
// (p.ej. cambio de calendario favorito).
type ProfileUpdatedEvent struct {
	PromoID *string `json:"promoId,omitempty"`
}

type listener[E any] struct {
	id uint64
	fn func(E)
}

// topic es una lista de listeners de un tipo de evento.
type topic[E any] struct {
	mu        sync.Mutex
	listeners []listener[E]
}

func (t *topic[E]) add(id uint64, fn func(E)) {
	t.mu.Lock()
	t.listeners = append(t.listeners, listener[E]{id: id, fn: fn})
	t.mu.Unlock()
}

func (t *topic[E]) remove(id uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, l := range t.listeners {
		if l.id == id {
			t.listeners = append(t.listeners[:i:i], t.listeners[i+1:]...)
			return
		}
	}
}

// snapshot copia los listeners para invocarlos sin el lock: un listener puede
// suscribirse, cancelarse o emitir de nuevo sin deadlock.
func (t *topic[E]) snapshot() []listener[E] {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]listener[E], len(t.listeners))
	copy(out, t.listeners)
	return out
}

// Bus es el bus de eventos. El valor cero es usable.
type Bus struct {
	mu      sync.Mutex
	nextID  uint64
	auth    topic[AuthEvent]
	profile topic[ProfileUpdatedEvent]
}

// New crea un bus vacío.
func New() *Bus { return &Bus{} }

func (b *Bus) id() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	return b.nextID
}

// OnAuth registra fn para cafe-auth-changed. Devuelve la función de baja
// (idempotente).
func (b *Bus) OnAuth(fn func(AuthEvent)) (cancel func()) {
	if b == nil || fn == nil {
		return func() {}
	}
	id := b.id()
	b.auth.add(id, fn)
	var once sync.Once
	return func() { once.Do(func() { b.auth.remove(id) }) }
}

// OnProfileUpdated registra fn para cafe-profile-updated.
func (b *Bus) OnProfileUpdated(fn func(ProfileUpdatedEvent)) (cancel func()) {
	if b == nil || fn == nil {
		return func() {}
	}
	id := b.id()
	b.profile.add(id, fn)
	var once sync.Once
	return func() { once.Do(func() { b.profile.remove(id) }) }
}

// EmitAuth entrega ev a los listeners registrados, en orden.
func (b *Bus) EmitAuth(ev AuthEvent) {
	if b == nil {
		return
	}
	ls := b.auth.snapshot()
	logger.L().Debug("auth event",
		logger.Event(EventAuthChanged),
		logger.Bool("logged_in", ev.LoggedIn()),
		logger.Count(len(ls)),
	)
	for _, l := range ls {
		l.fn(ev)
	}
}

// EmitProfileUpdated entrega ev a los listeners registrados, en orden.
func (b *Bus) EmitProfileUpdated(ev ProfileUpdatedEvent) {
	if b == nil {
		return
	}
	ls := b.profile.snapshot()
	logger.L().Debug("auth event",
		logger.Event(EventProfileUpdated),
		logger.Count(len(ls)),
	)
	for _, l := range ls {
		l.fn(ev)
	}
}
