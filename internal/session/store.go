// Package session mantiene la creencia local de "quién está logueado y con
// qué privilegio". El estado es siempre función del token guardado y de lo que
// el backend responde sobre él: nunca se muta por otro camino que Sync.
package session

import (
	"context"
	"sync"

	"github.com/dropDatabas3/webcafe/internal/api"
	"github.com/dropDatabas3/webcafe/internal/authbus"
	"github.com/dropDatabas3/webcafe/internal/metrics"
	"github.com/dropDatabas3/webcafe/internal/observability/logger"
)

// State es un snapshot inmutable de la sesión.
type State struct {
	Connected bool             `json:"connected"`
	Superuser bool             `json:"superuser"`
	Profile   *api.UserProfile `json:"profile"`
}

// Credentials es la vista de solo lectura del credential store que usa la sesión.
type Credentials interface {
	Token(ctx context.Context) (string, bool, error)
}

// SelfInfoFetcher consulta el perfil del dueño de un token.
type SelfInfoFetcher interface {
	GetUsersInfo(ctx context.Context, token string) (api.SelfInfo, error)
}

// Store es el contenedor observable de la sesión. Es seguro para uso
// concurrente.
type Store struct {
	creds Credentials
	api   SelfInfoFetcher

	mu      sync.Mutex
	state   State
	seq     uint64 // último Sync iniciado
	applied uint64 // Sync cuyo resultado está en state

	subMu  sync.Mutex
	nextID uint64
	subs   []subscriber
}

type subscriber struct {
	id uint64
	fn func(State)
}

// New crea un Store anónimo.
func New(creds Credentials, client SelfInfoFetcher) *Store {
	return &Store{creds: creds, api: client}
}

// State devuelve el snapshot actual.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registra fn, que se invoca con el nuevo State después de cada Sync
// aplicado. Devuelve la función de baja.
func (s *Store) Subscribe(fn func(State)) (cancel func()) {
	s.subMu.Lock()
	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscriber{id: id, fn: fn})
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			defer s.subMu.Unlock()
			for i, sub := range s.subs {
				if sub.id == id {
					s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Sync relee el token y lo verifica contra el backend.
//
//   - sin token: sesión anónima, false.
//   - token + perfil: conectado, superuser según ToBoolStr, true.
//   - cualquier error (red, 401, respuesta inválida): sesión anónima, false.
//
// Nunca devuelve error. Si mientras esperaba al backend empezó otro Sync, el
// resultado de este se descarta (no pisa uno más nuevo) pero igual se devuelve.
func (s *Store) Sync(ctx context.Context) bool {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	log := logger.FromWithFields(ctx, logger.Component("session"))

	token, ok, err := s.creds.Token(ctx)
	if err != nil {
		log.Warn("credential store read failed", logger.Err(err))
		s.apply(seq, State{}, "error")
		return false
	}
	if !ok {
		s.apply(seq, State{}, "anonymous")
		return false
	}

	info, err := s.api.GetUsersInfo(ctx, token)
	if err != nil {
		log.Info("session verification failed",
			logger.String("kind", string(api.KindOf(err))),
			logger.Err(err),
		)
		s.apply(seq, State{}, "error")
		return false
	}

	profile := info.Profile()
	s.apply(seq, State{
		Connected: true,
		Superuser: info.Superuser(),
		Profile:   &profile,
	}, "connected")
	return true
}

// apply publica st salvo que un Sync posterior ya haya publicado el suyo.
func (s *Store) apply(seq uint64, st State, result string) {
	s.mu.Lock()
	if seq < s.applied {
		s.mu.Unlock()
		metrics.RecordSessionSync("stale")
		logger.L().Debug("stale session sync discarded", logger.Component("session"))
		return
	}
	s.applied = seq
	s.state = st
	s.mu.Unlock()

	metrics.RecordSessionSync(result)

	s.subMu.Lock()
	subs := make([]subscriber, len(s.subs))
	copy(subs, s.subs)
	s.subMu.Unlock()
	for _, sub := range subs {
		sub.fn(st)
	}
}

// Attach suscribe Sync a los dos eventos del bus. ctx se usa para los Sync
// disparados por eventos. Devuelve la función que desuscribe ambos.
func (s *Store) Attach(ctx context.Context, bus *authbus.Bus) (detach func()) {
	cancelAuth := bus.OnAuth(func(authbus.AuthEvent) { s.Sync(ctx) })
	cancelProfile := bus.OnProfileUpdated(func(authbus.ProfileUpdatedEvent) { s.Sync(ctx) })
	return func() {
		cancelAuth()
		cancelProfile()
	}
}
