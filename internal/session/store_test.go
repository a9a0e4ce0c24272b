package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/dropDatabas3/webcafe/internal/api"
	"github.com/dropDatabas3/webcafe/internal/authbus"
	"github.com/dropDatabas3/webcafe/internal/observability/logger"
)

type fakeCreds struct {
	token string
	err   error
}

func (f *fakeCreds) Token(context.Context) (string, bool, error) {
	if f.err != nil {
		return "", false, f.err
	}
	return f.token, f.token != "", nil
}

type fetchFunc func(ctx context.Context, token string) (api.SelfInfo, error)

func (f fetchFunc) GetUsersInfo(ctx context.Context, token string) (api.SelfInfo, error) {
	return f(ctx, token)
}

func selfInfo(raw map[string]any) fetchFunc {
	return func(context.Context, string) (api.SelfInfo, error) {
		return api.SelfInfo{Shape: api.ShapeObject, Raw: raw}, nil
	}
}

func TestSync_NoTokenClears(t *testing.T) {
	called := false
	s := New(&fakeCreds{}, fetchFunc(func(context.Context, string) (api.SelfInfo, error) {
		called = true
		return api.SelfInfo{}, nil
	}))

	require.False(t, s.Sync(context.Background()))
	require.Equal(t, State{}, s.State())
	require.False(t, called, "no backend call without token")
}

func TestSync_TokenConnected(t *testing.T) {
	creds := &fakeCreds{token: "tk"}
	s := New(creds, fetchFunc(func(_ context.Context, token string) (api.SelfInfo, error) {
		require.Equal(t, "tk", token)
		return api.SelfInfo{Shape: api.ShapeObject, Raw: map[string]any{
			"login": "jdoe", "superuser": "True", "hpwd": "hash",
		}}, nil
	}))

	require.True(t, s.Sync(context.Background()))
	st := s.State()
	require.True(t, st.Connected)
	require.True(t, st.Superuser)
	require.NotNil(t, st.Profile)
	require.Equal(t, "jdoe", st.Profile.Login)
	require.Empty(t, st.Profile.Hpwd)
}

func TestSync_StringFalseIsNotSuperuser(t *testing.T) {
	s := New(&fakeCreds{token: "tk"}, selfInfo(map[string]any{"superuser": "False"}))
	require.True(t, s.Sync(context.Background()))
	require.False(t, s.State().Superuser)
}

func TestSync_FailureClearsWithoutError(t *testing.T) {
	failing := true
	s := New(&fakeCreds{token: "tk"}, fetchFunc(func(context.Context, string) (api.SelfInfo, error) {
		if failing {
			return api.SelfInfo{}, api.ErrAuth
		}
		return api.SelfInfo{Shape: api.ShapeObject, Raw: map[string]any{"login": "a"}}, nil
	}))

	failing = false
	require.True(t, s.Sync(context.Background()))
	require.True(t, s.State().Connected)

	failing = true
	require.NotPanics(t, func() {
		require.False(t, s.Sync(context.Background()))
	})
	require.Equal(t, State{}, s.State())
}

func TestSync_CredentialErrorIsAnonymous(t *testing.T) {
	s := New(&fakeCreds{err: errors.New("redis down")}, selfInfo(nil))
	require.False(t, s.Sync(context.Background()))
	require.False(t, s.State().Connected)
}

func TestSync_StaleResponseDiscarded(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var calls int
	var mu sync.Mutex

	s := New(&fakeCreds{token: "tk"}, fetchFunc(func(context.Context, string) (api.SelfInfo, error) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			// el primer sync queda colgado y termina con un perfil viejo
			close(started)
			<-release
			return api.SelfInfo{Shape: api.ShapeObject, Raw: map[string]any{"login": "old", "superuser": "True"}}, nil
		}
		return api.SelfInfo{Shape: api.ShapeObject, Raw: map[string]any{"login": "new"}}, nil
	}))

	done := make(chan bool)
	go func() { done <- s.Sync(context.Background()) }()
	<-started

	require.True(t, s.Sync(context.Background()))
	require.Equal(t, "new", s.State().Profile.Login)

	close(release)
	require.True(t, <-done)

	st := s.State()
	require.Equal(t, "new", st.Profile.Login, "late response must not overwrite newer state")
	require.False(t, st.Superuser)
}

func TestSubscribe(t *testing.T) {
	s := New(&fakeCreds{token: "tk"}, selfInfo(map[string]any{"login": "a"}))
	var seen []State
	cancel := s.Subscribe(func(st State) { seen = append(seen, st) })

	s.Sync(context.Background())
	cancel()
	s.Sync(context.Background())

	require.Len(t, seen, 1)
	require.True(t, seen[0].Connected)
}

func TestAttach_SyncsOnBusEvents(t *testing.T) {
	creds := &fakeCreds{}
	s := New(creds, selfInfo(map[string]any{"login": "a"}))
	bus := authbus.New()
	detach := s.Attach(context.Background(), bus)

	creds.token = "tk"
	tok := "tk"
	bus.EmitAuth(authbus.AuthEvent{Token: &tok})
	require.True(t, s.State().Connected)

	creds.token = ""
	bus.EmitProfileUpdated(authbus.ProfileUpdatedEvent{})
	require.False(t, s.State().Connected)

	detach()
	creds.token = "tk"
	bus.EmitAuth(authbus.AuthEvent{Token: &tok})
	require.False(t, s.State().Connected)
}

func TestSync_FailureIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	ctx := logger.ToContext(context.Background(), zap.New(core))

	s := New(&fakeCreds{token: "tk"}, fetchFunc(func(context.Context, string) (api.SelfInfo, error) {
		return api.SelfInfo{}, api.ErrServer
	}))
	require.False(t, s.Sync(ctx))

	entries := logs.FilterMessage("session verification failed").All()
	require.Len(t, entries, 1)
	require.Equal(t, string(api.KindServer), entries[0].ContextMap()["kind"])
}
