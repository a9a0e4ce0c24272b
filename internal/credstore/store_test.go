package credstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]Backend {
	t.Helper()

	mr := miniredis.RunT(t)
	rb, err := NewRedis(Config{RedisAddr: mr.Addr(), Prefix: "webcafe"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rb.Close() })

	return map[string]Backend{
		"memory": NewMemory(""),
		"file":   NewFile(filepath.Join(t.TempDir(), "credentials.json")),
		"redis":  rb,
	}
}

func TestStore_SetGetClear(t *testing.T) {
	ctx := context.Background()
	tokens := []string{"a", "eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiJib2IifQ.sig", "tok with spaces", "ünïcödé"}

	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := New(b)

			_, err := s.Get(ctx)
			require.True(t, IsNotFound(err), "empty store must report not found, got %v", err)

			for _, tok := range tokens {
				require.NoError(t, s.Set(ctx, tok))
				got, err := s.Get(ctx)
				require.NoError(t, err)
				require.Equal(t, tok, got)
			}

			require.NoError(t, s.Clear(ctx))
			_, err = s.Get(ctx)
			require.True(t, IsNotFound(err))

			// Clear es idempotente
			require.NoError(t, s.Clear(ctx))
		})
	}
}

func TestStore_TokenHelper(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemory("x"))

	tok, ok, err := s.Token(ctx)
	require.NoError(t, err)
	require.False(t, ok)
	require.Empty(t, tok)

	require.NoError(t, s.Set(ctx, "t1"))
	tok, ok, err = s.Token(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "t1", tok)
}

func TestStore_RejectsEmptyToken(t *testing.T) {
	s := New(NewMemory(""))
	require.Error(t, s.Set(context.Background(), ""))
}

func TestStore_WhitespaceTokensRoundTrip(t *testing.T) {
	ctx := context.Background()
	tokens := []string{"  ", " tk ", "\t", "tk\n"}

	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := New(b)
			for _, tok := range tokens {
				require.NoError(t, s.Set(ctx, tok))
				got, err := s.Get(ctx)
				require.NoError(t, err)
				require.Equal(t, tok, got)

				v, ok, err := s.Token(ctx)
				require.NoError(t, err)
				require.True(t, ok)
				require.Equal(t, tok, v)
			}
		})
	}
}

func TestFileBackend_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "creds", "credentials.json")

	require.NoError(t, New(NewFile(path)).Set(ctx, "persisted"))

	got, err := New(NewFile(path)).Get(ctx)
	require.NoError(t, err)
	require.Equal(t, "persisted", got)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileBackend_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := New(NewFile(path)).Get(context.Background())
	require.Error(t, err)
	require.False(t, IsNotFound(err))
}

func TestRedisBackend_UsesPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	rb, err := NewRedis(Config{RedisAddr: mr.Addr(), Prefix: "origin-a"})
	require.NoError(t, err)
	defer rb.Close()

	require.NoError(t, New(rb).Set(context.Background(), "abc"))
	v, err := mr.Get("origin-a:" + TokenKey)
	require.NoError(t, err)
	require.Equal(t, "abc", v)
}

func TestNewBackend_Drivers(t *testing.T) {
	_, err := NewBackend(Config{Driver: "file"})
	require.Error(t, err, "file driver without path")

	_, err = NewBackend(Config{Driver: "sqlite"})
	require.Error(t, err)

	b, err := NewBackend(Config{Driver: "memory"})
	require.NoError(t, err)
	require.NoError(t, b.Ping(context.Background()))
}
