package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/dropDatabas3/webcafe/internal/api"
	"github.com/dropDatabas3/webcafe/internal/authbus"
	"github.com/dropDatabas3/webcafe/internal/credstore"
	"github.com/dropDatabas3/webcafe/internal/guard"
	"github.com/dropDatabas3/webcafe/internal/observability/logger"
)

// fakeBackend imita el backend FastAPI con un único usuario.
type fakeBackend struct {
	mu        sync.Mutex
	token     string
	superuser string
	promo     string
}

func (f *fakeBackend) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.PostForm.Get("username") != "jdoe" || r.PostForm.Get("password") != "pw" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"detail":"Incorrect username or password"}`)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": f.token, "token_type": "bearer"})
	})
	mux.HandleFunc("/api/v1/users/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+f.token {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		// variante "lista de un elemento"
		_ = json.NewEncoder(w).Encode([]map[string]any{{
			"login": "jdoe", "superuser": f.superuser, "teacher": "False",
			"promo_id": f.promo, "hpwd": "$argon2$",
		}})
	})
	mux.HandleFunc("/api/v1/users/modify", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		f.mu.Lock()
		f.promo = body["promo_id"]
		f.mu.Unlock()
		_, _ = io.WriteString(w, `{"status_code":202,"detail":"ok","headers":null}`)
	})
	mux.HandleFunc("/api/v1/calendars/available", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `["L3","M1"]`)
	})
	mux.HandleFunc("/api/v1/classrooms/all", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `["A1"]`)
	})
	return mux
}

func signedToken(t *testing.T, sub string) string {
	t.Helper()
	s, err := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, jwtv5.MapClaims{"sub": sub}).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return s
}

func newContainer(t *testing.T, fb *fakeBackend) *Container {
	t.Helper()
	srv := httptest.NewServer(fb.handler(t))
	t.Cleanup(srv.Close)

	client, err := api.New(api.Options{BaseURL: srv.URL + "/api/v1"})
	require.NoError(t, err)
	c := Wire(context.Background(), credstore.New(credstore.NewMemory("")), client)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestLoginEndToEnd(t *testing.T) {
	fb := &fakeBackend{token: signedToken(t, "jdoe"), superuser: "True"}
	c := newContainer(t, fb)
	ctx := context.Background()

	var events []authbus.AuthEvent
	c.Bus.OnAuth(func(ev authbus.AuthEvent) { events = append(events, ev) })

	// antes del login el guard manda a /login
	d := c.Guard.Check(ctx, "/admin")
	require.Equal(t, guard.RedirectLogin, d.Outcome)

	st, err := c.Login(ctx, "jdoe", "pw")
	require.NoError(t, err)
	require.True(t, st.Connected)
	require.True(t, st.Superuser)
	require.Equal(t, "jdoe", st.Profile.Login)
	require.Empty(t, st.Profile.Hpwd)

	tok, err := c.Token(ctx)
	require.NoError(t, err)
	require.Equal(t, fb.token, tok)

	require.Len(t, events, 1)
	require.Equal(t, "jdoe", events[0].UserID)
	require.Equal(t, fb.token, *events[0].Token)

	require.True(t, c.Session.Sync(ctx))
	require.True(t, c.Guard.Check(ctx, "/admin").Allowed())

	require.NoError(t, c.Logout(ctx))
	require.False(t, c.Session.State().Connected)
	require.Len(t, events, 2)
	require.Nil(t, events[1].Token)
	require.Equal(t, guard.RedirectLogin, c.Guard.Check(ctx, "/admin").Outcome)
}

func TestLogin_NonSuperuserDeniedAdmin(t *testing.T) {
	fb := &fakeBackend{token: signedToken(t, "jdoe"), superuser: "False"}
	c := newContainer(t, fb)

	st, err := c.Login(context.Background(), "jdoe", "pw")
	require.NoError(t, err)
	require.True(t, st.Connected)
	require.False(t, st.Superuser)

	d := c.Guard.Check(context.Background(), "/admin")
	require.Equal(t, guard.RedirectHome, d.Outcome)
	require.Equal(t, "/", d.Location)
}

func TestLogin_BadCredentialsStoresNothing(t *testing.T) {
	c := newContainer(t, &fakeBackend{token: "x"})

	_, err := c.Login(context.Background(), "jdoe", "wrong")
	require.Error(t, err)
	require.True(t, api.IsAuth(err))

	tok, err := c.Token(context.Background())
	require.NoError(t, err)
	require.Empty(t, tok)
}

func TestSaveFavoriteCalendar_RefreshesSession(t *testing.T) {
	fb := &fakeBackend{token: "opaque-token", superuser: "False", promo: "L3"}
	c := newContainer(t, fb)
	ctx := context.Background()

	var promo *string
	c.Bus.OnProfileUpdated(func(ev authbus.ProfileUpdatedEvent) { promo = ev.PromoID })

	_, err := c.Login(ctx, "jdoe", "pw")
	require.NoError(t, err)
	require.Equal(t, "L3", c.Session.State().Profile.PromoID)

	_, err = c.SaveFavoriteCalendar(ctx, "M1")
	require.NoError(t, err)
	require.NotNil(t, promo)
	require.Equal(t, "M1", *promo)
	require.Equal(t, "M1", c.Session.State().Profile.PromoID)

	_, err = c.SaveFavoriteCalendar(ctx, " ")
	require.Error(t, err)
}

func TestModifyProfile_LogsPromoID(t *testing.T) {
	fb := &fakeBackend{token: "opaque-token", superuser: "False", promo: "L3"}
	c := newContainer(t, fb)

	core, logs := observer.New(zapcore.InfoLevel)
	ctx := logger.ToContext(context.Background(), zap.New(core))

	_, err := c.Login(ctx, "jdoe", "pw")
	require.NoError(t, err)

	_, err = c.SaveFavoriteCalendar(ctx, "M1")
	require.NoError(t, err)

	entries := logs.FilterMessage("profile updated").All()
	require.Len(t, entries, 1)
	require.Equal(t, "M1", entries[0].ContextMap()["promo_id"])
	require.Equal(t, "modify_profile", entries[0].ContextMap()["op"])

	// sin promo en el patch no se agrega el campo
	_, err = c.ModifyProfile(ctx, api.ProfilePatch{})
	require.NoError(t, err)
	entries = logs.FilterMessage("profile updated").All()
	require.Len(t, entries, 2)
	_, has := entries[1].ContextMap()["promo_id"]
	require.False(t, has)
}

func TestDashboard(t *testing.T) {
	fb := &fakeBackend{token: "opaque-token", superuser: "True"}
	c := newContainer(t, fb)
	ctx := context.Background()

	d, err := c.Dashboard(ctx)
	require.NoError(t, err)
	require.False(t, d.Connected)
	require.Equal(t, []string{"L3", "M1"}, d.Calendars)
	require.Equal(t, []string{"A1"}, d.Classrooms)

	_, err = c.Login(ctx, "jdoe", "pw")
	require.NoError(t, err)
	d, err = c.Dashboard(ctx)
	require.NoError(t, err)
	require.True(t, d.Connected)
	require.True(t, d.Superuser)
}

func TestPeekClaims(t *testing.T) {
	require.Equal(t, "alice", peekClaims(signedToken(t, "alice")).Subject)
	require.Empty(t, peekClaims("not-a-jwt").Subject)
}
