package shell

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/webcafe/internal/api"
	"github.com/dropDatabas3/webcafe/internal/guard"
	"github.com/dropDatabas3/webcafe/internal/session"
)

type fakeCreds struct{ token string }

func (f fakeCreds) Token(context.Context) (string, bool, error) { return f.token, f.token != "", nil }

type fakeAPI struct{ superuser string }

func (f fakeAPI) GetUsersInfo(context.Context, string) (api.SelfInfo, error) {
	return api.SelfInfo{Shape: api.ShapeObject, Raw: map[string]any{"login": "jdoe", "superuser": f.superuser}}, nil
}

func newServer(t *testing.T, token, superuser string) *httptest.Server {
	t.Helper()
	creds := fakeCreds{token: token}
	client := fakeAPI{superuser: superuser}
	h, err := NewRouter(guard.New(creds, client), session.New(creds, client), prometheus.NewRegistry())
	require.NoError(t, err)
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func noFollow() *http.Client {
	return &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
}

func TestShell_AnonymousAdminRedirectsToLogin(t *testing.T) {
	srv := newServer(t, "", "")

	resp, err := noFollow().Get(srv.URL + "/admin?tab=users")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/login?redirect=%2Fadmin%3Ftab%3Dusers", resp.Header.Get("Location"))
}

func TestShell_NonSuperuserRedirectsHome(t *testing.T) {
	srv := newServer(t, "tk", "False")

	resp, err := noFollow().Get(srv.URL + "/admin")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/", resp.Header.Get("Location"))
}

func TestShell_SuperuserAllowed(t *testing.T) {
	srv := newServer(t, "tk", "True")

	resp, err := noFollow().Get(srv.URL + "/admin")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var v view
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	require.Equal(t, guard.RouteAdmin, v.Route)
}

func TestShell_PublicViewWithParams(t *testing.T) {
	srv := newServer(t, "", "")

	resp, err := http.Get(srv.URL + "/users/42")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	var v view
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	require.Equal(t, guard.RouteUserDetail, v.Route)
	require.Equal(t, map[string]string{"id": "42"}, v.Params)
}

func TestShell_SessionEndpoints(t *testing.T) {
	srv := newServer(t, "tk", "True")

	resp, err := http.Get(srv.URL + "/_session")
	require.NoError(t, err)
	var st session.State
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	resp.Body.Close()
	require.False(t, st.Connected)

	resp, err = http.Post(srv.URL+"/_session/sync", "", nil)
	require.NoError(t, err)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	resp.Body.Close()
	require.True(t, st.Connected)
	require.True(t, st.Superuser)
	require.Equal(t, "jdoe", st.Profile.Login)
}

func TestShell_Metrics(t *testing.T) {
	srv := newServer(t, "", "")

	resp, err := noFollow().Get(srv.URL + "/admin")
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "webcafe_guard_decisions_total")
}
