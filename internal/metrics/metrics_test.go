package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestNormalizePath(t *testing.T) {
	cases := map[string]string{
		"":                             "/",
		"/api/v1/users/me":             "/api/v1/users/me",
		"/api/v1/ics/L3_INFO":          "/api/v1/ics/:param",
		"/api/v1/ics/delete":           "/api/v1/ics/delete",
		"/api/v1/calendars/12/events":  "/api/v1/calendars/:param/events",
		"/api/v1/calendars/M1/events":  "/api/v1/calendars/:param/events",
		"/api/v1/calendars/available":  "/api/v1/calendars/available",
		"/api/v1/csv/":                 "/api/v1/csv",
		"users/42?x=1":                 "/users/:param",
	}
	for in, want := range cases {
		require.Equal(t, want, NormalizePath(in), "input %q", in)
	}
}

func TestRegister_Idempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg))
	require.NoError(t, Register(reg))
}

func TestInstrumentTransport_CountsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer srv.Close()

	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/classrooms/all", "418"))

	c := &http.Client{Transport: InstrumentTransport(nil)}
	resp, err := c.Get(srv.URL + "/classrooms/all")
	require.NoError(t, err)
	resp.Body.Close()

	after := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/classrooms/all", "418"))
	require.Equal(t, before+1, after)
}
