// Package shell sirve la tabla de navegación por HTTP: cada vista pasa por el
// guard antes de responder, así la decisión allow/redirect se puede observar
// con cualquier cliente HTTP. Las vistas devuelven un JSON mínimo; el render
// real no es responsabilidad de este paquete.
package shell

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dropDatabas3/webcafe/internal/guard"
	"github.com/dropDatabas3/webcafe/internal/metrics"
	"github.com/dropDatabas3/webcafe/internal/observability/logger"
	"github.com/dropDatabas3/webcafe/internal/session"
)

// Guard decide sobre cada navegación.
type Guard interface {
	Check(ctx context.Context, target string) guard.Decision
	Routes() []guard.Route
}

// Session expone el snapshot de sesión.
type Session interface {
	State() session.State
	Sync(ctx context.Context) bool
}

type decisionKey struct{}

func withDecision(ctx context.Context, d guard.Decision) context.Context {
	return context.WithValue(ctx, decisionKey{}, d)
}

func decisionFrom(ctx context.Context) (guard.Decision, bool) {
	d, ok := ctx.Value(decisionKey{}).(guard.Decision)
	return d, ok
}

// view es la respuesta de una vista permitida.
type view struct {
	Route   string            `json:"route"`
	Path    string            `json:"path"`
	Params  map[string]string `json:"params,omitempty"`
	Session session.State     `json:"session"`
}

// NewRouter arma el router: /_session, /metrics y todas las vistas de la tabla
// detrás del guard. reg puede ser nil (usa el registry default).
func NewRouter(g Guard, s Session, reg *prometheus.Registry) (http.Handler, error) {
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	var registerer prometheus.Registerer = prometheus.DefaultRegisterer
	if reg != nil {
		gatherer, registerer = reg, reg
	}
	if err := metrics.Register(registerer); err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(withRecover(), withRequestLog())

	r.Get("/_session", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s.State())
	})
	r.Post("/_session/sync", func(w http.ResponseWriter, r *http.Request) {
		s.Sync(r.Context())
		writeJSON(w, http.StatusOK, s.State())
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		r.Use(withGuard(g))
		for _, rt := range g.Routes() {
			r.Get(rt.Pattern, func(w http.ResponseWriter, req *http.Request) {
				v := view{Route: rt.Name, Path: req.URL.Path, Session: s.State()}
				if d, ok := decisionFrom(req.Context()); ok {
					v.Params = d.Params
				}
				writeJSON(w, http.StatusOK, v)
			})
		}
	})
	return r, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Serve corre el servidor hasta que ctx se cancele y luego hace shutdown
// ordenado.
func Serve(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Named("shell").Info("listening", logger.Addr(addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Named("shell").Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}
