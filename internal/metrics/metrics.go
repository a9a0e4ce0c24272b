// Package metrics define las métricas Prometheus del cliente: requests al
// backend, decisiones del guard de navegación y sincronizaciones de sesión.
// Vive en un paquete propio para evitar ciclos entre api, session y guard.
package metrics

import (
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	APIRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webcafe_api_requests_total",
		Help: "Requests enviadas al backend por método, endpoint y status",
	}, []string{"method", "endpoint", "status"})

	APIRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "webcafe_api_request_duration_seconds",
		Help:    "Latencia de los requests al backend",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint"})

	GuardDecisionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webcafe_guard_decisions_total",
		Help: "Decisiones del guard de navegación por ruta y resultado",
	}, []string{"route", "decision"})

	SessionSyncsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webcafe_session_syncs_total",
		Help: "Sincronizaciones de sesión por resultado (connected|anonymous|error|stale)",
	}, []string{"result"})
)

// Register registra todas las métricas en el registry dado (o el default si es nil).
// Registrar dos veces no es error.
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{
		APIRequestsTotal,
		APIRequestDuration,
		GuardDecisionsTotal,
		SessionSyncsTotal,
	} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}

// RecordGuardDecision cuenta una decisión del guard.
func RecordGuardDecision(route, decision string) {
	GuardDecisionsTotal.WithLabelValues(route, decision).Inc()
}

// RecordSessionSync cuenta una sincronización de sesión.
func RecordSessionSync(result string) {
	SessionSyncsTotal.WithLabelValues(result).Inc()
}

// InstrumentTransport envuelve un RoundTripper midiendo cada request saliente.
// Los errores de red se cuentan con status "error".
func InstrumentTransport(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		method := strings.ToUpper(r.Method)
		endpoint := NormalizePath(r.URL.Path)
		start := time.Now()

		resp, err := next.RoundTrip(r)

		APIRequestDuration.WithLabelValues(method, endpoint).Observe(time.Since(start).Seconds())
		status := "error"
		if err == nil && resp != nil {
			status = strconv.Itoa(resp.StatusCode)
		}
		APIRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
		return resp, err
	})
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

var (
	uuidSegmentRE  = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F-]{4}-[0-9a-fA-F-]{4,}$`)
	hexSegmentRE   = regexp.MustCompile(`^[0-9a-fA-F]{16,}$`)
	tokenSegmentRE = regexp.MustCompile(`^[A-Za-z0-9_-]{24,}$`)
	promoSegmentRE = regexp.MustCompile(`^[A-Za-z0-9_ %]+$`)
)

// NormalizePath reemplaza segmentos dinámicos (ids, promos) por ":param" para
// mantener acotada la cardinalidad de labels.
func NormalizePath(p string) string {
	clean := strings.SplitN(p, "?", 2)[0]
	if clean == "" {
		return "/"
	}
	if !strings.HasPrefix(clean, "/") {
		clean = "/" + clean
	}

	segments := strings.Split(clean, "/")
	var out []string
	for i, seg := range segments {
		if seg == "" {
			continue
		}
		if isDynamicSegment(seg) || isPromoSegment(segments, i) {
			out = append(out, ":param")
		} else {
			out = append(out, seg)
		}
	}
	if len(out) == 0 {
		return "/"
	}
	return "/" + strings.Join(out, "/")
}

// isPromoSegment detecta /ics/<promo> y /calendars/<id>/events, cuyos
// segmentos son nombres libres y no matchean los patrones genéricos.
func isPromoSegment(segments []string, i int) bool {
	if i == 0 || !promoSegmentRE.MatchString(segments[i]) {
		return false
	}
	prev := segments[i-1]
	switch prev {
	case "ics":
		return segments[i] != "delete" && segments[i] != "insert" && segments[i] != "event_filter"
	case "calendars":
		return segments[i] != "available" && i+1 < len(segments) && segments[i+1] == "events"
	}
	return false
}

func isDynamicSegment(seg string) bool {
	if len(seg) > 48 {
		return true
	}
	if uuidSegmentRE.MatchString(seg) {
		return true
	}
	if hexSegmentRE.MatchString(seg) {
		return true
	}
	if tokenSegmentRE.MatchString(seg) {
		return true
	}
	if _, err := strconv.Atoi(seg); err == nil {
		return true
	}
	return false
}
