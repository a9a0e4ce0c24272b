// Package guard decide, para cada navegación, si se permite o a dónde se
// redirige, según la metadata de la ruta destino y una verificación fresca
// del usuario contra el backend. No hay cache: cada navegación privilegiada
// vuelve a consultar /users/me.
package guard

import (
	"context"
	"net/url"
	"strings"

	"github.com/dropDatabas3/webcafe/internal/api"
	"github.com/dropDatabas3/webcafe/internal/metrics"
	"github.com/dropDatabas3/webcafe/internal/observability/logger"
)

// Credentials es la vista de solo lectura del credential store.
type Credentials interface {
	Token(ctx context.Context) (string, bool, error)
}

// SelfInfoFetcher consulta el perfil del dueño de un token.
type SelfInfoFetcher interface {
	GetUsersInfo(ctx context.Context, token string) (api.SelfInfo, error)
}

// Outcome es el resultado de una navegación.
type Outcome int

const (
	Allow Outcome = iota
	RedirectLogin
	RedirectHome
)

func (o Outcome) String() string {
	switch o {
	case Allow:
		return "allow"
	case RedirectLogin:
		return "redirect_login"
	default:
		return "redirect_home"
	}
}

// Motivos de la decisión (para logs y métricas).
const (
	ReasonPublic             = "public"
	ReasonSuperuser          = "superuser"
	ReasonNoToken            = "no_token"
	ReasonNotSuperuser       = "not_superuser"
	ReasonVerificationFailed = "verification_failed"
)

// Decision es la respuesta del guard para un destino.
type Decision struct {
	Outcome Outcome
	Reason  string
	// Route es el nombre de la ruta destino ("" si ninguna matcheó).
	Route  string
	Params map[string]string
	// Location es a dónde redirigir (vacío si Allow).
	Location string
	// Redirect es el destino original que se pasa al login como ?redirect=.
	Redirect string
}

// Allowed reporta si la navegación procede.
func (d Decision) Allowed() bool { return d.Outcome == Allow }

// Option configura el guard.
type Option func(*Guard)

// WithRoutes reemplaza la tabla de rutas por defecto.
func WithRoutes(routes []Route) Option {
	return func(g *Guard) { g.table = newTable(routes) }
}

// WithDenyTarget fija a dónde se manda al usuario cuando no es superuser o la
// verificación falla. Default "/".
func WithDenyTarget(path string) Option {
	return func(g *Guard) {
		if strings.HasPrefix(path, "/") {
			g.denyTarget = path
		}
	}
}

// WithLoginPath fija el path de la vista de login. Default "/login".
func WithLoginPath(path string) Option {
	return func(g *Guard) {
		if strings.HasPrefix(path, "/") {
			g.loginPath = path
		}
	}
}

// Guard evalúa navegaciones. Es stateless entre llamadas y seguro para uso
// concurrente.
type Guard struct {
	creds      Credentials
	api        SelfInfoFetcher
	table      *table
	denyTarget string
	loginPath  string
}

// New crea un guard. creds nil equivale a "sin entorno": toda ruta que pida
// superuser redirige al login.
func New(creds Credentials, client SelfInfoFetcher, opts ...Option) *Guard {
	g := &Guard{
		creds:      creds,
		api:        client,
		table:      newTable(DefaultRoutes()),
		denyTarget: "/",
		loginPath:  "/login",
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Routes devuelve la tabla efectiva (metadata normalizada).
func (g *Guard) Routes() []Route {
	out := make([]Route, len(g.table.routes))
	copy(out, g.table.routes)
	return out
}

// Resolve devuelve la ruta que matchea target (path con o sin query).
func (g *Guard) Resolve(target string) (Route, bool) {
	r, _, ok := g.table.resolve(pathOf(target))
	return r, ok
}

// LoginLocation arma /login?redirect=<target>.
func (g *Guard) LoginLocation(target string) string {
	return g.loginPath + "?" + url.Values{"redirect": {target}}.Encode()
}

// Check decide sobre la navegación a target (path completo, con query).
func (g *Guard) Check(ctx context.Context, target string) Decision {
	route, params, _ := g.table.resolve(pathOf(target))
	d := g.check(ctx, target, route)
	d.Route = route.Name
	d.Params = params

	metrics.RecordGuardDecision(routeLabel(route), d.Outcome.String())
	logger.FromWithFields(ctx, logger.Component("guard")).Debug("navigation",
		logger.Path(target),
		logger.Route(route.Name),
		logger.Decision(d.Outcome.String()),
		logger.String("reason", d.Reason),
	)
	return d
}

func (g *Guard) check(ctx context.Context, target string, route Route) Decision {
	// 1. ruta sin requisito de superuser: sin llamada de red
	if !route.Meta.RequiresSuperuser {
		return Decision{Outcome: Allow, Reason: ReasonPublic}
	}

	// 2. sin entorno o sin token
	if g.creds == nil || g.api == nil {
		return g.toLogin(target)
	}
	token, ok, err := g.creds.Token(ctx)
	if err != nil {
		logger.From(ctx).Warn("guard: credential store read failed", logger.Err(err))
	}
	if !ok {
		return g.toLogin(target)
	}

	// 3. verificación fresca (la lista ya viene normalizada a su primer elemento)
	info, err := g.api.GetUsersInfo(ctx, token)
	if err != nil {
		logger.From(ctx).Warn("guard: superuser verification failed",
			logger.Path(target),
			logger.String("kind", string(api.KindOf(err))),
			logger.Err(err),
		)
		return g.deny(ReasonVerificationFailed)
	}

	// 4-5.
	if info.Superuser() {
		return Decision{Outcome: Allow, Reason: ReasonSuperuser}
	}
	return g.deny(ReasonNotSuperuser)
}

func (g *Guard) toLogin(target string) Decision {
	return Decision{
		Outcome:  RedirectLogin,
		Reason:   ReasonNoToken,
		Location: g.LoginLocation(target),
		Redirect: target,
	}
}

// deny es el único destino fail-closed, tanto para "no es superuser" como
// para "no se pudo verificar".
func (g *Guard) deny(reason string) Decision {
	return Decision{Outcome: RedirectHome, Reason: reason, Location: g.denyTarget}
}

func pathOf(target string) string {
	p := target
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
		if p == "" {
			p = "/"
		}
	}
	return p
}

func routeLabel(r Route) string {
	if r.Name == "" {
		return "unmatched"
	}
	return r.Name
}
