package app

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/webcafe/internal/api"
	"github.com/dropDatabas3/webcafe/internal/observability/logger"
)

// Dashboard junta lo que la home muestra de un saque.
type Dashboard struct {
	Connected  bool             `json:"connected"`
	Superuser  bool             `json:"superuser"`
	Profile    *api.UserProfile `json:"profile,omitempty"`
	Calendars  []string         `json:"calendars"`
	Classrooms []string         `json:"classrooms"`
}

// Dashboard consulta perfil, calendarios disponibles y salas en paralelo.
// El perfil es best-effort (anónimo si falla); los listados no.
func (c *Container) Dashboard(ctx context.Context) (*Dashboard, error) {
	tok, err := c.Token(ctx)
	if err != nil {
		return nil, err
	}

	var d Dashboard
	g, gctx := errgroup.WithContext(ctx)

	if tok != "" {
		g.Go(func() error {
			info, err := c.API.GetUsersInfo(gctx, tok)
			if err != nil {
				logger.From(ctx).Info("dashboard: profile unavailable", logger.Err(err))
				return nil
			}
			p := info.Profile()
			d.Connected = true
			d.Superuser = info.Superuser()
			d.Profile = &p
			return nil
		})
	}
	g.Go(func() error {
		cals, err := c.API.GetUserCalendars(gctx, tok)
		if err != nil {
			return err
		}
		d.Calendars = cals
		return nil
	})
	g.Go(func() error {
		rooms, err := c.API.GetClassrooms(gctx)
		if err != nil {
			return err
		}
		d.Classrooms = rooms
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &d, nil
}
