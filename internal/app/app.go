// Package app arma los componentes del cliente una sola vez y expone las
// acciones de usuario (login, logout, edición de perfil) que los conectan:
// llamada al backend, escritura del token y aviso por el bus.
package app

import (
	"context"
	"errors"
	"strings"

	"github.com/dropDatabas3/webcafe/internal/api"
	"github.com/dropDatabas3/webcafe/internal/authbus"
	"github.com/dropDatabas3/webcafe/internal/config"
	"github.com/dropDatabas3/webcafe/internal/credstore"
	"github.com/dropDatabas3/webcafe/internal/guard"
	"github.com/dropDatabas3/webcafe/internal/observability/logger"
	"github.com/dropDatabas3/webcafe/internal/session"
	"github.com/dropDatabas3/webcafe/internal/util"
	"go.uber.org/zap"
)

type Container struct {
	Creds   *credstore.Store
	API     *api.Client
	Bus     *authbus.Bus
	Session *session.Store
	Guard   *guard.Guard

	detach func()
}

// New construye el contenedor desde la config.
func New(ctx context.Context, cfg *config.Config) (*Container, error) {
	creds, err := credstore.Open(credstore.Config{
		Driver:        cfg.Credentials.Driver,
		Path:          cfg.Credentials.Path,
		RedisAddr:     cfg.Credentials.Redis.Addr,
		RedisPassword: cfg.Credentials.Redis.Password,
		RedisDB:       cfg.Credentials.Redis.DB,
		Prefix:        cfg.Credentials.Redis.Prefix,
	})
	if err != nil {
		return nil, err
	}
	client, err := api.New(api.Options{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.APITimeout(),
	})
	if err != nil {
		_ = creds.Close()
		return nil, err
	}
	return Wire(ctx, creds, client, guard.WithDenyTarget(cfg.Guard.DenyTarget)), nil
}

// Wire conecta componentes ya construidos: la sesión queda suscripta al bus.
func Wire(ctx context.Context, creds *credstore.Store, client *api.Client, opts ...guard.Option) *Container {
	c := &Container{
		Creds: creds,
		API:   client,
		Bus:   authbus.New(),
	}
	c.Session = session.New(creds, client)
	c.Guard = guard.New(creds, client, opts...)
	c.detach = c.Session.Attach(ctx, c.Bus)
	return c
}

// Close desuscribe la sesión y cierra el credential store.
func (c *Container) Close() error {
	if c.detach != nil {
		c.detach()
	}
	return c.Creds.Close()
}

// Token devuelve el token guardado ("" si anónimo).
func (c *Container) Token(ctx context.Context) (string, error) {
	tok, _, err := c.Creds.Token(ctx)
	return tok, err
}

// Login pide un token, lo guarda y avisa por el bus. Devuelve la sesión ya
// sincronizada.
func (c *Container) Login(ctx context.Context, username, password string) (session.State, error) {
	log := logger.FromWithFields(ctx, logger.Op("login"), logger.Login(username))

	tr, err := c.API.LoginUser(ctx, username, password)
	if err != nil {
		log.Info("login rejected", logger.Err(err))
		return session.State{}, err
	}
	token := strings.TrimSpace(tr.AccessToken)
	if token == "" {
		return session.State{}, api.ErrMalformed.WithDetail("token response without access_token")
	}
	if err := c.Creds.Set(ctx, token); err != nil {
		return session.State{}, err
	}

	claims := peekClaims(token)
	log.Debug("token stored",
		logger.String("token", util.MaskToken(token)),
		logger.Any("expires_at", claims.ExpiresAt),
	)
	c.Bus.EmitAuth(authbus.AuthEvent{Token: &token, UserID: claims.Subject})

	st := c.Session.State()
	log.Info("logged in", logger.Bool("superuser", st.Superuser))
	return st, nil
}

// Logout borra el token y avisa por el bus.
func (c *Container) Logout(ctx context.Context) error {
	if err := c.Creds.Clear(ctx); err != nil {
		return err
	}
	c.Bus.EmitAuth(authbus.AuthEvent{})
	logger.From(ctx).Info("logged out")
	return nil
}

// Register crea la cuenta. No loguea: el usuario entra después con Login.
func (c *Container) Register(ctx context.Context, profile api.UserProfile) (map[string]any, error) {
	out, err := c.API.RegisterUser(ctx, profile)
	if err != nil {
		logger.From(ctx).Info("register rejected",
			logger.Login(profile.Login),
			logger.String("email", util.MaskEmail(profile.Email)),
			logger.Err(err),
		)
		return nil, err
	}
	return out, nil
}

// ModifyProfile aplica patch al perfil propio y, si el backend lo acepta,
// avisa profile-updated.
func (c *Container) ModifyProfile(ctx context.Context, patch api.ProfilePatch) (map[string]any, error) {
	tok, err := c.Token(ctx)
	if err != nil {
		return nil, err
	}
	out, err := c.API.ModifyUserInfo(ctx, patch, tok)
	if err != nil {
		return nil, err
	}
	fields := []zap.Field{logger.Op("modify_profile")}
	if patch.PromoID != nil {
		fields = append(fields, logger.PromoID(*patch.PromoID))
	}
	logger.From(ctx).Info("profile updated", fields...)
	c.Bus.EmitProfileUpdated(authbus.ProfileUpdatedEvent{PromoID: patch.PromoID})
	return out, nil
}

// SaveFavoriteCalendar guarda la promo favorita.
func (c *Container) SaveFavoriteCalendar(ctx context.Context, promoID string) (map[string]any, error) {
	if strings.TrimSpace(promoID) == "" {
		return nil, errors.New("promo id required")
	}
	return c.ModifyProfile(ctx, api.ProfilePatch{PromoID: &promoID})
}
