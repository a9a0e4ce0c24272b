// Package api es el cliente del backend REST de WebCafe.
//
// El cliente es stateless: recibe el token (opcional) en cada llamada y nunca
// toca el credential store ni el estado de sesión. Todos los errores se
// devuelven como *Error sin reintentos.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/webcafe/internal/metrics"
	"github.com/dropDatabas3/webcafe/internal/observability/logger"
)

const (
	// DefaultBaseURL apunta al backend local de desarrollo.
	DefaultBaseURL = "http://localhost:8000"
	// DefaultTimeout deadline por request.
	DefaultTimeout = 10 * time.Second
	// maxBodyBytes límite de lectura de respuestas (los CSV/ICS son chicos).
	maxBodyBytes = 32 << 20
)

// Options configura el cliente.
type Options struct {
	BaseURL   string
	Timeout   time.Duration
	Transport http.RoundTripper // opcional; se instrumenta con métricas
	UserAgent string
}

// Client es el cliente HTTP del backend.
type Client struct {
	base      string
	http      *http.Client
	userAgent string
	now       func() time.Time
}

// New crea un cliente. BaseURL debe ser absoluta (http/https).
func New(opts Options) (*Client, error) {
	base := strings.TrimSpace(opts.BaseURL)
	if base == "" {
		base = DefaultBaseURL
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("api: invalid base url %q: %w", base, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("api: base url %q must be http or https", base)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = "webcafe"
	}
	return &Client{
		base: strings.TrimRight(u.String(), "/"),
		http: &http.Client{
			Timeout:   timeout,
			Transport: metrics.InstrumentTransport(opts.Transport),
		},
		userAgent: ua,
		now:       time.Now,
	}, nil
}

// BaseURL devuelve la URL base normalizada (sin "/" final).
func (c *Client) BaseURL() string { return c.base }

// request describe una llamada al backend.
type request struct {
	op          string
	method      string
	path        string
	query       url.Values
	token       string
	body        io.Reader
	contentType string
	header      http.Header
}

func jsonBody(v any) (io.Reader, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(b), nil
}

// noCacheHeaders fuerzan al backend/proxies a regenerar el archivo.
func noCacheHeaders() http.Header {
	h := http.Header{}
	h.Set("Cache-Control", "no-cache, no-store, must-revalidate")
	h.Set("Pragma", "no-cache")
	return h
}

// do ejecuta el request y devuelve el body de una respuesta 2xx.
func (c *Client) do(ctx context.Context, r request) ([]byte, error) {
	endpoint := r.path
	target := c.base + r.path
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, r.method, target, r.body)
	if err != nil {
		return nil, ErrNetwork.at(r.op, r.method, endpoint, 0).WithCause(err)
	}
	for k, vs := range r.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	req.Header.Set("User-Agent", c.userAgent)
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}
	rid := uuid.NewString()
	req.Header.Set("X-Request-ID", rid)

	log := logger.FromWithFields(ctx,
		logger.Op(r.op),
		logger.Method(r.method),
		logger.Endpoint(metrics.NormalizePath(endpoint)),
		logger.RequestID(rid),
	)

	start := c.now()
	resp, err := c.http.Do(req)
	if err != nil {
		log.Debug("backend request failed", logger.Err(err))
		netErr := ErrNetwork.at(r.op, r.method, endpoint, 0).WithCause(err)
		if isTimeout(err) {
			netErr = netErr.WithDetail("request timed out")
		}
		return nil, netErr
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, ErrNetwork.at(r.op, r.method, endpoint, resp.StatusCode).WithCause(err)
	}

	log.Debug("backend request",
		logger.Status(resp.StatusCode),
		logger.Duration(c.now().Sub(start)),
	)

	if resp.StatusCode/100 != 2 {
		return nil, kindForStatus(resp.StatusCode).
			at(r.op, r.method, endpoint, resp.StatusCode).
			WithDetail(errorDetail(body))
	}

	// El backend a veces devuelve un HTTPException serializado con status 200:
	// {"status_code": 409, "detail": "...", "headers": null}.
	if status, detail, ok := embeddedStatus(body); ok && status >= 400 {
		return nil, kindForStatus(status).
			at(r.op, r.method, endpoint, status).
			WithDetail(detail)
	}

	return body, nil
}

// doJSON ejecuta el request y decodifica la respuesta en out.
func (c *Client) doJSON(ctx context.Context, r request, out any) error {
	body, err := c.do(ctx, r)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return ErrMalformed.at(r.op, r.method, r.path, http.StatusOK).WithCause(err)
	}
	return nil
}

// errorDetail extrae "detail" de un body de error FastAPI. Si no es JSON,
// devuelve el body recortado.
func errorDetail(body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && len(payload.Detail) > 0 {
		var s string
		if json.Unmarshal(payload.Detail, &s) == nil {
			return s
		}
		return string(payload.Detail)
	}
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}

// embeddedStatus detecta un HTTPException devuelto como body.
func embeddedStatus(body []byte) (int, string, bool) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return 0, "", false
	}
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &payload); err != nil {
		return 0, "", false
	}
	rawStatus, ok := payload["status_code"]
	if !ok {
		return 0, "", false
	}
	if _, ok := payload["detail"]; !ok {
		return 0, "", false
	}
	var status int
	if err := json.Unmarshal(rawStatus, &status); err != nil {
		return 0, "", false
	}
	return status, errorDetail(trimmed), true
}

// isTimeout reporta si err fue un deadline del cliente.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne interface{ Timeout() bool }
	return errors.As(err, &ne) && ne.Timeout()
}
