package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind clasifica las fallas del cliente.
type Kind string

const (
	// KindNetwork backend inalcanzable, timeout o conexión cortada.
	KindNetwork Kind = "NETWORK_FAILURE"
	// KindAuth 401/403: token ausente, inválido o sin privilegios.
	KindAuth Kind = "AUTH_FAILURE"
	// KindValidation cualquier otro 4xx (login duplicado, campos inválidos...).
	KindValidation Kind = "VALIDATION_FAILURE"
	// KindMalformed el body no tiene la forma esperada.
	KindMalformed Kind = "MALFORMED_RESPONSE"
	// KindServer 5xx.
	KindServer Kind = "SERVER_FAILURE"
)

// Error es el error estándar que devuelve el cliente. Nunca se reintenta ni
// se transforma: el caller decide.
type Error struct {
	Kind     Kind   `json:"kind"`
	Op       string `json:"op,omitempty"`
	Method   string `json:"method,omitempty"`
	Endpoint string `json:"endpoint,omitempty"`
	Status   int    `json:"status,omitempty"`
	Detail   string `json:"detail,omitempty"`
	Err      error  `json:"-"` // causa original, útil para logs
}

// Error implementa la interfaz error
func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap permite acceder al error original
func (e *Error) Unwrap() error {
	return e.Err
}

// Is compara por Kind, así errors.Is(err, api.ErrAuth) funciona con
// cualquier *Error de esa clase.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Status == 0
}

// WithDetail devuelve una COPIA con el detalle dado.
func (e *Error) WithDetail(detail string) *Error {
	n := *e
	n.Detail = detail
	return &n
}

// WithCause devuelve una COPIA con la causa dada.
func (e *Error) WithCause(err error) *Error {
	n := *e
	n.Err = err
	return &n
}

// at devuelve una COPIA ubicada en la operación/endpoint dados.
func (e *Error) at(op, method, endpoint string, status int) *Error {
	n := *e
	n.Op = op
	n.Method = method
	n.Endpoint = endpoint
	n.Status = status
	return &n
}

// Errores base, uno por Kind. Usar con errors.Is.
var (
	ErrNetwork    = &Error{Kind: KindNetwork}
	ErrAuth       = &Error{Kind: KindAuth}
	ErrValidation = &Error{Kind: KindValidation}
	ErrMalformed  = &Error{Kind: KindMalformed}
	ErrServer     = &Error{Kind: KindServer}
)

// kindForStatus mapea un status HTTP de error a su Kind.
func kindForStatus(status int) *Error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrAuth
	case status >= 400 && status < 500:
		return ErrValidation
	default:
		return ErrServer
	}
}

// KindOf devuelve el Kind de err o "" si no es un *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// StatusOf devuelve el status HTTP asociado a err (0 si no hubo respuesta).
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}

func IsNetwork(err error) bool    { return KindOf(err) == KindNetwork }
func IsAuth(err error) bool       { return KindOf(err) == KindAuth }
func IsValidation(err error) bool { return KindOf(err) == KindValidation }
func IsMalformed(err error) bool  { return KindOf(err) == KindMalformed }
func IsServer(err error) bool     { return KindOf(err) == KindServer }

func asError(err error, target **Error) bool {
	return errors.As(err, target)
}
