package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
)

// UserProfile es el perfil normalizado de un usuario.
type UserProfile struct {
	Login     string `json:"login"`
	Nom       string `json:"nom"`
	Prenom    string `json:"prenom"`
	Email     string `json:"email"`
	Hpwd      string `json:"hpwd"` // solo se envía al registrar; nunca se llena desde el backend
	Birthday  string `json:"birthday"`
	PromoID   string `json:"promo_id"`
	Superuser bool   `json:"superuser"`
	Teacher   bool   `json:"teacher"`
	NoteKfet  string `json:"noteKfet"`
}

// ProfilePatch es una modificación parcial del perfil propio. Los campos nil
// no se envían.
type ProfilePatch struct {
	Nom      *string `json:"nom,omitempty"`
	Prenom   *string `json:"prenom,omitempty"`
	Email    *string `json:"email,omitempty"`
	Hpwd     *string `json:"hpwd,omitempty"`
	Birthday *string `json:"birthday,omitempty"`
	PromoID  *string `json:"promo_id,omitempty"`
	NoteKfet *string `json:"noteKfet,omitempty"`
}

// TokenResponse es la respuesta cruda de POST /token.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Shape indica qué forma tenía la respuesta de /users/me.
type Shape int

const (
	// ShapeObject el backend devolvió un objeto.
	ShapeObject Shape = iota
	// ShapeList el backend devolvió una lista; se usa el primer elemento.
	ShapeList
	// ShapeEmpty el backend devolvió una lista vacía.
	ShapeEmpty
)

func (s Shape) String() string {
	switch s {
	case ShapeObject:
		return "object"
	case ShapeList:
		return "list"
	default:
		return "empty"
	}
}

// SelfInfo es la respuesta de /users/me normalizada: según la variante del
// backend llega como objeto o como lista de un elemento. Los callers usan Raw
// sin volver a chequear la forma.
type SelfInfo struct {
	Shape Shape
	Raw   map[string]any
}

// Profile normaliza Raw con MapAPIUser.
func (s SelfInfo) Profile() UserProfile {
	return MapAPIUser(s.Raw)
}

// Superuser parsea el flag superuser con ToBoolStr.
func (s SelfInfo) Superuser() bool {
	return ToBoolStr(field(s.Raw, "superuser"))
}

// Login devuelve el login crudo (o "").
func (s SelfInfo) Login() string {
	return coalesce(field(s.Raw, "login"))
}

// decodeSelfInfo acepta objeto, lista de objetos o lista vacía.
func decodeSelfInfo(body []byte) (SelfInfo, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return SelfInfo{}, ErrMalformed.WithDetail("empty self info body")
	}
	switch trimmed[0] {
	case '{':
		var obj map[string]any
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return SelfInfo{}, ErrMalformed.WithCause(err)
		}
		return SelfInfo{Shape: ShapeObject, Raw: obj}, nil
	case '[':
		var list []json.RawMessage
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return SelfInfo{}, ErrMalformed.WithCause(err)
		}
		if len(list) == 0 {
			return SelfInfo{Shape: ShapeEmpty}, nil
		}
		var obj map[string]any
		if err := json.Unmarshal(list[0], &obj); err != nil {
			return SelfInfo{}, ErrMalformed.WithDetail("first self info element is not an object").WithCause(err)
		}
		return SelfInfo{Shape: ShapeList, Raw: obj}, nil
	default:
		// p.ej. el backend devuelve 0 cuando el usuario del token ya no existe
		return SelfInfo{}, ErrMalformed.WithDetail("unexpected self info body: " + truncate(string(trimmed), 64))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// ToBoolStr parsea los booleanos que el backend serializa como "True"/"False".
// Es true sii String(v) en minúsculas es "true", así que también acepta un
// booleano real. Es el único parser de flags del cliente.
func ToBoolStr(v any) bool {
	return strings.ToLower(stringify(v)) == "true"
}

// MapAPIUser normaliza un usuario crudo del backend. Tolera campos ausentes o
// null sin fallar y nunca copia el hash del password.
func MapAPIUser(raw map[string]any) UserProfile {
	return UserProfile{
		Login:     coalesce(field(raw, "login")),
		Nom:       coalesce(field(raw, "nom")),
		Prenom:    coalesce(field(raw, "prenom")),
		Email:     coalesce(field(raw, "email")),
		Birthday:  coalesce(field(raw, "birthday")),
		Superuser: ToBoolStr(field(raw, "superuser")),
		Teacher:   ToBoolStr(field(raw, "teacher")),
		PromoID:   stringify(field(raw, "promo_id")),
		Hpwd:      "",
		NoteKfet:  coalesce(field(raw, "noteKfet")),
	}
}

// RegisterUser crea un usuario (POST /users/create). Los rechazos del backend
// (login duplicado, caracteres inválidos) vuelven como KindValidation.
func (c *Client) RegisterUser(ctx context.Context, profile UserProfile) (map[string]any, error) {
	body, err := jsonBody(profile)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	err = c.doJSON(ctx, request{
		op:          "RegisterUser",
		method:      http.MethodPost,
		path:        "/users/create",
		body:        body,
		contentType: "application/json",
	}, &out)
	return out, err
}

// LoginUser pide un token con el grant "password" (POST /token). No guarda nada.
func (c *Client) LoginUser(ctx context.Context, username, password string) (*TokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("username", username)
	form.Set("password", password)

	var out TokenResponse
	if err := c.doJSON(ctx, request{
		op:          "LoginUser",
		method:      http.MethodPost,
		path:        "/token",
		body:        strings.NewReader(form.Encode()),
		contentType: "application/x-www-form-urlencoded",
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetUsersInfo devuelve el perfil del dueño del token (GET /users/me).
func (c *Client) GetUsersInfo(ctx context.Context, token string) (SelfInfo, error) {
	r := request{
		op:     "GetUsersInfo",
		method: http.MethodGet,
		path:   "/users/me",
		token:  token,
	}
	body, err := c.do(ctx, r)
	if err != nil {
		return SelfInfo{}, err
	}
	info, err := decodeSelfInfo(body)
	if err != nil {
		var e *Error
		if asError(err, &e) {
			return SelfInfo{}, e.at(r.op, r.method, r.path, http.StatusOK)
		}
		return SelfInfo{}, err
	}
	return info, nil
}

// GetUsersList lista todos los usuarios (GET /users/all). Requiere un token de
// superuser; la autorización la aplica el backend.
func (c *Client) GetUsersList(ctx context.Context, token string) ([]map[string]any, error) {
	var out []map[string]any
	err := c.doJSON(ctx, request{
		op:     "GetUsersList",
		method: http.MethodGet,
		path:   "/users/all",
		token:  token,
	}, &out)
	return out, err
}

// ModifyUserInfo modifica el perfil propio (POST /users/modify).
func (c *Client) ModifyUserInfo(ctx context.Context, patch ProfilePatch, token string) (map[string]any, error) {
	body, err := jsonBody(patch)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	err = c.doJSON(ctx, request{
		op:          "ModifyUserInfo",
		method:      http.MethodPost,
		path:        "/users/modify",
		token:       token,
		body:        body,
		contentType: "application/json",
	}, &out)
	return out, err
}

// SaveFavoriteCalendar guarda la promo favorita del usuario.
func (c *Client) SaveFavoriteCalendar(ctx context.Context, promoID, token string) (map[string]any, error) {
	return c.ModifyUserInfo(ctx, ProfilePatch{PromoID: &promoID}, token)
}
