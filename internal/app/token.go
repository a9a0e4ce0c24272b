package app

import (
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// tokenClaims son los datos que se leen del access token sin verificar la
// firma. Solo sirven para mostrar/loguear: la validez la decide el backend.
type tokenClaims struct {
	Subject   string
	ExpiresAt time.Time
}

// peekClaims lee sub/exp de un JWT sin validarlo. Si el token no es un JWT
// devuelve claims vacías.
func peekClaims(token string) tokenClaims {
	claims := jwtv5.MapClaims{}
	if _, _, err := jwtv5.NewParser().ParseUnverified(token, claims); err != nil {
		return tokenClaims{}
	}
	var out tokenClaims
	if sub, err := claims.GetSubject(); err == nil {
		out.Subject = sub
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	return out
}
