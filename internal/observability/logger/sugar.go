package logger

import (
	"go.uber.org/zap"
)

// S retorna el SugaredLogger del singleton.
//
// Ejemplo:
//
//	logger.S().Infof("token stored for %s", login)
func S() *zap.SugaredLogger {
	return L().Sugar()
}
