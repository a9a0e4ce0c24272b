// Package logger provee un logger Zap singleton con scoping por contexto.
//
// # Design Decisions
//
//   - Singleton: una sola instancia global inicializada con Init().
//   - Context Scoping: cada operación (request al backend, navegación, sync de
//     sesión) puede llevar su propio logger con campos adicionales
//     (request_id, route, endpoint) sin crear un nuevo core.
//   - Environments: "dev" usa consola con colores, "prod" usa JSON.
//   - Output: siempre stderr por defecto, stdout queda libre para la salida
//     de los comandos del CLI.
//   - Levels: debug, info, warn, error, off (configurable via LOG_LEVEL).
//
// # Usage
//
// Inicialización (una vez en main.go):
//
//	logger.Init(logger.Config{
//	    Env:   cfg.App.Env,   // "dev" o "prod"
//	    Level: cfg.Log.Level, // "debug", "info", "warn", "error", "off"
//	})
//	defer logger.Sync()
//
// En componentes (con contexto):
//
//	log := logger.From(ctx)
//	log.Warn("session sync failed", logger.Err(err))
//
// Sin contexto (fallback a singleton):
//
//	logger.L().Info("shell listening", logger.Addr(addr))
package logger
