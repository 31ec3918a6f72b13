// Package cache provee abstracciones para caching con soporte multi-backend.
//
// Soporta:
//   - Memory (in-process con go-cache, default y testing)
//   - Redis (compartido entre réplicas, para producción)
//
// Lo usa el store de sesiones server-side.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client define las operaciones de cache.
type Client interface {
	// Get obtiene un valor. Retorna ErrNotFound si no existe o expiró.
	Get(ctx context.Context, key string) (string, error)

	// Set guarda un valor con TTL. Si ttl es 0, no expira.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Delete elimina una key. Borrar una key inexistente no es error.
	Delete(ctx context.Context, key string) error

	// Ping verifica la conexión.
	Ping(ctx context.Context) error

	// Close libera recursos.
	Close() error
}

// Config configuración para crear un cliente de cache.
type Config struct {
	Driver string // "memory" | "redis"
	Prefix string // Prefijo para todas las keys

	// Redis es el cliente compartido; requerido si Driver es "redis".
	Redis *redis.Client
}

// ErrNotFound indica que la key no existe.
var ErrNotFound = errors.New("cache: key not found")

// IsNotFound verifica si el error es porque la key no existe.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// New crea un cliente de cache según la configuración.
func New(cfg Config) (Client, error) {
	switch cfg.Driver {
	case "redis":
		if cfg.Redis == nil {
			return nil, errors.New("cache: redis driver requires a client")
		}
		return NewRedis(cfg.Redis, cfg.Prefix), nil
	case "memory", "":
		return NewMemory(cfg.Prefix), nil
	default:
		return nil, errors.New("cache: unknown driver " + cfg.Driver)
	}
}

func prefixed(prefix, k string) string {
	if prefix == "" {
		return k
	}
	return prefix + ":" + k
}
