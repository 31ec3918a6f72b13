package logger

import (
	"time"

	"go.uber.org/zap"
)

// Field es un campo estructurado del logger.
type Field = zap.Field

// ─── HTTP ───

func RequestID(v string) zap.Field       { return zap.String("request_id", v) }
func Method(v string) zap.Field          { return zap.String("method", v) }
func Path(v string) zap.Field            { return zap.String("path", v) }
func Status(v int) zap.Field             { return zap.Int("status", v) }
func Bytes(v int) zap.Field              { return zap.Int("bytes", v) }
func DurationMs(v int64) zap.Field       { return zap.Int64("duration_ms", v) }
func Duration(v time.Duration) zap.Field { return zap.Duration("duration", v) }
func ClientIP(v string) zap.Field        { return zap.String("client_ip", v) }

// ─── Sistema ───

// Layer identifica la capa (controller, service, repository, client).
func Layer(v string) zap.Field     { return zap.String("layer", v) }
func Component(v string) zap.Field { return zap.String("component", v) }
func Op(v string) zap.Field        { return zap.String("op", v) }
func Err(err error) zap.Field      { return zap.Error(err) }

// ─── Dominio ───

// ChangesetID es el id remoto (OSM) del changeset.
func ChangesetID(v int64) zap.Field { return zap.Int64("changeset_id", v) }

// LocalChangesetID es el id de la fila en el ledger local.
func LocalChangesetID(v int64) zap.Field { return zap.Int64("local_changeset_id", v) }
func WayID(v int64) zap.Field            { return zap.Int64("way_id", v) }
func OSMUserID(v int64) zap.Field        { return zap.Int64("osm_user_id", v) }
func Version(v int64) zap.Field          { return zap.Int64("version", v) }

// ─── Genéricos ───

func Count(v int) zap.Field               { return zap.Int("count", v) }
func String(key, v string) zap.Field      { return zap.String(key, v) }
func Int(key string, v int) zap.Field     { return zap.Int(key, v) }
func Int64(key string, v int64) zap.Field { return zap.Int64(key, v) }
func Bool(key string, v bool) zap.Field   { return zap.Bool(key, v) }
func Any(key string, v any) zap.Field     { return zap.Any(key, v) }
