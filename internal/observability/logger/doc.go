// Package logger provee un logger Zap singleton con scoping por contexto.
//
// Inicialización (una vez, en el comando serve):
//
//	logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level, ServiceName: "laneeditor"})
//	defer logger.Sync()
//
// En handlers/services:
//
//	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("changeset"))
//	log.Info("changeset opened", logger.ChangesetID(id))
package logger
