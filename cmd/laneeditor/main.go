package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/laneeditor/internal/config"
	"github.com/dropDatabas3/laneeditor/internal/observability/logger"

	// registra los adapters de storage (sqlite, postgres)
	_ "github.com/dropDatabas3/laneeditor/internal/store/all"
)

func main() {
	var cfgPath = envOr("CONFIG_PATH", "config.yaml")

	root := &cobra.Command{
		Use:           "laneeditor",
		Short:         "Editor de carriles (lanes, turn:lanes) sobre OpenStreetMap",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", cfgPath, "Archivo YAML de configuración (env CONFIG_PATH)")

	load := func() (*config.Config, error) {
		// .env es opcional
		_ = godotenv.Load()
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return nil, err
		}
		logger.Init(logger.Config{
			Env:         cfg.App.Env,
			Level:       cfg.Log.Level,
			ServiceName: "laneeditor",
		})
		return cfg, nil
	}

	root.AddCommand(
		newServeCmd(load),
		newMigrateCmd(load),
		newHistoryCmd(load),
		newValidateCmd(),
	)

	err := root.Execute()
	_ = logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

type loadFunc func() (*config.Config, error)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
