package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/laneeditor/internal/security/secretbox"
	"github.com/dropDatabas3/laneeditor/internal/store"
)

func newMigrateCmd(load loadFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Aplica las migraciones embebidas del driver configurado",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			st, err := openStore(cmd, cfg.App.SecretKey, cfg.Storage.Driver, cfg.Storage.DSN, cfg.Storage.MaxConns)
			if err != nil {
				return err
			}
			defer st.Close()

			res, err := st.Migrate(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "driver=%s applied=%v skipped=%d took=%s\n",
				st.Driver(), res.Applied, len(res.Skipped), res.Duration)
			return nil
		},
	}
}

func openStore(cmd *cobra.Command, secret, driver, dsn string, maxConns int) (*store.Store, error) {
	box, err := secretbox.FromSecret(secret)
	if err != nil {
		return nil, fmt.Errorf("SECRET_KEY: %w", err)
	}
	return store.Open(cmd.Context(), store.Config{Driver: driver, DSN: dsn, MaxConns: maxConns, Box: box})
}
