package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/laneeditor/internal/http/services/history"
)

func newHistoryCmd(load loadFunc) *cobra.Command {
	var osmUser int64
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Lista los changesets registrados de un usuario OSM (JSON)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if osmUser <= 0 {
				return fmt.Errorf("--osm-user es requerido")
			}
			cfg, err := load()
			if err != nil {
				return err
			}
			st, err := openStore(cmd, cfg.App.SecretKey, cfg.Storage.Driver, cfg.Storage.DSN, cfg.Storage.MaxConns)
			if err != nil {
				return err
			}
			defer st.Close()

			ctx := cmd.Context()
			u, err := st.Users().GetUserByOSMID(ctx, osmUser)
			if err != nil {
				return fmt.Errorf("osm user %d: %w", osmUser, err)
			}
			items, err := history.NewService(history.Deps{Ledger: st.Ledger()}).List(ctx, u.ID, limit)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), items)
		},
	}
	cmd.Flags().Int64Var(&osmUser, "osm-user", 0, "Id de usuario en OpenStreetMap")
	cmd.Flags().IntVar(&limit, "limit", 0, "Máximo de changesets (default del ledger si es 0)")
	return cmd
}
