package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/laneeditor/internal/lanes"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "validate key=value ...",
		Short:   "Valida tags de carriles localmente",
		Example: "  laneeditor validate lanes=3 'turn:lanes=left|through|right'",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tags, err := parseTags(args)
			if err != nil {
				return err
			}
			rep := lanes.Validate(tags)
			if err := printJSON(cmd.OutOrStdout(), rep); err != nil {
				return err
			}
			if !rep.Valid {
				return fmt.Errorf("invalid lane tags (%d errors)", len(rep.Errors))
			}
			return nil
		},
	}
}

// parseTags convierte "k=v" en un mapa. El valor puede contener "=".
func parseTags(args []string) (map[string]string, error) {
	tags := make(map[string]string, len(args))
	for _, a := range args {
		k, v, ok := strings.Cut(a, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("argumento inválido %q (se espera key=value)", a)
		}
		tags[k] = v
	}
	return tags, nil
}
