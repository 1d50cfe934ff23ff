package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"gestion/internal/apperr"
	"gestion/internal/core"
	"gestion/internal/services"
)

func tasaCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasa",
		Short: "Read or set the USD/Bs exchange rate",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Print the current rate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := e.services()
			if err != nil {
				return err
			}
			r, err := svc.Tasas.Current(cmd.Context())
			if apperr.IsNotFound(err) {
				fmt.Fprintln(out(cmd), "no rate configured")
				return nil
			}
			if err != nil {
				return err
			}
			printRate(cmd, r)
			return nil
		},
	})

	var fuente string
	set := &cobra.Command{
		Use:   "set <valor>",
		Short: "Store a new rate (comma or dot decimals)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rate, err := core.ParseRate(args[0])
			if err != nil {
				return fmt.Errorf("invalid rate %q: %w", args[0], err)
			}
			svc, err := e.services()
			if err != nil {
				return err
			}
			r, err := svc.Tasas.Set(adminContext(cmd), rate, fuente)
			if err != nil {
				return err
			}
			printRate(cmd, r)
			return nil
		},
	}
	set.Flags().StringVar(&fuente, "fuente", services.FuenteManual, "source of the rate")

	cmd.AddCommand(set)
	return cmd
}

func printRate(cmd *cobra.Command, r core.ExchangeRate) {
	fmt.Fprintf(out(cmd), "%s Bs/USD (fuente %s, %s)\n", r.Tasa.String(), r.Fuente, r.CreatedAt)
}
