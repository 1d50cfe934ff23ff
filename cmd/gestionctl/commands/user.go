package commands

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"gestion/internal/core"
	"gestion/internal/services"
)

func userCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage dashboard accounts",
	}

	var in services.NewUser
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if in.Password == "" {
				in.Password = os.Getenv("GESTION_PASSWORD")
			}
			if in.Password == "" {
				return errors.New("password required: use --password or GESTION_PASSWORD")
			}
			svc, err := e.services()
			if err != nil {
				return err
			}
			u, err := svc.Auth.CreateUser(adminContext(cmd), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "created user %s (id %d, rol %s)\n", u.Username, u.ID, u.Rol)
			return nil
		},
	}
	create.Flags().StringVar(&in.Username, "username", "", "login name")
	create.Flags().StringVar(&in.Nombre, "nombre", "", "display name")
	create.Flags().StringVar(&in.Rol, "rol", core.RolEmpleado, "admin or empleado")
	create.Flags().StringVar(&in.Password, "password", "", "password (or GESTION_PASSWORD)")
	_ = create.MarkFlagRequired("username")

	list := &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := e.services()
			if err != nil {
				return err
			}
			users, err := svc.Auth.ListUsers(adminContext(cmd))
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(out(cmd), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tUSUARIO\tNOMBRE\tROL\tACTIVO")
			for _, u := range users {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%t\n", u.ID, u.Username, u.Nombre, u.Rol, u.Activo)
			}
			return tw.Flush()
		},
	}

	cmd.AddCommand(create, list)
	return cmd
}
