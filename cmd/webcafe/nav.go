package main

import (
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/webcafe/internal/shell"
)

func newNavigateCmd(cl *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "navigate <path>",
		Short: "Evaluar el guard de navegación para un path (ej. /admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d := cl.c.Guard.Check(cmd.Context(), args[0])
			out := map[string]any{
				"route":    d.Route,
				"decision": d.Outcome.String(),
				"reason":   d.Reason,
				"location": d.Location,
				"params":   d.Params,
			}
			cl.print(out, func(w io.Writer) {
				if d.Allowed() {
					fmt.Fprintf(w, "allow (%s)\n", d.Route)
					return
				}
				fmt.Fprintf(w, "%s -> %s (%s)\n", d.Outcome, d.Location, d.Reason)
			})
			return nil
		},
	}
}

func newDashboardCmd(cl *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Perfil, calendarios y salas en una sola vista",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := cl.c.Dashboard(cmd.Context())
			if err != nil {
				return err
			}
			cl.print(d, func(w io.Writer) {
				if d.Connected {
					fmt.Fprintf(w, "user:       %s (superuser=%s)\n", d.Profile.Login, yesNo(d.Superuser))
				} else {
					fmt.Fprintln(w, "user:       anonymous")
				}
				fmt.Fprintf(w, "calendars:  %s\n", joinOrDash(d.Calendars))
				fmt.Fprintf(w, "classrooms: %s\n", joinOrDash(d.Classrooms))
			})
			return nil
		},
	}
}

func newServeCmd(cl *cli) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Servir la tabla de navegación detrás del guard (HTTP)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = cl.cfg.Shell.Addr
			}
			h, err := shell.NewRouter(cl.c.Guard, cl.c.Session, prometheus.NewRegistry())
			if err != nil {
				return err
			}
			// sesión inicial, como al montar la app
			cl.c.Session.Sync(cmd.Context())
			return shell.Serve(cmd.Context(), addr, h)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Dirección de escucha (default shell.addr / SHELL_ADDR)")
	return cmd
}

func newVersionCmd(cl *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Versión del cliente y del backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := map[string]string{"client": version}
			backend, err := cl.c.API.Version(cmd.Context())
			if err != nil {
				out["backend_error"] = err.Error()
			} else {
				out["backend"] = backend
			}
			if err := cl.c.API.Healthcheck(cmd.Context()); err != nil {
				out["health"] = "down"
			} else {
				out["health"] = "ok"
			}
			cl.print(out, func(w io.Writer) {
				fmt.Fprintf(w, "client:  %s\n", version)
				if b, ok := out["backend"]; ok {
					fmt.Fprintf(w, "backend: %s (%s)\n", b, out["health"])
				} else {
					fmt.Fprintf(w, "backend: unreachable (%s)\n", out["backend_error"])
				}
			})
			return nil
		},
	}
}
