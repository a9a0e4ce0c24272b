package main

import (
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/webcafe/internal/api"
)

func newCalendarsCmd(cl *cli) *cobra.Command {
	calCmd := &cobra.Command{Use: "calendars", Short: "Calendarios (promos)"}

	availableCmd := &cobra.Command{
		Use:   "available",
		Short: "Listar calendarios disponibles",
		RunE: func(cmd *cobra.Command, args []string) error {
			tok, err := cl.c.Token(cmd.Context())
			if err != nil {
				return err
			}
			ids, err := cl.c.API.GetUserCalendars(cmd.Context(), tok)
			if err != nil {
				return err
			}
			cl.print(ids, func(w io.Writer) {
				for _, id := range ids {
					fmt.Fprintln(w, id)
				}
			})
			return nil
		},
	}

	var params []string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Listar calendarios con filtros (--param k=v)",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			for _, kv := range params {
				k, v, ok := strings.Cut(kv, "=")
				if !ok || k == "" {
					return fmt.Errorf("--param inválido %q (k=v)", kv)
				}
				q.Add(k, v)
			}
			out, err := cl.c.API.GetCalendars(cmd.Context(), q)
			if err != nil {
				return err
			}
			cl.print(out, nil)
			return nil
		},
	}
	listCmd.Flags().StringArrayVar(&params, "param", nil, "Filtro k=v (repetible)")

	favoriteCmd := &cobra.Command{
		Use:   "favorite <promo_id>",
		Short: "Guardar el calendario favorito",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := cl.c.SaveFavoriteCalendar(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			cl.print(out, nil)
			return nil
		},
	}

	calCmd.AddCommand(availableCmd, listCmd, favoriteCmd)
	return calCmd
}

func newEventsCmd(cl *cli) *cobra.Command {
	var start, end string
	var filter api.EventFilter
	var useFilter bool
	cmd := &cobra.Command{
		Use:   "events [calendar_id]",
		Short: "Listar eventos de un calendario, o buscarlos con --filter",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				out []map[string]any
				err error
			)
			switch {
			case useFilter:
				filter.Start, filter.End = start, end
				out, err = cl.c.API.FilterEvents(cmd.Context(), filter)
			case len(args) == 1:
				out, err = cl.c.API.GetEvents(cmd.Context(), args[0], start, end)
			default:
				return fmt.Errorf("falta calendar_id (o --filter)")
			}
			if err != nil {
				return err
			}
			cl.print(out, nil)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&start, "start", "", "Desde (ISO 8601)")
	f.StringVar(&end, "end", "", "Hasta (ISO 8601)")
	f.BoolVar(&useFilter, "filter", false, "Usar /ics/event_filter en vez de un calendario")
	f.StringVar(&filter.Matiere, "matiere", "", "Materia (con --filter)")
	f.StringVar(&filter.TypeCours, "type-cours", "", "Tipo de curso (con --filter)")
	f.StringVar(&filter.InfosSup, "infos-sup", "", "Infos suplementarias (con --filter)")
	f.IntVar(&filter.ClassroomID, "classroom-id", 0, "Sala (con --filter)")
	f.IntVar(&filter.UserID, "user-id", 0, "Profesor (con --filter)")
	f.IntVar(&filter.PromoID, "promo-id", 0, "Promo (con --filter)")
	return cmd
}

func newICSCmd(cl *cli) *cobra.Command {
	icsCmd := &cobra.Command{Use: "ics", Short: "Archivos ICS de las promos"}

	var outFile string
	getCmd := &cobra.Command{
		Use:   "get <promo_id>",
		Short: "Descargar el ICS de una promo (sin cache)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := cl.c.API.GetICS(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return cl.printRaw(body, outFile)
		},
	}
	getCmd.Flags().StringVarP(&outFile, "output", "o", "", "Archivo destino (default stdout)")

	var ev api.EventDetail
	var userID int
	insertCmd := &cobra.Command{
		Use:   "insert",
		Short: "Insertar un evento en el ICS",
		RunE: func(cmd *cobra.Command, args []string) error {
			if ev.Start == "" || ev.End == "" || ev.Matiere == "" || ev.TypeCours == "" {
				return fmt.Errorf("--start, --end, --matiere y --type-cours son requeridos")
			}
			if cmd.Flags().Changed("user-id") {
				ev.UserID = &userID
			}
			out, err := cl.c.API.AddEventToICS(cmd.Context(), ev)
			if err != nil {
				return err
			}
			cl.print(out, nil)
			return nil
		},
	}
	f := insertCmd.Flags()
	f.StringVar(&ev.Start, "start", "", "Inicio")
	f.StringVar(&ev.End, "end", "", "Fin")
	f.StringVar(&ev.Matiere, "matiere", "", "Materia")
	f.StringVar(&ev.TypeCours, "type-cours", "", "Tipo de curso (CM, TD, TP...)")
	f.StringVar(&ev.InfosSup, "infos-sup", "", "Infos suplementarias")
	f.StringVar(&ev.ClassroomStr, "classroom", "", "Sala")
	f.IntVar(&userID, "user-id", 0, "Profesor")
	f.StringVar(&ev.PromoStr, "promo", "", "Promo")

	deleteCmd := &cobra.Command{
		Use:   "delete <uid>",
		Short: "Borrar un evento por UID (no idempotente: no reintentar)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := cl.c.API.DeleteEvent(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			cl.print(out, nil)
			return nil
		},
	}

	icsCmd.AddCommand(getCmd, insertCmd, deleteCmd)
	return icsCmd
}

func newClassroomsCmd(cl *cli) *cobra.Command {
	var detail bool
	cmd := &cobra.Command{
		Use:   "classrooms",
		Short: "Listar salas",
		RunE: func(cmd *cobra.Command, args []string) error {
			if detail {
				out, err := cl.c.API.GetClassroomsDetail(cmd.Context())
				if err != nil {
					return err
				}
				cl.print(out, func(w io.Writer) {
					names := make([]string, 0, len(out))
					for n := range out {
						names = append(names, n)
					}
					sort.Strings(names)
					for _, n := range names {
						fmt.Fprintf(w, "%-12s %v\n", n, out[n])
					}
				})
				return nil
			}
			rooms, err := cl.c.API.GetClassrooms(cmd.Context())
			if err != nil {
				return err
			}
			cl.print(rooms, func(w io.Writer) {
				for _, r := range rooms {
					fmt.Fprintln(w, r)
				}
			})
			return nil
		},
	}
	cmd.Flags().BoolVar(&detail, "detail", false, "Incluir capacidad y tipo")
	return cmd
}

func newCSVCmd(cl *cli) *cobra.Command {
	var outFile string
	cmd := &cobra.Command{
		Use:   "csv <promo_id>",
		Short: "Exportar los eventos de una promo en CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := cl.c.API.GetCSV(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return cl.printRaw(body, outFile)
		},
	}
	cmd.Flags().StringVarP(&outFile, "output", "o", "", "Archivo destino (default stdout)")
	return cmd
}
