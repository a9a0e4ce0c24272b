package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dropDatabas3/webcafe/internal/api"
	"github.com/dropDatabas3/webcafe/internal/session"
)

// Indirecciones para poder simular una terminal en tests.
var (
	isTerminal   = term.IsTerminal
	readPassword = term.ReadPassword
)

// readSecret pide un secreto. Si in es una terminal el input no se muestra
// (term.ReadPassword); si viene de un pipe se lee una línea.
func readSecret(in io.Reader, out io.Writer, prompt string) (string, error) {
	fmt.Fprint(out, prompt)
	if f, ok := in.(*os.File); ok && isTerminal(int(f.Fd())) {
		b, err := readPassword(int(f.Fd()))
		fmt.Fprintln(out) // New line after hidden input
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func printSession(cl *cli, st session.State) {
	cl.print(st, func(w io.Writer) {
		if !st.Connected {
			fmt.Fprintln(w, "anonymous")
			return
		}
		p := st.Profile
		fmt.Fprintf(w, "login:     %s\n", p.Login)
		fmt.Fprintf(w, "name:      %s %s\n", p.Prenom, p.Nom)
		fmt.Fprintf(w, "email:     %s\n", p.Email)
		fmt.Fprintf(w, "promo:     %s\n", p.PromoID)
		fmt.Fprintf(w, "superuser: %s\n", yesNo(st.Superuser))
		fmt.Fprintf(w, "teacher:   %s\n", yesNo(p.Teacher))
	})
}

func newLoginCmd(cl *cli) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "login <username>",
		Short: "Pedir un token y guardarlo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("WEBCAFE_PASSWORD")
			}
			if password == "" {
				p, err := readSecret(os.Stdin, os.Stderr, "password: ")
				if err != nil {
					return err
				}
				password = p
			}
			st, err := cl.c.Login(cmd.Context(), args[0], password)
			if err != nil {
				return fmt.Errorf("login fallo: %w", err)
			}
			printSession(cl, st)
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "Password (si falta: env WEBCAFE_PASSWORD o stdin)")
	return cmd
}

func newLogoutCmd(cl *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Borrar el token guardado",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cl.c.Logout(cmd.Context()); err != nil {
				return err
			}
			cl.print(map[string]bool{"ok": true}, func(w io.Writer) { fmt.Fprintln(w, "ok") })
			return nil
		},
	}
}

func newWhoamiCmd(cl *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Verificar el token guardado contra el backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			cl.c.Session.Sync(cmd.Context())
			printSession(cl, cl.c.Session.State())
			return nil
		},
	}
}

func newRegisterCmd(cl *cli) *cobra.Command {
	var p api.UserProfile
	cmd := &cobra.Command{
		Use:   "register <login>",
		Short: "Crear una cuenta",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p.Login = args[0]
			if p.Hpwd == "" {
				pw, err := readSecret(os.Stdin, os.Stderr, "password: ")
				if err != nil {
					return err
				}
				p.Hpwd = pw
			}
			out, err := cl.c.Register(cmd.Context(), p)
			if err != nil {
				return fmt.Errorf("register fallo: %w", err)
			}
			cl.print(out, nil)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&p.Nom, "nom", "", "Apellido")
	f.StringVar(&p.Prenom, "prenom", "", "Nombre")
	f.StringVar(&p.Email, "email", "", "Email")
	f.StringVar(&p.Birthday, "birthday", "", "Fecha de nacimiento (YYYY-MM-DD)")
	f.StringVar(&p.PromoID, "promo", "", "Promo (calendario favorito)")
	f.StringVar(&p.NoteKfet, "note-kfet", "", "Nota Kfet")
	f.StringVar(&p.Hpwd, "password", "", "Password (si falta se lee de stdin)")
	return cmd
}

func newUsersCmd(cl *cli) *cobra.Command {
	usersCmd := &cobra.Command{Use: "users", Short: "Operaciones sobre usuarios"}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Listar todos los usuarios (requiere superuser)",
		RunE: func(cmd *cobra.Command, args []string) error {
			tok, err := cl.c.Token(cmd.Context())
			if err != nil {
				return err
			}
			raw, err := cl.c.API.GetUsersList(cmd.Context(), tok)
			if err != nil {
				return fmt.Errorf("users list fallo: %w", err)
			}
			users := make([]api.UserProfile, 0, len(raw))
			for _, r := range raw {
				users = append(users, api.MapAPIUser(r))
			}
			cl.print(users, func(w io.Writer) {
				for _, u := range users {
					fmt.Fprintf(w, "%-20s %-10s superuser=%s teacher=%s\n", u.Login, u.PromoID, yesNo(u.Superuser), yesNo(u.Teacher))
				}
			})
			return nil
		},
	}

	var nom, prenom, email, birthday, promo, noteKfet, password string
	modifyCmd := &cobra.Command{
		Use:   "modify",
		Short: "Modificar el perfil propio (solo los flags pasados)",
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch api.ProfilePatch
			set := func(name string, dst **string, v string) {
				if cmd.Flags().Changed(name) {
					val := v
					*dst = &val
				}
			}
			set("nom", &patch.Nom, nom)
			set("prenom", &patch.Prenom, prenom)
			set("email", &patch.Email, email)
			set("birthday", &patch.Birthday, birthday)
			set("promo", &patch.PromoID, promo)
			set("note-kfet", &patch.NoteKfet, noteKfet)
			set("password", &patch.Hpwd, password)
			if patch == (api.ProfilePatch{}) {
				return fmt.Errorf("nada para modificar")
			}
			out, err := cl.c.ModifyProfile(cmd.Context(), patch)
			if err != nil {
				return fmt.Errorf("modify fallo: %w", err)
			}
			cl.print(out, nil)
			return nil
		},
	}
	f := modifyCmd.Flags()
	f.StringVar(&nom, "nom", "", "Apellido")
	f.StringVar(&prenom, "prenom", "", "Nombre")
	f.StringVar(&email, "email", "", "Email")
	f.StringVar(&birthday, "birthday", "", "Fecha de nacimiento")
	f.StringVar(&promo, "promo", "", "Promo favorita")
	f.StringVar(&noteKfet, "note-kfet", "", "Nota Kfet")
	f.StringVar(&password, "password", "", "Nuevo password")

	usersCmd.AddCommand(listCmd, modifyCmd)
	return usersCmd
}
