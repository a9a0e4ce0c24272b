package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/webcafe/internal/app"
	"github.com/dropDatabas3/webcafe/internal/config"
	"github.com/dropDatabas3/webcafe/internal/observability/logger"
)

// version se pisa con -ldflags "-X main.version=..."
var version = "dev"

// cli es el estado compartido por todos los subcomandos.
type cli struct {
	ConfigPath string
	EnvFile    string
	APIURL     string
	OutFormat  string // "json" | "text"
	Stdout     io.Writer

	cfg *config.Config
	c   *app.Container
}

// setup carga .env + config, inicializa el logger y arma el contenedor.
func (cl *cli) setup(ctx context.Context) error {
	loaded, err := config.LoadEnvFile(cl.EnvFile)
	if err != nil {
		return fmt.Errorf("dotenv %s: %w", cl.EnvFile, err)
	}
	cfg, err := config.Load(cl.ConfigPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if cl.APIURL != "" {
		cfg.API.BaseURL = cl.APIURL
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}
	cl.cfg = cfg

	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       cfg.Log.Level,
		ServiceName: "webcafe",
		Version:     version,
	})
	if loaded {
		logger.S().Debugf("dotenv: cargado %s", cl.EnvFile)
	}

	c, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	cl.c = c
	return nil
}

func (cl *cli) close() {
	if cl.c != nil {
		_ = cl.c.Close()
		cl.c = nil
	}
	_ = logger.Sync()
}

// print muestra v como JSON indentado (--out json) o con textFn (--out text).
func (cl *cli) print(v any, textFn func(w io.Writer)) {
	if cl.OutFormat == "json" || textFn == nil {
		p, _ := json.MarshalIndent(v, "", "  ")
		fmt.Fprintln(cl.Stdout, string(p))
		return
	}
	textFn(cl.Stdout)
}

// printRaw vuelca un body binario (ICS, CSV) a stdout o al archivo dado.
func (cl *cli) printRaw(body []byte, outFile string) error {
	if outFile == "" || outFile == "-" {
		_, err := cl.Stdout.Write(body)
		return err
	}
	return os.WriteFile(outFile, body, 0o644)
}

func newRootCmd(cl *cli) *cobra.Command {
	root := &cobra.Command{
		Use:           "webcafe",
		Short:         "Cliente de línea de comandos para WebCafe (sesión, calendarios, ICS)",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cl.OutFormat != "json" && cl.OutFormat != "text" {
				return fmt.Errorf("--out debe ser json|text")
			}
			return cl.setup(cmd.Context())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			cl.close()
		},
	}

	root.PersistentFlags().StringVar(&cl.ConfigPath, "config", envOr("CONFIG_PATH", ""), "ruta a config.yaml (env CONFIG_PATH; vacío = solo env)")
	root.PersistentFlags().StringVar(&cl.EnvFile, "env-file", ".env", "ruta a .env (si existe, se carga)")
	root.PersistentFlags().StringVar(&cl.APIURL, "api-url", "", "URL base del backend (pisa WEBCAFE_API_BASE)")
	root.PersistentFlags().StringVar(&cl.OutFormat, "out", envOr("WEBCAFE_OUT", "text"), "Formato de salida: json|text")

	root.AddCommand(
		newLoginCmd(cl),
		newLogoutCmd(cl),
		newWhoamiCmd(cl),
		newRegisterCmd(cl),
		newUsersCmd(cl),
		newCalendarsCmd(cl),
		newEventsCmd(cl),
		newICSCmd(cl),
		newClassroomsCmd(cl),
		newCSVCmd(cl),
		newNavigateCmd(cl),
		newDashboardCmd(cl),
		newServeCmd(cl),
		newVersionCmd(cl),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cl := &cli{Stdout: os.Stdout}
	root := newRootCmd(cl)
	if err := root.ExecuteContext(ctx); err != nil {
		cl.close()
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func joinOrDash(xs []string) string {
	if len(xs) == 0 {
		return "-"
	}
	return strings.Join(xs, ", ")
}
