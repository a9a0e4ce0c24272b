package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	// Bloque app (opcional en YAML). Si no está, queda vacío.
	App struct {
		// dev | staging | prod
		Env string `yaml:"app_env"`
	} `yaml:"app"`

	Log struct {
		// debug | info | warn | error | off
		Level string `yaml:"level"`
	} `yaml:"log"`

	API struct {
		BaseURL string `yaml:"base_url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"api"`

	Credentials struct {
		Driver string `yaml:"driver"` // file | memory | redis
		Path   string `yaml:"path"`
		Redis  struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"credentials"`

	Guard struct {
		// Destino cuando la verificación de superuser falla o da false.
		DenyTarget string `yaml:"deny_target"`
	} `yaml:"guard"`

	Shell struct {
		Addr string `yaml:"addr"`
	} `yaml:"shell"`
}

// Default devuelve la config sin YAML (solo defaults + env).
func Default() (*Config, error) {
	return finish(&Config{}, "")
}

// Load lee el YAML en path. Si path es "" se usan solo defaults + env.
func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return finish(&c, path)
}

// LoadEnvFile carga un .env si existe. Las variables ya definidas en el
// entorno no se pisan.
func LoadEnvFile(path string) (bool, error) {
	if strings.TrimSpace(path) == "" {
		return false, nil
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	if err := godotenv.Load(path); err != nil {
		return false, err
	}
	return true, nil
}

func finish(c *Config, path string) (*Config, error) {
	// sane defaults
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.API.BaseURL == "" {
		c.API.BaseURL = "http://localhost:8000/api/v1"
	}
	if c.API.Timeout == "" {
		c.API.Timeout = "10s"
	}
	if c.Credentials.Driver == "" {
		c.Credentials.Driver = "file"
	}
	if c.Credentials.Redis.Addr == "" {
		c.Credentials.Redis.Addr = "localhost:6379"
	}
	if c.Credentials.Redis.Prefix == "" {
		c.Credentials.Redis.Prefix = "webcafe"
	}
	if c.Guard.DenyTarget == "" {
		c.Guard.DenyTarget = "/"
	}
	if c.Shell.Addr == "" {
		c.Shell.Addr = "127.0.0.1:5173"
	}

	// Overrides por env
	c.applyEnvOverrides()

	if c.Credentials.Driver == "file" && c.Credentials.Path == "" {
		c.Credentials.Path = defaultCredentialsPath()
	}
	// Normalizar ruta de credenciales (si relativa) respecto al directorio del YAML
	if p := strings.TrimSpace(c.Credentials.Path); p != "" && path != "" && !filepath.IsAbs(p) {
		c.Credentials.Path = filepath.Clean(filepath.Join(filepath.Dir(path), p))
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// APITimeout devuelve el timeout ya parseado (validado en Load).
func (c *Config) APITimeout() time.Duration {
	d, err := time.ParseDuration(c.API.Timeout)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}

func defaultCredentialsPath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return filepath.Join(".webcafe", "credentials.json")
	}
	return filepath.Join(dir, "webcafe", "credentials.json")
}

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}
func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}

// applyEnvOverrides: pisa config.yaml con variables de entorno.
func (c *Config) applyEnvOverrides() {
	// APP
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.Log.Level = strings.ToLower(v)
	}

	// API
	if v, ok := getEnvStr("WEBCAFE_API_BASE"); ok {
		c.API.BaseURL = v
	}
	if v, ok := getEnvStr("WEBCAFE_API_TIMEOUT"); ok {
		c.API.Timeout = v
	}

	// CREDENTIALS
	if v, ok := getEnvStr("CREDENTIALS_DRIVER"); ok {
		c.Credentials.Driver = strings.ToLower(v)
	}
	if v, ok := getEnvStr("CREDENTIALS_PATH"); ok {
		c.Credentials.Path = v
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Credentials.Redis.Addr = v
	}
	if v, ok := getEnvStr("REDIS_PASSWORD"); ok {
		c.Credentials.Redis.Password = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Credentials.Redis.DB = v
	}
	if v, ok := getEnvStr("REDIS_PREFIX"); ok {
		c.Credentials.Redis.Prefix = v
	}

	// GUARD / SHELL
	if v, ok := getEnvStr("GUARD_DENY_TARGET"); ok {
		c.Guard.DenyTarget = v
	}
	if v, ok := getEnvStr("SHELL_ADDR"); ok {
		c.Shell.Addr = v
	}
}

func (c *Config) Validate() error {
	var errs []error

	switch c.App.Env {
	case "dev", "staging", "prod":
	default:
		errs = append(errs, fmt.Errorf("app.app_env: %q invalid (dev|staging|prod)", c.App.Env))
	}

	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("api.base_url: %q must be an absolute http(s) url", c.API.BaseURL))
	}
	if d, err := time.ParseDuration(c.API.Timeout); err != nil || d <= 0 {
		errs = append(errs, fmt.Errorf("api.timeout: %q invalid", c.API.Timeout))
	}

	switch c.Credentials.Driver {
	case "file":
		if strings.TrimSpace(c.Credentials.Path) == "" {
			errs = append(errs, errors.New("credentials.path: required for file driver"))
		}
	case "memory":
	case "redis":
		if strings.TrimSpace(c.Credentials.Redis.Addr) == "" {
			errs = append(errs, errors.New("credentials.redis.addr: required for redis driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("credentials.driver: %q invalid (file|memory|redis)", c.Credentials.Driver))
	}

	if !strings.HasPrefix(c.Guard.DenyTarget, "/") {
		errs = append(errs, fmt.Errorf("guard.deny_target: %q must be an absolute path", c.Guard.DenyTarget))
	}

	return errors.Join(errs...)
}
