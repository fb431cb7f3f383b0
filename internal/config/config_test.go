package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Prodigy-Genes/Full-Stack-Tests-Farm-Direct/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestMustLoadByPath_Success(t *testing.T) {
	t.Setenv("DB_PASSWORD", "mypassword")
	t.Setenv("JWT_SECRET", "mysecret")

	path := writeConfig(t, `
env: "local"
http_server:
  address: "localhost:8080"
  timeout: "4s"
  idle_timeout: "60s"
  cors_allowed_origins:
    - "http://localhost:5173"
    - "https://farm.example.com"
database:
  host: "localhost"
  port: 5432
  user: "postgres"
  name: "farm_direct"
  max_open_conns: 30
jwt:
  token_ttl: 60
migrations:
  path: "./migrations"
catalog:
  default_page_size: 20
`)

	cfg := config.MustLoadByPath(path)

	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, "localhost:8080", cfg.HTTPServer.Address)
	assert.Equal(t, 4*time.Second, cfg.HTTPServer.Timeout)
	assert.Equal(t, 60*time.Second, cfg.HTTPServer.IdleTimeout)
	assert.Equal(t, []string{"http://localhost:5173", "https://farm.example.com"}, cfg.HTTPServer.CORSAllowedOrigins)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "postgres", cfg.Database.User)
	assert.Equal(t, "mypassword", cfg.Database.Password)
	assert.Equal(t, "farm_direct", cfg.Database.Name)
	assert.Equal(t, 30, cfg.Database.MaxOpenConns)
	assert.Equal(t, 5, cfg.Database.MaxIdleConns, "default applies")
	assert.Equal(t, "mysecret", cfg.JWT.Secret)
	assert.Equal(t, time.Hour, cfg.TokenTTL())
	assert.Equal(t, "./migrations", cfg.Migrations.Path)
	assert.Equal(t, 20, cfg.Catalog.DefaultPageSize)
	assert.Equal(t, 100, cfg.Catalog.MaxPageSize)
}

func TestMustLoadByPath_FileNotFound(t *testing.T) {
	assert.Panics(t, func() {
		config.MustLoadByPath("non_existent_config.yaml")
	})
}

func TestPathOrEnv(t *testing.T) {
	t.Setenv("CONFIG_PATH", "/etc/farm/config.yaml")
	assert.Equal(t, "./local.yaml", config.PathOrEnv("./local.yaml"))
	assert.Equal(t, "/etc/farm/config.yaml", config.PathOrEnv(""))
}
