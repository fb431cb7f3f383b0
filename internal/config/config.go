package config

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Env        string           `yaml:"env" env-default:"local"` // local, dev or prod
	HTTPServer HTTPServerConfig `yaml:"http_server"`
	Database   DatabaseConfig   `yaml:"database"`
	JWT        JWTConfig        `yaml:"jwt"`
	Migrations MigrationsConfig `yaml:"migrations"`
	Catalog    CatalogConfig    `yaml:"catalog"`
}

type HTTPServerConfig struct {
	Address            string        `yaml:"address" env-default:"localhost:8080"`
	Timeout            time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout        time.Duration `yaml:"idle_timeout" env-default:"60s"`
	CORSAllowedOrigins []string      `yaml:"cors_allowed_origins" env:"CORS_ALLOWED_ORIGINS" env-default:"http://localhost:5173"`
}

type DatabaseConfig struct {
	Host         string `yaml:"host" env-default:"localhost"`
	Port         int    `yaml:"port" env-default:"5432"`
	User         string `yaml:"user" env-required:"true"`
	Password     string `yaml:"-" env:"DB_PASSWORD" env-required:"true"`
	Name         string `yaml:"name" env-required:"true"`
	MaxOpenConns int    `yaml:"max_open_conns" env-default:"20"`
	MaxIdleConns int    `yaml:"max_idle_conns" env-default:"5"`
}

// JWTConfig: TokenTTL is in minutes.
type JWTConfig struct {
	Secret   string `yaml:"-" env:"JWT_SECRET" env-required:"true"`
	TokenTTL int    `yaml:"token_ttl" env-default:"1440"`
}

type MigrationsConfig struct {
	Path string `yaml:"path" env-default:"./migrations"`
}

type CatalogConfig struct {
	DefaultPageSize int `yaml:"default_page_size" env-default:"12"`
	MaxPageSize     int `yaml:"max_page_size" env-default:"100"`
}

// MustLoad reads the config from the -config flag or CONFIG_PATH and panics on failure.
func MustLoad() *Config {
	configPath := fetchConfigPath()
	if configPath == "" {
		log.Fatal("CONFIG_PATH not exists")
	}
	return MustLoadByPath(configPath)
}

func fetchConfigPath() string {
	var path string

	flag.StringVar(&path, "config", "", "path to config file")
	flag.Parse()

	return PathOrEnv(path)
}

// PathOrEnv returns path, or CONFIG_PATH when path is empty.
func PathOrEnv(path string) string {
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	return path
}

// MustLoadByPath reads the YAML file at configPath. Secrets come from the
// environment; a .env file in the working directory is loaded first if present.
func MustLoadByPath(configPath string) *Config {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file not found: " + configPath)
	}

	// .env is optional, real environment variables take precedence
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("can't read config file %s: %v", configPath, err)
	}

	return &cfg
}

func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.JWT.TokenTTL) * time.Minute
}
