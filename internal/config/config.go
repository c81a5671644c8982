// config предоставляет структуру конфигурации сервиса и функции
// загрузки из файла/переменных окружения с предсказуемым приоритетом.
package config

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config — корневая конфигурация сервиса.
// Источники значений (по убыванию приоритета):
//  1. явный путь через флаг --config;
//  2. путь в переменной окружения CONFIG_PATH;
//  3. файл local.yaml из рабочей директории;
//  4. переменные окружения (cleanenv).
type Config struct {
	Env      string         `yaml:"env" env:"ENV" env-default:"local"`
	HTTP     HTTPConfig     `yaml:"http"`
	Auth     AuthConfig     `yaml:"auth"`
	Password PasswordConfig `yaml:"password"`
	Admin    AdminConfig    `yaml:"admin"`
	OAuth    OAuthConfig    `yaml:"oauth"`
	DB       DBConfig       `yaml:"db"`
	Mongo    MongoConfig    `yaml:"mongo"`
	Redis    RedisConfig    `yaml:"redis"`
	S3       S3Config       `yaml:"s3"`
	Avatar   AvatarConfig   `yaml:"avatar"`
	Limits   LimitsConfig   `yaml:"limits"`
	Timeouts TimeoutConfig  `yaml:"timeouts"`
	Janitor  JanitorConfig  `yaml:"janitor"`
}

// HTTPConfig — сетевые настройки HTTP-сервера.
type HTTPConfig struct {
	Host     string `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port     string `yaml:"port" env:"HTTP_PORT" env-default:"8000"`
	BasePath string `yaml:"base_path" env:"HTTP_BASE_PATH"`
}

// Addr возвращает адрес в формате host:port.
func (h HTTPConfig) Addr() string {
	return net.JoinHostPort(h.Host, h.Port)
}

// AuthConfig содержит параметры выпуска и проверки токенов.
// SystemEmail — e-mail служебной учётной записи, которую нельзя удалить.
type AuthConfig struct {
	JWTSecret       string        `yaml:"jwt_secret" env:"JWT_SECRET" env-required:"true"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl" env:"ACCESS_TOKEN_TTL" env-default:"30m"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl" env:"REFRESH_TOKEN_TTL" env-default:"168h"`
	Issuer          string        `yaml:"issuer" env:"ISSUER" env-default:"news-portal"`
	SystemEmail     string        `yaml:"system_email" env:"SYSTEM_EMAIL" env-default:"admin@news-portal.local"`
}

// PasswordConfig — параметры argon2id.
type PasswordConfig struct {
	Memory      uint32 `yaml:"memory_kib" env:"PASSWORD_MEMORY_KIB" env-default:"65536"`
	Iterations  uint32 `yaml:"iterations" env:"PASSWORD_ITERATIONS" env-default:"3"`
	Parallelism uint8  `yaml:"parallelism" env:"PASSWORD_PARALLELISM" env-default:"2"`
}

// AdminConfig описывает служебного администратора, создаваемого при старте.
// Пустой Password отключает bootstrap.
type AdminConfig struct {
	Name     string `yaml:"name" env:"ADMIN_NAME" env-default:"System"`
	Password string `yaml:"password" env:"ADMIN_PASSWORD"`
}

// OAuthConfig — параметры mock-провайдера GitHub.
type OAuthConfig struct {
	GitHubClientID string `yaml:"github_client_id" env:"GITHUB_CLIENT_ID" env-default:"demo-client-id"`

	// Пустое значение: callback рядом с /demo (учитывает http.base_path).
	GitHubRedirectURI string `yaml:"github_redirect_uri" env:"GITHUB_REDIRECT_URI"`
}

// DBConfig — настройки подключения к PostgreSQL.
// Driver=memory поднимает in-memory хранилище (локальная отладка без внешних зависимостей).
type DBConfig struct {
	Driver      string `yaml:"driver" env:"DB_DRIVER" env-default:"postgres"`
	DatabaseURL string `yaml:"db_url" env:"DATABASE_URL"`
	Migrate     bool   `yaml:"migrate" env:"DB_MIGRATE" env-default:"false"`
}

// MongoConfig — хранилище комментариев.
type MongoConfig struct {
	URL string `yaml:"url" env:"MONGO_URL"`
}

// RedisConfig — кэш refresh-сессий (опционально).
type RedisConfig struct {
	RedisURL string `yaml:"redis_url" env:"REDIS_URL"`
	Prefix   string `yaml:"prefix" env:"REDIS_PREFIX" env-default:"news:rs:"`
}

// S3Config — подключение к MinIO/S3 для аватаров (опционально).
type S3Config struct {
	Endpoint      string        `yaml:"endpoint" env:"S3_ENDPOINT"`
	RootUser      string        `yaml:"root_user" env:"S3_ROOT_USER"`
	RootPassword  string        `yaml:"root_password" env:"S3_ROOT_PASSWORD"`
	Bucket        string        `yaml:"bucket" env:"S3_BUCKET" env-default:"avatars"`
	PublicBaseURL string        `yaml:"public_base_url" env:"S3_PUBLIC_BASE_URL"`
	PresignTTL    time.Duration `yaml:"presign_ttl" env:"S3_PRESIGN_TTL" env-default:"15m"`
}

// AvatarConfig — ограничения загружаемых аватаров.
type AvatarConfig struct {
	MaxSizeBytes        int64    `yaml:"max_size_bytes" env:"AVATAR_MAX_SIZE_BYTES" env-default:"5242880"`
	AllowedContentTypes []string `yaml:"allowed_content_types" env:"AVATAR_ALLOWED_CONTENT_TYPES" env-default:"image/jpeg,image/png,image/webp"`
}

// LimitsConfig — размеры страниц списков.
type LimitsConfig struct {
	Default int `yaml:"default" env:"LIMIT_DEFAULT" env-default:"100"`
	Max     int `yaml:"max" env:"LIMIT_MAX" env-default:"100"`
}

// TimeoutConfig — таймауты сервиса.
type TimeoutConfig struct {
	Request  time.Duration `yaml:"request" env:"REQUEST_TIMEOUT" env-default:"5s"`
	Shutdown time.Duration `yaml:"shutdown" env:"SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// JanitorConfig — период фоновой очистки просроченных сессий (0 — выключено).
type JanitorConfig struct {
	Period time.Duration `yaml:"period" env:"JANITOR_PERIOD" env-default:"30m"`
}

// MustLoad — обёртка над Load с panic при ошибке.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}

	return cfg
}

// Load загружает конфигурацию по приоритету:
// 1) явный путь; 2) CONFIG_PATH; 3) ./local.yaml; 4) ENV.
// После чтения файла ENV-переменные накладываются поверх значений из YAML.
func Load(path string) (*Config, error) {
	var cfg Config

	read := func(p string) (*Config, error) {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file %q stat failed: %w", p, err)
		}

		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config %q: %w", p, err)
		}

		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to overlay env: %w", err)
		}

		if err := cfg.validate(); err != nil {
			return nil, err
		}

		return &cfg, nil
	}

	switch {
	case path != "":
		return read(path)
	case os.Getenv("CONFIG_PATH") != "":
		return read(os.Getenv("CONFIG_PATH"))
	}

	if _, err := os.Stat("local.yaml"); err == nil {
		return read("local.yaml")
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// validate проверяет связки полей, которые cleanenv выразить не может.
func (c *Config) validate() error {
	switch c.DB.Driver {
	case "postgres":
		if c.DB.DatabaseURL == "" {
			return fmt.Errorf("config: db.db_url is required for driver %q", c.DB.Driver)
		}
		if c.Mongo.URL == "" {
			return fmt.Errorf("config: mongo.url is required for driver %q", c.DB.Driver)
		}
	case "memory":
	default:
		return fmt.Errorf("config: unknown db.driver %q", c.DB.Driver)
	}

	if c.Limits.Default <= 0 || c.Limits.Max < c.Limits.Default {
		return fmt.Errorf("config: invalid limits default=%d max=%d", c.Limits.Default, c.Limits.Max)
	}

	return nil
}
