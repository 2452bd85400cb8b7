package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config - структура для хранения конфигураций приложения
type Config struct {
	ServerAddress  string        `mapstructure:"SERVER_ADDRESS"`
	PostgresConn   string        `mapstructure:"POSTGRES_CONN"`
	MigrationURL   string        `mapstructure:"MIGRATION_URL"`
	StorageBackend string        `mapstructure:"STORAGE_BACKEND"`
	HandlerTimeout time.Duration `mapstructure:"HANDLER_TIMEOUT"`
	JWTSecret      string        `mapstructure:"JWT_SECRET"`
	TokenTTL       time.Duration `mapstructure:"TOKEN_TTL"`
	LogLevel       string        `mapstructure:"LOG_LEVEL"`

	AMQPURL      string `mapstructure:"AMQP_URL"`
	AMQPExchange string `mapstructure:"AMQP_EXCHANGE"`

	MongoURI      string `mapstructure:"MONGO_URI"`
	MongoDatabase string `mapstructure:"MONGO_DATABASE"`

	MinioEndpoint  string `mapstructure:"MINIO_ENDPOINT"`
	MinioAccessKey string `mapstructure:"MINIO_ACCESS_KEY"`
	MinioSecretKey string `mapstructure:"MINIO_SECRET_KEY"`
	MinioBucket    string `mapstructure:"MINIO_BUCKET"`
	MinioUseSSL    bool   `mapstructure:"MINIO_USE_SSL"`
	MinioPublicURL string `mapstructure:"MINIO_PUBLIC_URL"`

	ProposalDescriptionMin int `mapstructure:"PROPOSAL_DESCRIPTION_MIN"`
	ProposalDescriptionMax int `mapstructure:"PROPOSAL_DESCRIPTION_MAX"`
}

const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

var keys = map[string]any{
	"SERVER_ADDRESS":           "0.0.0.0:8080",
	"POSTGRES_CONN":            "",
	"MIGRATION_URL":            "file://db/migration",
	"STORAGE_BACKEND":          BackendPostgres,
	"HANDLER_TIMEOUT":          5 * time.Second,
	"JWT_SECRET":               "",
	"TOKEN_TTL":                24 * time.Hour,
	"LOG_LEVEL":                "info",
	"AMQP_URL":                 "",
	"AMQP_EXCHANGE":            "marketplace.events",
	"MONGO_URI":                "",
	"MONGO_DATABASE":           "furniture_market",
	"MINIO_ENDPOINT":           "",
	"MINIO_ACCESS_KEY":         "",
	"MINIO_SECRET_KEY":         "",
	"MINIO_BUCKET":             "request-photos",
	"MINIO_USE_SSL":            false,
	"MINIO_PUBLIC_URL":         "",
	"PROPOSAL_DESCRIPTION_MIN": 10,
	"PROPOSAL_DESCRIPTION_MAX": 1000,
}

// LoadConfig загружает конфигурацию из файла app.env в каталоге path.
// Переменные окружения имеют приоритет над файлом, отсутствие файла не ошибка.
func LoadConfig(path string) (cfg Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AutomaticEnv()
	for key, value := range keys {
		v.SetDefault(key, value)
	}

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return
		}
	}
	if err = v.Unmarshal(&cfg); err != nil {
		return
	}
	err = cfg.Validate()
	return
}

// Validate проверяет согласованность настроек.
func (c Config) Validate() error {
	switch strings.ToLower(c.StorageBackend) {
	case BackendPostgres:
		if c.PostgresConn == "" {
			return errors.New("POSTGRES_CONN is required for the postgres backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.HandlerTimeout <= 0 {
		return errors.New("HANDLER_TIMEOUT must be positive")
	}
	if c.ProposalDescriptionMin < 0 || c.ProposalDescriptionMax < c.ProposalDescriptionMin {
		return fmt.Errorf("invalid proposal description limits %d..%d", c.ProposalDescriptionMin, c.ProposalDescriptionMax)
	}
	return nil
}

// PhotosEnabled сообщает, настроено ли хранилище фотографий.
func (c Config) PhotosEnabled() bool {
	return c.MinioEndpoint != ""
}

// HistoryEnabled сообщает, настроена ли история событий.
func (c Config) HistoryEnabled() bool {
	return c.MongoURI != ""
}
