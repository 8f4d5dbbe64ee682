package main

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the server configuration. Values come from config.yaml, then
// TIPSCAN_* environment variables (db.dsn becomes TIPSCAN_DB_DSN).
type Config struct {
	Addr    string        `mapstructure:"addr"`
	DB      DBConfig      `mapstructure:"db"`
	JWT     JWTConfig     `mapstructure:"jwt"`
	Log     LogConfig     `mapstructure:"log"`
	OCR     OCRConfig     `mapstructure:"ocr"`
	Storage StorageConfig `mapstructure:"storage"`
	Admin   AdminConfig   `mapstructure:"admin"`
}

type DBConfig struct {
	DSN         string `mapstructure:"dsn"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type OCRConfig struct {
	Language         string   `mapstructure:"language"`
	Whitelist        string   `mapstructure:"whitelist"`
	AcceptConfidence float64  `mapstructure:"accept_confidence"`
	Profiles         []string `mapstructure:"profiles"`
}

type StorageConfig struct {
	Kind  string      `mapstructure:"kind"` // local or minio
	Dir   string      `mapstructure:"dir"`
	MinIO MinIOConfig `mapstructure:"minio"`
}

type MinIOConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

type AdminConfig struct {
	Password string `mapstructure:"password"`
}

const devJWTSecret = "dev-insecure-secret-change"

// loadConfig reads dir/.env (without overriding the environment), then
// dir/config.yaml if present, then the environment.
func loadConfig(dir string) (Config, error) {
	var cfg Config
	if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	v.SetDefault("addr", ":8081")
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.auto_migrate", true)
	v.SetDefault("jwt.secret", devJWTSecret)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("ocr.language", "eng")
	v.SetDefault("ocr.whitelist", "")
	v.SetDefault("ocr.accept_confidence", 0.75)
	v.SetDefault("ocr.profiles", []string{"normal", "high-contrast", "low-contrast"})
	v.SetDefault("storage.kind", "local")
	v.SetDefault("storage.dir", "uploads")
	v.SetDefault("storage.minio.endpoint", "localhost:9000")
	v.SetDefault("storage.minio.access_key", "")
	v.SetDefault("storage.minio.secret_key", "")
	v.SetDefault("storage.minio.bucket", "receipts")
	v.SetDefault("storage.minio.use_ssl", false)
	v.SetDefault("admin.password", "admin123")

	v.SetEnvPrefix("TIPSCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// names used by earlier deployments
	_ = v.BindEnv("db.dsn", "TIPSCAN_DB_DSN", "DB_DSN")
	_ = v.BindEnv("db.auto_migrate", "TIPSCAN_DB_AUTO_MIGRATE", "DB_AUTO_MIGRATE")
	_ = v.BindEnv("jwt.secret", "TIPSCAN_JWT_SECRET", "JWT_SECRET")
	_ = v.BindEnv("storage.dir", "TIPSCAN_STORAGE_DIR", "UPLOAD_BASE")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return cfg, fmt.Errorf("reading config: %w", err)
		}
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding config: %w", err)
	}
	return cfg, nil
}
