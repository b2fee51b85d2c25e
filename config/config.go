package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Server       Server
	Database     Database
	Auth         Auth
	Log          Log
	Mail         Mail
	Proctoring   Proctoring
	GeminiApiKey string
	GeminiModel  string
}

type Server struct {
	Port        string
	CORSOrigins []string
}

type Database struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN builds the postgres connection string understood by gorm's postgres driver.
func (d Database) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type Auth struct {
	JWTSecret string
}

type Log struct {
	Level  string
	Pretty bool
}

type Mail struct {
	APIURL string
	APIKey string
	From   string
}

// Proctoring holds the server-side expiry sweep settings. The sweep is off
// unless explicitly enabled.
type Proctoring struct {
	ExpirySweep     bool
	ExpirySweepSpec string
	ExpiryGrace     time.Duration
}

func NewConfig() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("CORS_ORIGINS", "*")
	viper.SetDefault("DATABASE_HOST", "localhost")
	viper.SetDefault("DATABASE_PORT", "5432")
	viper.SetDefault("DATABASE_USER", "postgres")
	viper.SetDefault("DATABASE_NAME", "symposium")
	viper.SetDefault("DATABASE_SSLMODE", "disable")
	viper.SetDefault("GEMINI_MODEL", "gemini-1.5-flash")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_PRETTY", false)
	viper.SetDefault("MAIL_FROM", "no-reply@symposium.local")
	viper.SetDefault("PROCTOR_EXPIRY_SWEEP", false)
	viper.SetDefault("PROCTOR_EXPIRY_SWEEP_SPEC", "@every 1m")
	viper.SetDefault("PROCTOR_EXPIRY_GRACE", "30s")

	if err := viper.ReadInConfig(); err != nil {
		log.Warn().Err(err).Msg("Error reading config file")
	}

	var config Config

	config.Server.Port = viper.GetString("SERVER_PORT")
	config.Server.CORSOrigins = splitCSV(viper.GetString("CORS_ORIGINS"))
	config.Database.Host = viper.GetString("DATABASE_HOST")
	config.Database.Port = viper.GetString("DATABASE_PORT")
	config.Database.User = viper.GetString("DATABASE_USER")
	config.Database.Password = viper.GetString("DATABASE_PASSWORD")
	config.Database.Name = viper.GetString("DATABASE_NAME")
	config.Database.SSLMode = viper.GetString("DATABASE_SSLMODE")

	config.Auth.JWTSecret = viper.GetString("JWT_SECRET")
	config.Log.Level = viper.GetString("LOG_LEVEL")
	config.Log.Pretty = viper.GetBool("LOG_PRETTY")

	config.Mail.APIURL = viper.GetString("MAIL_API_URL")
	config.Mail.APIKey = viper.GetString("MAIL_API_KEY")
	config.Mail.From = viper.GetString("MAIL_FROM")

	config.Proctoring.ExpirySweep = viper.GetBool("PROCTOR_EXPIRY_SWEEP")
	config.Proctoring.ExpirySweepSpec = viper.GetString("PROCTOR_EXPIRY_SWEEP_SPEC")
	config.Proctoring.ExpiryGrace = viper.GetDuration("PROCTOR_EXPIRY_GRACE")

	config.GeminiApiKey = viper.GetString("GEMINI_API_KEY")
	config.GeminiModel = viper.GetString("GEMINI_MODEL")

	if config.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET must be set")
	}

	log.Info().
		Str("port", config.Server.Port).
		Str("db_host", config.Database.Host).
		Str("db_name", config.Database.Name).
		Bool("expiry_sweep", config.Proctoring.ExpirySweep).
		Bool("gemini_enabled", config.GeminiApiKey != "").
		Msg("Config loaded")
	return &config, nil
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
