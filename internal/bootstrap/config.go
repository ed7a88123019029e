package bootstrap

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/fx"

	"github.com/demoforge/demoforge/internal/codegen"
	"github.com/demoforge/demoforge/internal/github"
	"github.com/demoforge/demoforge/internal/storage/pg"
	"github.com/demoforge/demoforge/internal/vercel"
)

type HTTPConfig struct {
	Port           string
	AllowedOrigins []string
}

func NewConfig() (Config, error) {
	if err := InitConfig(); err != nil {
		return Config{}, err
	}

	var cfg struct {
		HTTP    HTTPConfig
		Db      pg.DbConfig
		Vercel  vercel.Config
		GitHub  github.Config
		Codegen codegen.Config
	}

	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unable to decode config: %w", err)
	}

	if cfg.HTTP.Port == "" {
		cfg.HTTP.Port = "8080"
	}

	return Config{
		HTTP:    cfg.HTTP,
		Db:      cfg.Db,
		Vercel:  cfg.Vercel,
		GitHub:  cfg.GitHub,
		Codegen: cfg.Codegen,
	}, nil
}

type Config struct {
	fx.Out

	HTTP    HTTPConfig
	Db      pg.DbConfig
	Vercel  vercel.Config
	GitHub  github.Config
	Codegen codegen.Config
}

func InitConfig() error {
	_ = godotenv.Load()

	if configFile := os.Getenv("APPLICATION_CONFIG"); configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("application")
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
	}
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err != nil {
		// Env-only deployments run without a config file.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	return nil
}
