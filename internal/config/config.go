package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

type Config struct {
	App struct {
		Env      string
		Timezone string
	} `mapstructure:"app"`

	HTTP struct {
		Addr string
	} `mapstructure:"http"`

	Store struct {
		Driver string // "memory" | "postgres"
	} `mapstructure:"store"`

	Postgres struct {
		DSN string
	} `mapstructure:"postgres"`

	Redis struct {
		Addr     string
		Password string
		DB       int
		Queue    string
	} `mapstructure:"redis"`

	Notify struct {
		Driver  string // "log" | "async" | "redis"
		Workers int
		Buffer  int
		Worker  bool // в режиме redis запускать разборщик очереди в этом же процессе

		Mailjet struct {
			PublicKey  string `mapstructure:"public_key"`
			PrivateKey string `mapstructure:"private_key"`
			Sender     string
		} `mapstructure:"mailjet"`

		Telegram struct {
			Token string
		} `mapstructure:"telegram"`
	} `mapstructure:"notify"`

	Metrics struct {
		Enabled bool
	} `mapstructure:"metrics"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "prod")
	v.SetDefault("app.timezone", "UTC")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("store.driver", "memory")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.queue", "meetapp:subscription_mail")
	v.SetDefault("notify.driver", "async")
	v.SetDefault("notify.workers", 2)
	v.SetDefault("notify.buffer", 100)
	v.SetDefault("notify.worker", true)
	v.SetDefault("notify.mailjet.sender", "noreply@meetapp.local")
	v.SetDefault("metrics.enabled", true)
}

// Load читает YAML и переопределения из окружения (APP_HTTP_ADDR и т.п.).
// .env рядом с бинарником подхватывается, если он есть.
func Load(path string) (Config, error) {
	if err := gotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var c Config
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return c, err
		}
	}
	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}
	return c, c.Validate()
}

func (c Config) Validate() error {
	switch c.Store.Driver {
	case "memory":
	case "postgres":
		if c.Postgres.DSN == "" {
			return errors.New("config: postgres.dsn is required for store.driver=postgres")
		}
	default:
		return fmt.Errorf("config: unknown store.driver %q", c.Store.Driver)
	}
	switch c.Notify.Driver {
	case "log", "async", "redis":
	default:
		return fmt.Errorf("config: unknown notify.driver %q", c.Notify.Driver)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config: app.timezone: %w", err)
	}
	return loc, nil
}
