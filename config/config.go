package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	configFileEnvName = "FAKESTORE_CONFIG_FILE"
	envPrefix         = "FAKESTORE"
)

type catalog struct {
	URL         string        `mapstructure:"url"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxAttempts int           `mapstructure:"max_attempts"`
}

type session struct {
	IdleTTL time.Duration `mapstructure:"idle_ttl"`
}

type filter struct {
	DefaultMinPrice string `mapstructure:"default_min_price"`
	DefaultMaxPrice string `mapstructure:"default_max_price"`
}

type topics struct {
	CartEvents   string `mapstructure:"cart_events"`
	FilterEvents string `mapstructure:"filter_events"`
}

type brokerTLS struct {
	Enabled  bool   `mapstructure:"enabled"`
	CAFile   string `mapstructure:"ca_file"`
	CertFile string `mapstructure:"cert_file"`
	KeyFile  string `mapstructure:"key_file"`
}

type broker struct {
	Enabled            bool      `mapstructure:"enabled"`
	SeedBrokers        []string  `mapstructure:"seed_brokers"`
	SchemaRegistryURLs []string  `mapstructure:"schema_registry_urls"`
	Topics             topics    `mapstructure:"topics"`
	TLS                brokerTLS `mapstructure:"tls"`
}

type Config struct {
	LogLevel        slog.Level    `mapstructure:"log_level"`
	LogFile         string        `mapstructure:"log_file"`
	HTTPServerAddr  string        `mapstructure:"http_server_addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	Catalog         catalog       `mapstructure:"catalog"`
	Session         session       `mapstructure:"session"`
	Filter          filter        `mapstructure:"filter"`
	Broker          broker        `mapstructure:"broker"`
}

// Load reads the config file named by the --config flag
// or the FAKESTORE_CONFIG_FILE env and exits on failure.
func Load() Config {
	cfg, err := LoadFile(getConfigFilepath())
	if err != nil {
		die(err)
	}
	return cfg
}

// LoadFile reads the config at path. Keys missing from the file fall back
// to defaults, FAKESTORE_* env vars override both.
func LoadFile(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return Config{}, err
	}

	var cfg Config
	err := v.UnmarshalExact(&cfg, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.TextUnmarshallerHookFunc(),
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	))
	if err != nil {
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
	v.SetDefault("http_server_addr", ":8080")
	v.SetDefault("shutdown_timeout", 5*time.Second)

	v.SetDefault("catalog.url", "https://fakestoreapi.com/products")
	v.SetDefault("catalog.timeout", time.Duration(0))
	v.SetDefault("catalog.max_attempts", 1)

	v.SetDefault("session.idle_ttl", 30*time.Minute)

	v.SetDefault("filter.default_min_price", "0")
	v.SetDefault("filter.default_max_price", "1000")

	v.SetDefault("broker.enabled", false)
	v.SetDefault("broker.seed_brokers", []string{})
	v.SetDefault("broker.schema_registry_urls", []string{})
	v.SetDefault("broker.topics.cart_events", "fakestore-cart-events")
	v.SetDefault("broker.topics.filter_events", "fakestore-filter-events")
	v.SetDefault("broker.tls.enabled", false)
	v.SetDefault("broker.tls.ca_file", "")
	v.SetDefault("broker.tls.cert_file", "")
	v.SetDefault("broker.tls.key_file", "")
}

func (c Config) validate() error {
	var errs []error
	if c.Catalog.URL == "" {
		errs = append(errs, errors.New("catalog.url is empty"))
	}
	if c.Catalog.MaxAttempts < 1 {
		errs = append(errs, errors.New("catalog.max_attempts must be positive"))
	}
	if c.Catalog.Timeout < 0 {
		errs = append(errs, errors.New("catalog.timeout is negative"))
	}
	if c.Session.IdleTTL <= 0 {
		errs = append(errs, errors.New("session.idle_ttl must be positive"))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("shutdown_timeout must be positive"))
	}
	if c.Broker.Enabled {
		if len(c.Broker.SeedBrokers) == 0 {
			errs = append(errs, errors.New("broker.seed_brokers is empty"))
		}
		if len(c.Broker.SchemaRegistryURLs) == 0 {
			errs = append(errs, errors.New("broker.schema_registry_urls is empty"))
		}
		if c.Broker.Topics.CartEvents == "" || c.Broker.Topics.FilterEvents == "" {
			errs = append(errs, errors.New("broker.topics are incomplete"))
		}
		t := c.Broker.TLS
		if t.Enabled && (t.CAFile == "" || t.CertFile == "" || t.KeyFile == "") {
			errs = append(errs, errors.New("broker.tls needs ca_file, cert_file and key_file"))
		}
	}
	return errors.Join(errs...)
}

func getConfigFilepath() string {
	cmdLine := pflag.NewFlagSet(os.Args[0], pflag.ExitOnError)
	arg := cmdLine.String("config", "/config.yaml", "config file")
	_ = cmdLine.Parse(os.Args[1:])
	env, ok := os.LookupEnv(configFileEnvName)
	if ok {
		return env
	}
	return *arg
}

func die(err error) {
	fmt.Printf("failed to load config file: %v\n", err)
	os.Exit(2)
}

func (c Config) Print() {
	template := `
	General:
	LogLevel=%q
	LogFile=%q
	HTTPServerAddr=%q
	ShutdownTimeout=%q

	Catalog:
	URL=%q
	Timeout=%q
	MaxAttempts=%d

	Session:
	IdleTTL=%q

	Filter:
	DefaultMinPrice=%q
	DefaultMaxPrice=%q

	BrokerConfig:
	Enabled=%t
	SeedBrokers=%q
	SchemaRegistryURLs=%q
	Topics:
		CartEvents=%q
		FilterEvents=%q
	TLS:
		Enabled=%t
		CAFile=%q

`
	fmt.Println("Loaded config:")
	fmt.Printf(
		strings.TrimLeft(template, "\n"),
		c.LogLevel,
		c.LogFile,
		c.HTTPServerAddr,
		c.ShutdownTimeout,
		c.Catalog.URL,
		c.Catalog.Timeout,
		c.Catalog.MaxAttempts,
		c.Session.IdleTTL,
		c.Filter.DefaultMinPrice,
		c.Filter.DefaultMaxPrice,
		c.Broker.Enabled,
		c.Broker.SeedBrokers,
		c.Broker.SchemaRegistryURLs,
		c.Broker.Topics.CartEvents,
		c.Broker.Topics.FilterEvents,
		c.Broker.TLS.Enabled,
		c.Broker.TLS.CAFile,
	)
}
