package config

import (
	"log/slog"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/spf13/viper"
)

const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

const (
	StoreDriverFile   = "file"
	StoreDriverSQLite = "sqlite"
	StoreDriverMemory = "memory"
)

const (
	DefaultRootAsset  = "https://huggingface.co/AB498/sam3/resolve/main/sam3.pt"
	DefaultSAM3Asset  = "https://huggingface.co/AB498/sam3/resolve/main/sam3.pt"
	DefaultVocabAsset = "https://huggingface.co/AB498/sam3/resolve/main/bpe_simple_vocab_16e6.txt.gz"

	// DefaultVocabTextAsset is the uncompressed vocabulary served by the
	// legacy /vocab route.
	DefaultVocabTextAsset = "https://huggingface.co/AB498/sam3/resolve/main/bpe_simple_vocab_16e6.txt"
)

type ServerConfig struct {
	Address        string `mapstructure:"address"`
	Environment    string `mapstructure:"environment"`
	ReadTimeout    string `mapstructure:"read_timeout"`
	WriteTimeout   string `mapstructure:"write_timeout"`
	MaxUploadBytes int64  `mapstructure:"max_upload_bytes"`
}

type UpstreamConfig struct {
	Path    string `mapstructure:"path"`
	Timeout string `mapstructure:"timeout"`
}

type WarmUpConfig struct {
	Path     string `mapstructure:"path"`
	Timeout  string `mapstructure:"timeout"`
	Interval string `mapstructure:"interval"`
}

type PointerStoreConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
}

type AssetsConfig struct {
	Root      string `mapstructure:"root"`
	SAM3      string `mapstructure:"sam3"`
	Vocab     string `mapstructure:"vocab"`
	VocabText string `mapstructure:"vocab_txt"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Endpoints    []string           `mapstructure:"endpoints"`
	Upstream     UpstreamConfig     `mapstructure:"upstream"`
	WarmUp       WarmUpConfig       `mapstructure:"warmup"`
	PointerStore PointerStoreConfig `mapstructure:"pointer_store"`
	Assets       AssetsConfig       `mapstructure:"assets"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// Load reads config.yaml from ./config or the working directory, overlays
// environment variables and validates the result. A missing file is not an
// error; defaults and the environment are used instead.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("server.environment", EnvDev)
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "120s")
	v.SetDefault("server.max_upload_bytes", 50<<20)
	v.SetDefault("upstream.path", "/label-image")
	v.SetDefault("upstream.timeout", "0s")
	v.SetDefault("warmup.path", "/")
	v.SetDefault("warmup.timeout", "5s")
	v.SetDefault("warmup.interval", "0s")
	v.SetDefault("pointer_store.driver", StoreDriverFile)
	v.SetDefault("pointer_store.path", "")
	v.SetDefault("assets.root", DefaultRootAsset)
	v.SetDefault("assets.sam3", DefaultSAM3Asset)
	v.SetDefault("assets.vocab", DefaultVocabAsset)
	v.SetDefault("assets.vocab_txt", DefaultVocabTextAsset)
	v.SetDefault("logging.level", LogLevelInfo)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Error("failed to read config file", slog.String("error", err.Error()))
			return nil, err
		}
		slog.Warn("config file not found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", slog.String("file", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		slog.Error("failed to unmarshal config", slog.String("error", err.Error()))
		return nil, err
	}

	// AutomaticEnv only covers keys viper already knows about, and a list
	// has no default, so ENDPOINTS is read explicitly.
	if raw := os.Getenv("ENDPOINTS"); raw != "" {
		cfg.Endpoints = splitList(raw)
	}

	cfg.applyDerivedDefaults()

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDerivedDefaults() {
	if c.PointerStore.Path != "" {
		return
	}

	switch c.PointerStore.Driver {
	case StoreDriverFile:
		c.PointerStore.Path = filepath.Join(os.TempDir(), "label-gateway-url-index.txt")
	case StoreDriverSQLite:
		c.PointerStore.Path = filepath.Join(os.TempDir(), "label-gateway.db")
	}
}

// Durations parses the duration-valued fields. It is only meaningful on a
// config that passed Validate.
func (c *Config) Durations() Durations {
	return Durations{
		ReadTimeout:     mustDuration(c.Server.ReadTimeout),
		WriteTimeout:    mustDuration(c.Server.WriteTimeout),
		UpstreamTimeout: mustDuration(c.Upstream.Timeout),
		WarmUpTimeout:   mustDuration(c.WarmUp.Timeout),
		WarmUpInterval:  mustDuration(c.WarmUp.Interval),
	}
}

type Durations struct {
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	UpstreamTimeout time.Duration
	WarmUpTimeout   time.Duration
	WarmUpInterval  time.Duration
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Server,
			validation.Required,
			validation.By(func(value interface{}) error {
				sc, ok := value.(ServerConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a ServerConfig")
				}
				return validation.ValidateStruct(&sc,
					validation.Field(&sc.Environment,
						validation.Required,
						validation.In(EnvDev, EnvStaging, EnvProd),
					),
					validation.Field(&sc.Address,
						validation.Required,
						validation.By(validateHostPort),
					),
					validation.Field(&sc.ReadTimeout, validation.Required, validation.By(validateDuration)),
					validation.Field(&sc.WriteTimeout, validation.Required, validation.By(validateDuration)),
					validation.Field(&sc.MaxUploadBytes, validation.Required, validation.Min(int64(1))),
				)
			}),
		),
		validation.Field(&c.Logging,
			validation.Required,
			validation.By(func(value interface{}) error {
				lc, ok := value.(LoggingConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a LoggingConfig")
				}
				return validation.ValidateStruct(&lc,
					validation.Field(&lc.Level,
						validation.Required,
						validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
					),
				)
			}),
		),
		validation.Field(&c.Endpoints,
			validation.Required,
			validation.Length(1, 0),
			validation.Each(validation.By(validateEndpointURL)),
		),
		validation.Field(&c.Upstream,
			validation.By(func(value interface{}) error {
				uc, ok := value.(UpstreamConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be an UpstreamConfig")
				}
				return validation.ValidateStruct(&uc,
					validation.Field(&uc.Path, validation.Required, validation.By(validatePath)),
					validation.Field(&uc.Timeout, validation.Required, validation.By(validateDuration)),
				)
			}),
		),
		validation.Field(&c.WarmUp,
			validation.By(func(value interface{}) error {
				wc, ok := value.(WarmUpConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a WarmUpConfig")
				}
				return validation.ValidateStruct(&wc,
					validation.Field(&wc.Path, validation.Required, validation.By(validatePath)),
					validation.Field(&wc.Timeout, validation.Required, validation.By(validatePositiveDuration)),
					validation.Field(&wc.Interval, validation.Required, validation.By(validateDuration)),
				)
			}),
		),
		validation.Field(&c.PointerStore,
			validation.Required,
			validation.By(func(value interface{}) error {
				pc, ok := value.(PointerStoreConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a PointerStoreConfig")
				}
				return validation.ValidateStruct(&pc,
					validation.Field(&pc.Driver,
						validation.Required,
						validation.In(StoreDriverFile, StoreDriverSQLite, StoreDriverMemory),
					),
					validation.Field(&pc.Path,
						validation.When(pc.Driver != StoreDriverMemory, validation.Required),
					),
				)
			}),
		),
		validation.Field(&c.Assets,
			validation.Required,
			validation.By(func(value interface{}) error {
				ac, ok := value.(AssetsConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be an AssetsConfig")
				}
				return validation.ValidateStruct(&ac,
					validation.Field(&ac.Root, validation.Required, is.URL),
					validation.Field(&ac.SAM3, validation.Required, is.URL),
					validation.Field(&ac.Vocab, validation.Required, is.URL),
					validation.Field(&ac.VocabText, validation.Required, is.URL),
				)
			}),
		),
	)
}

func validateHostPort(value interface{}) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}

	if port == "" {
		return validation.NewError("validation_invalid_port", "port cannot be empty")
	}

	if host != "" {
		if err := is.Host.Validate(host); err != nil {
			return validation.NewError("validation_invalid_host", "invalid host")
		}
	}

	return nil
}

func validateDuration(value interface{}) error {
	durationStr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	d, err := time.ParseDuration(durationStr)
	if err != nil {
		return validation.NewError("validation_invalid_duration", "must be a valid duration (e.g., 2s, 5m, 1h)")
	}

	if d < 0 {
		return validation.NewError("validation_negative_duration", "must not be negative")
	}

	return nil
}

func validatePositiveDuration(value interface{}) error {
	if err := validateDuration(value); err != nil {
		return err
	}

	if mustDuration(value.(string)) == 0 {
		return validation.NewError("validation_zero_duration", "must be greater than zero")
	}

	return nil
}

func validatePath(value interface{}) error {
	p, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if !strings.HasPrefix(p, "/") {
		return validation.NewError("validation_invalid_path", "must start with /")
	}

	return nil
}

func validateEndpointURL(value interface{}) error {
	endpointURL, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if endpointURL == "" {
		return validation.NewError("validation_empty_url", "endpoint URL cannot be empty")
	}

	parsedURL, err := url.Parse(endpointURL)
	if err != nil {
		return validation.NewError("validation_invalid_url", "must be a valid URL")
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return validation.NewError("validation_invalid_scheme", "URL must use http or https scheme")
	}

	if parsedURL.Host == "" {
		return validation.NewError("validation_missing_host", "URL must have a host")
	}

	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func mustDuration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}
