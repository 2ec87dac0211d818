package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	envPrefix            = "OFFERSYNC"
	defaultLogLevel      = "info"
	defaultBackend       = "file"
	defaultDatabasePath  = "offersync-state.json"
	defaultTimezone      = "Europe/Madrid"
	defaultDeadline      = "23:59:59"
	defaultMinOfferCount = 1
	defaultMaxKeys       = 3
	defaultChannel       = "telegram"
	defaultNoDailyOffer  = "KO (message was: Daily offer not found)"
	defaultTelegramAPI   = "https://api.telegram.org"
	defaultUserAgent     = "offersync"
)

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Key      string
}

type DatabaseConfig struct {
	Backend string // file | memory | sqlite | mysql | redis
	Path    string
	DSN     string
	Redis   RedisConfig
}

type UpstreamConfig struct {
	LoyaltyOffersURL  string
	CalendarOffersURL string
	Proxy             string
	Cert              string
	CertPassword      string
	Timeout           time.Duration
	UserAgent         string
	// NoDailyOfferMessage is the API error message that means "no calendar offer today".
	NoDailyOfferMessage string
}

type FilterConfig struct {
	MinOfferCount    int
	Exclude          []string
	DateGatedSources []string
}

type PublishConfig struct {
	Channel          string // telegram | dryrun
	ExchangeURL      string
	ButtonlessLevels []int
	MaxKeys          int
	RequiredLevels   []int
}

type BotConfig struct {
	Token   string
	Channel string
	APIURL  string
}

type TracingConfig struct {
	Enabled     bool
	Endpoint    string
	Environment string
}

// AppConfig captures the runtime configuration of a sync.
type AppConfig struct {
	LogLevel string
	Every    time.Duration

	Database DatabaseConfig
	Upstream UpstreamConfig
	Filter   FilterConfig
	Publish  PublishConfig
	Bot      BotConfig
	Tracing  TracingConfig

	Location *time.Location
	// Deadline is the offset from midnight at which date-only windows close.
	Deadline time.Duration

	StringsPath     string
	ExportPath      string
	SigningKeyPath  string
	ImagesFolder    string
	ImagesURL       string
	MemberCountFile string
}

// LoadDotEnv loads .env into the process environment when present.
func LoadDotEnv() {
	_ = godotenv.Load()
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	v := viper.New()
	ApplyDefaults(v)
	return v
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(v *viper.Viper) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("log.level", defaultLogLevel)
	v.SetDefault("sync.every", "0s")
	v.SetDefault("dry_run", false)

	v.SetDefault("database.backend", defaultBackend)
	v.SetDefault("database.path", defaultDatabasePath)
	v.SetDefault("database.redis.db", 0)

	v.SetDefault("upstream.timeout", "0s")
	v.SetDefault("upstream.user_agent", defaultUserAgent)
	v.SetDefault("upstream.no_daily_offer_message", defaultNoDailyOffer)

	v.SetDefault("time.timezone", defaultTimezone)
	v.SetDefault("time.deadline", defaultDeadline)

	v.SetDefault("filter.min_offer_count", defaultMinOfferCount)
	v.SetDefault("filter.exclude", []string{"prueba"})
	v.SetDefault("filter.date_gated_sources", []string{"calendar"})

	v.SetDefault("auth.max_keys", defaultMaxKeys)
	v.SetDefault("auth.required_levels", []int{1, 2})

	v.SetDefault("publish.channel", defaultChannel)
	v.SetDefault("publish.buttonless_levels", []int{2})

	v.SetDefault("bot.api_url", defaultTelegramAPI)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.environment", "production")
}

// Load parses runtime configuration from viper.
func Load(v *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		LogLevel: v.GetString("log.level"),
		Every:    v.GetDuration("sync.every"),

		Database: loadDatabase(v),
		Upstream: UpstreamConfig{
			LoyaltyOffersURL:    v.GetString("endpoints.loyalty_offers"),
			CalendarOffersURL:   v.GetString("endpoints.calendar_offers"),
			Proxy:               v.GetString("upstream.proxy"),
			Cert:                v.GetString("upstream.cert"),
			CertPassword:        v.GetString("upstream.cert_password"),
			Timeout:             v.GetDuration("upstream.timeout"),
			UserAgent:           v.GetString("upstream.user_agent"),
			NoDailyOfferMessage: v.GetString("upstream.no_daily_offer_message"),
		},
		Filter: FilterConfig{
			MinOfferCount:    v.GetInt("filter.min_offer_count"),
			Exclude:          v.GetStringSlice("filter.exclude"),
			DateGatedSources: v.GetStringSlice("filter.date_gated_sources"),
		},
		Publish: PublishConfig{
			Channel:          strings.ToLower(strings.TrimSpace(v.GetString("publish.channel"))),
			ExchangeURL:      v.GetString("publish.exchange_url"),
			ButtonlessLevels: v.GetIntSlice("publish.buttonless_levels"),
			MaxKeys:          v.GetInt("auth.max_keys"),
			RequiredLevels:   v.GetIntSlice("auth.required_levels"),
		},
		Bot: BotConfig{
			Token:   v.GetString("bot.token"),
			Channel: v.GetString("bot.channel"),
			APIURL:  v.GetString("bot.api_url"),
		},
		Tracing: TracingConfig{
			Enabled:     v.GetBool("tracing.enabled"),
			Endpoint:    v.GetString("tracing.endpoint"),
			Environment: v.GetString("tracing.environment"),
		},

		StringsPath:     v.GetString("strings"),
		ExportPath:      v.GetString("export.path"),
		SigningKeyPath:  v.GetString("export.signing_key"),
		ImagesFolder:    v.GetString("images.folder"),
		ImagesURL:       v.GetString("images.url"),
		MemberCountFile: v.GetString("stats.member_count_file"),
	}

	if v.GetBool("dry_run") {
		cfg.Publish.Channel = "dryrun"
	}

	loc, err := time.LoadLocation(v.GetString("time.timezone"))
	if err != nil {
		return AppConfig{}, fmt.Errorf("time.timezone: %w", err)
	}
	cfg.Location = loc

	deadline, err := parseClock(v.GetString("time.deadline"))
	if err != nil {
		return AppConfig{}, fmt.Errorf("time.deadline: %w", err)
	}
	cfg.Deadline = deadline

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

// LoadDatabase reads only the state store settings, for commands that never publish.
func LoadDatabase(v *viper.Viper) (DatabaseConfig, error) {
	cfg := loadDatabase(v)
	if err := errors.Join(cfg.validate()...); err != nil {
		return DatabaseConfig{}, err
	}
	return cfg, nil
}

func loadDatabase(v *viper.Viper) DatabaseConfig {
	return DatabaseConfig{
		Backend: strings.ToLower(strings.TrimSpace(v.GetString("database.backend"))),
		Path:    v.GetString("database.path"),
		DSN:     v.GetString("database.dsn"),
		Redis: RedisConfig{
			Addr:     v.GetString("database.redis.addr"),
			Password: v.GetString("database.redis.password"),
			DB:       v.GetInt("database.redis.db"),
			Key:      v.GetString("database.redis.key"),
		},
	}
}

func (d DatabaseConfig) validate() []error {
	var errs []error
	switch d.Backend {
	case "file", "sqlite":
		if strings.TrimSpace(d.Path) == "" {
			errs = append(errs, errors.New("database.path is required"))
		}
	case "mysql":
		if strings.TrimSpace(d.DSN) == "" {
			errs = append(errs, errors.New("database.dsn is required"))
		}
	case "redis":
		if strings.TrimSpace(d.Redis.Addr) == "" {
			errs = append(errs, errors.New("database.redis.addr is required"))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("database.backend %q is not supported", d.Backend))
	}
	return errs
}

// parseClock reads HH:MM:SS as an offset from midnight.
func parseClock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04:05", strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute + time.Duration(t.Second())*time.Second, nil
}

func (c AppConfig) validate() error {
	var errs []error

	if strings.TrimSpace(c.Upstream.LoyaltyOffersURL) == "" {
		errs = append(errs, errors.New("endpoints.loyalty_offers is required"))
	}
	if strings.TrimSpace(c.StringsPath) == "" {
		errs = append(errs, errors.New("strings is required"))
	}
	if strings.TrimSpace(c.ExportPath) == "" {
		errs = append(errs, errors.New("export.path is required"))
	}

	switch c.Publish.Channel {
	case "telegram":
		if strings.TrimSpace(c.Bot.Token) == "" {
			errs = append(errs, errors.New("bot.token is required"))
		}
		if strings.TrimSpace(c.Bot.Channel) == "" {
			errs = append(errs, errors.New("bot.channel is required"))
		}
	case "dryrun":
	default:
		errs = append(errs, fmt.Errorf("publish.channel %q is not supported (use telegram or dryrun)", c.Publish.Channel))
	}

	errs = append(errs, c.Database.validate()...)

	if (c.ImagesFolder == "") != (c.ImagesURL == "") {
		errs = append(errs, errors.New("images.folder and images.url must be set together"))
	}
	if c.Publish.MaxKeys < 1 {
		errs = append(errs, errors.New("auth.max_keys must be at least 1"))
	}
	if c.Filter.MinOfferCount < 0 {
		errs = append(errs, errors.New("filter.min_offer_count must not be negative"))
	}
	for _, s := range c.Filter.DateGatedSources {
		if s != "catalog" && s != "calendar" {
			errs = append(errs, fmt.Errorf("filter.date_gated_sources: unknown source %q", s))
		}
	}

	return errors.Join(errs...)
}
