package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validSettings(t *testing.T) map[string]any {
	t.Helper()
	return map[string]any{
		"endpoints.loyalty_offers": "https://api.example/loyalty",
		"strings":                  "strings.yaml",
		"export.path":              "offers.json",
		"bot.token":                "123:abc",
		"bot.channel":              "@offers",
	}
}

func TestLoad_Defaults(t *testing.T) {
	v := NewViper()
	for k, val := range validSettings(t) {
		v.Set(k, val)
	}

	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	if cfg.Database.Backend != "file" || cfg.Publish.Channel != "telegram" || cfg.Publish.MaxKeys != 3 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Location.String() != "Europe/Madrid" {
		t.Fatalf("unexpected location %s", cfg.Location)
	}
	if cfg.Deadline != 24*time.Hour-time.Second {
		t.Fatalf("unexpected deadline %v", cfg.Deadline)
	}
	if len(cfg.Filter.Exclude) != 1 || cfg.Filter.Exclude[0] != "prueba" {
		t.Fatalf("unexpected exclude %v", cfg.Filter.Exclude)
	}
	if len(cfg.Publish.RequiredLevels) != 2 || len(cfg.Publish.ButtonlessLevels) != 1 || cfg.Publish.ButtonlessLevels[0] != 2 {
		t.Fatalf("unexpected levels %+v", cfg.Publish)
	}
	if cfg.Upstream.NoDailyOfferMessage != defaultNoDailyOffer {
		t.Fatalf("unexpected no daily offer message %q", cfg.Upstream.NoDailyOfferMessage)
	}
}

func TestLoad_DryRunSkipsBotSettings(t *testing.T) {
	v := NewViper()
	for k, val := range validSettings(t) {
		v.Set(k, val)
	}
	v.Set("bot.token", "")
	v.Set("dry_run", true)

	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if cfg.Publish.Channel != "dryrun" {
		t.Fatalf("expected dryrun channel, got %s", cfg.Publish.Channel)
	}
}

func TestLoad_ReportsEveryProblem(t *testing.T) {
	v := NewViper()
	v.Set("database.backend", "mysql")
	v.Set("images.folder", "/tmp/{file}")
	v.Set("filter.date_gated_sources", []string{"weekly"})

	_, err := Load(v)
	if err == nil {
		t.Fatalf("expected error")
	}

	for _, want := range []string{
		"endpoints.loyalty_offers",
		"export.path",
		"bot.token",
		"database.dsn",
		"images.folder and images.url",
		`unknown source "weekly"`,
	} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %q in %v", want, err)
		}
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("OFFERSYNC_ENDPOINTS_LOYALTY_OFFERS", "https://env.example/loyalty")
	t.Setenv("OFFERSYNC_STRINGS", "s.yaml")
	t.Setenv("OFFERSYNC_EXPORT_PATH", "out.json")
	t.Setenv("OFFERSYNC_PUBLISH_CHANNEL", "dryrun")
	t.Setenv("OFFERSYNC_TIME_DEADLINE", "22:00:00")

	cfg, err := Load(NewViper())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if cfg.Upstream.LoyaltyOffersURL != "https://env.example/loyalty" || cfg.Deadline != 22*time.Hour {
		t.Fatalf("env not applied: %+v", cfg)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
endpoints:
  loyalty_offers: https://file.example/loyalty
  calendar_offers: https://file.example/calendar
strings: strings.yaml
export:
  path: offers.json
publish:
  channel: dryrun
  exchange_url: https://redeem.example/{code}?k={authKey}
database:
  backend: sqlite
  path: state.db
filter:
  min_offer_count: 5
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	v := NewViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		t.Fatalf("read config: %v", err)
	}

	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if cfg.Database.Backend != "sqlite" || cfg.Filter.MinOfferCount != 5 || cfg.Upstream.CalendarOffersURL == "" {
		t.Fatalf("file not applied: %+v", cfg)
	}
}

func TestParseClock(t *testing.T) {
	d, err := parseClock("23:59:59")
	if err != nil || d != 24*time.Hour-time.Second {
		t.Fatalf("unexpected %v %v", d, err)
	}
	if _, err := parseClock("25:00"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestLoadDatabase_IgnoresPublishingSettings(t *testing.T) {
	v := NewViper()
	v.Set("database.backend", "redis")

	if _, err := LoadDatabase(v); err == nil || !strings.Contains(err.Error(), "database.redis.addr") {
		t.Fatalf("expected redis addr error, got %v", err)
	}

	v.Set("database.redis.addr", "localhost:6379")
	cfg, err := LoadDatabase(v)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if cfg.Backend != "redis" || cfg.Redis.Addr != "localhost:6379" {
		t.Fatalf("unexpected cfg %+v", cfg)
	}
}
