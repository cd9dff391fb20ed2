package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"TrendSentinel/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "yahoo", cfg.DataSource.Provider)
	assert.Equal(t, 2, cfg.DataSource.Retries)
	assert.Equal(t, 12*time.Hour, cfg.Cache.TTL)
	assert.Equal(t, "enhanced", cfg.Scan.Profile)
	assert.Equal(t, 50, cfg.Scan.BatchSize)
	assert.Equal(t, 300, cfg.Scan.DailyBars)
	assert.Equal(t, "0 30 22 * * 1-5", cfg.Schedule.ScanCron)
	assert.Equal(t, 3, cfg.Scan.Pattern.MinPullbacks)
	assert.Equal(t, 20.0, cfg.Scan.Extension.MaxROC10)
}

func TestLoad_YAMLAndEnvOverrides(t *testing.T) {
	path := writeFile(t, "config.yaml", `
telegram:
  bot_token: from-file
  chat_id: "42"
data_source:
  base_url: https://bars.example.com
  retry_backoff: 500ms
cache:
  ttl: 6h
scan:
  profile: core
  symbols: [aapl, msft]
  etfs: [spy, " qqq", SPY]
  pattern:
    proximity_pct: 2.5
  extension:
    max_roc10: 15
schedule:
  run_on_start: true
`)
	t.Setenv("TELEGRAM_BOT_TOKEN", "from-env")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("RUN_ON_START", "false")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Telegram.BotToken)
	assert.Equal(t, "42", cfg.Telegram.ChatID)
	assert.Equal(t, "rest", cfg.DataSource.Provider, "a base URL selects the REST provider")
	assert.Equal(t, 500*time.Millisecond, cfg.DataSource.RetryBackoff)
	assert.Equal(t, 6*time.Hour, cfg.Cache.TTL)
	assert.Equal(t, 2.5, cfg.Scan.Pattern.ProximityPct)
	assert.Equal(t, 50, cfg.Scan.Pattern.ResistanceLookback, "unset pattern fields keep their defaults")
	assert.Equal(t, 15.0, cfg.Scan.Extension.MaxROC10)
	assert.Equal(t, 3, cfg.Scan.Extension.ClimaxSessions)
	assert.Equal(t, []string{"SPY", "QQQ"}, cfg.Scan.ETFs)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.False(t, cfg.Schedule.RunOnStart)
	require.NoError(t, cfg.Validate())
}

func TestLoad_BadYAML(t *testing.T) {
	_, err := Load(writeFile(t, "config.yaml", "scan: [unterminated"))
	assert.ErrorIs(t, err, model.ErrConfiguration)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"unknown provider", func(c *Config) { c.DataSource.Provider = "bloomberg" }},
		{"rest without base url", func(c *Config) { c.DataSource.Provider = "rest" }},
		{"token without chat", func(c *Config) { c.Telegram.BotToken = "t" }},
		{"short history window", func(c *Config) { c.Scan.DailyBars = 100 }},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }},
		{"no symbols", func(c *Config) { c.Scan.Symbols = nil }},
		{"unknown profile", func(c *Config) { c.Scan.Profile = "nope" }},
		{"inverted resistance window", func(c *Config) { c.Scan.Pattern.ResistanceExclude = 60 }},
		{"zero retries", func(c *Config) { c.DataSource.Retries = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Scan.Symbols = []string{"AAPL"}
			require.NoError(t, cfg.Validate())

			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), model.ErrConfiguration)
		})
	}
}

func TestProfiles_FileOverridesBuiltin(t *testing.T) {
	path := writeFile(t, "profiles.yaml", `
profiles:
  - name: trend_only
    components: [trend]
    max: 10
    qualify_threshold: 8
    ladder:
      - {min_score: 8, statuses: [broken_out, imminent], category: buy}
      - {min_score: 5, category: watchlist}
`)
	cfg := Default()
	cfg.Scan.ProfilesFile = path
	cfg.Scan.Profile = "trend_only"

	profiles, err := cfg.Profiles()
	require.NoError(t, err)
	assert.Contains(t, profiles, "core")

	p, err := cfg.Profile()
	require.NoError(t, err)
	assert.Equal(t, 10.0, p.Max())
	require.Len(t, p.Ladder, 2)
	assert.Equal(t, []model.BreakoutStatus{model.BreakoutBrokenOut, model.BreakoutImminent}, p.Ladder[0].Statuses)
	assert.Equal(t, model.CategoryBuy, p.Ladder[0].Category)
}

func TestProfiles_InvalidFileProfile(t *testing.T) {
	path := writeFile(t, "profiles.yaml", `
profiles:
  - name: broken
    components: [trend]
    max: 99
    ladder:
      - {min_score: 5, category: watchlist}
`)
	cfg := Default()
	cfg.Scan.ProfilesFile = path

	_, err := cfg.Profiles()
	assert.ErrorIs(t, err, model.ErrConfiguration)
}

func TestUniverse(t *testing.T) {
	path := writeFile(t, "symbols.txt", `
# large caps
aapl, msft
NVDA  AAPL   # duplicate
spy;qqq
`)
	cfg := Default()
	cfg.Scan.Symbols = []string{" tsla ", "msft"}
	cfg.Scan.SymbolsFile = path

	got, err := cfg.Universe()
	require.NoError(t, err)
	assert.Equal(t, []string{"TSLA", "MSFT", "AAPL", "NVDA", "SPY", "QQQ"}, got)
}

func TestUniverse_MissingFile(t *testing.T) {
	cfg := Default()
	cfg.Scan.SymbolsFile = filepath.Join(t.TempDir(), "nope.txt")
	_, err := cfg.Universe()
	assert.Error(t, err)
}

func TestLoad_SymbolsFromEnv(t *testing.T) {
	t.Setenv("SYMBOLS", "aapl,msft")
	t.Setenv("ETFS", "spy iwm")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, []string{"aapl", "msft"}, cfg.Scan.Symbols)
	assert.Equal(t, []string{"SPY", "IWM"}, cfg.Scan.ETFs)

	got, err := cfg.Universe()
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, got)
}
