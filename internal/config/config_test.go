package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseChannels(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{name: "empty", raw: "", want: nil},
		{name: "only separators", raw: " , ,, ", want: nil},
		{name: "single", raw: "@grouptest", want: []string{"@grouptest"}},
		{name: "trimmed", raw: " @a , -1001234 ,b", want: []string{"@a", "-1001234", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseChannels(tt.raw))
		})
	}
}

func TestLoad_ReadsEnvironment(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "123:abc")
	t.Setenv("DATABASE_URL", "postgres://localhost/linkguard")
	t.Setenv("ADMIN_ID", "42")
	t.Setenv("SUPPORT_CHANNELS", "@one, two")
	t.Setenv("BASE_URL", "")
	t.Setenv("RENDER_EXTERNAL_URL", "https://bot.example.com/")
	t.Setenv("BROADCAST_WORKERS", "")

	cfg := Load()

	assert.Equal(t, "123:abc", cfg.TelegramToken)
	assert.Equal(t, int64(42), cfg.AdminID)
	assert.Equal(t, []string{"@one", "two"}, cfg.SupportChannels)
	assert.Equal(t, "https://bot.example.com", cfg.BaseURL)
	assert.Equal(t, 1, cfg.BroadcastWorkers)
	require.NoError(t, cfg.Validate())
}

func TestValidate_MissingRequired(t *testing.T) {
	cfg := &Config{BroadcastRate: 20, BroadcastWorkers: 1}

	err := cfg.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "TELEGRAM_TOKEN")
	assert.Contains(t, err.Error(), "DATABASE_URL")
}
