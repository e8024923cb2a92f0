package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/progate-hackathon-strawberry-flavor/GITRIS-engine/internal/services/tetris"
)

var configKeys = []string{
	"PORT", "APP_ENV", "ALLOWED_ORIGINS", "JWT_SECRET", "BYPASS_AUTH",
	"TICK_INTERVAL", "GAME_SEED", "START_LEVEL",
	"BOARD_WIDTH", "BOARD_HEIGHT", "BOARD_VISIBLE_HEIGHT",
}

// clearEnv は設定に関係する環境変数をテスト中だけ空にします。
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		t.Setenv(key, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("BYPASS_AUTH", "true")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.AppEnv)
	assert.True(t, cfg.BypassAuth)
	assert.Equal(t, tetris.DefaultTickInterval, cfg.TickInterval)
	assert.Equal(t, 1, cfg.StartLevel)
	assert.Equal(t, 10, cfg.Dimensions.Width)
	assert.Equal(t, 40, cfg.Dimensions.Height)
	assert.Equal(t, 20, cfg.Dimensions.VisibleHeight)
	assert.Empty(t, cfg.AllowedOrigins)
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("ALLOWED_ORIGINS", "http://a.example, http://b.example ,")
	t.Setenv("TICK_INTERVAL", "10ms")
	t.Setenv("GAME_SEED", "123")
	t.Setenv("START_LEVEL", "3")
	t.Setenv("BOARD_WIDTH", "8")
	t.Setenv("BOARD_HEIGHT", "30")
	t.Setenv("BOARD_VISIBLE_HEIGHT", "16")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Port)
	assert.False(t, cfg.BypassAuth)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, 10*time.Millisecond, cfg.TickInterval)

	settings := cfg.GameSettings()
	assert.Equal(t, int64(123), settings.Seed)
	assert.Equal(t, 3, settings.StartLevel)
	assert.Equal(t, 8, settings.Dimensions.Width)
	assert.Equal(t, 30, settings.Dimensions.Height)
	assert.Equal(t, 16, settings.Dimensions.VisibleHeight)

	_, err = tetris.NewGameState(settings)
	assert.NoError(t, err)
}

func TestFromEnv_Invalid(t *testing.T) {
	cases := map[string]map[string]string{
		"bad tick":        {"TICK_INTERVAL": "fast"},
		"negative tick":   {"TICK_INTERVAL": "-1s"},
		"bad seed":        {"GAME_SEED": "abc"},
		"level zero":      {"START_LEVEL": "0"},
		"narrow board":    {"BOARD_WIDTH": "2"},
		"no buffer rows":  {"BOARD_HEIGHT": "20"},
		"non-int visible": {"BOARD_VISIBLE_HEIGHT": "x"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("BYPASS_AUTH", "true")
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}

func TestValidateServer(t *testing.T) {
	clearEnv(t)
	cfg, err := FromEnv()
	require.NoError(t, err, "drivers do not need a JWT secret")
	assert.Error(t, cfg.ValidateServer())

	cfg.JWTSecret = "secret"
	assert.NoError(t, cfg.ValidateServer())

	cfg.JWTSecret = ""
	cfg.BypassAuth = true
	assert.NoError(t, cfg.ValidateServer())
}

func TestLoad_ReadsDotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("BYPASS_AUTH=true\nPORT=7070\n"), 0o600))
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	// t.Setenv で空にした変数は godotenv では上書きされないので、ここで消しておく
	os.Unsetenv("BYPASS_AUTH")
	os.Unsetenv("PORT")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.Port)
	assert.True(t, cfg.BypassAuth)
}
