package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	models "github.com/progate-hackathon-strawberry-flavor/GITRIS-engine/internal/models/tetris"
	"github.com/progate-hackathon-strawberry-flavor/GITRIS-engine/internal/services/tetris"
)

// Config はサーバーとドライバの設定です。環境変数から読み込みます。
type Config struct {
	Port           string
	AppEnv         string
	AllowedOrigins []string
	JWTSecret      string
	BypassAuth     bool
	TickInterval   time.Duration
	GameSeed       int64
	StartLevel     int
	Dimensions     models.Dimensions
}

// Load は production 以外では .env を読み込んでから、環境変数で設定を作ります。
func Load() (*Config, error) {
	if os.Getenv("APP_ENV") != "production" {
		if err := godotenv.Load(); err != nil {
			log.Printf("warning: Error loading .env file (this is fine in production): %v", err)
		}
	}
	return FromEnv()
}

// FromEnv は環境変数だけから設定を作ります。未設定の項目はデフォルト値になります。
//
// Returns:
//   *Config: 読み込んだ設定
//   error: 値が不正な場合
func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:       getEnv("PORT", "8080"),
		AppEnv:     getEnv("APP_ENV", "development"),
		JWTSecret:  os.Getenv("JWT_SECRET"),
		BypassAuth: os.Getenv("BYPASS_AUTH") == "true",
		Dimensions: models.DefaultDimensions(),
	}
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		for _, origin := range strings.Split(origins, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
			}
		}
	}

	var err error
	if cfg.TickInterval, err = durationEnv("TICK_INTERVAL", tetris.DefaultTickInterval); err != nil {
		return nil, err
	}
	if cfg.TickInterval <= 0 {
		return nil, fmt.Errorf("TICK_INTERVAL must be positive, got %s", cfg.TickInterval)
	}
	seed, err := intEnv("GAME_SEED", 0)
	if err != nil {
		return nil, err
	}
	cfg.GameSeed = int64(seed)
	if cfg.StartLevel, err = intEnv("START_LEVEL", 1); err != nil {
		return nil, err
	}
	if cfg.Dimensions.Width, err = intEnv("BOARD_WIDTH", models.BoardWidth); err != nil {
		return nil, err
	}
	if cfg.Dimensions.Height, err = intEnv("BOARD_HEIGHT", models.BoardHeight); err != nil {
		return nil, err
	}
	if cfg.Dimensions.VisibleHeight, err = intEnv("BOARD_VISIBLE_HEIGHT", models.VisibleHeight); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate は設定の組み合わせを確認します。
func (c *Config) Validate() error {
	if err := c.Dimensions.Validate(); err != nil {
		return fmt.Errorf("invalid board size: %w", err)
	}
	if c.StartLevel < 1 {
		return fmt.Errorf("START_LEVEL must be at least 1, got %d", c.StartLevel)
	}
	return nil
}

// ValidateServer は API サーバーとして起動するための追加の確認を行います。
func (c *Config) ValidateServer() error {
	if !c.BypassAuth && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required unless BYPASS_AUTH=true")
	}
	return nil
}

// GameSettings は新しいゲームに使う設定を返します。
func (c *Config) GameSettings() tetris.GameSettings {
	return tetris.GameSettings{
		Dimensions: c.Dimensions,
		StartLevel: c.StartLevel,
		Seed:       c.GameSeed,
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
