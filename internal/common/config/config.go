package config

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Debug bool `env:"DEBUG" envDefault:"false"`

	Server struct {
		Port       int    `env:"PORT" envDefault:"8080"`
		Origin     string `env:"ORIGIN" envDefault:"http://localhost:3000"`
		AdminToken string `env:"ADMIN_TOKEN"`
	}

	Storage struct {
		// Backend selects the record store: "sqlite" (file-backed, default)
		// or "redis" (out-of-process).
		Backend string `env:"STORAGE_BACKEND" envDefault:"sqlite"`
		Path    string `env:"DB_PATH" envDefault:"xp.db"`
	}

	Redis struct {
		Host     string `env:"REDIS_HOST" envDefault:"localhost"`
		Port     int    `env:"REDIS_PORT" envDefault:"6379"`
		Password string `env:"REDIS_PASSWORD" envDefault:""`
		DB       int    `env:"REDIS_DB" envDefault:"0"`
	}

	Bot struct {
		Token   string `env:"BOT_TOKEN"`
		GuildID string `env:"GUILD_ID"`
	}

	Forum struct {
		ChannelID        string        `env:"FORUM_CHANNEL_ID,required"`
		PinEmoji         string        `env:"PIN_EMOJI" envDefault:"📌"`
		XPPerPin         int64         `env:"XP_PER_PIN" envDefault:"5"`
		XPPerPost        int64         `env:"XP_PER_POST" envDefault:"5"`
		AutoReplyMessage string        `env:"AUTO_REPLY_MESSAGE"`
		AutoReplyDelay   time.Duration `env:"AUTO_REPLY_DELAY" envDefault:"2s"`
		LogChannelID     string        `env:"LOG_CHANNEL_ID"`
	}

	Levels struct {
		// Thresholds maps level -> minimum cumulative XP, e.g. "1:5,2:15,3:35".
		Thresholds map[int]int64 `env:"LEVEL_THRESHOLDS,required" envSeparator:"," envKeyValSeparator:":"`
		// Roles maps level -> role ID, e.g. "1:111,2:222". Levels without a
		// bound role are allowed.
		Roles map[int]string `env:"LEVEL_ROLES" envSeparator:"," envKeyValSeparator:":"`
	}

	Maintenance struct {
		CloseAfterHours  float64       `env:"CLOSE_TIME_HOURS"`
		LockAfterHours   float64       `env:"LOCK_TIME_HOURS"`
		ExcludeThreadIDs []string      `env:"EXCLUDE_THREAD_IDS" envSeparator:","`
		SweepInterval    time.Duration `env:"SWEEP_INTERVAL" envDefault:"5m"`
	}

	// RolePingTriggersJSON holds the raw JSON array from the environment;
	// RolePingTriggers is the parsed form.
	RolePingTriggersJSON string            `env:"ROLE_PING_TRIGGERS"`
	RolePingTriggers     []RolePingTrigger `env:"-"`
}

// RolePingTrigger fans a mention of TriggerRoleID out to PingRoleIDs.
type RolePingTrigger struct {
	Name          string   `json:"name"`
	TriggerRoleID string   `json:"trigger_role_id"`
	PingRoleIDs   []string `json:"ping_role_ids"`
	Message       string   `json:"message,omitempty"`
}

func Load() (*Config, error) {
	// A missing .env file is fine; in production the variables are set
	// directly.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if cfg.RolePingTriggersJSON != "" {
		if err := json.Unmarshal([]byte(cfg.RolePingTriggersJSON), &cfg.RolePingTriggers); err != nil {
			return nil, fmt.Errorf("parse ROLE_PING_TRIGGERS: %w", err)
		}
	}

	if err := ValidateThresholds(cfg.Levels.Thresholds); err != nil {
		return nil, err
	}

	return cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// ValidateThresholds enforces strictly increasing minimum XP per level.
func ValidateThresholds(thresholds map[int]int64) error {
	if len(thresholds) == 0 {
		return fmt.Errorf("LEVEL_THRESHOLDS must define at least one level")
	}

	levels := make([]int, 0, len(thresholds))
	for level := range thresholds {
		if level < 1 {
			return fmt.Errorf("LEVEL_THRESHOLDS: level %d is invalid, levels start at 1", level)
		}
		levels = append(levels, level)
	}
	sort.Ints(levels)

	prev := int64(-1)
	for _, level := range levels {
		xp := thresholds[level]
		if xp < 0 {
			return fmt.Errorf("LEVEL_THRESHOLDS: level %d has negative threshold %d", level, xp)
		}
		if xp <= prev {
			return fmt.Errorf("LEVEL_THRESHOLDS: threshold for level %d must be greater than the previous level", level)
		}
		prev = xp
	}

	return nil
}
