package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/go-playground/validator.v9"
	"gopkg.in/yaml.v3"
)

// BaseRegistrarMainnet is the ENS .eth BaseRegistrar (ERC-721) on Ethereum mainnet.
const BaseRegistrarMainnet = "0x57f1887a8BF19b14fC0dF6Fd9B2acc9Af147eA85"

type Config struct {
	Ethereum Ethereum `yaml:"ethereum"`
	Storage  Storage  `yaml:"storage"`
	Telegram Telegram `yaml:"telegram"`
	Prompt   Prompt   `yaml:"prompt"`
	Schedule Schedule `yaml:"schedule"`
	API      API      `yaml:"api"`
	Log      Log      `yaml:"log"`
	Timezone string   `yaml:"timezone"`
}

type Ethereum struct {
	RPCURL       string        `yaml:"rpcURL" validate:"required"`
	Registrar    string        `yaml:"registrar" validate:"required"`
	QueryTimeout time.Duration `yaml:"queryTimeout"`
}

type Storage struct {
	Engine string `yaml:"engine" validate:"oneof=file bolt memory"`
	Path   string `yaml:"path"`
}

type Telegram struct {
	BotToken string `yaml:"botToken"`
	ChatID   int64  `yaml:"chatID"`
}

type Prompt struct {
	Mode    string        `yaml:"mode" validate:"oneof=telegram terminal auto"`
	Timeout time.Duration `yaml:"timeout"`
}

type Schedule struct {
	CheckInterval  time.Duration `yaml:"checkInterval"`
	UpdateInterval time.Duration `yaml:"updateInterval"`
}

type API struct {
	Listen string  `yaml:"listen"`
	RPS    float64 `yaml:"rps"`
}

type Log struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSize    int    `yaml:"maxSize"`
	MaxBackups int    `yaml:"maxBackups"`
	Compress   bool   `yaml:"compress"`
}

var Cfg Config

// Load reads path into Cfg, fills defaults and validates the result.
func Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return err
	}
	Cfg = c
	return nil
}

func (c *Config) applyDefaults() {
	if c.Ethereum.Registrar == "" {
		c.Ethereum.Registrar = BaseRegistrarMainnet
	}
	if c.Ethereum.QueryTimeout == 0 {
		c.Ethereum.QueryTimeout = 15 * time.Second
	}
	if c.Storage.Engine == "" {
		c.Storage.Engine = "file"
	}
	if c.Storage.Path == "" {
		switch c.Storage.Engine {
		case "bolt":
			c.Storage.Path = "data/bolt"
		case "file":
			c.Storage.Path = "watchlist.json"
		}
	}
	if c.Prompt.Mode == "" {
		if c.Telegram.BotToken != "" {
			c.Prompt.Mode = "telegram"
		} else {
			c.Prompt.Mode = "auto"
		}
	}
	if c.Prompt.Timeout == 0 {
		c.Prompt.Timeout = 5 * time.Minute
	}
	if c.Schedule.CheckInterval == 0 {
		c.Schedule.CheckInterval = 24 * time.Hour
	}
	if c.Schedule.UpdateInterval == 0 {
		c.Schedule.UpdateInterval = 6 * time.Hour
	}
	if c.API.Listen == "" {
		c.API.Listen = ":8080"
	}
	if c.API.RPS == 0 {
		c.API.RPS = 5
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}
}

// Validate checks struct constraints plus the cross-field rules the tags cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Prompt.Mode == "telegram" && strings.TrimSpace(c.Telegram.BotToken) == "" {
		return fmt.Errorf("invalid config: prompt mode telegram needs telegram.botToken")
	}
	if c.Storage.Engine != "memory" && strings.TrimSpace(c.Storage.Path) == "" {
		return fmt.Errorf("invalid config: storage.path is empty")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid config: timezone %q: %w", c.Timezone, err)
	}
	return nil
}

// Location returns the configured notification time zone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
