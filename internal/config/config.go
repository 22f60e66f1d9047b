package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Difficulty is one quiz preset: answer strictness plus hint cadence.
type Difficulty struct {
	Mode             string `yaml:"mode"`
	TimeBetweenHints string `yaml:"time_between_hints"`
	MaxHints         int    `yaml:"max_hints"`
	Description      string `yaml:"description"`
}

type Quiz struct {
	PollPeriod           string                `yaml:"poll_period"`
	TimeBetweenQuestions string                `yaml:"time_between_questions"`
	RegistrationWindow   string                `yaml:"registration_window"`
	CloseAnswerWindow    string                `yaml:"close_answer_window"`
	DefaultLangs         []string              `yaml:"default_langs"`
	LangsByGuild         map[int64][]string    `yaml:"langs_by_guild"`
	Difficulties         map[string]Difficulty `yaml:"difficulties"`
}

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Ratings struct {
		Path string `yaml:"path"`
	} `yaml:"ratings"`
	Catalogue struct {
		TTL string `yaml:"ttl"`
	} `yaml:"catalogue"`
	Quiz Quiz `yaml:"quiz"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Duration parses a duration string or returns the fallback if empty or
// invalid.
func Duration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

// DefaultDifficulties is used when the config file defines none.
func DefaultDifficulties() map[string]Difficulty {
	return map[string]Difficulty{
		"easy": {
			Mode:             "very permissive",
			TimeBetweenHints: "15s",
			MaxHints:         5,
			Description:      "- easy: generous matching, frequent hints",
		},
		"normal": {
			Mode:             "permissive",
			TimeBetweenHints: "20s",
			MaxHints:         4,
			Description:      "- normal: accents forgiven, regular hints",
		},
		"hardcore": {
			Mode:             "strict",
			TimeBetweenHints: "30s",
			MaxHints:         2,
			Description:      "- hardcore: exact answers only, few hints",
		},
	}
}

// DefaultLangs falls back to French, the original game tables' base language.
func (q Quiz) DefaultLangsOrFallback() []string {
	if len(q.DefaultLangs) > 0 {
		return q.DefaultLangs
	}
	return []string{"fr"}
}

// DifficultiesOrDefault returns the configured presets, or the built-in ones.
func (q Quiz) DifficultiesOrDefault() map[string]Difficulty {
	if len(q.Difficulties) > 0 {
		return q.Difficulties
	}
	return DefaultDifficulties()
}
