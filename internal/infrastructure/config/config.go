// Package config loads agent settings from file, environment and defaults
// via viper. Environment variables use the AGENT_ prefix with underscores,
// e.g. AGENT_LLM_MODEL overrides llm.model.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	ADB     ADBConfig     `mapstructure:"adb"`
	App     AppConfig     `mapstructure:"app"`
	Run     RunConfig     `mapstructure:"run"`
	LLM     LLMConfig     `mapstructure:"llm"`
	Log     LogConfig     `mapstructure:"log"`
	Memory  MemoryConfig  `mapstructure:"memory"`
	Overlay OverlayConfig `mapstructure:"overlay"`
}

type ADBConfig struct {
	Addr   string `mapstructure:"addr"`
	Serial string `mapstructure:"serial"`
}

type AppConfig struct {
	// Package is the Android application under automation.
	Package string `mapstructure:"package"`
}

type RunConfig struct {
	StepLimit           int           `mapstructure:"step_limit"`
	FailureThreshold    int           `mapstructure:"failure_threshold"`
	NoProgressWindow    int           `mapstructure:"no_progress_window"`
	CaptureRetries      int           `mapstructure:"capture_retries"`
	CaptureTimeout      time.Duration `mapstructure:"capture_timeout"`
	ActionTimeout       time.Duration `mapstructure:"action_timeout"`
	PlannerTimeout      time.Duration `mapstructure:"planner_timeout"`
	VerifyFromStep      int           `mapstructure:"verify_from_step"`
	VerifyFailAfterStep int           `mapstructure:"verify_fail_after_step"`
}

type LLMConfig struct {
	BaseURL           string `mapstructure:"base_url"`
	Model             string `mapstructure:"model"`
	RequestsPerMinute int    `mapstructure:"requests_per_minute"`
}

type LogConfig struct {
	Level   string `mapstructure:"level"`
	File    string `mapstructure:"file"`
	Console bool   `mapstructure:"console"`
}

type MemoryConfig struct {
	// Path of the persistent memory file; empty disables memory.
	Path string `mapstructure:"path"`
}

type OverlayConfig struct {
	// Dir receives annotated debug screenshots; empty disables them.
	Dir string `mapstructure:"dir"`
}

// Load reads the named config file, falling back to ./agent.yaml. A missing
// file is fine, defaults and environment cover everything.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("agent")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.droid-agent")
	}

	v.SetEnvPrefix("AGENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("adb.addr", "localhost:5037")
	v.SetDefault("adb.serial", "")

	v.SetDefault("app.package", "md.obsidian")

	v.SetDefault("run.step_limit", 15)
	v.SetDefault("run.failure_threshold", 3)
	v.SetDefault("run.no_progress_window", 4)
	v.SetDefault("run.capture_retries", 2)
	v.SetDefault("run.capture_timeout", "15s")
	v.SetDefault("run.action_timeout", "30s")
	v.SetDefault("run.planner_timeout", "2m")
	v.SetDefault("run.verify_from_step", 3)
	v.SetDefault("run.verify_fail_after_step", 7)

	v.SetDefault("llm.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("llm.model", "qwen/qwen2.5-vl-72b-instruct")
	v.SetDefault("llm.requests_per_minute", 20)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "logs/agent.log")
	v.SetDefault("log.console", true)

	v.SetDefault("memory.path", "agent_memory.json")
	v.SetDefault("overlay.dir", "")
}
