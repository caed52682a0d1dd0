// internal/config/config.go
// Package config loads cwkey settings through viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	AppName       = "cwkey"
	ConfigType    = "yaml"
	DefaultConfig = `# cwkey configuration

# Keying clock
timer_hz: 32768         # Tick source frequency in Hz
unit_counts: 1000       # Timer counts per Morse unit (1000 @ 32768 Hz ~ 30.5 ms)

# Operation
mode: "decode"          # decode (key -> serial) or receive (serial -> indicator)
overrun_policy: "drop"  # drop or stall when the 127-byte buffer is full
key_source: "audio"     # audio (keyed tone on the input device) or none
indicator: "sidetone"   # sidetone, log or none

# Audio
device_index: -1        # -1 for default device
sample_rate: 48000      # Audio sample rate in Hz
tone_frequency: 600     # Key tone and sidetone frequency in Hz
block_size: 256         # Samples per tone measurement
threshold: 0.4          # Tone magnitude (0.0-1.0) that counts as key down
hysteresis: 2           # Consecutive blocks required to change key state
agc_enabled: true       # Normalise input level
agc_decay: 0.9995       # AGC peak decay per block
agc_attack: 0.1         # AGC attack rate (0.0-1.0)
sidetone_volume: 0.3    # Sidetone level (0.0-1.0)

# Serial link
link: "stdio"           # stdio, telnet or mqtt
link_address: ""        # host:port for telnet, broker URL for mqtt
mqtt_topic: "cwkey"     # bytes go out on <topic>/tx and arrive on <topic>/rx

# Output
debug: false            # Enable debug logging
`
)

var (
	modes      = []string{"decode", "receive", "playback"}
	policies   = []string{"drop", "stall"}
	keySources = []string{"audio", "none"}
	indicators = []string{"sidetone", "log", "none"}
	links      = []string{"stdio", "telnet", "mqtt"}
)

// Settings holds all application configuration
type Settings struct {
	// Keying clock
	TimerHz    int `mapstructure:"timer_hz"`
	UnitCounts int `mapstructure:"unit_counts"`

	// Operation
	Mode          string `mapstructure:"mode"`
	OverrunPolicy string `mapstructure:"overrun_policy"`
	KeySource     string `mapstructure:"key_source"`
	Indicator     string `mapstructure:"indicator"`

	// Audio
	DeviceIndex    int     `mapstructure:"device_index"`
	SampleRate     float64 `mapstructure:"sample_rate"`
	ToneFrequency  float64 `mapstructure:"tone_frequency"`
	BlockSize      int     `mapstructure:"block_size"`
	Threshold      float64 `mapstructure:"threshold"`
	Hysteresis     int     `mapstructure:"hysteresis"`
	AGCEnabled     bool    `mapstructure:"agc_enabled"`
	AGCDecay       float64 `mapstructure:"agc_decay"`
	AGCAttack      float64 `mapstructure:"agc_attack"`
	SidetoneVolume float64 `mapstructure:"sidetone_volume"`

	// Serial link
	Link        string `mapstructure:"link"`
	LinkAddress string `mapstructure:"link_address"`
	MQTTTopic   string `mapstructure:"mqtt_topic"`

	// Output
	Debug bool `mapstructure:"debug"`
}

// Init initializes Viper with defaults and config file.
// Config file search order: current directory, then ~/.config/cwkey/
func Init() error {
	viper.SetDefault("timer_hz", 32768)
	viper.SetDefault("unit_counts", 1000)
	viper.SetDefault("mode", "decode")
	viper.SetDefault("overrun_policy", "drop")
	viper.SetDefault("key_source", "audio")
	viper.SetDefault("indicator", "sidetone")
	viper.SetDefault("device_index", -1)
	viper.SetDefault("sample_rate", 48000)
	viper.SetDefault("tone_frequency", 600)
	viper.SetDefault("block_size", 256)
	viper.SetDefault("threshold", 0.4)
	viper.SetDefault("hysteresis", 2)
	viper.SetDefault("agc_enabled", true)
	viper.SetDefault("agc_decay", 0.9995)
	viper.SetDefault("agc_attack", 0.1)
	viper.SetDefault("sidetone_volume", 0.3)
	viper.SetDefault("link", "stdio")
	viper.SetDefault("link_address", "")
	viper.SetDefault("mqtt_topic", "cwkey")
	viper.SetDefault("debug", false)

	viper.SetConfigType(ConfigType)
	viper.SetEnvPrefix(AppName)
	viper.AutomaticEnv()

	viper.AddConfigPath(".")

	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	viper.AddConfigPath(filepath.Join(configDir, AppName))

	// .config.yaml (hidden) wins over config.yaml
	viper.SetConfigName(".config")
	if err = viper.ReadInConfig(); err != nil {
		viper.SetConfigName("config")
		err = viper.ReadInConfig()
	}

	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
		if err = ensureConfigExists(filepath.Join(configDir, AppName)); err != nil {
			return err
		}
		if err = viper.ReadInConfig(); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
	}

	return nil
}

func ensureConfigExists(configPath string) error {
	configFile := filepath.Join(configPath, "config.yaml")

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		if err = os.MkdirAll(configPath, 0755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
		if err = os.WriteFile(configFile, []byte(DefaultConfig), 0644); err != nil {
			return fmt.Errorf("write default config: %w", err)
		}
	}
	return nil
}

// Get returns the current settings
func Get() (*Settings, error) {
	var s Settings
	if err := viper.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &s, nil
}

// Unit returns the Morse unit: unit_counts ticks of a timer_hz clock.
func (s *Settings) Unit() time.Duration {
	if s.TimerHz <= 0 {
		return 0
	}
	return time.Duration(s.UnitCounts) * time.Second / time.Duration(s.TimerHz)
}

// Validate checks that all settings are within acceptable ranges
func (s *Settings) Validate() error {
	var errs []error

	// Keying clock
	if s.TimerHz < 1000 || s.TimerHz > 1_000_000 {
		errs = append(errs, fmt.Errorf("timer_hz must be between 1000 and 1000000, got %d", s.TimerHz))
	}
	if s.UnitCounts < 1 || s.UnitCounts > 65535 {
		errs = append(errs, fmt.Errorf("unit_counts must be between 1 and 65535, got %d", s.UnitCounts))
	}
	if u := s.Unit(); u != 0 && (u < time.Millisecond || u > 2*time.Second) {
		errs = append(errs, fmt.Errorf("unit (unit_counts/timer_hz) must be between 1ms and 2s, got %v", u))
	}

	// Operation
	errs = appendChoice(errs, "mode", s.Mode, modes)
	errs = appendChoice(errs, "overrun_policy", s.OverrunPolicy, policies)
	errs = appendChoice(errs, "key_source", s.KeySource, keySources)
	errs = appendChoice(errs, "indicator", s.Indicator, indicators)

	// Audio
	if s.SampleRate < 8000 || s.SampleRate > 192000 {
		errs = append(errs, fmt.Errorf("sample_rate must be between 8000 and 192000 Hz, got %v", s.SampleRate))
	}
	if s.ToneFrequency < 100 || s.ToneFrequency > 3000 {
		errs = append(errs, fmt.Errorf("tone_frequency must be between 100 and 3000 Hz, got %v", s.ToneFrequency))
	}
	if s.ToneFrequency >= s.SampleRate/2 {
		errs = append(errs, fmt.Errorf("tone_frequency (%v Hz) must be less than Nyquist frequency (%v Hz)", s.ToneFrequency, s.SampleRate/2))
	}
	if s.BlockSize < 32 || s.BlockSize > 4096 {
		errs = append(errs, fmt.Errorf("block_size must be between 32 and 4096, got %d", s.BlockSize))
	}
	if s.Threshold < 0.0 || s.Threshold > 1.0 {
		errs = append(errs, fmt.Errorf("threshold must be between 0.0 and 1.0, got %v", s.Threshold))
	}
	if s.Hysteresis < 1 || s.Hysteresis > 50 {
		errs = append(errs, fmt.Errorf("hysteresis must be between 1 and 50, got %d", s.Hysteresis))
	}
	if s.AGCDecay < 0.9 || s.AGCDecay > 0.99999 {
		errs = append(errs, fmt.Errorf("agc_decay must be between 0.9 and 0.99999, got %v", s.AGCDecay))
	}
	if s.AGCAttack < 0.0 || s.AGCAttack > 1.0 {
		errs = append(errs, fmt.Errorf("agc_attack must be between 0.0 and 1.0, got %v", s.AGCAttack))
	}
	if s.SidetoneVolume < 0.0 || s.SidetoneVolume > 1.0 {
		errs = append(errs, fmt.Errorf("sidetone_volume must be between 0.0 and 1.0, got %v", s.SidetoneVolume))
	}

	// Serial link
	errs = appendChoice(errs, "link", s.Link, links)
	if (s.Link == "telnet" || s.Link == "mqtt") && s.LinkAddress == "" {
		errs = append(errs, fmt.Errorf("link_address is required for link %q", s.Link))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

func appendChoice(errs []error, key, value string, allowed []string) []error {
	if slices.Contains(allowed, strings.ToLower(value)) {
		return errs
	}
	return append(errs, fmt.Errorf("%s must be one of %s, got %q", key, strings.Join(allowed, ", "), value))
}
