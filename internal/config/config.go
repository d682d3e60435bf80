// Package config provides configuration loading for go-emo.
//
// Values are layered: built-in defaults, then an optional YAML file, then a
// .env file and the process environment. Command line flags in cmd/emo are
// applied last.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Default values. They match the behavior of the original companion build.
const (
	DefaultWakeWord         = "loki"
	DefaultIdleTimeout      = 120 * time.Second
	DefaultNoiseThreshold   = 5000.0
	DefaultSampleDuration   = 5 * time.Second
	DefaultCyclePause       = 1 * time.Second
	DefaultStepInterval     = 100 * time.Millisecond
	DefaultLoopCount        = 2
	DefaultSampleRate       = 44100
	DefaultChunkFrames      = 1024
	DefaultServoMin         = 150
	DefaultServoMax         = 600
	DefaultPWMFrequency     = 60
	DefaultDisplayWidth     = 240
	DefaultDisplayHeight    = 320
	DefaultSPISpeedHz       = 64_000_000
	DefaultWebPort          = "8080"
	DefaultModel            = "gpt-4"
	DefaultTranscribeModel  = "whisper-1"
	DefaultVoice            = "nova"
	DefaultProcessingPhrase = "I am processing your request, please wait."
	DefaultQuietPhrase      = "Please be quiet."
	DefaultSystemPrompt     = "You are Loki, an interactive assistant. Respond with both an answer and an emotion such as happy, sad, angry, blink, excited, dizzy, or shush."
)

// Config holds all configuration for the companion.
type Config struct {
	LogLevel string `yaml:"log_level"`

	Session   SessionConfig   `yaml:"session"`
	Audio     AudioConfig     `yaml:"audio"`
	Assets    AssetsConfig    `yaml:"assets"`
	Hardware  HardwareConfig  `yaml:"hardware"`
	Assistant AssistantConfig `yaml:"assistant"`
	Voice     VoiceConfig     `yaml:"voice"`
	Web       WebConfig       `yaml:"web"`
}

// SessionConfig controls the control loop.
type SessionConfig struct {
	WakeWord       string        `yaml:"wake_word"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	NoiseThreshold float64       `yaml:"noise_threshold"`
	SampleDuration time.Duration `yaml:"sample_duration"`
	CyclePause     time.Duration `yaml:"cycle_pause"`
}

// AudioConfig controls capture and playback.
type AudioConfig struct {
	// Backend selects the capture device: "portaudio" or "mock".
	Backend     string `yaml:"backend"`
	SampleRate  int    `yaml:"sample_rate"`
	ChunkFrames int    `yaml:"chunk_frames"`

	// Output selects voice playback: "speaker" (local), "rtp" (Opus over
	// UDP) or "mock" (silent, paced in real time).
	Output  string `yaml:"output"`
	RTPAddr string `yaml:"rtp_addr"`
}

// AssetsConfig locates emotion frames and clips.
type AssetsConfig struct {
	Dir          string        `yaml:"dir"`
	ShushClip    string        `yaml:"shush_clip"`
	StepInterval time.Duration `yaml:"step_interval"`
	LoopCount    int           `yaml:"loop_count"`
}

// HardwareConfig describes the actuator controller and the display panel.
type HardwareConfig struct {
	// Driver selects the peripherals: "periph" (real bus) or "mock".
	Driver        string `yaml:"driver"`
	I2CBus        string `yaml:"i2c_bus"`
	PWMFrequency  int    `yaml:"pwm_frequency"`
	ServoMin      int    `yaml:"servo_min"`
	ServoMax      int    `yaml:"servo_max"`
	SPIPort       string `yaml:"spi_port"`
	SPISpeedHz    int64  `yaml:"spi_speed_hz"`
	DCPin         string `yaml:"dc_pin"`
	ResetPin      string `yaml:"reset_pin"`
	DisplayWidth  int    `yaml:"display_width"`
	DisplayHeight int    `yaml:"display_height"`
}

// AssistantConfig configures the chat and transcription services.
type AssistantConfig struct {
	APIKey          string        `yaml:"-"`
	BaseURL         string        `yaml:"base_url"`
	Model           string        `yaml:"model"`
	TranscribeModel string        `yaml:"transcribe_model"`
	Language        string        `yaml:"language"`
	SystemPrompt    string        `yaml:"system_prompt"`
	Timeout         time.Duration `yaml:"timeout"`

	// FallbackModel, when set, is tried after Model fails. FallbackBaseURL
	// defaults to BaseURL.
	FallbackModel   string `yaml:"fallback_model"`
	FallbackBaseURL string `yaml:"fallback_base_url"`
}

// VoiceConfig configures speech synthesis and the fixed phrases.
type VoiceConfig struct {
	Voice            string `yaml:"voice"`
	Model            string `yaml:"model"`
	ProcessingPhrase string `yaml:"processing_phrase"`
	QuietPhrase      string `yaml:"quiet_phrase"`
}

// WebConfig configures the status dashboard.
type WebConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    string `yaml:"port"`
}

// Default returns a Config populated with defaults.
func Default() Config {
	return Config{
		LogLevel: "info",
		Session: SessionConfig{
			WakeWord:       DefaultWakeWord,
			IdleTimeout:    DefaultIdleTimeout,
			NoiseThreshold: DefaultNoiseThreshold,
			SampleDuration: DefaultSampleDuration,
			CyclePause:     DefaultCyclePause,
		},
		Audio: AudioConfig{
			Backend:     "portaudio",
			SampleRate:  DefaultSampleRate,
			ChunkFrames: DefaultChunkFrames,
			Output:      "speaker",
			RTPAddr:     "127.0.0.1:5000",
		},
		Assets: AssetsConfig{
			Dir:          "emotions",
			ShushClip:    "emotions/shush.mp3",
			StepInterval: DefaultStepInterval,
			LoopCount:    DefaultLoopCount,
		},
		Hardware: HardwareConfig{
			Driver:        "periph",
			PWMFrequency:  DefaultPWMFrequency,
			ServoMin:      DefaultServoMin,
			ServoMax:      DefaultServoMax,
			SPISpeedHz:    DefaultSPISpeedHz,
			DCPin:         "GPIO18",
			ResetPin:      "GPIO23",
			DisplayWidth:  DefaultDisplayWidth,
			DisplayHeight: DefaultDisplayHeight,
		},
		Assistant: AssistantConfig{
			BaseURL:         "https://api.openai.com/v1",
			Model:           DefaultModel,
			TranscribeModel: DefaultTranscribeModel,
			Language:        "en",
			SystemPrompt:    DefaultSystemPrompt,
			Timeout:         60 * time.Second,
		},
		Voice: VoiceConfig{
			Voice:            DefaultVoice,
			Model:            "tts-1",
			ProcessingPhrase: DefaultProcessingPhrase,
			QuietPhrase:      DefaultQuietPhrase,
		},
		Web: WebConfig{
			Enabled: true,
			Port:    DefaultWebPort,
		},
	}
}

// Load builds a Config from defaults, the YAML file at path (optional, empty
// path skips it), a .env file in the working directory and the environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	// A missing .env is normal on the device.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}

	cfg.ApplyEnv()
	return cfg, nil
}

// ApplyEnv overlays environment variables onto the config.
func (c *Config) ApplyEnv() {
	c.Assistant.APIKey = os.Getenv("OPENAI_API_KEY")
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		c.Assistant.BaseURL = v
	}
	if v := os.Getenv("EMO_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("EMO_WAKE_WORD"); v != "" {
		c.Session.WakeWord = v
	}
	if v := os.Getenv("EMO_NOISE_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Session.NoiseThreshold = f
		}
	}
	if v := os.Getenv("EMO_ASSETS_DIR"); v != "" {
		c.Assets.Dir = v
	}
	if v := os.Getenv("EMO_HARDWARE"); v != "" {
		c.Hardware.Driver = v
	}
	if v := os.Getenv("EMO_AUDIO_BACKEND"); v != "" {
		c.Audio.Backend = v
	}
	if v := os.Getenv("EMO_AUDIO_OUTPUT"); v != "" {
		c.Audio.Output = v
	}
	if v := os.Getenv("EMO_WEB_PORT"); v != "" {
		c.Web.Port = v
	}
	if v := os.Getenv("EMO_FALLBACK_MODEL"); v != "" {
		c.Assistant.FallbackModel = v
	}
	if v := os.Getenv("EMO_FALLBACK_BASE_URL"); v != "" {
		c.Assistant.FallbackBaseURL = v
	}
}

// Validate checks that required configuration is present and consistent.
func (c *Config) Validate() error {
	if c.Assistant.APIKey == "" {
		return &ConfigError{Field: "Assistant.APIKey", Message: "OPENAI_API_KEY environment variable is required"}
	}
	if strings.TrimSpace(c.Session.WakeWord) == "" {
		return &ConfigError{Field: "Session.WakeWord", Message: "wake word must not be empty"}
	}
	if strings.ContainsAny(strings.TrimSpace(c.Session.WakeWord), " \t") {
		return &ConfigError{Field: "Session.WakeWord", Message: "wake word must be a single word"}
	}
	if c.Session.SampleDuration <= 0 {
		return &ConfigError{Field: "Session.SampleDuration", Message: "sample duration must be positive"}
	}
	if c.Assets.LoopCount < 1 {
		return &ConfigError{Field: "Assets.LoopCount", Message: "loop count must be at least 1"}
	}
	if c.Hardware.ServoMin < 0 || c.Hardware.ServoMax > 4095 || c.Hardware.ServoMin >= c.Hardware.ServoMax {
		return &ConfigError{Field: "Hardware.ServoMin", Message: fmt.Sprintf("servo range [%d, %d] is invalid", c.Hardware.ServoMin, c.Hardware.ServoMax)}
	}
	switch c.Audio.Output {
	case "speaker", "rtp", "mock":
	default:
		return &ConfigError{Field: "Audio.Output", Message: fmt.Sprintf("unknown audio output %q", c.Audio.Output)}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}
