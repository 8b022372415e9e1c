package shared

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
)

// Environment variable keys
const (
	EnvKeyAPIKey     = "OPENAI_API_KEY"
	EnvKeyBaseURL    = "OPENAI_BASE_URL"
	EnvKeyLogLevel   = "ASSIST_LOG_LEVEL"
	EnvKeyLogFile    = "ASSIST_LOG_FILE"
	EnvKeyHTTPAddr   = "ASSIST_HTTP_ADDR"
	EnvKeyScanSeed   = "ASSIST_SCAN_SEED"
	EnvKeyMicDevice  = "ASSIST_MIC_DEVICE"
	EnvKeySTTEngine  = "ASSIST_STT_ENGINE"
	EnvKeyWhisperBin = "ASSIST_WHISPER_MODEL"
)

// Microphone backends.
const (
	MicDevicePortAudio    = "portaudio"
	MicDeviceMediaDevices = "mediadevices"
	MicDeviceFile         = "file"
	MicDeviceNone         = "none"
)

// Speech recognition engines.
const (
	STTEngineOpenAI  = "openai"
	STTEngineWhisper = "whisper"
)

// Refusal policies for triggers that arrive during a scan or a listen.
const (
	RefusalSilent   = "silent"
	RefusalAnnounce = "announce"
)

type Config struct {
	Log        LogConfig        `yaml:"log"`
	OpenAI     OpenAIConfig     `yaml:"openai"`
	Speech     SpeechConfig     `yaml:"speech"`
	Listen     ListenConfig     `yaml:"listen"`
	Scan       ScanConfig       `yaml:"scan"`
	Controller ControllerConfig `yaml:"controller"`
	Server     ServerConfig     `yaml:"server"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// SpeechConfig configures spoken output.
type SpeechConfig struct {
	Enabled        bool    `yaml:"enabled"`
	Model          string  `yaml:"model"`
	Voice          string  `yaml:"voice"`
	Speed          float64 `yaml:"speed"`
	SampleRate     int     `yaml:"sample_rate"`
	PlayerBufferMs int     `yaml:"player_buffer_ms"`
	TimeoutMs      int     `yaml:"timeout_ms"`
}

// ListenConfig configures spoken-command input.
type ListenConfig struct {
	Enabled           bool    `yaml:"enabled"`
	Device            string  `yaml:"device"`
	InputFile         string  `yaml:"input_file"`
	Engine            string  `yaml:"engine"`
	Model             string  `yaml:"model"`
	WhisperModelPath  string  `yaml:"whisper_model_path"`
	Language          string  `yaml:"language"`
	Prompt            string  `yaml:"prompt"`
	SampleRate        int     `yaml:"sample_rate"`
	FrameSize         int     `yaml:"frame_size"`
	MaxDurationMs     int     `yaml:"max_duration_ms"`
	SilenceMs         int     `yaml:"silence_ms"`
	NoSpeechTimeoutMs int     `yaml:"no_speech_timeout_ms"`
	PreRollMs         int     `yaml:"pre_roll_ms"`
	RMSFloor          float64 `yaml:"rms_floor"`
	FluxOnset         float64 `yaml:"flux_onset"`
	TimeoutMs         int     `yaml:"timeout_ms"`
}

type ScanConfig struct {
	LatencyMs int    `yaml:"latency_ms"`
	TimeoutMs int    `yaml:"timeout_ms"`
	Seed      uint64 `yaml:"seed"`
}

type ControllerConfig struct {
	Greeting      bool   `yaml:"greeting"`
	RefusalPolicy string `yaml:"refusal_policy"`
	EventBuffer   int    `yaml:"event_buffer"`
}

type ServerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 2,
			MaxAgeDays: 3,
		},
		OpenAI: OpenAIConfig{
			BaseURL: "https://api.openai.com/v1",
		},
		Speech: SpeechConfig{
			Enabled:        true,
			Model:          "gpt-4o-mini-tts",
			Voice:          "alloy",
			Speed:          0.9,
			SampleRate:     24000,
			PlayerBufferMs: 100,
			TimeoutMs:      20000,
		},
		Listen: ListenConfig{
			Enabled:           true,
			Device:            MicDevicePortAudio,
			Engine:            STTEngineOpenAI,
			Model:             "whisper-1",
			Language:          "en",
			Prompt:            "short spoken commands such as scan, describe, start camera, objects, help",
			SampleRate:        16000,
			FrameSize:         512,
			MaxDurationMs:     8000,
			SilenceMs:         700,
			NoSpeechTimeoutMs: 5000,
			PreRollMs:         250,
			RMSFloor:          0.01,
			FluxOnset:         0.002,
			TimeoutMs:         20000,
		},
		Scan: ScanConfig{
			LatencyMs: 2000,
			TimeoutMs: 10000,
		},
		Controller: ControllerConfig{
			Greeting:      true,
			RefusalPolicy: RefusalSilent,
			EventBuffer:   64,
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8088",
		},
	}
}

// LoadConfig reads the YAML file at path over the defaults, then applies
// environment overrides. An empty path means defaults plus environment.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) ApplyEnv() (err error) {
	if c.OpenAI.APIKey, err = Getenv(GetenvString, EnvKeyAPIKey, false, c.OpenAI.APIKey); err != nil {
		return err
	}
	if c.OpenAI.BaseURL, err = Getenv(GetenvString, EnvKeyBaseURL, false, c.OpenAI.BaseURL); err != nil {
		return err
	}
	if c.Log.Level, err = Getenv(GetenvString, EnvKeyLogLevel, false, c.Log.Level); err != nil {
		return err
	}
	if c.Log.File, err = Getenv(GetenvString, EnvKeyLogFile, false, c.Log.File); err != nil {
		return err
	}
	if c.Server.Addr, err = Getenv(GetenvString, EnvKeyHTTPAddr, false, c.Server.Addr); err != nil {
		return err
	}
	if c.Listen.Device, err = Getenv(GetenvString, EnvKeyMicDevice, false, c.Listen.Device); err != nil {
		return err
	}
	if c.Listen.Engine, err = Getenv(GetenvString, EnvKeySTTEngine, false, c.Listen.Engine); err != nil {
		return err
	}
	if c.Listen.WhisperModelPath, err = Getenv(GetenvString, EnvKeyWhisperBin, false, c.Listen.WhisperModelPath); err != nil {
		return err
	}
	seed, err := Getenv(GetenvInt, EnvKeyScanSeed, false, int(c.Scan.Seed))
	if err != nil {
		return err
	}
	if seed < 0 {
		return fmt.Errorf("%s must not be negative", EnvKeyScanSeed)
	}
	c.Scan.Seed = uint64(seed)
	return nil
}

func (c *Config) Validate() error {
	var errs []error
	switch c.Listen.Device {
	case MicDevicePortAudio, MicDeviceMediaDevices, MicDeviceNone:
	case MicDeviceFile:
		if c.Listen.Enabled && c.Listen.InputFile == "" {
			errs = append(errs, errors.New("listen.input_file is required for the file device"))
		}
	default:
		errs = append(errs, fmt.Errorf("listen.device: unknown device %q", c.Listen.Device))
	}
	switch c.Listen.Engine {
	case STTEngineOpenAI:
	case STTEngineWhisper:
		if c.Listen.Enabled && c.Listen.WhisperModelPath == "" {
			errs = append(errs, errors.New("listen.whisper_model_path is required for the whisper engine"))
		}
	default:
		errs = append(errs, fmt.Errorf("listen.engine: unknown engine %q", c.Listen.Engine))
	}
	switch c.Controller.RefusalPolicy {
	case RefusalSilent, RefusalAnnounce:
	default:
		errs = append(errs, fmt.Errorf("controller.refusal_policy: unknown policy %q", c.Controller.RefusalPolicy))
	}
	if c.Listen.SampleRate <= 0 || c.Listen.FrameSize <= 0 {
		errs = append(errs, errors.New("listen.sample_rate and listen.frame_size must be positive"))
	}
	if c.Speech.SampleRate <= 0 {
		errs = append(errs, errors.New("speech.sample_rate must be positive"))
	}
	if c.Scan.LatencyMs < 0 || c.Scan.TimeoutMs <= 0 {
		errs = append(errs, errors.New("scan.latency_ms must be >= 0 and scan.timeout_ms > 0"))
	}
	if c.Controller.EventBuffer <= 0 {
		errs = append(errs, errors.New("controller.event_buffer must be positive"))
	}
	return errors.Join(errs...)
}

func Millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
