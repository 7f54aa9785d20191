package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Env            string
	ServiceName    string
	ServiceVersion string

	// RedisURL enables asynchronous extraction jobs when set.
	RedisURL string

	OtelExporterOTLPEndpoint string
	OtelExporterOTLPHeaders  string
	SentryDSN                string

	Port string

	DebugLogs bool

	Transcription TranscriptionConfig
	Extraction    ExtractionConfig
	Server        ServerConfig
}

type TranscriptionConfig struct {
	// EnginePath is the speech-to-text binary. EngineArgs are passed before
	// the audio path and model, which lets EnginePath be an interpreter.
	EnginePath      string   `yaml:"engine_path"`
	EngineArgs      []string `yaml:"engine_args"`
	DownloaderPath  string   `yaml:"downloader_path"`
	CompatArgs      []string `yaml:"compat_args"`
	// MaxAudioSeconds caps the downloaded audio. Nil means the default cap;
	// zero downloads the whole video.
	MaxAudioSeconds *int     `yaml:"max_audio_seconds"`
	DefaultModel    string   `yaml:"default_model"`
}

type ExtractionConfig struct {
	TriggerMinChars     int `yaml:"trigger_min_chars"`
	AcceptMinChars      int `yaml:"accept_min_chars"`
	FetchTimeoutSeconds int `yaml:"fetch_timeout_seconds"`
}

type ServerConfig struct {
	RateLimitRPS      float64 `yaml:"rate_limit_rps"`
	RateLimitBurst    int     `yaml:"rate_limit_burst"`
	JobWebhookURL     string  `yaml:"job_webhook_url"`
	WorkerConcurrency int     `yaml:"worker_concurrency"`
	// PublicBaseURL prefixes job status links, e.g. https://api.example.com.
	PublicBaseURL     string  `yaml:"public_base_url"`
}

// MinAcceptChars is the lowest acceptance threshold allowed; anything lower lets
// title-only corpora through.
const MinAcceptChars = 200

// DefaultMaxAudioSeconds caps transcription downloads when nothing is configured.
const DefaultMaxAudioSeconds = 600

func Load() (*Config, error) {
	cfg := &Config{
		Env:                      os.Getenv("ENV"),
		ServiceName:              os.Getenv("SERVICE_NAME"),
		ServiceVersion:           os.Getenv("SERVICE_VERSION"),
		RedisURL:                 os.Getenv("REDIS_URL"),
		OtelExporterOTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		OtelExporterOTLPHeaders:  os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"),
		SentryDSN:                os.Getenv("SENTRY_DSN"),
		Port:                     os.Getenv("PORT"),
		DebugLogs:                envBool("DEBUG_LOGS"),
	}

	// Load from YAML file if available
	if err := cfg.LoadFromYAML("config.yaml"); err != nil {
		return nil, fmt.Errorf("failed to load YAML config: %w", err)
	}

	// Environment wins over YAML
	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Env == "" {
		cfg.Env = "development"
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "clipchef"
	}
	if cfg.ServiceVersion == "" {
		cfg.ServiceVersion = "1.0.0"
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}

	cfg.SetTranscriptionDefaults()
	cfg.SetExtractionDefaults()
	cfg.SetServerDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) LoadFromYAML(path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // File not found is not an error
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var yamlConfig struct {
		Transcription TranscriptionConfig `yaml:"transcription"`
		Extraction    ExtractionConfig    `yaml:"extraction"`
		Server        ServerConfig        `yaml:"server"`
	}

	if err := yaml.Unmarshal(data, &yamlConfig); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	t := yamlConfig.Transcription
	if t.EnginePath != "" {
		c.Transcription.EnginePath = t.EnginePath
	}
	if len(t.EngineArgs) > 0 {
		c.Transcription.EngineArgs = t.EngineArgs
	}
	if t.DownloaderPath != "" {
		c.Transcription.DownloaderPath = t.DownloaderPath
	}
	if len(t.CompatArgs) > 0 {
		c.Transcription.CompatArgs = t.CompatArgs
	}
	if t.MaxAudioSeconds != nil {
		c.Transcription.MaxAudioSeconds = t.MaxAudioSeconds
	}
	if t.DefaultModel != "" {
		c.Transcription.DefaultModel = t.DefaultModel
	}

	e := yamlConfig.Extraction
	if e.TriggerMinChars != 0 {
		c.Extraction.TriggerMinChars = e.TriggerMinChars
	}
	if e.AcceptMinChars != 0 {
		c.Extraction.AcceptMinChars = e.AcceptMinChars
	}
	if e.FetchTimeoutSeconds != 0 {
		c.Extraction.FetchTimeoutSeconds = e.FetchTimeoutSeconds
	}

	s := yamlConfig.Server
	if s.RateLimitRPS != 0 {
		c.Server.RateLimitRPS = s.RateLimitRPS
	}
	if s.RateLimitBurst != 0 {
		c.Server.RateLimitBurst = s.RateLimitBurst
	}
	if s.JobWebhookURL != "" {
		c.Server.JobWebhookURL = s.JobWebhookURL
	}
	if s.WorkerConcurrency != 0 {
		c.Server.WorkerConcurrency = s.WorkerConcurrency
	}
	if s.PublicBaseURL != "" {
		c.Server.PublicBaseURL = s.PublicBaseURL
	}

	return nil
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("TRANSCRIBER_BIN"); v != "" {
		c.Transcription.EnginePath = v
	}
	if v := os.Getenv("TRANSCRIBER_ARGS"); v != "" {
		c.Transcription.EngineArgs = strings.Fields(v)
	}
	if v := os.Getenv("YTDLP_BIN"); v != "" {
		c.Transcription.DownloaderPath = v
	}
	if v := os.Getenv("WHISPER_MODEL"); v != "" {
		c.Transcription.DefaultModel = v
	}
	if v := os.Getenv("JOB_WEBHOOK_URL"); v != "" {
		c.Server.JobWebhookURL = v
	}
	if v := os.Getenv("PUBLIC_BASE_URL"); v != "" {
		c.Server.PublicBaseURL = v
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"TRIGGER_MIN_CHARS", &c.Extraction.TriggerMinChars},
		{"ACCEPT_MIN_CHARS", &c.Extraction.AcceptMinChars},
		{"FETCH_TIMEOUT_SECONDS", &c.Extraction.FetchTimeoutSeconds},
		{"RATE_LIMIT_BURST", &c.Server.RateLimitBurst},
		{"WORKER_CONCURRENCY", &c.Server.WorkerConcurrency},
	}
	for _, e := range ints {
		v := os.Getenv(e.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s must be an integer: %w", e.key, err)
		}
		*e.dst = n
	}

	if v := os.Getenv("MAX_AUDIO_SECONDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MAX_AUDIO_SECONDS must be an integer: %w", err)
		}
		c.Transcription.MaxAudioSeconds = &n
	}

	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("RATE_LIMIT_RPS must be a number: %w", err)
		}
		c.Server.RateLimitRPS = f
	}

	return nil
}

func (c *Config) SetTranscriptionDefaults() {
	if c.Transcription.EnginePath == "" {
		c.Transcription.EnginePath = "whisper-transcribe"
	}
	if c.Transcription.DownloaderPath == "" {
		c.Transcription.DownloaderPath = "yt-dlp"
	}
	if c.Transcription.CompatArgs == nil {
		c.Transcription.CompatArgs = []string{"--extractor-args", "youtube:player_client=android,web"}
	}
	if c.Transcription.MaxAudioSeconds == nil {
		n := DefaultMaxAudioSeconds
		c.Transcription.MaxAudioSeconds = &n
	}
	if c.Transcription.DefaultModel == "" {
		c.Transcription.DefaultModel = "base"
	}
}

func (c *Config) SetExtractionDefaults() {
	if c.Extraction.TriggerMinChars == 0 {
		c.Extraction.TriggerMinChars = 250
	}
	if c.Extraction.AcceptMinChars == 0 {
		c.Extraction.AcceptMinChars = MinAcceptChars
	}
	if c.Extraction.FetchTimeoutSeconds == 0 {
		c.Extraction.FetchTimeoutSeconds = 20
	}
}

func (c *Config) SetServerDefaults() {
	if c.Server.RateLimitRPS == 0 {
		c.Server.RateLimitRPS = 1
	}
	if c.Server.RateLimitBurst == 0 {
		c.Server.RateLimitBurst = 5
	}
	if c.Server.WorkerConcurrency == 0 {
		c.Server.WorkerConcurrency = 2
	}
}

// AudioCapSeconds is the effective audio cap; 0 means uncapped.
func (t TranscriptionConfig) AudioCapSeconds() int {
	if t.MaxAudioSeconds == nil {
		return DefaultMaxAudioSeconds
	}
	return *t.MaxAudioSeconds
}

// AsyncJobsEnabled reports whether a Redis backend is configured for extraction jobs.
func (c *Config) AsyncJobsEnabled() bool {
	return c.RedisURL != ""
}

func (c *Config) validate() error {
	if c.Extraction.TriggerMinChars < 0 {
		return fmt.Errorf("TRIGGER_MIN_CHARS must not be negative")
	}
	if c.Extraction.AcceptMinChars < MinAcceptChars {
		return fmt.Errorf("ACCEPT_MIN_CHARS must be at least %d", MinAcceptChars)
	}
	if c.Transcription.AudioCapSeconds() < 0 {
		return fmt.Errorf("MAX_AUDIO_SECONDS must not be negative")
	}
	if c.Extraction.FetchTimeoutSeconds <= 0 {
		return fmt.Errorf("FETCH_TIMEOUT_SECONDS must be positive")
	}
	if c.Server.WorkerConcurrency < 0 {
		return fmt.Errorf("WORKER_CONCURRENCY must not be negative")
	}
	if c.Server.RateLimitRPS <= 0 || c.Server.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit settings must be positive")
	}
	return nil
}

func envBool(key string) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && v
}
