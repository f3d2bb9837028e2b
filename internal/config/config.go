package config

import (
	"fmt"
	"time"
)

type Config struct {
	App           AppConfig           `yaml:"app" mapstructure:"app"`
	Server        ServerConfig        `yaml:"server" mapstructure:"server"`
	Database      DatabaseConfig      `yaml:"database" mapstructure:"database"`
	Cache         CacheConfig         `yaml:"cache" mapstructure:"cache"`
	LLM           LLMConfig           `yaml:"llm" mapstructure:"llm"`
	Pipeline      PipelineConfig      `yaml:"pipeline" mapstructure:"pipeline"`
	Playback      PlaybackConfig      `yaml:"playback" mapstructure:"playback"`
	Recording     RecordingConfig     `yaml:"recording" mapstructure:"recording"`
	Observability ObservabilityConfig `yaml:"observability" mapstructure:"observability"`
}

type AppConfig struct {
	Name    string `yaml:"name" mapstructure:"name"`
	Version string `yaml:"version" mapstructure:"version"`
	Env     string `yaml:"env" mapstructure:"env"`
	Debug   bool   `yaml:"debug" mapstructure:"debug"`
}

type ServerConfig struct {
	HTTP HTTPServerConfig `yaml:"http" mapstructure:"http"`
}

type HTTPServerConfig struct {
	Host         string        `yaml:"host" mapstructure:"host"`
	Port         int           `yaml:"port" mapstructure:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
}

func (c HTTPServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type DatabaseConfig struct {
	Postgres PostgresConfig `yaml:"postgres" mapstructure:"postgres"`
}

// PostgresConfig is optional; an empty host means the in-memory metadata store is used.
type PostgresConfig struct {
	Host            string        `yaml:"host" mapstructure:"host"`
	Port            int           `yaml:"port" mapstructure:"port"`
	User            string        `yaml:"user" mapstructure:"user"`
	Password        string        `yaml:"password" mapstructure:"password"`
	Database        string        `yaml:"database" mapstructure:"database"`
	SSLMode         string        `yaml:"ssl_mode" mapstructure:"ssl_mode"`
	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" mapstructure:"conn_max_idle_time"`
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

type CacheConfig struct {
	Redis       RedisConfig   `yaml:"redis" mapstructure:"redis"`
	MetadataTTL time.Duration `yaml:"metadata_ttl" mapstructure:"metadata_ttl"`
}

// RedisConfig is optional; an empty host disables the metadata cache.
type RedisConfig struct {
	Host         string        `yaml:"host" mapstructure:"host"`
	Port         int           `yaml:"port" mapstructure:"port"`
	Password     string        `yaml:"password" mapstructure:"password"`
	DB           int           `yaml:"db" mapstructure:"db"`
	PoolSize     int           `yaml:"pool_size" mapstructure:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns" mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type LLMConfig struct {
	DefaultProvider string                    `yaml:"default_provider" mapstructure:"default_provider"`
	Providers       map[string]ProviderConfig `yaml:"providers" mapstructure:"providers"`
	FallbackChain   []string                  `yaml:"fallback_chain" mapstructure:"fallback_chain"`
	Timeout         time.Duration             `yaml:"timeout" mapstructure:"timeout"`
}

type ProviderConfig struct {
	APIKey      string        `yaml:"api_key" mapstructure:"api_key"`
	BaseURL     string        `yaml:"base_url" mapstructure:"base_url"`
	Model       string        `yaml:"model" mapstructure:"model"`
	MaxTokens   int           `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64       `yaml:"temperature" mapstructure:"temperature"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// PipelineConfig holds the analysis limits and camera safety envelope.
// The speed and angle caps are tunable defaults, not measured limits.
type PipelineConfig struct {
	MaxFeaturePoints      int        `yaml:"max_feature_points" mapstructure:"max_feature_points"`
	FeatureExtractor      string     `yaml:"feature_extractor" mapstructure:"feature_extractor"`
	SymmetryTolerance     float64    `yaml:"symmetry_tolerance" mapstructure:"symmetry_tolerance"`
	EnvironmentSize       SizeConfig `yaml:"environment_size" mapstructure:"environment_size"`
	DistanceMargin        float64    `yaml:"distance_margin" mapstructure:"distance_margin"`
	FarFactor             float64    `yaml:"far_factor" mapstructure:"far_factor"`
	HeightClearance       float64    `yaml:"height_clearance" mapstructure:"height_clearance"`
	HeightHeadroom        float64    `yaml:"height_headroom" mapstructure:"height_headroom"`
	MaxSpeed              float64    `yaml:"max_speed" mapstructure:"max_speed"`
	MaxAngleChangePerStep float64    `yaml:"max_angle_change_per_step" mapstructure:"max_angle_change_per_step"`
	FramingMargin         float64    `yaml:"framing_margin" mapstructure:"framing_margin"`
	DurationTolerance     float64    `yaml:"duration_tolerance" mapstructure:"duration_tolerance"`
	MaxDuration           float64    `yaml:"max_duration" mapstructure:"max_duration"`
	MaxTokens             int        `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature           float64    `yaml:"temperature" mapstructure:"temperature"`
	ClampSamples          int        `yaml:"clamp_samples" mapstructure:"clamp_samples"`
}

type SizeConfig struct {
	Width  float64 `yaml:"width" mapstructure:"width"`
	Height float64 `yaml:"height" mapstructure:"height"`
	Depth  float64 `yaml:"depth" mapstructure:"depth"`
}

type PlaybackConfig struct {
	FPS              int           `yaml:"fps" mapstructure:"fps"`
	ProgressThrottle time.Duration `yaml:"progress_throttle" mapstructure:"progress_throttle"`
	Speed            float64       `yaml:"speed" mapstructure:"speed"`
}

type RecordingConfig struct {
	Enabled      bool   `yaml:"enabled" mapstructure:"enabled"`
	Format       string `yaml:"format" mapstructure:"format"` // mp4, gif
	Width        int    `yaml:"width" mapstructure:"width"`
	Height       int    `yaml:"height" mapstructure:"height"`
	FPS          int    `yaml:"fps" mapstructure:"fps"`
	VideoEncoder string `yaml:"video_encoder" mapstructure:"video_encoder"`
	Quality      int    `yaml:"quality" mapstructure:"quality"`
	Poster       bool   `yaml:"poster" mapstructure:"poster"`
}

type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
	Tracing TracingConfig `yaml:"tracing" mapstructure:"tracing"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

type TracingConfig struct {
	Enabled    bool    `yaml:"enabled" mapstructure:"enabled"`
	Endpoint   string  `yaml:"endpoint" mapstructure:"endpoint"`
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}
