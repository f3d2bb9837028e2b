package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

const DefaultPath = "configs/config.yaml"

var envPattern = regexp.MustCompile(`\${(\w+)(:([^}]*))?}`)

// Load reads the base config file, merges configs/config.<APP_ENV>.yaml next to it
// and applies environment overrides (PIPELINE_MAX_SPEED etc).
// An empty path falls back to DefaultPath, which may be absent.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	optional := false
	if path == "" {
		path = DefaultPath
		optional = true
	}
	if err := loadConfigFile(v, path, optional); err != nil {
		return nil, err
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}
	envFile := filepath.Join(filepath.Dir(path), fmt.Sprintf("config.%s.yaml", env))
	if err := loadConfigFile(v, envFile, true); err != nil {
		return nil, err
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Default returns the configuration built from defaults alone.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("invalid config defaults: %v", err))
	}
	return &cfg
}

func loadConfigFile(v *viper.Viper, path string, optional bool) error {
	content, err := os.ReadFile(path)
	if err != nil {
		if optional && os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	reader := strings.NewReader(expandEnv(string(content)))
	if v.ConfigFileUsed() == "" {
		if err := v.ReadConfig(reader); err != nil {
			return fmt.Errorf("failed to read config %s: %w", path, err)
		}
		v.SetConfigFile(path)
		return nil
	}
	if err := v.MergeConfig(reader); err != nil {
		return fmt.Errorf("failed to merge config %s: %w", path, err)
	}
	return nil
}

// expandEnv replaces ${VAR} and ${VAR:default} placeholders.
// Undefined variables without a default are left as is.
func expandEnv(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(match string) string {
		sub := envPattern.FindStringSubmatch(match)
		if val, ok := os.LookupEnv(sub[1]); ok {
			return val
		}
		if sub[2] != "" {
			return sub[3]
		}
		return match
	})
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "prompt2path")
	v.SetDefault("app.version", "v0.0.0")
	v.SetDefault("app.env", "development")

	v.SetDefault("server.http.host", "0.0.0.0")
	v.SetDefault("server.http.port", 8080)
	v.SetDefault("server.http.read_timeout", "30s")
	v.SetDefault("server.http.write_timeout", "90s")
	v.SetDefault("server.http.idle_timeout", "120s")

	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.user", "postgres")
	v.SetDefault("database.postgres.database", "prompt2path")
	v.SetDefault("database.postgres.ssl_mode", "disable")
	v.SetDefault("database.postgres.max_open_conns", 20)
	v.SetDefault("database.postgres.max_idle_conns", 5)
	v.SetDefault("database.postgres.conn_max_lifetime", "30m")
	v.SetDefault("database.postgres.conn_max_idle_time", "5m")

	v.SetDefault("cache.redis.port", 6379)
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.pool_size", 20)
	v.SetDefault("cache.redis.min_idle_conns", 2)
	v.SetDefault("cache.redis.dial_timeout", "5s")
	v.SetDefault("cache.redis.read_timeout", "3s")
	v.SetDefault("cache.redis.write_timeout", "3s")
	v.SetDefault("cache.metadata_ttl", "10m")

	v.SetDefault("llm.default_provider", "procedural")
	v.SetDefault("llm.timeout", "60s")

	v.SetDefault("pipeline.max_feature_points", 100)
	v.SetDefault("pipeline.feature_extractor", "extrema")
	v.SetDefault("pipeline.symmetry_tolerance", 0.02)
	v.SetDefault("pipeline.environment_size.width", 20.0)
	v.SetDefault("pipeline.environment_size.height", 20.0)
	v.SetDefault("pipeline.environment_size.depth", 20.0)
	v.SetDefault("pipeline.distance_margin", 0.5)
	v.SetDefault("pipeline.far_factor", 6.0)
	v.SetDefault("pipeline.height_clearance", 0.1)
	v.SetDefault("pipeline.height_headroom", 2.0)
	v.SetDefault("pipeline.max_speed", 5.0)
	v.SetDefault("pipeline.max_angle_change_per_step", 90.0)
	v.SetDefault("pipeline.framing_margin", 0.1)
	v.SetDefault("pipeline.duration_tolerance", 0.1)
	v.SetDefault("pipeline.max_duration", 20.0)
	v.SetDefault("pipeline.max_tokens", 2048)
	v.SetDefault("pipeline.temperature", 0.7)
	v.SetDefault("pipeline.clamp_samples", 16)

	v.SetDefault("playback.fps", 30)
	v.SetDefault("playback.progress_throttle", "100ms")
	v.SetDefault("playback.speed", 1.0)

	v.SetDefault("recording.format", "mp4")
	v.SetDefault("recording.width", 640)
	v.SetDefault("recording.height", 360)
	v.SetDefault("recording.fps", 30)
	v.SetDefault("recording.quality", 23)
	v.SetDefault("recording.poster", true)

	v.SetDefault("observability.logging.level", "info")
	v.SetDefault("observability.logging.format", "text")
	v.SetDefault("observability.tracing.enabled", false)
	v.SetDefault("observability.tracing.endpoint", "localhost:4317")
	v.SetDefault("observability.tracing.sample_rate", 1.0)
	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.path", "/metrics")
}
