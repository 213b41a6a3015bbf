package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/rcarmo/go-bmp/internal/codec/bmp"
)

// Config holds the application configuration
type Config struct {
	Server   ServerConfig   `json:"server"`
	Decoder  DecoderConfig  `json:"decoder"`
	Security SecurityConfig `json:"security"`
	Logging  LoggingConfig  `json:"logging"`
}

// LoadOptions holds command-line override options. Zero values leave the
// environment or default in place.
type LoadOptions struct {
	Host           string
	Port           string
	LogLevel       string
	LogFormat      string
	MaxWidth       int
	MaxHeight      int
	MaxPixels      int
	MaxUploadBytes int64
	NoColorimetry  bool
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Host         string        `json:"host" env:"SERVER_HOST" default:"0.0.0.0"`
	Port         string        `json:"port" env:"SERVER_PORT" default:"8080"`
	ReadTimeout  time.Duration `json:"readTimeout" env:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout time.Duration `json:"writeTimeout" env:"SERVER_WRITE_TIMEOUT" default:"30s"`
	IdleTimeout  time.Duration `json:"idleTimeout" env:"SERVER_IDLE_TIMEOUT" default:"120s"`
}

// DecoderConfig bounds what the decode endpoints accept
type DecoderConfig struct {
	MaxWidth         int   `json:"maxWidth" env:"BMP_MAX_WIDTH" default:"32768"`
	MaxHeight        int   `json:"maxHeight" env:"BMP_MAX_HEIGHT" default:"32768"`
	MaxPixels        int   `json:"maxPixels" env:"BMP_MAX_PIXELS" default:"67108864"`
	MaxUploadBytes   int64 `json:"maxUploadBytes" env:"BMP_MAX_UPLOAD_BYTES" default:"67108864"`
	ApplyColorimetry bool  `json:"applyColorimetry" env:"BMP_APPLY_COLORIMETRY" default:"true"`
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	AllowedOrigins     []string `json:"allowedOrigins" env:"ALLOWED_ORIGINS" default:""`
	MaxConnections     int      `json:"maxConnections" env:"MAX_CONNECTIONS" default:"100"`
	EnableRateLimit    bool     `json:"enableRateLimit" env:"ENABLE_RATE_LIMIT" default:"true"`
	RateLimitPerMinute int      `json:"rateLimitPerMinute" env:"RATE_LIMIT_PER_MINUTE" default:"60"`
	EnableTLS          bool     `json:"enableTLS" env:"ENABLE_TLS" default:"false"`
	TLSCertFile        string   `json:"tlsCertFile" env:"TLS_CERT_FILE" default:""`
	TLSKeyFile         string   `json:"tlsKeyFile" env:"TLS_KEY_FILE" default:""`
	MinTLSVersion      string   `json:"minTLSVersion" env:"MIN_TLS_VERSION" default:"1.2"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `json:"level" env:"LOG_LEVEL" default:"info"`
	Format string `json:"format" env:"LOG_FORMAT" default:"text"`
	File   string `json:"file" env:"LOG_FILE" default:""`
}

// Options converts the decoder section into bmp decoder options.
func (d DecoderConfig) Options() bmp.Options {
	return bmp.Options{
		MaxWidth:         d.MaxWidth,
		MaxHeight:        d.MaxHeight,
		MaxPixels:        d.MaxPixels,
		ApplyColorimetry: d.ApplyColorimetry,
	}
}

// Load loads configuration from environment variables with defaults
func Load() (*Config, error) {
	return LoadWithOverrides(LoadOptions{})
}

// LoadWithOverrides loads configuration with command-line overrides. Flags
// win over the environment, which wins over the built-in defaults.
func LoadWithOverrides(opts LoadOptions) (*Config, error) {
	cfg := &Config{
		Server:   loadServer(opts),
		Decoder:  loadDecoder(opts),
		Security: loadSecurity(),
		Logging:  loadLogging(opts),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func loadServer(opts LoadOptions) ServerConfig {
	return ServerConfig{
		Host:         getOverrideOrEnv(opts.Host, "SERVER_HOST", "0.0.0.0"),
		Port:         getOverrideOrEnv(opts.Port, "SERVER_PORT", "8080"),
		ReadTimeout:  getDurationWithDefault("SERVER_READ_TIMEOUT", 30*time.Second),
		WriteTimeout: getDurationWithDefault("SERVER_WRITE_TIMEOUT", 30*time.Second),
		IdleTimeout:  getDurationWithDefault("SERVER_IDLE_TIMEOUT", 120*time.Second),
	}
}

func loadDecoder(opts LoadOptions) DecoderConfig {
	defaults := bmp.DefaultOptions()
	d := DecoderConfig{
		MaxWidth:         getIntWithDefault("BMP_MAX_WIDTH", defaults.MaxWidth),
		MaxHeight:        getIntWithDefault("BMP_MAX_HEIGHT", defaults.MaxHeight),
		MaxPixels:        getIntWithDefault("BMP_MAX_PIXELS", defaults.MaxPixels),
		MaxUploadBytes:   getInt64WithDefault("BMP_MAX_UPLOAD_BYTES", 64<<20),
		ApplyColorimetry: getBoolWithDefault("BMP_APPLY_COLORIMETRY", defaults.ApplyColorimetry),
	}
	if opts.MaxWidth > 0 {
		d.MaxWidth = opts.MaxWidth
	}
	if opts.MaxHeight > 0 {
		d.MaxHeight = opts.MaxHeight
	}
	if opts.MaxPixels > 0 {
		d.MaxPixels = opts.MaxPixels
	}
	if opts.MaxUploadBytes > 0 {
		d.MaxUploadBytes = opts.MaxUploadBytes
	}
	if opts.NoColorimetry {
		d.ApplyColorimetry = false
	}
	return d
}

func loadSecurity() SecurityConfig {
	return SecurityConfig{
		AllowedOrigins:     getStringSliceWithDefault("ALLOWED_ORIGINS", []string{}),
		MaxConnections:     getIntWithDefault("MAX_CONNECTIONS", 100),
		EnableRateLimit:    getBoolWithDefault("ENABLE_RATE_LIMIT", true),
		RateLimitPerMinute: getIntWithDefault("RATE_LIMIT_PER_MINUTE", 60),
		EnableTLS:          getBoolWithDefault("ENABLE_TLS", false),
		TLSCertFile:        getEnvWithDefault("TLS_CERT_FILE", ""),
		TLSKeyFile:         getEnvWithDefault("TLS_KEY_FILE", ""),
		MinTLSVersion:      getEnvWithDefault("MIN_TLS_VERSION", "1.2"),
	}
}

func loadLogging(opts LoadOptions) LoggingConfig {
	return LoggingConfig{
		Level:  getOverrideOrEnv(opts.LogLevel, "LOG_LEVEL", "info"),
		Format: getOverrideOrEnv(opts.LogFormat, "LOG_FORMAT", "text"),
		File:   getEnvWithDefault("LOG_FILE", ""),
	}
}

// Validate checks each section in turn and returns the first problem.
func (c *Config) Validate() error {
	for _, check := range []func() error{
		c.Server.validate,
		c.Decoder.validate,
		c.Security.validate,
		c.Logging.validate,
	} {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

func (s ServerConfig) validate() error {
	if s.Port == "" {
		return errors.New("server port cannot be empty")
	}
	if port, err := strconv.Atoi(s.Port); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid server port: %s", s.Port)
	}
	return nil
}

func (d DecoderConfig) validate() error {
	if d.MaxWidth <= 0 || d.MaxHeight <= 0 || d.MaxPixels <= 0 {
		return errors.New("decoder dimension limits must be positive")
	}
	if d.MaxUploadBytes <= 0 {
		return errors.New("max upload bytes must be positive")
	}
	return nil
}

func (s SecurityConfig) validate() error {
	if s.EnableTLS {
		if s.TLSCertFile == "" || s.TLSKeyFile == "" {
			return errors.New("TLS certificate and key files must be specified when TLS is enabled")
		}
		for _, f := range [...]struct{ kind, path string }{
			{"certificate", s.TLSCertFile},
			{"key", s.TLSKeyFile},
		} {
			if _, err := os.Stat(f.path); errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("TLS %s file does not exist: %s", f.kind, f.path)
			}
		}
	}

	if !slices.Contains(validTLSVersions, s.MinTLSVersion) {
		return fmt.Errorf("invalid minimum TLS version: %s", s.MinTLSVersion)
	}
	if s.MaxConnections <= 0 {
		return errors.New("max connections must be positive")
	}
	if s.RateLimitPerMinute <= 0 {
		return errors.New("rate limit per minute must be positive")
	}
	return nil
}

var (
	validTLSVersions = []string{"1.2", "1.3"}
	validLogLevels   = []string{"debug", "info", "warn", "error"}
	validLogFormats  = []string{"text", "json"}
)

func (l LoggingConfig) validate() error {
	if !slices.Contains(validLogLevels, l.Level) {
		return fmt.Errorf("invalid log level: %s", l.Level)
	}
	if !slices.Contains(validLogFormats, l.Format) {
		return fmt.Errorf("invalid log format: %s", l.Format)
	}
	return nil
}

// envValue parses the variable named key, falling back to def when it is
// unset, empty or unparsable.
func envValue[T any](key string, def T, parse func(string) (T, error)) T {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := parse(raw)
	if err != nil {
		return def
	}
	return v
}

func getEnvWithDefault(key, defaultValue string) string {
	return envValue(key, defaultValue, func(s string) (string, error) { return s, nil })
}

func getIntWithDefault(key string, defaultValue int) int {
	return envValue(key, defaultValue, strconv.Atoi)
}

func getInt64WithDefault(key string, defaultValue int64) int64 {
	return envValue(key, defaultValue, func(s string) (int64, error) { return strconv.ParseInt(s, 10, 64) })
}

func getBoolWithDefault(key string, defaultValue bool) bool {
	return envValue(key, defaultValue, strconv.ParseBool)
}

func getDurationWithDefault(key string, defaultValue time.Duration) time.Duration {
	return envValue(key, defaultValue, time.ParseDuration)
}

func getStringSliceWithDefault(key string, defaultValue []string) []string {
	return envValue(key, defaultValue, func(s string) ([]string, error) { return splitString(s, ","), nil })
}

// getOverrideOrEnv returns command-line override value, env value, or default
func getOverrideOrEnv(override, envKey, defaultValue string) string {
	if override != "" {
		return override
	}
	return getEnvWithDefault(envKey, defaultValue)
}

// splitString splits on sep and drops blank elements. It never returns nil.
func splitString(s, sep string) []string {
	result := []string{}
	for _, part := range strings.Split(s, sep) {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
