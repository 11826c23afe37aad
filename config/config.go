package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/syncwatch/syncwatch/types"
)

var (
	Version    = "dev"
	CommitHash = "unknown"

	// Singleton instance
	configInstance *Config
	configOnce     sync.Once
)

// Default configuration constants
const (
	// Port settings
	DefaultAPIPort     = "8080"
	DefaultMetricsPort = "9090"
	MinPortNumber      = 1
	MaxPortNumber      = 65535

	// Network settings
	DefaultNetworkSubgraphURL = "https://gateway.thegraph.com/api/subgraphs/id/DZz4kDTdmzWLWsV373w2bSmoar3umKKH9y82SUKr5qmp"
	DefaultIPFSURL            = "https://api.thegraph.com/ipfs/api/v0"
	DefaultQueryVolumeURL     = "https://thegraph.com/explorer/api/subgraph/query-volume"

	// Probe settings
	DefaultProbeMode         = types.ProbeDirect
	DefaultProbeTimeout      = 30 * time.Second
	DefaultProbeWorkers      = 10
	DefaultDeploymentWorkers = 4
	MaxAllowedWorkers        = 256

	// Cache settings
	DefaultCacheSize = 1000
	DefaultCacheTTL  = 10 * time.Minute

	// Timeout and interval settings
	DefaultCoolingDuration = 50 * time.Millisecond
	DefaultScanInterval    = 15 * time.Minute

	// Concurrent request settings
	DefaultMaxConcurrentRequests = 50
	MaxAllowedConcurrentRequests = 1000

	// Metrics settings
	DefaultMetricsPath = "/metrics"

	// Output settings
	DefaultOutputDir = "."

	// Default environment
	DefaultEnvironment = "local"
)

type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
	Port    string `json:"port"`
}

// SentryConfig contains configuration for Sentry integration
type SentryConfig struct {
	DSN              string  `json:"dsn"`
	SampleRate       float64 `json:"sample_rate"`        // General sample rate (fallback)
	TracesSampleRate float64 `json:"traces_sample_rate"` // Traces sample rate
	Environment      string  `json:"environment"`
}

func SetBuildInfo(v, commit string) {
	Version = v
	CommitHash = commit
}

type Config struct {
	listenPort            string
	networkConfig         *NetworkConfig
	probeConfig           *ProbeConfig
	logLevel              string
	logFormat             string
	coolingDuration       time.Duration // for upstream retries only
	maxConcurrentRequests int
	cacheSize             int
	cacheTTL              time.Duration
	scanInterval          time.Duration // for serve only
	outputDir             string
	environment           string
	metricsConfig         *MetricsConfig
	sentryConfig          *SentryConfig
}

func setDefaults() {
	viper.SetDefault("PORT", DefaultAPIPort)
	viper.SetDefault("NETWORK_SUBGRAPH_URL", DefaultNetworkSubgraphURL)
	viper.SetDefault("IPFS_URL", DefaultIPFSURL)
	viper.SetDefault("QUERY_VOLUME_ENABLED", true)
	viper.SetDefault("QUERY_VOLUME_URL", DefaultQueryVolumeURL)
	viper.SetDefault("PROBE_MODE", string(DefaultProbeMode))
	viper.SetDefault("PROBE_TIMEOUT", DefaultProbeTimeout)
	viper.SetDefault("PROBE_WORKERS", DefaultProbeWorkers)
	viper.SetDefault("DEPLOYMENT_WORKERS", DefaultDeploymentWorkers)
	viper.SetDefault("COOLING_DURATION", DefaultCoolingDuration)
	viper.SetDefault("MAX_CONCURRENT_REQUESTS", DefaultMaxConcurrentRequests)
	viper.SetDefault("LOG_LEVEL", "warn")
	viper.SetDefault("LOG_FORMAT", "json")
	viper.SetDefault("CACHE_SIZE", DefaultCacheSize)
	viper.SetDefault("CACHE_TTL", DefaultCacheTTL)
	viper.SetDefault("SCAN_INTERVAL", DefaultScanInterval)
	viper.SetDefault("OUTPUT_DIR", DefaultOutputDir)
	viper.SetDefault("METRICS_ENABLED", false)
	viper.SetDefault("METRICS_PATH", DefaultMetricsPath)
	viper.SetDefault("METRICS_PORT", DefaultMetricsPort)
	viper.SetDefault("ENVIRONMENT", DefaultEnvironment)

	// Sentry defaults
	viper.SetDefault("SENTRY_DSN", "")
	viper.SetDefault("SENTRY_SAMPLE_RATE", 0.01)
	viper.SetDefault("SENTRY_TRACES_SAMPLE_RATE", 0.01)

	//  THEGRAPH_API_KEY, ACCOUNTS and PROGRESS_URL have no defaults
}

func GetConfig() (*Config, error) {
	var err error

	configOnce.Do(func() {
		configInstance, err = New()
	})

	return configInstance, err
}

// New loads a fresh configuration from the environment and .env, bypassing
// the GetConfig singleton.
func New() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// just log without panic, local testing purpose only
		fmt.Fprintln(os.Stderr, "No .env file found")
	}
	viper.AutomaticEnv()
	setDefaults()

	config := &Config{
		listenPort: viper.GetString("PORT"),
		networkConfig: &NetworkConfig{
			SubgraphURL:        viper.GetString("NETWORK_SUBGRAPH_URL"),
			APIKey:             viper.GetString("THEGRAPH_API_KEY"),
			Accounts:           ParseAccounts(viper.GetString("ACCOUNTS")),
			IPFSURL:            viper.GetString("IPFS_URL"),
			QueryVolumeEnabled: viper.GetBool("QUERY_VOLUME_ENABLED"),
			QueryVolumeURL:     viper.GetString("QUERY_VOLUME_URL"),
		},
		probeConfig: &ProbeConfig{
			Mode:              types.ProbeKind(viper.GetString("PROBE_MODE")),
			ProgressURL:       viper.GetString("PROGRESS_URL"),
			Timeout:           viper.GetDuration("PROBE_TIMEOUT"),
			Workers:           viper.GetInt("PROBE_WORKERS"),
			DeploymentWorkers: viper.GetInt("DEPLOYMENT_WORKERS"),
		},
		logLevel:              viper.GetString("LOG_LEVEL"),
		logFormat:             viper.GetString("LOG_FORMAT"),
		coolingDuration:       viper.GetDuration("COOLING_DURATION"),
		maxConcurrentRequests: viper.GetInt("MAX_CONCURRENT_REQUESTS"),
		cacheSize:             viper.GetInt("CACHE_SIZE"),
		cacheTTL:              viper.GetDuration("CACHE_TTL"),
		scanInterval:          viper.GetDuration("SCAN_INTERVAL"),
		outputDir:             viper.GetString("OUTPUT_DIR"),
		environment:           viper.GetString("ENVIRONMENT"),
		metricsConfig: &MetricsConfig{
			Enabled: viper.GetBool("METRICS_ENABLED"),
			Path:    viper.GetString("METRICS_PATH"),
			Port:    viper.GetString("METRICS_PORT"),
		},
		sentryConfig: &SentryConfig{
			DSN:              viper.GetString("SENTRY_DSN"),
			SampleRate:       viper.GetFloat64("SENTRY_SAMPLE_RATE"),
			TracesSampleRate: viper.GetFloat64("SENTRY_TRACES_SAMPLE_RATE"),
			Environment:      viper.GetString("ENVIRONMENT"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c Config) GetListenPort() string {
	return c.listenPort
}

func (c Config) GetNetworkConfig() *NetworkConfig {
	return c.networkConfig
}

func (c Config) GetProbeConfig() *ProbeConfig {
	return c.probeConfig
}

// SetAccounts replaces the tracked accounts, e.g. from command line flags.
func (c *Config) SetAccounts(accounts []string) {
	c.networkConfig.Accounts = accounts
}

func (c Config) GetAccounts() []string {
	return c.networkConfig.Accounts
}

// SetProbeMode overrides the probe mode and re-validates the probe config.
func (c *Config) SetProbeMode(mode types.ProbeKind) error {
	pc := *c.probeConfig
	pc.Mode = mode
	if err := pc.Validate(); err != nil {
		return err
	}
	c.probeConfig = &pc
	return nil
}

func (c *Config) SetOutputDir(dir string) {
	c.outputDir = dir
}

func (c Config) GetOutputDir() string {
	return c.outputDir
}

func (c Config) GetCacheSize() int {
	return c.cacheSize
}

func (c Config) GetCacheTTL() time.Duration {
	return c.cacheTTL
}

func (c Config) GetScanInterval() time.Duration {
	return c.scanInterval
}

func (c Config) GetEnvironment() string {
	return c.environment
}

func (c Config) GetSentryConfig() *SentryConfig {
	if c.sentryConfig == nil || c.sentryConfig.DSN == "" {
		return nil
	}
	return c.sentryConfig
}

func (c Config) GetLogLevel() slog.Level {
	switch c.logLevel {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

func (c Config) GetCoolingDuration() time.Duration {
	return c.coolingDuration
}

func (c Config) GetMaxConcurrentRequests() int {
	return c.maxConcurrentRequests
}

func (c Config) GetMetricsConfig() *MetricsConfig {
	return c.metricsConfig
}

func (c Config) GetLogFormat() string {
	if c.logFormat == "json" {
		return "json"
	}
	return "plain"
}

func (c Config) Validate() error {
	if err := c.validatePort(); err != nil {
		return err
	}
	if err := c.validateLogSettings(); err != nil {
		return err
	}
	if err := c.validateNumericSettings(); err != nil {
		return err
	}
	if err := c.validateMetricsConfig(); err != nil {
		return err
	}
	if err := c.validateSubConfigs(); err != nil {
		return err
	}
	return nil
}

// validatePort validates the listen port configuration
func (c Config) validatePort() error {
	if len(c.listenPort) == 0 {
		return types.NewValidationError("PORT", "required field is missing")
	}
	if port, err := strconv.Atoi(c.listenPort); err != nil || port < MinPortNumber || port > MaxPortNumber {
		return types.NewValidationError("PORT", fmt.Sprintf("must be a valid port number (%d-%d)", MinPortNumber, MaxPortNumber))
	}
	return nil
}

// validateLogSettings validates log format and level configuration
func (c Config) validateLogSettings() error {
	switch c.logFormat {
	case "json", "plain":
		break
	default:
		return types.NewValidationError("LOG_FORMAT", fmt.Sprintf("invalid value '%s', must be 'json' or 'plain'", c.logFormat))
	}

	switch c.logLevel {
	case "debug", "info", "warn", "error":
		break
	default:
		return types.NewValidationError("LOG_LEVEL", fmt.Sprintf("invalid value '%s', must be one of: debug, info, warn, error", c.logLevel))
	}
	return nil
}

// validateNumericSettings validates all numeric configuration values
func (c Config) validateNumericSettings() error {
	if c.cacheSize < 1 {
		return types.NewValidationError("CACHE_SIZE", "must be at least 1")
	}
	if c.cacheTTL < 0 {
		return types.NewValidationError("CACHE_TTL", "must be non-negative")
	}
	if c.scanInterval <= 0 {
		return types.NewValidationError("SCAN_INTERVAL", "must be positive")
	}
	if c.coolingDuration < 0 {
		return types.NewValidationError("COOLING_DURATION", "must be non-negative")
	}
	if c.maxConcurrentRequests < 1 {
		return types.NewValidationError("MAX_CONCURRENT_REQUESTS", "must be at least 1")
	}
	if c.maxConcurrentRequests > MaxAllowedConcurrentRequests {
		return types.NewInvalidValueError("MAX_CONCURRENT_REQUESTS", fmt.Sprintf("%d", c.maxConcurrentRequests), fmt.Sprintf("must not exceed %d", MaxAllowedConcurrentRequests))
	}
	return nil
}

// validateMetricsConfig validates metrics configuration
func (c Config) validateMetricsConfig() error {
	if c.metricsConfig != nil && c.metricsConfig.Enabled {
		if err := c.validateMetricsPort(); err != nil {
			return err
		}
		if err := c.validateMetricsPath(); err != nil {
			return err
		}
	}
	return nil
}

// validateMetricsPort validates the metrics port configuration
func (c Config) validateMetricsPort() error {
	if port, err := strconv.Atoi(c.metricsConfig.Port); err != nil || port < MinPortNumber || port > MaxPortNumber {
		return types.NewValidationError("METRICS_PORT", fmt.Sprintf("must be a valid port number (%d-%d)", MinPortNumber, MaxPortNumber))
	}
	if c.metricsConfig.Port == c.listenPort {
		return types.NewValidationError("METRICS_PORT", fmt.Sprintf("metrics port %s conflicts with API port", c.metricsConfig.Port))
	}
	return nil
}

// validateMetricsPath validates the metrics path configuration
func (c Config) validateMetricsPath() error {
	if c.metricsConfig.Path == "" || c.metricsConfig.Path[0] != '/' {
		return types.NewValidationError("METRICS_PATH", "must start with '/'")
	}
	return nil
}

// validateSubConfigs validates nested configuration objects
func (c Config) validateSubConfigs() error {
	if err := c.networkConfig.Validate(); err != nil {
		return err
	}
	if err := c.probeConfig.Validate(); err != nil {
		return err
	}
	return nil
}
