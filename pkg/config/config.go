package config

import (
	"fmt"
	"slices"
	"time"

	gethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/ChainReplay/internal/common"
	"github.com/goran-ethernal/ChainReplay/internal/logger"
)

const (
	// StorageMemory keeps a write-through copy in process memory (no durability).
	StorageMemory = "memory"
	// StorageSQLite persists indexed events to a SQLite database.
	StorageSQLite = "sqlite"
	// StorageRedis persists indexed events to Redis.
	StorageRedis = "redis"

	// MaxReplayBatchSize is the hard cap on blocks per replay batch.
	MaxReplayBatchSize = 10000
	// MaxReplayDelay is the largest accepted inter-batch delay.
	MaxReplayDelay = 60 * time.Second
)

// Config represents the complete configuration for ChainReplay.
type Config struct {
	// Chain contains the chain data source configuration
	Chain ChainConfig `yaml:"chain" json:"chain" toml:"chain"`

	// Parser contains the event signatures the parser decodes
	Parser ParserConfig `yaml:"parser" json:"parser" toml:"parser"`

	// Indexer contains the event indexer configuration
	Indexer IndexerConfig `yaml:"indexer" json:"indexer" toml:"indexer"`

	// Replay contains replay engine defaults
	Replay ReplayConfig `yaml:"replay" json:"replay" toml:"replay"`

	// Live contains the live follower configuration
	Live *LiveConfig `yaml:"live,omitempty" json:"live,omitempty" toml:"live,omitempty"`

	// Notifications contains external notification sinks
	Notifications *NotificationsConfig `yaml:"notifications,omitempty" json:"notifications,omitempty" toml:"notifications,omitempty"` //nolint:lll

	// API contains REST API configuration
	API *APIConfig `yaml:"api,omitempty" json:"api,omitempty" toml:"api,omitempty"`

	// Logging contains logging configuration
	Logging *LoggingConfig `yaml:"logging,omitempty" json:"logging,omitempty" toml:"logging,omitempty"`

	// Metrics contains Prometheus metrics configuration
	Metrics *MetricsConfig `yaml:"metrics,omitempty" json:"metrics,omitempty" toml:"metrics,omitempty"`
}

// ChainConfig represents the chain data source configuration.
type ChainConfig struct {
	// RPCURL is the JSON-RPC endpoint URL
	RPCURL string `yaml:"rpc_url" json:"rpc_url" toml:"rpc_url"`

	// ChainID identifies the chain in indexed events (e.g. "1", "ethereum")
	ChainID string `yaml:"chain_id" json:"chain_id" toml:"chain_id"`

	// AverageBlockTime is used to translate time bounds into block numbers
	AverageBlockTime common.Duration `yaml:"average_block_time" json:"average_block_time" toml:"average_block_time"`

	// FetchTimeout bounds a single block range fetch (0 = no timeout)
	FetchTimeout common.Duration `yaml:"fetch_timeout" json:"fetch_timeout" toml:"fetch_timeout"`

	// Retry contains RPC retry configuration with exponential backoff
	Retry *RetryConfig `yaml:"retry,omitempty" json:"retry,omitempty" toml:"retry,omitempty"`
}

// ApplyDefaults sets default values for optional chain configuration fields.
func (c *ChainConfig) ApplyDefaults() {
	if c.ChainID == "" {
		c.ChainID = "1"
	}
	if c.AverageBlockTime.Duration == 0 {
		c.AverageBlockTime = common.NewDuration(12 * time.Second) //nolint:mnd
	}
	if c.FetchTimeout.Duration == 0 {
		c.FetchTimeout = common.NewDuration(30 * time.Second) //nolint:mnd
	}
	if c.Retry != nil {
		c.Retry.ApplyDefaults()
	}
}

// RetryConfig represents RPC retry configuration with exponential backoff.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including initial request)
	MaxAttempts int `yaml:"max_attempts" json:"max_attempts" toml:"max_attempts"`

	// InitialBackoff is the initial backoff duration before first retry
	InitialBackoff common.Duration `yaml:"initial_backoff" json:"initial_backoff" toml:"initial_backoff"`

	// MaxBackoff is the maximum backoff duration
	MaxBackoff common.Duration `yaml:"max_backoff" json:"max_backoff" toml:"max_backoff"`

	// BackoffMultiplier is the multiplier for exponential backoff
	BackoffMultiplier float64 `yaml:"backoff_multiplier" json:"backoff_multiplier" toml:"backoff_multiplier"`
}

// ApplyDefaults sets default values for retry configuration.
func (r *RetryConfig) ApplyDefaults() {
	if r.MaxAttempts == 0 {
		r.MaxAttempts = 5
	}
	if r.InitialBackoff.Duration == 0 {
		r.InitialBackoff = common.NewDuration(1 * time.Second)
	}
	if r.MaxBackoff.Duration == 0 {
		r.MaxBackoff = common.NewDuration(30 * time.Second) //nolint:mnd
	}
	if r.BackoffMultiplier == 0 {
		r.BackoffMultiplier = 2.0
	}
}

// ParserConfig lists the contracts and event signatures the parser understands.
type ParserConfig struct {
	// Contracts maps contract addresses to the event signatures they emit.
	// An empty address matches logs from any contract.
	Contracts []ContractConfig `yaml:"contracts" json:"contracts" toml:"contracts"`
}

// ContractConfig represents a contract and its events to decode.
type ContractConfig struct {
	// Address is the contract address ("" = any address)
	Address string `yaml:"address" json:"address" toml:"address"`

	// Events is the list of event signatures to decode
	// Format: "Transfer(address indexed from, address indexed to, uint256 amount)"
	Events []string `yaml:"events" json:"events" toml:"events"`
}

// IndexerConfig represents the event indexer configuration.
type IndexerConfig struct {
	// Storage selects the persistence backend: "memory", "sqlite" or "redis"
	Storage string `yaml:"storage" json:"storage" toml:"storage"`

	// DB contains database configuration for the sqlite backend
	DB DatabaseConfig `yaml:"db" json:"db" toml:"db"`

	// Redis contains connection settings for the redis backend
	Redis *RedisConfig `yaml:"redis,omitempty" json:"redis,omitempty" toml:"redis,omitempty"`

	// Retention removes events older than this window (0 = keep forever)
	Retention common.Duration `yaml:"retention" json:"retention" toml:"retention"`

	// CleanupInterval is how often the retention worker runs
	CleanupInterval common.Duration `yaml:"cleanup_interval" json:"cleanup_interval" toml:"cleanup_interval"`

	// DefaultPageLimit is used by searches that do not set a limit
	DefaultPageLimit int `yaml:"default_page_limit" json:"default_page_limit" toml:"default_page_limit"`
}

// ApplyDefaults sets default values for optional indexer configuration fields.
func (i *IndexerConfig) ApplyDefaults() {
	if i.Storage == "" {
		i.Storage = StorageMemory
	}
	if i.CleanupInterval.Duration == 0 {
		i.CleanupInterval = common.NewDuration(time.Hour)
	}
	if i.DefaultPageLimit == 0 {
		i.DefaultPageLimit = 100
	}
	if i.Storage == StorageSQLite {
		i.DB.ApplyDefaults()
	}
	if i.Redis != nil {
		i.Redis.ApplyDefaults()
	}
}

// Validate checks if the indexer configuration is valid.
func (i *IndexerConfig) Validate() error {
	switch i.Storage {
	case StorageMemory:
	case StorageSQLite:
		if i.DB.Path == "" {
			return fmt.Errorf("indexer.db.path is required for sqlite storage")
		}
		if err := i.DB.Validate(); err != nil {
			return fmt.Errorf("indexer.db: %w", err)
		}
	case StorageRedis:
		if i.Redis == nil || i.Redis.URL == "" {
			return fmt.Errorf("indexer.redis.url is required for redis storage")
		}
	default:
		return fmt.Errorf("indexer.storage must be one of: memory, sqlite, redis")
	}

	if i.Retention.Duration < 0 {
		return fmt.Errorf("indexer.retention must not be negative")
	}
	if i.DefaultPageLimit < 1 {
		return fmt.Errorf("indexer.default_page_limit must be positive")
	}

	return nil
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	// URL is a redis:// connection URL
	URL string `yaml:"url" json:"url" toml:"url"`

	// Password overrides the password from URL
	Password string `yaml:"password,omitempty" json:"password,omitempty" toml:"password,omitempty"`

	// KeyPrefix namespaces all keys written by the indexer
	KeyPrefix string `yaml:"key_prefix" json:"key_prefix" toml:"key_prefix"`
}

// ApplyDefaults sets default values for redis configuration.
func (r *RedisConfig) ApplyDefaults() {
	if r.KeyPrefix == "" {
		r.KeyPrefix = "chainreplay:"
	}
}

// DatabaseConfig represents database configuration.
type DatabaseConfig struct {
	// Path is the file path to the SQLite database
	Path string `yaml:"path" json:"path" toml:"path"`

	// JournalMode sets the SQLite journal mode (e.g., "WAL", "DELETE")
	// WAL mode is recommended for better concurrency
	JournalMode string `yaml:"journal_mode" json:"journal_mode" toml:"journal_mode"`

	// Synchronous sets the synchronization level ("FULL", "NORMAL", "OFF")
	Synchronous string `yaml:"synchronous" json:"synchronous" toml:"synchronous"`

	// BusyTimeout is the time in milliseconds to wait when the database is locked
	BusyTimeout int `yaml:"busy_timeout" json:"busy_timeout" toml:"busy_timeout"`

	// CacheSize is the size of the page cache (negative = KB, positive = pages)
	CacheSize int `yaml:"cache_size" json:"cache_size" toml:"cache_size"`

	// MaxOpenConnections is the maximum number of open database connections
	MaxOpenConnections int `yaml:"max_open_connections" json:"max_open_connections" toml:"max_open_connections"`

	// MaxIdleConnections is the maximum number of idle connections in the pool
	MaxIdleConnections int `yaml:"max_idle_connections" json:"max_idle_connections" toml:"max_idle_connections"`
}

// ApplyDefaults sets default values for optional database configuration fields.
func (d *DatabaseConfig) ApplyDefaults() {
	if d.JournalMode == "" {
		d.JournalMode = "WAL"
	}
	if d.Synchronous == "" {
		d.Synchronous = "NORMAL"
	}
	if d.BusyTimeout == 0 {
		d.BusyTimeout = 5000
	}
	if d.CacheSize == 0 {
		d.CacheSize = 10000
	}
	if d.MaxOpenConnections == 0 {
		d.MaxOpenConnections = 25
	}
	if d.MaxIdleConnections == 0 {
		d.MaxIdleConnections = 5
	}
}

// Validate checks the SQLite pragmas.
func (d *DatabaseConfig) Validate() error {
	if d.JournalMode != "" &&
		!slices.Contains([]string{"WAL", "DELETE", "TRUNCATE", "PERSIST", "MEMORY"}, d.JournalMode) {
		return fmt.Errorf("journal_mode must be one of: WAL, DELETE, TRUNCATE, PERSIST, MEMORY")
	}
	if d.Synchronous != "" && !slices.Contains([]string{"FULL", "NORMAL", "OFF"}, d.Synchronous) {
		return fmt.Errorf("synchronous must be one of: FULL, NORMAL, OFF")
	}
	return nil
}

// ReplayConfig holds the replay engine defaults.
type ReplayConfig struct {
	// BatchSize is the default number of blocks per batch (1..10000)
	BatchSize int `yaml:"batch_size" json:"batch_size" toml:"batch_size"`

	// Delay is the default pause between batches (0..60s)
	Delay common.Duration `yaml:"delay" json:"delay" toml:"delay"`

	// SkipExisting skips logs whose event id is already indexed
	SkipExisting bool `yaml:"skip_existing" json:"skip_existing" toml:"skip_existing"`

	// MaxConsecutiveFailures aborts a replay after this many batches with no fetched block
	MaxConsecutiveFailures int `yaml:"max_consecutive_failures" json:"max_consecutive_failures" toml:"max_consecutive_failures"` //nolint:lll

	// HistorySize is how many finished sessions are kept for inspection
	HistorySize int `yaml:"history_size" json:"history_size" toml:"history_size"`

	// CheckpointDB enables resumable replays backed by SQLite (nil = in-memory checkpoints)
	CheckpointDB *DatabaseConfig `yaml:"checkpoint_db,omitempty" json:"checkpoint_db,omitempty" toml:"checkpoint_db,omitempty"` //nolint:lll
}

// ApplyDefaults sets default values for replay configuration.
func (r *ReplayConfig) ApplyDefaults() {
	if r.BatchSize == 0 {
		r.BatchSize = 1000
	}
	if r.MaxConsecutiveFailures == 0 {
		r.MaxConsecutiveFailures = 3
	}
	if r.HistorySize == 0 {
		r.HistorySize = 10
	}
	if r.CheckpointDB != nil {
		r.CheckpointDB.ApplyDefaults()
	}
}

// Validate checks if the replay configuration is valid.
func (r *ReplayConfig) Validate() error {
	if r.BatchSize < 1 || r.BatchSize > MaxReplayBatchSize {
		return fmt.Errorf("replay.batch_size must be between 1 and %d", MaxReplayBatchSize)
	}
	if r.Delay.Duration < 0 || r.Delay.Duration > MaxReplayDelay {
		return fmt.Errorf("replay.delay must be between 0 and %s", MaxReplayDelay)
	}
	if r.MaxConsecutiveFailures < 1 {
		return fmt.Errorf("replay.max_consecutive_failures must be positive")
	}
	if r.CheckpointDB != nil {
		if r.CheckpointDB.Path == "" {
			return fmt.Errorf("replay.checkpoint_db.path is required")
		}
		if err := r.CheckpointDB.Validate(); err != nil {
			return fmt.Errorf("replay.checkpoint_db: %w", err)
		}
	}
	return nil
}

// LiveConfig configures the live follower that ingests new blocks as they appear.
type LiveConfig struct {
	// Enabled controls whether the live follower runs
	Enabled bool `yaml:"enabled" json:"enabled" toml:"enabled"`

	// PollInterval is how often the chain head is polled
	PollInterval common.Duration `yaml:"poll_interval" json:"poll_interval" toml:"poll_interval"`

	// Confirmations is how many blocks behind head are considered safe to ingest
	Confirmations uint64 `yaml:"confirmations" json:"confirmations" toml:"confirmations"`

	// MaxBlocksPerPoll caps the range fetched in one poll
	MaxBlocksPerPoll uint64 `yaml:"max_blocks_per_poll" json:"max_blocks_per_poll" toml:"max_blocks_per_poll"`
}

// ApplyDefaults sets default values for live configuration.
func (l *LiveConfig) ApplyDefaults() {
	if l.PollInterval.Duration == 0 {
		l.PollInterval = common.NewDuration(12 * time.Second) //nolint:mnd
	}
	if l.MaxBlocksPerPoll == 0 {
		l.MaxBlocksPerPoll = 100
	}
}

// NotificationsConfig configures external notification sinks.
type NotificationsConfig struct {
	// NATS forwards indexer and replay notifications to NATS subjects
	NATS *NATSConfig `yaml:"nats,omitempty" json:"nats,omitempty" toml:"nats,omitempty"`
}

// NATSConfig holds NATS connection configuration.
type NATSConfig struct {
	// Enabled controls whether notifications are published to NATS
	Enabled bool `yaml:"enabled" json:"enabled" toml:"enabled"`

	// URL is the NATS server URL (e.g., "nats://localhost:4222")
	URL string `yaml:"url" json:"url" toml:"url"`

	// SubjectPrefix is prepended to every notification topic
	SubjectPrefix string `yaml:"subject_prefix" json:"subject_prefix" toml:"subject_prefix"`

	// Topics limits forwarding to these topics (empty = all)
	Topics []string `yaml:"topics,omitempty" json:"topics,omitempty" toml:"topics,omitempty"`
}

// ApplyDefaults sets default values for NATS configuration.
func (n *NATSConfig) ApplyDefaults() {
	if n.URL == "" {
		n.URL = "nats://localhost:4222"
	}
	if n.SubjectPrefix == "" {
		n.SubjectPrefix = "chainreplay"
	}
}

// APIConfig configures the REST API server.
type APIConfig struct {
	// Enabled controls whether the API server runs
	Enabled bool `yaml:"enabled" json:"enabled" toml:"enabled"`

	// ListenAddress is the address to bind the API server to
	ListenAddress string `yaml:"listen_address" json:"listen_address" toml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request
	ReadTimeout common.Duration `yaml:"read_timeout" json:"read_timeout" toml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the response
	WriteTimeout common.Duration `yaml:"write_timeout" json:"write_timeout" toml:"write_timeout"`

	// IdleTimeout is the maximum amount of time to wait for the next request
	IdleTimeout common.Duration `yaml:"idle_timeout" json:"idle_timeout" toml:"idle_timeout"`

	// CORS contains CORS configuration
	CORS CORSConfig `yaml:"cors" json:"cors" toml:"cors"`
}

// CORSConfig configures Cross-Origin Resource Sharing.
type CORSConfig struct {
	// Enabled controls whether CORS headers are added
	Enabled bool `yaml:"enabled" json:"enabled" toml:"enabled"`

	// AllowedOrigins lists the allowed origins ("*" allows all)
	AllowedOrigins []string `yaml:"allowed_origins" json:"allowed_origins" toml:"allowed_origins"`
}

// ApplyDefaults sets default values for API configuration.
func (a *APIConfig) ApplyDefaults() {
	if a.ListenAddress == "" {
		a.ListenAddress = ":8080"
	}
	if a.ReadTimeout.Duration == 0 {
		a.ReadTimeout = common.NewDuration(15 * time.Second) //nolint:mnd
	}
	if a.WriteTimeout.Duration == 0 {
		a.WriteTimeout = common.NewDuration(30 * time.Second) //nolint:mnd
	}
	if a.IdleTimeout.Duration == 0 {
		a.IdleTimeout = common.NewDuration(60 * time.Second) //nolint:mnd
	}
	if a.CORS.Enabled && len(a.CORS.AllowedOrigins) == 0 {
		a.CORS.AllowedOrigins = []string{"*"}
	}
}

// LoggingConfig configures logging behavior with per-component log levels.
type LoggingConfig struct {
	// DefaultLevel is the default log level for all components
	// Options: "debug", "info", "warn", "error"
	DefaultLevel string `yaml:"default_level" json:"default_level" toml:"default_level"`

	// Development enables development mode (stack traces, console encoder)
	Development bool `yaml:"development" json:"development" toml:"development"`

	// ComponentLevels sets log levels for specific components
	// Available components:
	//   - event-indexer: event store and search index
	//   - replay-engine: historical replay
	//   - index-manager: wiring of live ingestion and replay
	//   - live-follower: head polling
	//   - retention: background cleanup
	//   - rpc, store, notifier, api, metrics-server
	ComponentLevels map[string]string `yaml:"component_levels,omitempty" json:"component_levels,omitempty" toml:"component_levels,omitempty"` //nolint:lll
}

// ApplyDefaults sets default values for optional logging configuration fields.
func (l *LoggingConfig) ApplyDefaults() {
	if l.DefaultLevel == "" {
		l.DefaultLevel = "info"
	}
	if l.ComponentLevels == nil {
		l.ComponentLevels = make(map[string]string)
	}
}

// Validate checks if the logging configuration is valid.
func (l *LoggingConfig) Validate() error {
	if l.DefaultLevel != "" {
		if _, valid := logger.ValidLogLevels[common.ToLowerWithTrim(l.DefaultLevel)]; !valid {
			return fmt.Errorf("logging.default_level: must be one of: debug, info, warn, error")
		}
	}

	for component, level := range l.ComponentLevels {
		if _, validComponent := common.AllComponents[common.ToLowerWithTrim(component)]; !validComponent {
			return fmt.Errorf("logging.component_levels: unknown component '%s'", component)
		}

		if _, valid := logger.ValidLogLevels[common.ToLowerWithTrim(level)]; !valid {
			return fmt.Errorf("logging.component_levels[%s]: must be one of: debug, info, warn, error", component)
		}
	}

	return nil
}

// GetComponentLevel returns the log level for a specific component.
// Falls back to DefaultLevel if no component-specific level is set.
func (l *LoggingConfig) GetComponentLevel(component string) string {
	if level, ok := l.ComponentLevels[component]; ok {
		return common.ToLowerWithTrim(level)
	}
	return common.ToLowerWithTrim(l.DefaultLevel)
}

// GetDefaultLevel returns the default log level.
func (l *LoggingConfig) GetDefaultLevel() string {
	return common.ToLowerWithTrim(l.DefaultLevel)
}

// IsDevelopment returns whether development mode is enabled.
func (l *LoggingConfig) IsDevelopment() bool {
	return l.Development
}

// MetricsConfig configures Prometheus metrics exposition.
type MetricsConfig struct {
	// Enabled controls whether metrics collection and HTTP endpoint are active
	Enabled bool `yaml:"enabled" json:"enabled" toml:"enabled"`

	// ListenAddress is the address to bind the metrics HTTP server to
	// Format: "host:port" or ":port"
	ListenAddress string `yaml:"listen_address" json:"listen_address" toml:"listen_address"`

	// Path is the HTTP path where metrics are exposed
	Path string `yaml:"path" json:"path" toml:"path"`
}

// ApplyDefaults sets default values for optional metrics configuration fields.
func (m *MetricsConfig) ApplyDefaults() {
	if m.ListenAddress == "" {
		m.ListenAddress = ":9090"
	}
	if m.Path == "" {
		m.Path = "/metrics"
	}
}

// Validate checks if the metrics configuration is valid.
func (m *MetricsConfig) Validate() error {
	if m.Enabled {
		if m.ListenAddress == "" {
			return fmt.Errorf("listen_address is required when metrics are enabled")
		}
		if m.Path == "" {
			return fmt.Errorf("path is required when metrics are enabled")
		}
		if m.Path[0] != '/' {
			return fmt.Errorf("path must start with '/'")
		}
	}
	return nil
}

// ApplyDefaults sets default values for optional configuration fields.
func (c *Config) ApplyDefaults() {
	c.Chain.ApplyDefaults()
	c.Indexer.ApplyDefaults()
	c.Replay.ApplyDefaults()

	if c.Live != nil {
		c.Live.ApplyDefaults()
	}
	if c.Notifications != nil && c.Notifications.NATS != nil {
		c.Notifications.NATS.ApplyDefaults()
	}
	if c.API != nil {
		c.API.ApplyDefaults()
	}

	// logging is always present so component loggers can be derived from it
	if c.Logging == nil {
		c.Logging = &LoggingConfig{}
	}
	c.Logging.ApplyDefaults()

	if c.Metrics != nil {
		c.Metrics.ApplyDefaults()
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Chain.RPCURL == "" {
		return fmt.Errorf("chain.rpc_url is required")
	}
	if c.Chain.AverageBlockTime.Duration <= 0 {
		return fmt.Errorf("chain.average_block_time must be positive")
	}
	if c.Chain.FetchTimeout.Duration < 0 {
		return fmt.Errorf("chain.fetch_timeout must not be negative")
	}

	if len(c.Parser.Contracts) == 0 {
		return fmt.Errorf("parser: at least one contract must be configured")
	}
	for i, contract := range c.Parser.Contracts {
		if len(contract.Events) == 0 {
			return fmt.Errorf("parser.contracts[%d]: at least one event must be configured", i)
		}
		if contract.Address != "" && !gethcommon.IsHexAddress(contract.Address) {
			return fmt.Errorf("parser.contracts[%d]: invalid address %q", i, contract.Address)
		}
	}

	if err := c.Indexer.Validate(); err != nil {
		return err
	}

	if err := c.Replay.Validate(); err != nil {
		return err
	}

	if c.Notifications != nil && c.Notifications.NATS != nil && c.Notifications.NATS.Enabled &&
		c.Notifications.NATS.URL == "" {
		return fmt.Errorf("notifications.nats.url is required when enabled")
	}

	if c.Logging != nil {
		if err := c.Logging.Validate(); err != nil {
			return err
		}
	}

	if c.Metrics != nil {
		if err := c.Metrics.Validate(); err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
	}

	return nil
}
