package types

import "errors"

// Config holds backend selection and parameters for Registry.Attach plus the
// settings shared by the CLI, the tracker, and the HTTP server.
type Config struct {
	Backend string     `json:"backend" yaml:"backend"`
	DataDir string     `json:"data_dir" yaml:"data_dir"`
	Project string     `json:"project" yaml:"project"`
	Sync    SyncConfig `json:"sync" yaml:"sync"`

	// SinkDSN is the Postgres connection string for the external event
	// sink. Empty means no sink is configured and the tracker stays on
	// the local registry.
	SinkDSN string `json:"sink_dsn,omitempty" yaml:"sink_dsn,omitempty"`

	// ListenAddr is the bind address for the serve command.
	ListenAddr string `json:"listen_addr,omitempty" yaml:"listen_addr,omitempty"`

	// WindowDays is the minimum age, in days, before an untriggered
	// tombstone counts as confirmed dead.
	WindowDays int `json:"window_days,omitempty" yaml:"window_days,omitempty"`

	// DispatchURL, when set, receives a cleanup request for each
	// confirmed-dead tombstone reported through the webhook. DispatchToken
	// is sent as a bearer token.
	DispatchURL   string `json:"dispatch_url,omitempty" yaml:"dispatch_url,omitempty"`
	DispatchToken string `json:"dispatch_token,omitempty" yaml:"dispatch_token,omitempty"`
}

// SyncConfig controls when registry writes reach the JSONL files.
type SyncConfig struct {
	Strategy        string `json:"strategy,omitempty" yaml:"strategy,omitempty"`
	BatchSize       int    `json:"batch_size,omitempty" yaml:"batch_size,omitempty"`
	BatchIntervalMS int    `json:"batch_interval_ms,omitempty" yaml:"batch_interval_ms,omitempty"`
}

// Supported backend names.
const (
	BackendSQLite = "sqlite"
)

// Sync strategy names. Immediate persists on every write, on_close defers
// to Detach, batch flushes by count or interval.
const (
	SyncImmediate = "immediate"
	SyncOnClose   = "on_close"
	SyncBatch     = "batch"
)

// Defaults applied by the getters when the field is zero.
const (
	DefaultWindowDays      = 30
	DefaultListenAddr      = ":8377"
	DefaultBatchSize       = 50
	DefaultBatchIntervalMS = 2000
)

// Config validation errors.
var (
	ErrBackendEmpty         = errors.New("backend must not be empty")
	ErrBackendUnknown       = errors.New("unknown backend")
	ErrProjectEmpty         = errors.New("project must not be empty")
	ErrSyncStrategyUnknown  = errors.New("unknown sync strategy")
	ErrBatchSizeInvalid     = errors.New("batch size must be positive")
	ErrBatchIntervalInvalid = errors.New("batch interval must be positive")
	ErrWindowDaysInvalid    = errors.New("window days must not be negative")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendSQLite: true,
}

// knownSyncStrategies lists the sync strategies that Validate accepts.
var knownSyncStrategies = map[string]bool{
	SyncImmediate: true,
	SyncOnClose:   true,
	SyncBatch:     true,
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure. Empty optional fields are valid; getters
// supply defaults.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	if c.Sync.Strategy != "" && !knownSyncStrategies[c.Sync.Strategy] {
		return ErrSyncStrategyUnknown
	}
	if c.Sync.Strategy == SyncBatch {
		if c.Sync.BatchSize < 0 {
			return ErrBatchSizeInvalid
		}
		if c.Sync.BatchIntervalMS < 0 {
			return ErrBatchIntervalInvalid
		}
	}
	if c.WindowDays < 0 {
		return ErrWindowDaysInvalid
	}
	return nil
}

// GetStrategy returns the effective sync strategy, defaulting to immediate.
func (s SyncConfig) GetStrategy() string {
	if s.Strategy == "" {
		return SyncImmediate
	}
	return s.Strategy
}

// GetBatchSize returns the effective batch size for the batch strategy.
func (s SyncConfig) GetBatchSize() int {
	if s.BatchSize <= 0 {
		return DefaultBatchSize
	}
	return s.BatchSize
}

// GetBatchIntervalMS returns the effective batch interval in milliseconds.
func (s SyncConfig) GetBatchIntervalMS() int {
	if s.BatchIntervalMS <= 0 {
		return DefaultBatchIntervalMS
	}
	return s.BatchIntervalMS
}

// GetWindowDays returns the effective confirmed-dead window.
func (c Config) GetWindowDays() int {
	if c.WindowDays <= 0 {
		return DefaultWindowDays
	}
	return c.WindowDays
}

// GetListenAddr returns the effective HTTP bind address.
func (c Config) GetListenAddr() string {
	if c.ListenAddr == "" {
		return DefaultListenAddr
	}
	return c.ListenAddr
}
