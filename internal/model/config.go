package model

import "time"

// Config is the complete factcheck configuration.
// Defaults come from DefaultConfig; viper layers file, env and flags on top.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Scoring   ScoringConfig   `yaml:"scoring" mapstructure:"scoring"`
	FactCheck FactCheckConfig `yaml:"factcheck" mapstructure:"factcheck"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Events    EventsConfig    `yaml:"events" mapstructure:"events"`
	Recheck   RecheckConfig   `yaml:"recheck" mapstructure:"recheck"`
	Sources   SourcesConfig   `yaml:"sources" mapstructure:"sources"`
	LLM       LLMConfig       `yaml:"llm" mapstructure:"llm"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
	Workers   int             `yaml:"workers" mapstructure:"workers"`
}

// StoreConfig selects the record store and vote ledger backend
type StoreConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver"` // sqlite, firestore, memory
	Path   string `yaml:"path" mapstructure:"path"`     // sqlite data directory

	FirestoreProject     string `yaml:"firestore_project" mapstructure:"firestore_project"`
	FirestoreCredentials string `yaml:"firestore_credentials" mapstructure:"firestore_credentials"` // service account file
	FirestoreCollection  string `yaml:"firestore_collection" mapstructure:"firestore_collection"`
}

// ScoringConfig bounds scorer input
type ScoringConfig struct {
	MaxClaimLength int `yaml:"max_claim_length" mapstructure:"max_claim_length"` // runes
}

// FactCheckConfig tunes the service
type FactCheckConfig struct {
	RecheckOnVote bool `yaml:"recheck_on_vote" mapstructure:"recheck_on_vote"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Addr            string        `yaml:"addr" mapstructure:"addr"`
	JWTSecret       string        `yaml:"jwt_secret,omitempty" mapstructure:"jwt_secret"`
	ReadTimeout     time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout" mapstructure:"request_timeout"`
	VotesPerSecond  float64       `yaml:"votes_per_second" mapstructure:"votes_per_second"`
	VoteBurst       int           `yaml:"vote_burst" mapstructure:"vote_burst"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	MaxRequestBytes int64         `yaml:"max_request_bytes" mapstructure:"max_request_bytes"`
	IdentityHeader  string        `yaml:"identity_header,omitempty" mapstructure:"identity_header"` // empty: DefaultIdentityHeader, but only without a jwt_secret
	EnableMetrics   bool          `yaml:"enable_metrics" mapstructure:"enable_metrics"`
}

// EventsConfig configures vote event publishing
type EventsConfig struct {
	NATSURL string `yaml:"nats_url" mapstructure:"nats_url"` // empty disables events
	Subject string `yaml:"subject" mapstructure:"subject"`
	Queue   string `yaml:"queue" mapstructure:"queue"`
}

// RecheckConfig configures the periodic recheck sweep
type RecheckConfig struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	Schedule string `yaml:"schedule" mapstructure:"schedule"` // cron expression or @every
	Limit    int    `yaml:"limit" mapstructure:"limit"`       // records per sweep
}

// SourcesConfig configures optional source previews
type SourcesConfig struct {
	Inspect           bool          `yaml:"inspect" mapstructure:"inspect"`
	Timeout           time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent         string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes      int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int           `yaml:"burst" mapstructure:"burst"`
	RespectRobots     bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	HTTPProxy         string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy        string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	PrimaryDomains    []string      `yaml:"primary_domains" mapstructure:"primary_domains"`
	SecondaryDomains  []string      `yaml:"secondary_domains" mapstructure:"secondary_domains"`
	CacheDir          string        `yaml:"cache_dir,omitempty" mapstructure:"cache_dir"` // empty keeps previews in memory only
	CacheTTL          time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`
}

// LLMConfig configures the optional narrative explanation
type LLMConfig struct {
	Provider  string `yaml:"provider" mapstructure:"provider"` // openai, ollama, "" (disabled)
	Model     string `yaml:"model" mapstructure:"model"`
	APIKey    string `yaml:"-" mapstructure:"api_key"`
	BaseURL   string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout   int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// LogConfig configures slog output
type LogConfig struct {
	Verbose bool   `yaml:"verbose" mapstructure:"verbose"`
	Format  string `yaml:"format" mapstructure:"format"` // text, json
}

// DefaultIdentityHeader carries the voter id when no token secret is set
const DefaultIdentityHeader = "X-User-ID"

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Driver:              "sqlite",
			FirestoreCollection: "fact-checks",
		},
		Scoring: ScoringConfig{
			MaxClaimLength: 10000,
		},
		FactCheck: FactCheckConfig{
			RecheckOnVote: true,
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			RequestTimeout:  15 * time.Second,
			VotesPerSecond:  1,
			VoteBurst:       5,
			ShutdownTimeout: 10 * time.Second,
			MaxRequestBytes: 1 << 20,
			EnableMetrics:   true,
		},
		Events: EventsConfig{
			Subject: "factcheck.votes",
			Queue:   "factcheck-recheck",
		},
		Recheck: RecheckConfig{
			Enabled:  false,
			Schedule: "@every 15m",
			Limit:    100,
		},
		Sources: SourcesConfig{
			Inspect:           false,
			Timeout:           10 * time.Second,
			UserAgent:         "SafeProtestFactCheck/0.1 (+https://github.com/safeprotest/factcheck)",
			MaxBodyBytes:      512_000,
			RequestsPerSecond: 2,
			Burst:             2,
			RespectRobots:     true,
			PrimaryDomains:    []string{"gov", "gov.uk", "europa.eu", "un.org", "who.int", "supremecourt.gov"},
			SecondaryDomains:  []string{"reuters.com", "apnews.com", "bbc.co.uk", "bbc.com", "npr.org", "pbs.org"},
			CacheTTL:          6 * time.Hour,
		},
		LLM: LLMConfig{
			Timeout:   30,
			MaxTokens: 400,
		},
		Log: LogConfig{
			Format: "text",
		},
		Workers: 4,
	}
}
