package config

// Config is the persistent memorygraph configuration, stored as config.toml.
// The TOML layout uses sections for logical grouping.
type Config struct {
	Version   int             `toml:"version" mapstructure:"version"`
	Storage   StorageConfig   `toml:"storage" mapstructure:"storage"`
	API       APIConfig       `toml:"api" mapstructure:"api"`
	Retrieval RetrievalConfig `toml:"retrieval" mapstructure:"retrieval"`
	Scoring   ScoringConfig   `toml:"scoring" mapstructure:"scoring"`
	Feedback  FeedbackConfig  `toml:"feedback" mapstructure:"feedback"`
	Events    EventsConfig    `toml:"events" mapstructure:"events"`
}

// StorageConfig selects the storage backend. When both are empty the server
// runs on the in-memory driver; a Postgres URL wins over a SQLite path.
type StorageConfig struct {
	SQLitePath  string `toml:"sqlite_path,omitempty" mapstructure:"sqlite_path"`
	PostgresURL string `toml:"postgres_url,omitempty" mapstructure:"postgres_url"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty" mapstructure:"listen"`
}

// RetrievalConfig holds ranking settings.
type RetrievalConfig struct {
	TopK int `toml:"top_k,omitempty" mapstructure:"top_k"`
}

// ScoringConfig holds the tunable scoring constants. Zero values fall back
// to the engine defaults.
type ScoringConfig struct {
	HalfLifeHours    float64 `toml:"half_life_hours,omitempty" mapstructure:"half_life_hours"`
	IntentBonus      float64 `toml:"intent_bonus,omitempty" mapstructure:"intent_bonus"`
	AssocBonusPerTag float64 `toml:"assoc_bonus_per_tag,omitempty" mapstructure:"assoc_bonus_per_tag"`
	AssocBonusCap    float64 `toml:"assoc_bonus_cap,omitempty" mapstructure:"assoc_bonus_cap"`
	SurfacedPenalty  float64 `toml:"surfaced_penalty,omitempty" mapstructure:"surfaced_penalty"`
}

// FeedbackConfig holds the online-update settings.
type FeedbackConfig struct {
	LearningRate float64 `toml:"learning_rate,omitempty" mapstructure:"learning_rate"`
}

// EventsConfig holds event stream settings. Empty brokers disable
// publishing (the nop publisher is used).
type EventsConfig struct {
	Brokers []string `toml:"brokers,omitempty" mapstructure:"brokers"`
	Topic   string   `toml:"topic,omitempty" mapstructure:"topic"`
}
