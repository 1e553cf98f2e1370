// Package config defines service configuration structures and loading.
//
// Conventions:
// - Defaults live in New; Load layers file and env on top.
// - External errors are wrapped via this package's sentinel kinds.
package config

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8090".
	Addr string `koanf:"addr"`

	// StorePath roots the on-disk document store. Empty selects the
	// in-memory store.
	StorePath string `koanf:"store_path"`

	// BaseURL plus the per-channel paths build the display endpoints.
	BaseURL     string `koanf:"base_url"`
	PreviewPath string `koanf:"preview_path"`
	LivePath    string `koanf:"live_path"`

	// MatchCollection names the collection holding match records.
	MatchCollection string `koanf:"match_collection"`

	// HistoryLimit bounds the history view query.
	HistoryLimit int `koanf:"history_limit"`

	// AlertCapacity bounds the operator alert queue.
	AlertCapacity int `koanf:"alert_capacity"`

	// AllowedActions is the mixed numeric/symbolic allow-list of action
	// identifiers eligible to trigger alerts.
	AllowedActions []string `koanf:"allowed_actions"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		Addr:            ":8090",
		BaseURL:         "https://match-score.dflix.com",
		PreviewPath:     "/preview-score/",
		LivePath:        "/live-score/",
		MatchCollection: "demo-matches",
		HistoryLimit:    20,
		AlertCapacity:   5,
		AllowedActions: []string{
			"4", "6",
			"WINNER", "WICKET", "RETIREMENT", "NEXT_PLAYER",
			"HALF_TIME", "BATTING_INTRO", "SCORE_TABLE",
			"INNING_TABLE", "TOSS", "PLAYER_SUMMARY",
		},
	}
}
