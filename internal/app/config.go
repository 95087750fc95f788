package app

import "errors"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	DBPaths []string // help files or directories, merged in order
	Locale  string
	Hidden  bool
	Watch   bool

	LogFormat string
	LogLevel  string
	Port      int
}

func NewConfig(cfg Config) (*Config, error) {
	if len(cfg.DBPaths) == 0 {
		return nil, errors.New("at least one help database path is required")
	}
	if cfg.Port < 0 || cfg.Port > 65535 {
		return nil, errors.New("port must be between 0 and 65535")
	}
	return &cfg, nil
}
