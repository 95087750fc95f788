package config

import "context"

// Loader is the interface for reading help files into the unified model.
type Loader interface {
	// Load reads every help file reachable from paths, in order, and merges
	// them into a single model. Later files win on conflicting keys.
	Load(ctx context.Context, paths ...string) (*Model, error)
}
