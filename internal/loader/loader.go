// Package loader reads help files of every supported format and merges them
// into one config.Model. It also adapts a set of paths into the registry's
// initial-database provider.
package loader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/helpme/internal/config"
	"github.com/specialistvlad/helpme/internal/ctxlog"
	"github.com/specialistvlad/helpme/internal/fsutil"
	"github.com/specialistvlad/helpme/internal/hcl"
	"github.com/specialistvlad/helpme/internal/helpdb"
	"github.com/specialistvlad/helpme/internal/registry"
	"gopkg.in/yaml.v3"
)

// Extensions lists the file extensions the loader understands.
var Extensions = []string{".hcl", ".json", ".yaml", ".yml"}

// Loader is the multi-format implementation of config.Loader.
type Loader struct{}

var _ config.Loader = (*Loader)(nil)

// New creates a new loader.
func New() *Loader {
	return &Loader{}
}

// Load reads all help files reachable from paths and merges them in order.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Help file loader started.", "path_count", len(paths))

	files, err := fsutil.FindFiles(paths, Extensions...)
	if err != nil {
		return nil, fmt.Errorf("failed to find help files: %w", err)
	}
	if len(files) == 0 {
		logger.Warn("No help files found.", "paths", paths)
	}

	model := config.NewModel()
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m, err := l.loadFile(ctx, file)
		if err != nil {
			return nil, err
		}
		model.Merge(m)
	}

	logger.Debug("Help files loaded.", "files", len(files), "entries", len(model.Database), "templates", len(model.Templates))
	return model, nil
}

func (l *Loader) loadFile(ctx context.Context, file string) (*config.Model, error) {
	src, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read help file %s: %w", file, err)
	}

	switch strings.ToLower(filepath.Ext(file)) {
	case ".hcl":
		return hcl.Decode(ctx, file, src)
	case ".json":
		return decodeJSON(file, src)
	case ".yaml", ".yml":
		return decodeYAML(file, src)
	default:
		return nil, fmt.Errorf("unsupported help file %s", file)
	}
}

// decodeJSON reads a JSON object of entries. JSON files carry no templates.
func decodeJSON(file string, src []byte) (*config.Model, error) {
	var raw map[string]any
	dec := json.NewDecoder(bytes.NewReader(src))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode JSON file %s: %w", file, err)
	}
	return modelFromAny(file, normalizeNumbers(raw))
}

// decodeYAML reads a YAML mapping of entries. YAML files carry no templates.
func decodeYAML(file string, src []byte) (*config.Model, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(src, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode YAML file %s: %w", file, err)
	}
	return modelFromAny(file, raw)
}

func modelFromAny(file string, raw map[string]any) (*config.Model, error) {
	table, err := helpdb.FromAny(raw)
	if err != nil {
		return nil, fmt.Errorf("in %s: %w", file, err)
	}
	model := config.NewModel()
	model.Database = table
	return model, nil
}

// normalizeNumbers turns json.Number into its literal text so "1.10" keeps its
// trailing zero.
func normalizeNumbers(m map[string]any) map[string]any {
	for k, v := range m {
		switch tv := v.(type) {
		case json.Number:
			m[k] = tv.String()
		case map[string]any:
			m[k] = normalizeNumbers(tv)
		}
	}
	return m
}

// Provider is a registry.Provider backed by help files.
type Provider struct {
	Loader config.Loader
	Paths  []string
}

var _ registry.Provider = (*Provider)(nil)

// Get returns a source that loads the provider's paths when resolved.
func (p *Provider) Get() registry.Source {
	return registry.SourceFunc(func(ctx context.Context) (helpdb.Table, error) {
		model, err := p.Loader.Load(ctx, p.Paths...)
		if err != nil {
			return nil, err
		}
		return model.Database, nil
	})
}
