package registry

import (
	"context"

	"github.com/specialistvlad/helpme/internal/helpdb"
)

// Source yields a help database, possibly after some delay.
type Source interface {
	Resolve(ctx context.Context) (helpdb.Table, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context) (helpdb.Table, error)

// Resolve calls f.
func (f SourceFunc) Resolve(ctx context.Context) (helpdb.Table, error) {
	return f(ctx)
}

type immediate struct {
	table helpdb.Table
}

// Immediate returns a Source that resolves to a copy of table.
func Immediate(table helpdb.Table) Source {
	return immediate{table: table.Clone()}
}

func (s immediate) Resolve(context.Context) (helpdb.Table, error) {
	return s.table, nil
}

// Provider supplies the initial database. New calls Get exactly once.
type Provider interface {
	Get() Source
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func() Source

// Get calls f.
func (f ProviderFunc) Get() Source {
	return f()
}

// StaticProvider returns a Provider whose source resolves to table.
func StaticProvider(table helpdb.Table) Provider {
	return ProviderFunc(func() Source { return Immediate(table) })
}
