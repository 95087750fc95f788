package config

import "github.com/specialistvlad/helpme/internal/helpdb"

// Model is the unified representation of one or more help files.
type Model struct {
	Database  helpdb.Table
	Templates map[string]string
}

// NewModel returns an empty model.
func NewModel() *Model {
	return &Model{
		Database:  make(helpdb.Table),
		Templates: make(map[string]string),
	}
}

// Merge folds other into m. The database is deep-merged with helpdb.Merge and
// templates from other replace templates of the same name.
func (m *Model) Merge(other *Model) {
	if other == nil {
		return
	}
	helpdb.Merge(m.Database, other.Database)
	for name, source := range other.Templates {
		m.Templates[name] = source
	}
}
