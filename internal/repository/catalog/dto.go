package catalog

// File is the views file: the entities exposed to search.
type File struct {
	Entities map[string]EntityDTO `yaml:"entities"`
}

// EntityDTO describes one entity. Columns may be omitted to discover them.
type EntityDTO struct {
	View        string      `yaml:"view"`
	Description string      `yaml:"description"`
	MaxPageSize int         `yaml:"maxPageSize"`
	DefaultSort string      `yaml:"defaultSort"`
	Columns     []ColumnDTO `yaml:"columns"`
	// Exclude hides discovered columns by name.
	Exclude []string `yaml:"exclude"`
}

// ColumnDTO describes one column. Omitted flags default to true.
type ColumnDTO struct {
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	Filterable *bool  `yaml:"filterable"`
	Sortable   *bool  `yaml:"sortable"`
	Selectable *bool  `yaml:"selectable"`
}

func flag(p *bool) bool {
	if p == nil {
		return true
	}
	return *p
}
