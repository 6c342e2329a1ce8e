package viewdex

import (
	"fmt"

	"github.com/kailas-cloud/viewdex/internal/domain/registry"
	"github.com/kailas-cloud/viewdex/internal/domain/registry/column"
)

// ColumnType is the semantic type of a column.
type ColumnType string

// Column types.
const (
	TypeString    ColumnType = ColumnType(column.String)
	TypeInteger   ColumnType = ColumnType(column.Integer)
	TypeDecimal   ColumnType = ColumnType(column.Decimal)
	TypeBoolean   ColumnType = ColumnType(column.Boolean)
	TypeDate      ColumnType = ColumnType(column.Date)
	TypeTimestamp ColumnType = ColumnType(column.Timestamp)
)

// ColumnDef declares one column of an entity. Every use is enabled unless switched off.
type ColumnDef struct {
	Name     string
	Type     ColumnType
	NoFilter bool
	NoSort   bool
	NoSelect bool
}

// EntityDef declares an entity backed by a view.
type EntityDef struct {
	Name        string
	View        string
	Description string
	MaxPageSize int
	DefaultSort string
	Columns     []ColumnDef
}

// EntityInfo describes a registered entity as seen by one subject.
type EntityInfo struct {
	Name        string
	View        string
	Description string
	MaxPageSize int
	DefaultSort string
	Columns     []ColumnDef
}

func (d EntityDef) build() (registry.Entity, error) {
	cols := make([]column.Column, 0, len(d.Columns))
	for _, cd := range d.Columns {
		c, err := column.New(cd.Name, column.Type(cd.Type), column.Flags{
			Filterable: !cd.NoFilter,
			Sortable:   !cd.NoSort,
			Selectable: !cd.NoSelect,
		})
		if err != nil {
			return registry.Entity{}, fmt.Errorf("entity %s: %w", d.Name, err)
		}
		cols = append(cols, c)
	}

	var opts []registry.EntityOption
	if d.MaxPageSize > 0 {
		opts = append(opts, registry.WithMaxPageSize(d.MaxPageSize))
	}
	if d.DefaultSort != "" {
		opts = append(opts, registry.WithDefaultSort(d.DefaultSort))
	}
	if d.Description != "" {
		opts = append(opts, registry.WithDescription(d.Description))
	}
	return registry.NewEntity(d.Name, d.View, cols, opts...)
}

func columnDef(c column.Column) ColumnDef {
	return ColumnDef{
		Name:     c.Name(),
		Type:     ColumnType(c.Type()),
		NoFilter: !c.Filterable(),
		NoSort:   !c.Sortable(),
		NoSelect: !c.Selectable(),
	}
}
